package main

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with TOML friendly types.
type FileConfig struct {
	Addr        string   `toml:"addr"`
	Mode        string   `toml:"mode"`
	DBPath      string   `toml:"db_path"`
	ContentFile string   `toml:"content_file"`
	SiteURL     string   `toml:"site_url"`
	CORSOrigins []string `toml:"cors_origins"`

	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
		File   string `toml:"file"`
	} `toml:"log"`

	SMTP struct {
		Host              string `toml:"host"`
		Port              int    `toml:"port"`
		User              string `toml:"user"`
		Password          string `toml:"password"`
		NotificationEmail string `toml:"notification_email"`
	} `toml:"smtp"`

	Admin struct {
		Username     string `toml:"username"`
		Password     string `toml:"password"`
		PasswordHash string `toml:"password_hash"`
		SessionKey   string `toml:"session_key"`
	} `toml:"admin"`

	VisitorRetention string `toml:"visitor_retention"`

	BackendURL  string `toml:"backend_url"`
	HTTPTimeout string `toml:"http_timeout"`
}

// LoadFileConfig reads and parses a TOML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// ApplyFileConfig copies file values into cfg, skipping explicitly set flags.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("addr", fc.Addr, &cfg.Addr)
	s.setString("mode", fc.Mode, &cfg.Mode)
	s.setString("db", fc.DBPath, &cfg.DBPath)
	s.setString("content", fc.ContentFile, &cfg.ContentFile)
	s.setString("site-url", fc.SiteURL, &cfg.SiteURL)
	s.setList("cors-origins", fc.CORSOrigins, &cfg.CORSOrigins)

	s.setString("log-level", fc.Log.Level, &cfg.LogLevel)
	s.setString("log-format", fc.Log.Format, &cfg.LogFormat)
	s.setString("log-file", fc.Log.File, &cfg.LogFile)

	s.setString("smtp-host", fc.SMTP.Host, &cfg.SMTPHost)
	s.setInt("smtp-port", fc.SMTP.Port, &cfg.SMTPPort)
	s.setString("smtp-user", fc.SMTP.User, &cfg.SMTPUser)
	s.setString("smtp-password", fc.SMTP.Password, &cfg.SMTPPassword)
	s.setString("notification-email", fc.SMTP.NotificationEmail, &cfg.NotificationEmail)

	s.setString("admin-username", fc.Admin.Username, &cfg.AdminUsername)
	s.setString("admin-password", fc.Admin.Password, &cfg.AdminPassword)
	s.setString("admin-password-hash", fc.Admin.PasswordHash, &cfg.AdminPasswordHash)
	s.setString("session-key", fc.Admin.SessionKey, &cfg.SessionKey)

	if err := s.setDuration("visitor-retention", fc.VisitorRetention, &cfg.VisitorRetention); err != nil {
		return err
	}

	s.setString("backend-url", fc.BackendURL, &cfg.BackendURL)
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	return nil
}

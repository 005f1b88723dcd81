package main

import (
	"os"
	"strings"
)

const envPrefix = "PORTFOLIO_"

// lookupEnv returns the PORTFOLIO_ prefixed variable, falling back to the
// unprefixed legacy name the site has always read.
func lookupEnv(name string) string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + name)); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(name))
}

// ApplyEnvConfig applies environment variables to cfg. Values for flags that
// were set explicitly are left alone.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if port := lookupEnv("PORT"); port != "" {
		s.setString("addr", ":"+port, &cfg.Addr)
	}
	s.setString("addr", strings.TrimSpace(os.Getenv(envPrefix+"ADDR")), &cfg.Addr)
	s.setString("mode", lookupEnv("GIN_MODE"), &cfg.Mode)
	s.setString("db", lookupEnv("DB_PATH"), &cfg.DBPath)
	s.setString("content", lookupEnv("CONTENT_FILE"), &cfg.ContentFile)
	s.setString("site-url", lookupEnv("SITE_URL"), &cfg.SiteURL)
	s.setList("cors-origins", splitList(lookupEnv("CORS_ORIGINS")), &cfg.CORSOrigins)

	s.setString("log-level", lookupEnv("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", lookupEnv("LOG_FORMAT"), &cfg.LogFormat)
	s.setString("log-file", lookupEnv("LOG_FILE"), &cfg.LogFile)

	s.setString("smtp-host", lookupEnv("SMTP_HOST"), &cfg.SMTPHost)
	if err := s.setIntFromString("smtp-port", lookupEnv("SMTP_PORT"), &cfg.SMTPPort); err != nil {
		return err
	}
	s.setString("smtp-user", lookupEnv("SMTP_USER"), &cfg.SMTPUser)
	// SMTP_PASS is a shorter alias; SMTP_PASSWORD wins when both are set.
	s.setString("smtp-password", lookupEnv("SMTP_PASS"), &cfg.SMTPPassword)
	s.setString("smtp-password", lookupEnv("SMTP_PASSWORD"), &cfg.SMTPPassword)
	s.setString("notification-email", lookupEnv("NOTIFICATION_EMAIL"), &cfg.NotificationEmail)

	s.setString("admin-username", lookupEnv("ADMIN_USERNAME"), &cfg.AdminUsername)
	s.setString("admin-password", lookupEnv("ADMIN_PASSWORD"), &cfg.AdminPassword)
	s.setString("admin-password-hash", lookupEnv("ADMIN_PASSWORD_HASH"), &cfg.AdminPasswordHash)
	s.setString("session-key", lookupEnv("SESSION_KEY"), &cfg.SessionKey)

	if err := s.setDuration("visitor-retention", lookupEnv("VISITOR_RETENTION"), &cfg.VisitorRetention); err != nil {
		return err
	}

	s.setString("backend-url", lookupEnv("BACKEND_URL"), &cfg.BackendURL)
	if err := s.setDuration("timeout", lookupEnv("HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	return nil
}

package main

import (
	"fmt"
	"net"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	DefaultAddr       = ":8080"
	DefaultDBPath     = "portfolio.db"
	DefaultBackendURL = "http://localhost:8080"
	DefaultSMTPPort   = 587
	DefaultRetention  = 365 * 24 * time.Hour
)

// Config holds settings for both the server and the send command.
type Config struct {
	Addr        string
	Mode        string
	DBPath      string
	ContentFile string
	SiteURL     string
	CORSOrigins []string

	LogLevel  string
	LogFormat string
	LogFile   string

	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	NotificationEmail string

	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string
	SessionKey        string

	VisitorRetention time.Duration

	BackendURL  string
	HTTPTimeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Addr:             DefaultAddr,
		Mode:             gin.DebugMode,
		DBPath:           DefaultDBPath,
		CORSOrigins:      []string{"*"},
		LogLevel:         "info",
		SMTPPort:         DefaultSMTPPort,
		AdminUsername:    "admin",
		VisitorRetention: DefaultRetention,
		BackendURL:       DefaultBackendURL,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	switch c.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	case "":
		c.Mode = gin.DebugMode
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}

	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("invalid addr %q: %w", c.Addr, err)
	}

	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}

	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("invalid smtp port %d", c.SMTPPort)
	}
	if c.SMTPConfigured() {
		if c.NotificationEmail == "" {
			c.NotificationEmail = c.SMTPUser
		}
		if _, err := mail.ParseAddress(c.NotificationEmail); err != nil {
			return fmt.Errorf("invalid notification email %q: %w", c.NotificationEmail, err)
		}
	}

	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	for _, o := range c.CORSOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("invalid cors origin %q: must be * or start with http:// or https://", o)
		}
	}

	if c.VisitorRetention <= 0 {
		c.VisitorRetention = DefaultRetention
	}

	c.BackendURL = strings.TrimRight(c.BackendURL, "/")
	c.SiteURL = strings.TrimRight(c.SiteURL, "/")

	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must not be negative")
	}

	return nil
}

// SMTPConfigured reports whether notification mail can be sent.
func (c Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPassword != ""
}

// AdminEnabled reports whether the admin area should be mounted.
func (c Config) AdminEnabled() bool {
	return c.AdminPassword != "" || c.AdminPasswordHash != "" || c.Mode == gin.DebugMode
}

// configSetter applies values unless the matching flag was set explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setList(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// splitList splits a comma separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

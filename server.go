package main

import (
	"crypto/rand"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"html/template"
	"io/fs"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/crewjam/csp"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

//go:embed web/templates/*.html
var templateFS embed.FS

//go:embed web/static
var staticFS embed.FS

type server struct {
	cfg     Config
	profile Profile
	store   *Store
	mailer  Mailer
	log     zerolog.Logger
	admin   *adminAuth

	hashingSalt string
	now         func() time.Time
	newID       func() string
}

func newServer(cfg Config, profile Profile, store *Store, mailer Mailer, log zerolog.Logger) (*server, error) {
	s := &server{
		cfg:     cfg,
		profile: profile,
		store:   store,
		mailer:  mailer,
		log:     log,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}

	s.hashingSalt = cfg.SessionKey
	if s.hashingSalt == "" {
		s.hashingSalt = randomHex(32)
	}

	if cfg.AdminEnabled() {
		admin, err := newAdminAuth(cfg, log)
		if err != nil {
			return nil, err
		}
		s.admin = admin
	} else {
		log.Info().Msg("admin area disabled, set ADMIN_PASSWORD to enable it")
	}
	return s, nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// hashIP returns a truncated salted hash so raw addresses never hit the database.
func (s *server) hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + s.hashingSalt))
	return hex.EncodeToString(sum[:])[:16]
}

var templateFuncs = template.FuncMap{
	"lower": strings.ToLower,
	"join":  strings.Join,
	"year":  func() int { return time.Now().Year() },
	"date":  func(t time.Time) string { return t.UTC().Format("Jan 2, 2006 15:04 UTC") },
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log), securityHeaders(s.cfg))

	tmpl := template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "web/templates/*.html"))
	r.SetHTMLTemplate(tmpl)

	static, err := fs.Sub(staticFS, "web/static")
	if err != nil {
		panic(err)
	}
	r.StaticFS("/static", http.FS(static))

	pages := r.Group("/", s.visitorTracking())
	pages.GET("/", s.handleHome)

	// The privacy page is not tracked.
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title":     "Privacy Policy",
			"profile":   s.profile,
			"retention": int(s.cfg.VisitorRetention.Hours() / 24),
		})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", corsMiddleware(s.cfg.CORSOrigins))
	api.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Hello World"})
	})
	api.GET("/profile", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.profile)
	})
	api.POST("/contact", s.handleContact)
	api.POST("/status", s.handleCreateStatus)
	api.GET("/status", s.handleListStatus)
	// Preflight requests need a matching route for the CORS middleware to run.
	api.OPTIONS("/*any", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	if s.admin != nil {
		s.setupAdminRoutes(r)
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
			return
		}
		c.HTML(http.StatusNotFound, "not-found.html", gin.H{"profile": s.profile})
	})

	return r
}

func (s *server) handleHome(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"profile": s.profile,
	})
}

// securityHeaders sets the Content-Security-Policy and a few related headers.
func securityHeaders(cfg Config) gin.HandlerFunc {
	sources := []string{"'self'"}
	if host := siteHost(cfg.SiteURL); host != "" {
		sources = append(sources, host)
	}
	policy := csp.Header{DefaultSrc: sources}.String()

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Security-Policy", policy)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-Frame-Options", "DENY")
		c.Next()
	}
}

func siteHost(siteURL string) string {
	if siteURL == "" {
		return ""
	}
	host := siteURL
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	return host
}

// corsMiddleware mirrors the comma separated CORS_ORIGINS setting; "*" allows
// any origin without credentials. Origins are checked by Config.Validate.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}

	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// visitorTracking records page views with a hashed client IP. Do Not Track is
// honoured and only successful page renders are counted.
func (s *server) visitorTracking() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet || c.GetHeader("DNT") == "1" {
			return
		}
		if c.Writer.Status() >= 400 {
			return
		}

		err := s.store.RecordVisit(c.Request.Context(), s.hashIP(c.ClientIP()),
			c.GetHeader("User-Agent"), c.Request.URL.Path, s.now())
		if err != nil {
			s.log.Error().Err(err).Msg("error recording visitor")
		}
	}
}

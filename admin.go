// admin.go - privacy-conscious admin area for reading contact submissions
package main

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminCookieName = "admin_session"
	adminSessionTTL = 24 * time.Hour
	exportLimit     = 10000
	devAdminPass    = "admin123"
)

type adminAuth struct {
	username     string
	passwordHash []byte
	cookies      *securecookie.SecureCookie
	secure       bool
	log          zerolog.Logger
}

type adminSession struct {
	User     string `json:"user"`
	IssuedAt int64  `json:"issued_at"`
}

func newAdminAuth(cfg Config, log zerolog.Logger) (*adminAuth, error) {
	a := &adminAuth{
		username: cfg.AdminUsername,
		secure:   cfg.Mode == gin.ReleaseMode,
		log:      log,
	}
	if a.username == "" {
		a.username = "admin"
	}

	switch {
	case cfg.AdminPasswordHash != "":
		a.passwordHash = []byte(cfg.AdminPasswordHash)
		if _, err := bcrypt.Cost(a.passwordHash); err != nil {
			return nil, fmt.Errorf("admin password hash: %w", err)
		}
	case cfg.AdminPassword != "":
		h, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		a.passwordHash = h
	default:
		log.Warn().Msg("using default admin password, set ADMIN_PASSWORD")
		h, err := bcrypt.GenerateFromPassword([]byte(devAdminPass), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		a.passwordHash = h
	}

	var hashKey, blockKey []byte
	if cfg.SessionKey != "" {
		hk := sha256.Sum256([]byte("hash:" + cfg.SessionKey))
		bk := sha256.Sum256([]byte("block:" + cfg.SessionKey))
		hashKey, blockKey = hk[:], bk[:]
	} else {
		hashKey = securecookie.GenerateRandomKey(32)
		blockKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil || blockKey == nil {
			return nil, errors.New("generate session keys")
		}
	}
	a.cookies = securecookie.New(hashKey, blockKey).MaxAge(int(adminSessionTTL.Seconds()))

	log.Info().Str("path", "/admin/login").Msg("admin access available")
	return a, nil
}

func (a *adminAuth) checkCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
	return userOK && passOK
}

func (a *adminAuth) setSession(c *gin.Context, user string, now time.Time) error {
	encoded, err := a.cookies.Encode(adminCookieName, adminSession{User: user, IssuedAt: now.Unix()})
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(adminCookieName, encoded, int(adminSessionTTL.Seconds()), "/admin", "", a.secure, true)
	return nil
}

func (a *adminAuth) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(adminCookieName, "", -1, "/admin", "", a.secure, true)
}

func (a *adminAuth) session(c *gin.Context) (adminSession, bool) {
	var sess adminSession
	raw, err := c.Cookie(adminCookieName)
	if err != nil {
		return sess, false
	}
	if err := a.cookies.Decode(adminCookieName, raw, &sess); err != nil {
		return sess, false
	}
	return sess, sess.User == a.username
}

// middleware rejects requests without a valid session. Page requests are sent
// to the login form; everything else gets 401.
func (a *adminAuth) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := a.session(c); ok {
			c.Next()
			return
		}
		if c.Request.Method == http.MethodGet && !wantsJSON(c) {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		apiError(c, http.StatusUnauthorized, "Not authenticated")
	}
}

func wantsJSON(c *gin.Context) bool {
	path := c.Request.URL.Path
	return strings.HasPrefix(path, "/admin/api/") ||
		strings.HasPrefix(path, "/admin/export/") ||
		strings.HasPrefix(path, "/admin/submissions/") ||
		strings.Contains(c.GetHeader("Accept"), "application/json")
}

// setupAdminRoutes mounts the login flow and the protected admin group.
func (s *server) setupAdminRoutes(r *gin.Engine) {
	a := s.admin

	r.GET("/admin/login", func(c *gin.Context) {
		if _, ok := a.session(c); ok {
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}
		c.HTML(http.StatusOK, "admin-login.html", gin.H{"title": "Admin Login"})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")

		if !a.checkCredentials(username, password) {
			s.log.Warn().Str("client", s.hashIP(c.ClientIP())).Msg("failed admin login attempt")
			c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
				"title": "Admin Login",
				"error": "Invalid credentials",
			})
			return
		}

		if err := a.setSession(c, username, s.now()); err != nil {
			s.log.Error().Err(err).Msg("error encoding admin session")
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Could not start session"})
			return
		}
		s.log.Info().Str("client", s.hashIP(c.ClientIP())).Msg("admin login successful")
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		a.clearSession(c)
		s.log.Info().Str("client", s.hashIP(c.ClientIP())).Msg("admin logout")
		c.Redirect(http.StatusFound, "/admin/login")
	})

	adminGroup := r.Group("/admin", a.middleware())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context(), s.now())
		if err != nil {
			s.log.Error().Err(err).Msg("error loading admin stats")
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"title":    "Dashboard",
			"stats":    stats,
			"statuses": []string{StatusNew, StatusRead, StatusArchived},
		})
	})

	adminGroup.GET("/api/stats", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context(), s.now())
		if err != nil {
			apiError(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.GET("/submissions/:id", func(c *gin.Context) {
		sub, err := s.store.GetSubmission(c.Request.Context(), c.Param("id"))
		if errors.Is(err, ErrNotFound) {
			apiError(c, http.StatusNotFound, "Submission not found")
			return
		}
		if err != nil {
			apiError(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, sub)
	})

	adminGroup.POST("/submissions/:id/status", s.handleSubmissionStatus)

	adminGroup.GET("/export/submissions", func(c *gin.Context) {
		subs, err := s.store.ListSubmissions(c.Request.Context(), exportLimit)
		if err != nil {
			apiError(c, http.StatusInternalServerError, err.Error())
			return
		}
		if subs == nil {
			subs = []ContactSubmission{}
		}
		c.Header("Content-Disposition", "attachment; filename=contact-submissions.json")
		s.log.Info().Int("count", len(subs)).Str("client", s.hashIP(c.ClientIP())).Msg("submissions exported")
		c.JSON(http.StatusOK, subs)
	})

	adminGroup.POST("/privacy/cleanup", func(c *gin.Context) {
		n, err := s.cleanupVisitors(c.Request.Context())
		if err != nil {
			apiError(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": n})
	})
}

type statusUpdate struct {
	Status string `json:"status" form:"status" binding:"required"`
}

func (s *server) handleSubmissionStatus(c *gin.Context) {
	var in statusUpdate
	if err := c.ShouldBind(&in); err != nil {
		apiError(c, http.StatusBadRequest, bindingDetail(err))
		return
	}

	id := c.Param("id")
	err := s.store.UpdateSubmissionStatus(c.Request.Context(), id, in.Status)
	switch {
	case errors.Is(err, ErrInvalidStatus):
		apiError(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrNotFound):
		apiError(c, http.StatusNotFound, "Submission not found")
		return
	case err != nil:
		s.log.Error().Err(err).Str("submission_id", id).Msg("error updating submission")
		apiError(c, http.StatusInternalServerError, err.Error())
		return
	}

	s.log.Info().Str("submission_id", id).Str("status", in.Status).Msg("submission status changed")
	if c.ContentType() == gin.MIMEPOSTForm {
		c.Redirect(http.StatusSeeOther, "/admin/dashboard")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": in.Status})
}

// cleanupVisitors removes visitor rows past the retention window.
func (s *server) cleanupVisitors(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.cfg.VisitorRetention)
	n, err := s.store.CleanupVisitors(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("error cleaning up old visitor data")
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int64("deleted", n).Msg("privacy cleanup removed old visitor records")
	}
	return n, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fakeMailer struct {
	mu   sync.Mutex
	sent []ContactSubmission
	err  error
}

func (m *fakeMailer) SendContact(_ context.Context, sub ContactSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sub)
	return nil
}

func (m *fakeMailer) fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type testEnv struct {
	srv    *server
	store  *Store
	mailer *fakeMailer
	router *gin.Engine
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Mode = gin.TestMode
	cfg.AdminUsername = "owner"
	cfg.AdminPassword = "correct horse"
	cfg.SessionKey = "test-session-key"
	return cfg
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	store, err := OpenStore(cfg.DBPath)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mailer := &fakeMailer{}
	srv, err := newServer(cfg, DefaultProfile(), store, mailer, zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer() error = %v", err)
	}
	srv.now = func() time.Time { return testNow }
	var seq int
	srv.newID = func() string {
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}

	return &testEnv{srv: srv, store: store, mailer: mailer, router: srv.routes()}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func TestHomePage(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.get("/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()

	p := DefaultProfile()
	texts := []string{
		p.Name,
		p.Headline,
		string(p.Skills[0]),
		string(p.Skills[len(p.Skills)-1]),
		p.Experiences[1].Title,
		"Industry: " + p.Experiences[0].Industry,
	}
	for _, want := range texts {
		if !strings.Contains(body, templateEscape(want)) {
			t.Errorf("home page missing text %q", want)
		}
	}

	markup := []string{
		"Core Skills",
		"Why Work With Me",
		`id="contact-form"`,
		`name="company"`,
		`src="/static/js/contact.js"`,
	}
	for _, want := range markup {
		if !strings.Contains(body, want) {
			t.Errorf("home page missing markup %q", want)
		}
	}
}

// templateEscape mirrors how html/template escapes text nodes.
func templateEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "'", "&#39;", `"`, "&#34;", "+", "&#43;").Replace(s)
}

func TestSecurityHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.SiteURL = "https://gail.example.com/"
	env := newTestEnv(t, cfg)

	w := env.get("/")
	policy := w.Header().Get("Content-Security-Policy")
	if !strings.Contains(policy, "default-src") || !strings.Contains(policy, "'self'") {
		t.Errorf("Content-Security-Policy = %q", policy)
	}
	if !strings.Contains(policy, "gail.example.com") {
		t.Errorf("site host missing from policy %q", policy)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, testConfig())

	for _, path := range []string{"/static/js/contact.js", "/static/css/site.css", "/static/img/profile.svg"} {
		w := env.get(path)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d", path, w.Code)
		}
	}
}

func TestPrivacyAndNotFound(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.get("/privacy")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "365 days") {
		t.Errorf("privacy: status %d body %q", w.Code, w.Body.String())
	}

	w = env.get("/nowhere")
	if w.Code != http.StatusNotFound {
		t.Errorf("page 404 status = %d", w.Code)
	}

	w = env.get("/api/nowhere")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"detail"`) {
		t.Errorf("api 404: status %d body %s", w.Code, w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, testConfig())
	w := env.get("/healthz")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("healthz: %d %s", w.Code, w.Body.String())
	}
}

func TestVisitorTracking(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("User-Agent", "test-agent")
	env.do(req)

	dnt := httptest.NewRequest(http.MethodGet, "/", nil)
	dnt.Header.Set("DNT", "1")
	env.do(dnt)

	env.get("/static/css/site.css")
	env.get("/api/")
	env.get("/privacy")

	stats, err := env.store.Stats(ctx, testNow)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalVisitors != 1 {
		t.Fatalf("TotalVisitors = %d, want 1", stats.TotalVisitors)
	}
	v := stats.RecentVisitors[0]
	if v.HashedIP == "203.0.113.7" || len(v.HashedIP) != 16 {
		t.Errorf("HashedIP = %q, want 16 char hash", v.HashedIP)
	}
	if v.HashedIP != env.srv.hashIP("203.0.113.7") {
		t.Errorf("hash not stable")
	}
	if v.UserAgent != "test-agent" || v.Path != "/" {
		t.Errorf("visitor = %+v", v)
	}
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.CORSOrigins = []string{"https://gail.example.com"}
	env := newTestEnv(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", "https://gail.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := env.do(req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://gail.example.com" {
		t.Errorf("allowed origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = env.do(req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestCORSWildcard(t *testing.T) {
	env := newTestEnv(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := env.do(req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allowed origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("credentials allowed for any origin: %q", got)
	}
}

func TestSiteHost(t *testing.T) {
	tests := map[string]string{
		"":                           "",
		"https://gail.example.com":   "gail.example.com",
		"http://localhost:8080/path": "localhost:8080",
		"example.org":                "example.org",
	}
	for in, want := range tests {
		if got := siteHost(in); got != want {
			t.Errorf("siteHost(%q) = %q, want %q", in, got, want)
		}
	}
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

var errSMTPDown = errors.New("dial tcp 127.0.0.1:587: connection refused")

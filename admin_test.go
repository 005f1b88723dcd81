package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func login(t *testing.T, env *testEnv, user, pass string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {user}, "password": {pass}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return env.do(req)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == adminCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestAdminRequiresSession(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.get("/admin/dashboard")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/admin/login" {
		t.Errorf("dashboard without session: %d %q", w.Code, w.Header().Get("Location"))
	}

	w = env.get("/admin/api/stats")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("api without session: %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: adminCookieName, Value: "forged"})
	w = env.do(req)
	if w.Code != http.StatusFound {
		t.Errorf("forged cookie: %d", w.Code)
	}
}

func TestAdminLogin(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := login(t, env, "owner", "wrong")
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "Invalid credentials") {
		t.Errorf("bad password: %d", w.Code)
	}
	w = login(t, env, "admin", "correct horse")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad username: %d", w.Code)
	}

	w = login(t, env, "owner", "correct horse")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/admin/dashboard" {
		t.Fatalf("login: %d %q", w.Code, w.Header().Get("Location"))
	}
	cookie := sessionCookie(t, w)
	if !cookie.HttpOnly || cookie.Path != "/admin" {
		t.Errorf("cookie = %+v", cookie)
	}

	env.postJSON("/api/contact", `{"name":"Jane","email":"jane@company.com","message":"Dashboard me"}`)

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(cookie)
	w = env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Dashboard me") {
		t.Error("dashboard does not list the submission")
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/logout", nil)
	req.AddCookie(cookie)
	w = env.do(req)
	if w.Code != http.StatusFound {
		t.Errorf("logout: %d", w.Code)
	}
}

func TestAdminSubmissionEndpoints(t *testing.T) {
	env := newTestEnv(t, testConfig())
	cookie := sessionCookie(t, login(t, env, "owner", "correct horse"))

	env.postJSON("/api/contact", `{"name":"Jane","email":"jane@company.com","message":"Hello"}`)

	authed := func(req *http.Request) *httptest.ResponseRecorder {
		req.AddCookie(cookie)
		return env.do(req)
	}

	w := authed(httptest.NewRequest(http.MethodGet, "/admin/submissions/id-001", nil))
	var sub ContactSubmission
	if err := json.Unmarshal(w.Body.Bytes(), &sub); err != nil || sub.Message != "Hello" {
		t.Fatalf("get submission: %d %s", w.Code, w.Body.String())
	}

	w = authed(httptest.NewRequest(http.MethodGet, "/admin/submissions/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing submission: %d", w.Code)
	}

	tests := []struct {
		id, body string
		want     int
	}{
		{"id-001", `{"status":"read"}`, http.StatusOK},
		{"id-001", `{"status":"spam"}`, http.StatusBadRequest},
		{"id-001", `{}`, http.StatusBadRequest},
		{"missing", `{"status":"archived"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/admin/submissions/"+tt.id+"/status", strings.NewReader(tt.body))
		req.Header.Set("Content-Type", "application/json")
		if w := authed(req); w.Code != tt.want {
			t.Errorf("status update %s %s: %d, want %d", tt.id, tt.body, w.Code, tt.want)
		}
	}

	form := url.Values{"status": {"archived"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/submissions/id-001/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = authed(req)
	if w.Code != http.StatusSeeOther {
		t.Errorf("form status update: %d", w.Code)
	}

	w = authed(httptest.NewRequest(http.MethodGet, "/admin/export/submissions", nil))
	if !strings.Contains(w.Header().Get("Content-Disposition"), "contact-submissions.json") {
		t.Errorf("export headers = %v", w.Header())
	}
	var exported []ContactSubmission
	if err := json.Unmarshal([]byte(readAll(t, w.Body)), &exported); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(exported) != 1 || exported[0].Status != StatusArchived {
		t.Errorf("exported = %+v", exported)
	}

	w = authed(httptest.NewRequest(http.MethodPost, "/admin/privacy/cleanup", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"deleted":0`) {
		t.Errorf("cleanup: %d %s", w.Code, w.Body.String())
	}

	w = authed(httptest.NewRequest(http.MethodGet, "/admin/api/stats", nil))
	var stats SiteStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil || stats.TotalSubmissions != 1 {
		t.Errorf("stats: %d %s", w.Code, w.Body.String())
	}
}

func TestAdminDisabledInRelease(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = gin.ReleaseMode
	cfg.AdminPassword = ""
	env := newTestEnv(t, cfg)

	if env.srv.admin != nil {
		t.Fatal("admin enabled without a password in release mode")
	}
	if w := env.get("/admin/login"); w.Code != http.StatusNotFound {
		t.Errorf("login page status = %d, want 404", w.Code)
	}
}

func TestAdminPasswordHash(t *testing.T) {
	cfg := testConfig()
	cfg.AdminPassword = ""
	cfg.AdminPasswordHash = "not-a-bcrypt-hash"
	if _, err := newAdminAuth(cfg, zerolog.Nop()); err == nil {
		t.Error("invalid hash accepted")
	}
}

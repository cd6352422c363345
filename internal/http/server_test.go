package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"timelog/internal/auth"
	"timelog/internal/ledger"
	"timelog/internal/store/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	tree := memory.New()
	srv := NewServer(Options{
		Addr:     ":0",
		Ledger:   ledger.NewService(tree),
		Accounts: auth.NewService(tree),
		Sessions: auth.NewSessions("test-secret-0123456789", time.Hour),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

// signUp registers an account through the handler and returns the session
// cookie it set.
func signUp(t *testing.T, srv *Server, email string) *http.Cookie {
	t.Helper()
	form := url.Values{"email": {email}, "password": {"secret1"}, "password_confirm": {"secret1"}}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("signup status=%d body=%s", rr.Code, rr.Body.String())
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			return c
		}
	}
	t.Fatalf("signup did not set a session cookie")
	return nil
}

func postForm(srv *Server, cookie *http.Cookie, path string, form url.Values) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func get(srv *Server, cookie *http.Cookie, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if rr := get(srv, nil, path); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	srv := newTestServer(t)

	rr := get(srv, nil, "/")
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}

	// An htmx request gets an HX-Redirect instead of a 3xx the browser
	// would follow inside the swap target.
	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ui/activities", nil)
	req.Header.Set("HX-Request", "true")
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized || rr.Header().Get("HX-Redirect") != "/login" {
		t.Fatalf("expected 401 with HX-Redirect, got %d %q", rr.Code, rr.Header().Get("HX-Redirect"))
	}
}

func TestLoginPage(t *testing.T) {
	srv := newTestServer(t)
	rr := get(srv, nil, "/login")
	if rr.Code != http.StatusOK {
		t.Fatalf("login status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Time Logger") {
		t.Fatalf("login body missing heading")
	}
	// Google sign-in is not configured for tests, so the button is absent.
	if strings.Contains(rr.Body.String(), "Continue with Google") {
		t.Fatalf("google button rendered while disabled")
	}
}

func TestSignupLoginLogoutFlow(t *testing.T) {
	srv := newTestServer(t)
	cookie := signUp(t, srv, "alice@example.com")

	rr := get(srv, cookie, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("day view status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "alice@example.com") {
		t.Fatalf("day view missing account email")
	}

	// Wrong password is a 422, not a 500.
	rr = postForm(srv, nil, "/login", url.Values{"email": {"alice@example.com"}, "password": {"wrong"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad login status=%d", rr.Code)
	}

	rr = postForm(srv, nil, "/login", url.Values{"email": {"alice@example.com"}, "password": {"secret1"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("login status=%d", rr.Code)
	}

	rr = postForm(srv, cookie, "/logout", url.Values{})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("logout status=%d", rr.Code)
	}
	var cleared bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("logout did not clear the session cookie")
	}
}

func TestDuplicateSignupRejected(t *testing.T) {
	srv := newTestServer(t)
	signUp(t, srv, "alice@example.com")

	rr := postForm(srv, nil, "/signup", url.Values{
		"email": {"ALICE@example.com"}, "password": {"another1"}, "password_confirm": {"another1"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate signup status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "already exists") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}

	// Mismatched confirmation never reaches the account service.
	rr = postForm(srv, nil, "/signup", url.Values{
		"email": {"carol@example.com"}, "password": {"secret1"}, "password_confirm": {"secret2"},
	})
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "do not match") {
		t.Fatalf("mismatch status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestActivityLifecycle(t *testing.T) {
	srv := newTestServer(t)
	cookie := signUp(t, srv, "alice@example.com")

	// Invalid duration never makes it past parsing.
	rr := postForm(srv, cookie, "/activities", url.Values{
		"date": {"2024-01-01"}, "name": {"Nap"}, "category": {"Sleep"}, "duration": {"abc"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid duration status=%d", rr.Code)
	}

	rr = postForm(srv, cookie, "/activities", url.Values{
		"date": {"2024-01-01"}, "name": {"Night sleep"}, "category": {"Sleep"}, "duration": {"480"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "activity:created") {
		t.Fatalf("missing activity:created trigger: %q", rr.Header().Get("HX-Trigger"))
	}

	rr = get(srv, cookie, "/ui/activities?date=2024-01-01")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Night sleep") {
		t.Fatalf("partial missing record: %d %s", rr.Code, rr.Body.String())
	}

	// Pull the generated id out of the rendered partial.
	id := extractAttr(t, rr.Body.String(), `data-id="`)

	// Edit the record down to 60 minutes.
	rr = postForm(srv, cookie, "/activities", url.Values{
		"date": {"2024-01-01"}, "id": {id}, "name": {"Night sleep"}, "category": {"Sleep"}, "duration": {"60"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("edit status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = get(srv, cookie, "/ui/activities?date=2024-01-01")
	if !strings.Contains(rr.Body.String(), "1h 0m") {
		t.Fatalf("edit not reflected: %s", rr.Body.String())
	}

	rr = postForm(srv, cookie, "/activities/delete", url.Values{"date": {"2024-01-01"}, "id": {id}})
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "activity:deleted") {
		t.Fatalf("missing activity:deleted trigger")
	}
	rr = get(srv, cookie, "/ui/activities?date=2024-01-01")
	if !strings.Contains(rr.Body.String(), "Nothing logged") {
		t.Fatalf("delete not reflected: %s", rr.Body.String())
	}
}

func TestCapacityRejectionSurfacesRemaining(t *testing.T) {
	srv := newTestServer(t)
	cookie := signUp(t, srv, "alice@example.com")

	rr := postForm(srv, cookie, "/activities", url.Values{
		"date": {"2024-01-01"}, "name": {"Deep work"}, "category": {"Work"}, "duration": {"1400"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("create status=%d", rr.Code)
	}

	rr = postForm(srv, cookie, "/activities", url.Values{
		"date": {"2024-01-01"}, "name": {"Run"}, "category": {"Exercise"}, "duration": {"60"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "40 minutes remaining") {
		t.Fatalf("expected remaining minutes in body: %s", rr.Body.String())
	}
}

func TestAnalyticsPage(t *testing.T) {
	srv := newTestServer(t)
	cookie := signUp(t, srv, "alice@example.com")

	// Incomplete day renders the no-data state.
	rr := get(srv, cookie, "/analytics?date=2024-01-01")
	if rr.Code != http.StatusOK {
		t.Fatalf("analytics status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "No Data") {
		t.Fatalf("expected no-data state: %s", rr.Body.String())
	}

	for _, block := range []struct {
		name     string
		category string
		minutes  string
	}{
		{"Night sleep", "Sleep", "480"},
		{"Deep work", "Work", "480"},
		{"Everything else", "Other", "480"},
	} {
		rr := postForm(srv, cookie, "/activities", url.Values{
			"date": {"2024-01-01"}, "name": {block.name}, "category": {block.category}, "duration": {block.minutes},
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("create %s status=%d", block.name, rr.Code)
		}
	}

	rr = get(srv, cookie, "/analytics?date=2024-01-01")
	if rr.Code != http.StatusOK {
		t.Fatalf("analytics status=%d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "No Data") {
		t.Fatalf("complete day still renders no-data state")
	}
	for _, want := range []string{"share-data", "durations-data", "Sleep", "24h 0m"} {
		if !strings.Contains(body, want) {
			t.Fatalf("analytics body missing %q", want)
		}
	}
}

func TestUsersDoNotSeeEachOther(t *testing.T) {
	srv := newTestServer(t)
	alice := signUp(t, srv, "alice@example.com")
	bob := signUp(t, srv, "bob@example.com")

	rr := postForm(srv, alice, "/activities", url.Values{
		"date": {"2024-01-01"}, "name": {"Secret project"}, "category": {"Work"}, "duration": {"60"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("create status=%d", rr.Code)
	}

	rr = get(srv, bob, "/ui/activities?date=2024-01-01")
	if strings.Contains(rr.Body.String(), "Secret project") {
		t.Fatalf("ledger leaked across accounts")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	cookie := signUp(t, srv, "alice@example.com")

	rr := get(srv, cookie, "/activities")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	rr = get(srv, nil, "/signup")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET /signup, got %d", rr.Code)
	}
}

func extractAttr(t *testing.T, body, marker string) string {
	t.Helper()
	i := strings.Index(body, marker)
	if i < 0 {
		t.Fatalf("marker %q not found in body", marker)
	}
	rest := body[i+len(marker):]
	j := strings.Index(rest, `"`)
	if j < 0 {
		t.Fatalf("unterminated attribute after %q", marker)
	}
	return rest[:j]
}

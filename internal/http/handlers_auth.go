package http

import (
	"errors"
	"net/http"
	"net/url"

	"timelog/internal/auth"
	"timelog/internal/log"
)

const oauthStateCookie = "timelog_oauth_state"

// handleLogin serves the login page and processes password sign-in. The form
// posts via htmx, so failures come back as an inline error div and success as
// a client-side redirect.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// An already authenticated user has no business on the login page.
		if _, err := s.sessionFromRequest(r); err == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		s.renderLoginPage(w, r)
	case http.MethodPost:
		s.handlePasswordLogin(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) renderLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		GoogleEnabled bool
		Error         string
	}{
		GoogleEnabled: s.google.Enabled(),
		Error:         sanitizeInput(r.URL.Query().Get("error")),
	}
	if err := s.templates.ExecuteTemplate(w, "login.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Login template execution failed", log.FieldError, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handlePasswordLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")

	user, err := s.accounts.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			UnprocessableEntityError("Invalid email or password").Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Login failed", log.FieldError, err, log.FieldEmail, email)
		InternalServerError("Sign-in is unavailable, try again").Write(w)
		return
	}

	s.startSession(w, r, user)
}

// handleSignup registers a new password account and signs it in.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")
	if password != r.Form.Get("password_confirm") {
		UnprocessableEntityError("Passwords do not match").Write(w)
		return
	}

	user, err := s.accounts.Signup(r.Context(), email, password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidEmail):
			UnprocessableEntityError("Enter a valid email address").Write(w)
		case errors.Is(err, auth.ErrPasswordTooShort):
			UnprocessableEntityError("Password must be at least 6 characters").Write(w)
		case errors.Is(err, auth.ErrEmailInUse):
			UnprocessableEntityError("An account with this email already exists").Write(w)
		default:
			s.logger.ErrorContext(r.Context(), "Signup failed", log.FieldError, err, log.FieldEmail, email)
			InternalServerError("Sign-up is unavailable, try again").Write(w)
		}
		return
	}

	s.startSession(w, r, user)
}

// startSession issues the cookie for a freshly authenticated user and sends
// the client to the day view.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, user *auth.User) {
	token, err := s.sessions.Issue(auth.Session{UID: user.UID, Email: user.Email})
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Session issue failed", log.FieldError, err, log.FieldUID, user.UID)
		InternalServerError("Sign-in is unavailable, try again").Write(w)
		return
	}

	s.setSessionCookie(w, token)
	s.logger.InfoContext(r.Context(), "Session started", log.FieldUID, user.UID, log.FieldEmail, user.Email)

	if r.Header.Get("HX-Request") == "true" {
		NewHTMXResponse().Redirect("/").Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout clears the session cookie and the user's cached day views.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}

	s.clearSessionCookie(w)
	s.dayCache.DeletePrefix("day:" + sess.UID + ":")
	s.logger.InfoContext(r.Context(), "Session ended", log.FieldUID, sess.UID)

	if r.Header.Get("HX-Request") == "true" {
		NewHTMXResponse().Redirect("/login").Write(w)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleGoogleStart redirects to the Google consent page with an anti-forgery
// state pinned in a short-lived cookie.
func (s *Server) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	if !s.google.Enabled() {
		http.NotFound(w, r)
		return
	}

	state := generateStateToken()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.google.AuthURL(state), http.StatusFound)
}

// redirectLoginError sends the browser back to the login page with the
// provider's message shown above the form.
func (s *Server) redirectLoginError(w http.ResponseWriter, r *http.Request, err error) {
	http.Redirect(w, r, "/login?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
}

// handleGoogleCallback completes the code exchange and signs the account in,
// creating it on first use.
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.google.Enabled() {
		http.NotFound(w, r)
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		s.logger.WarnContext(r.Context(), "OAuth state mismatch")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		// The user cancelled the consent screen.
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	email, err := s.google.Email(r.Context(), code)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Google sign-in failed", log.FieldError, err)
		s.redirectLoginError(w, r, err)
		return
	}

	user, err := s.accounts.LookupOrCreateGoogleUser(r.Context(), email)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Google account lookup failed", log.FieldError, err, log.FieldEmail, email)
		s.redirectLoginError(w, r, err)
		return
	}

	s.startSession(w, r, user)
}

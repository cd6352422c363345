package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"timelog/internal/auth"
	"timelog/internal/cache"
	"timelog/internal/core"
	"timelog/internal/ledger"
	"timelog/internal/log"
	"timelog/internal/observability"
	appweb "timelog/web"
)

const sessionCookie = "timelog_session"

// Server hosts the time tracking UI: day ledger, analytics and auth flows.
type Server struct {
	http.Server
	templates   *template.Template
	logger      *log.Logger
	ledger      *ledger.Service
	accounts    *auth.Service
	sessions    *auth.Sessions
	google      *auth.GoogleOAuth
	rateLimiter *rateLimiter

	// LRU cache for day ledgers with eviction policy
	dayCache     *cache.LRUCache[[]core.Activity]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// Options collects the collaborators NewServer wires together. Google may be
// nil when sign-in with Google is not configured.
type Options struct {
	Addr      string
	Ledger    *ledger.Service
	Accounts  *auth.Service
	Sessions  *auth.Sessions
	Google    *auth.GoogleOAuth
	Logger    *log.Logger
	CacheSize int
	CacheTTL  time.Duration
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Config{})
	}

	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		logger:       logger.WithComponent(log.ComponentHTTP),
		ledger:       opts.Ledger,
		accounts:     opts.Accounts,
		sessions:     opts.Sessions,
		google:       opts.Google,
		rateLimiter:  newRateLimiter(),
		dayCache:     cache.NewLRUCache[[]core.Activity](cacheSize, cacheTTL),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.dayCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/login", s.withSecurityHeaders("/login", s.handleLogin))
	mux.HandleFunc("/signup", s.withSecurityHeaders("/signup", s.handleSignup))
	mux.HandleFunc("/logout", s.withSecurityHeaders("/logout", s.requireSession(s.handleLogout)))
	mux.HandleFunc("/auth/google", s.withSecurityHeaders("/auth/google", s.handleGoogleStart))
	mux.HandleFunc("/auth/google/callback", s.withSecurityHeaders("/auth/google/callback", s.handleGoogleCallback))

	mux.HandleFunc("/", s.withSecurityHeaders("/", s.requireSession(s.handleDay)))
	mux.HandleFunc("/activities", s.withSecurityHeaders("/activities", s.requireSession(s.handleSaveActivity)))
	mux.HandleFunc("/activities/delete", s.withSecurityHeaders("/activities/delete", s.requireSession(s.handleDeleteActivity)))
	mux.HandleFunc("/ui/activities", s.withSecurityHeaders("/ui/activities", s.requireSession(s.handleActivitiesPartial)))
	mux.HandleFunc("/analytics", s.withSecurityHeaders("/analytics", s.requireSession(s.handleAnalytics)))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// sessionHandler receives the verified session alongside the request. The
// session is passed explicitly so every ledger call names whose data it
// touches.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess auth.Session)

// requireSession verifies the session cookie before invoking next, bouncing
// unauthenticated requests to the login page.
func (s *Server) requireSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessionFromRequest(r)
		if err != nil {
			if r.Header.Get("HX-Request") == "true" {
				NewHTMXResponse().Status(http.StatusUnauthorized).Redirect("/login").Write(w)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r, sess)
	}
}

func (s *Server) sessionFromRequest(r *http.Request) (auth.Session, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return auth.Session{}, auth.ErrMissingToken
	}
	return s.sessions.Verify(cookie.Value)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// withSecurityHeaders adds security headers, rate limiting, metrics and
// request logging to responses.
func (s *Server) withSecurityHeaders(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := log.IntoContext(r.Context(), s.logger.With(log.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		s.logger.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		// Apply rate limiting to mutating requests
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com https://cdn.jsdelivr.net 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		observability.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		observability.HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) dayCacheKey(uid string, date core.Date) string {
	return "day:" + uid + ":" + date.String()
}

// loadDay returns the day ledger, served from cache when fresh.
func (s *Server) loadDay(ctx context.Context, sess auth.Session, date core.Date) ([]core.Activity, error) {
	key := s.dayCacheKey(sess.UID, date)
	if records, found := s.dayCache.Get(key); found {
		s.logger.DebugContext(ctx, "Day cache hit", log.FieldUID, sess.UID, log.FieldDate, date.String())
		result := make([]core.Activity, len(records))
		copy(result, records)
		return result, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	records, err := s.ledger.LoadDay(cctx, sess, date)
	if err != nil {
		return nil, err
	}

	s.dayCache.Set(key, records)
	return records, nil
}

func (s *Server) invalidateDay(uid string, date core.Date) {
	s.dayCache.Delete(s.dayCacheKey(uid, date))
}

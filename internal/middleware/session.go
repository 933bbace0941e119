package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/querysprout/fanout-analyzer/context"
	"github.com/querysprout/fanout-analyzer/internal/models"
)

type SessionMiddleware struct {
	sessionService *models.SessionService
	cookieName     string
	secureCookies  bool
}

func NewSessionMiddleware(sessionService *models.SessionService, cookieName string, secureCookies bool) *SessionMiddleware {
	return &SessionMiddleware{
		sessionService: sessionService,
		cookieName:     cookieName,
		secureCookies:  secureCookies,
	}
}

// SetSession middleware loads the browser session from the cookie and
// stores it in the request context, creating a new session (and cookie)
// when none exists. It runs on ALL routes and never blocks a request.
func (m *SessionMiddleware) SetSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var session *models.Session

		if cookie, err := r.Cookie(m.cookieName); err == nil {
			session = m.sessionService.Get(cookie.Value)
		}

		if session == nil {
			session = m.sessionService.Create()
			http.SetCookie(w, &http.Cookie{
				Name:     m.cookieName,
				Value:    session.ID,
				Path:     "/",
				MaxAge:   int(models.SessionDuration.Seconds()),
				HttpOnly: true,
				Secure:   m.secureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithSession(r.Context(), session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CurrentSession is a helper to get the session from any handler.
// Returns nil only when SetSession did not run.
func CurrentSession(r *http.Request) *models.Session {
	return context.Session(r.Context())
}

// RequestLogger logs one line per request with method, path, status and
// duration.
func RequestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.status,
				"duration": time.Since(start).String(),
			}).Info("request completed")
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

package http

import (
	"context"
	"log/slog"
	"net/http"

	"planner/internal/auth"
)

const sessionCookie = "planner_session"

// withUser is the session gate for page handlers: it resolves the session
// cookie to a user or redirects the visitor to the login form. Until the
// lookup finishes the request renders nothing, so a signed-in page is never
// flashed at an anonymous visitor.
func (s *Server) withUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.resolveSession(r)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	}
}

// withUserJSON gates non-page endpoints; a missing session is a plain 401
// because a redirect makes no sense to an EventSource or a fetch call.
func (s *Server) withUserJSON(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.resolveSession(r)
		if err != nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	}
}

func (s *Server) resolveSession(r *http.Request) (auth.User, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return auth.User{}, auth.ErrNoSession
	}
	return s.auth.Resolve(r.Context(), c.Value)
}

// signedIn reports whether the request carries a valid session. Used by the
// login and register pages to bounce authenticated visitors to the dashboard.
func (s *Server) signedIn(r *http.Request) bool {
	_, err := s.resolveSession(r)
	return err == nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(auth.DefaultSessionTTL.Seconds()),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func userFrom(ctx context.Context) (auth.User, bool) {
	user, ok := ctx.Value(userKey).(auth.User)
	if !ok {
		slog.WarnContext(ctx, "No user on gated request context")
	}
	return user, ok
}

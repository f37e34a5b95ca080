package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"planner/internal/auth"
)

type authPage struct {
	Email string
	Error string
}

// handleLogin serves the sign-in form and processes submissions. Visitors who
// already hold a session are sent straight to the dashboard.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.signedIn(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.renderAuthPage(w, r, "login.html", authPage{})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		email := strings.TrimSpace(r.Form.Get("email"))
		password := r.Form.Get("password")

		_, token, err := s.auth.SignIn(r.Context(), email, password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				w.WriteHeader(http.StatusUnauthorized)
				s.renderAuthPage(w, r, "login.html", authPage{Email: email, Error: err.Error()})
				return
			}
			slog.ErrorContext(r.Context(), "Sign-in failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		s.setSessionCookie(w, token)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleRegister serves the sign-up form and processes submissions.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.signedIn(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.renderAuthPage(w, r, "register.html", authPage{})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		email := strings.TrimSpace(r.Form.Get("email"))
		password := r.Form.Get("password")

		_, token, err := s.auth.SignUp(r.Context(), email, password)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidEmail),
				errors.Is(err, auth.ErrWeakPassword),
				errors.Is(err, auth.ErrEmailTaken):
				w.WriteHeader(http.StatusUnprocessableEntity)
				s.renderAuthPage(w, r, "register.html", authPage{Email: email, Error: err.Error()})
			default:
				slog.ErrorContext(r.Context(), "Sign-up failed", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		s.setSessionCookie(w, token)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleLogout revokes the session and clears the cookie. Safe to call
// without a session; the visitor ends at the login form either way.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if c, err := r.Cookie(sessionCookie); err == nil {
		if err := s.auth.SignOut(r.Context(), c.Value); err != nil {
			slog.ErrorContext(r.Context(), "Sign-out failed", "error", err)
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) renderAuthPage(w http.ResponseWriter, r *http.Request, name string, data authPage) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "template", name)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
	}
}

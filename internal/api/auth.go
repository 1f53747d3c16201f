package api

import (
	"context"
	"net/http"
	"strings"

	"arenapanel/internal/access"
	"arenapanel/internal/models"
	"arenapanel/internal/service"
)

type tokenKey struct{}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// sessionMiddleware resolves the bearer token into a session. Requests
// without a token run as Guest; a bad or expired token is refused except on
// the auth routes, so a client holding a stale token can still log in.
func (s *HTTPServer) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r.WithContext(access.WithSession(r.Context(), access.Guest)))
			return
		}

		session, err := s.deps.Auth.CurrentSession(r.Context(), token)
		if err != nil {
			if strings.HasPrefix(r.URL.Path, "/api/v1/auth/") {
				next.ServeHTTP(w, r.WithContext(access.WithSession(r.Context(), access.Guest)))
				return
			}
			s.writeServiceError(w, r, err)
			return
		}

		ctx := access.WithSession(r.Context(), session)
		ctx = context.WithValue(ctx, tokenKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Session     access.Session         `json:"session"`
	User        *models.User           `json:"user"`
	Permissions map[access.Action]bool `json:"permissions"`
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.deps.Auth.Register(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := tokenFromContext(r.Context())
	if token == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.deps.Auth.Logout(r.Context(), token); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	session := access.FromContext(r.Context())
	if !session.Authenticated {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}
	user, err := s.deps.Auth.CurrentUser(r.Context(), session)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Session:     session,
		User:        user,
		Permissions: access.Permissions(session),
	})
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pvsizer/pvsizer/pkg/log"
	"github.com/pvsizer/pvsizer/pkg/storage"
	"github.com/pvsizer/pvsizer/pkg/types"
)

// requiresLogin reports whether path stores or reads per-user data.
func requiresLogin(path string) bool {
	return path == "/api/configuration" || path == "/api/reports" || strings.HasPrefix(path, "/api/reports/")
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))

		allowNoLogin := !requiresLogin(r.URL.Path)

		var user types.User
		if s.bypassAuth {
			user = types.User{ID: types.UserIDLocal}
		} else {
			authCookie, err := r.Cookie(authTokenCookie)
			if err != nil && !errors.Is(err, http.ErrNoCookie) {
				log.Ctx(ctx).ErrorContext(ctx, "failed to get auth cookie", slog.Any("error", err))
				writeJSONError(w, "missing auth cookie", http.StatusBadRequest)
				return
			}
			if authCookie != nil {
				id, err := s.authenticateToken(ctx, authCookie.Value)
				if err != nil {
					log.Ctx(ctx).WarnContext(ctx, "auth token validation failed", slog.Any("error", err))
					s.clearCookie(w)
					if !allowNoLogin {
						writeJSONError(w, "invalid auth token", http.StatusUnauthorized)
						return
					}
				} else {
					user, err = s.lookupUser(ctx, id.Subject, id.Email)
					if err != nil {
						log.Ctx(ctx).ErrorContext(ctx, "user lookup failed", slog.String("userID", id.Subject), slog.Any("error", err))
						writeJSONError(w, "user lookup failed", http.StatusInternalServerError)
						return
					}
				}
			}
			if user.ID == "" && !allowNoLogin {
				log.Ctx(ctx).WarnContext(ctx, "unauthenticated request")
				writeJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		if user.ID != "" {
			ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("authUserID", user.ID)))
			ctx = context.WithValue(ctx, userContextKey, user)
		}

		log.Ctx(ctx).DebugContext(ctx, "authenticated request", slog.String("email", user.Email))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// lookupUser returns the stored user, creating it on first sight.
func (s *Server) lookupUser(ctx context.Context, userID, email string) (types.User, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return types.User{}, err
	}
	user = types.User{
		ID:      userID,
		Email:   email,
		Created: time.Now().UTC(),
	}
	if err := s.storage.CreateUser(ctx, user); err != nil {
		return types.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	log.Ctx(ctx).InfoContext(ctx, "registered user", slog.String("userID", userID), slog.String("email", email))
	return user, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// since we failed to read, don't return JSON error
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	id, err := s.authenticateToken(r.Context(), req.Token)
	if err != nil {
		log.Ctx(r.Context()).WarnContext(r.Context(), "failed to validate id token", slog.Any("error", err))
		writeJSONError(w, "invalid id token", http.StatusUnauthorized)
		return
	}

	if id.Email == "" {
		log.Ctx(r.Context()).WarnContext(r.Context(), "invalid email in id token")
		writeJSONError(w, "invalid oidc claims", http.StatusUnauthorized)
		return
	}

	if _, err := s.lookupUser(r.Context(), id.Subject, id.Email); err != nil {
		log.Ctx(r.Context()).ErrorContext(r.Context(), "failed to register user", slog.Any("error", err))
		writeJSONError(w, "failed to register user", http.StatusInternalServerError)
		return
	}

	log.Ctx(r.Context()).InfoContext(r.Context(), "login token validated successfully", slog.String("email", id.Email), slog.String("subject", id.Subject))

	http.SetCookie(w, &http.Cookie{
		Name:     authTokenCookie,
		Value:    req.Token,
		Expires:  id.Expiry,
		HttpOnly: true,
		Secure:   true,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
	})

	w.WriteHeader(http.StatusOK)
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authTokenCookie,
		Value:    "",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   true,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearCookie(w)
	w.WriteHeader(http.StatusOK)
}

type authStatusResponse struct {
	LoggedIn     bool              `json:"loggedIn"`
	Email        string            `json:"email"`
	AuthRequired bool              `json:"authRequired"`
	ClientIDs    map[string]string `json:"clientIDs"`
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	user := s.getUser(r)
	writeJSON(w, authStatusResponse{
		LoggedIn:     user.ID != "",
		Email:        user.Email,
		AuthRequired: len(s.oidcAudiences) > 0,
		ClientIDs:    s.oidcAudiences,
	})
}

func (s *Server) authenticateToken(ctx context.Context, token string) (identity, error) {
	var errs []error

	for providerName, verifier := range s.oidcVerifiers {
		id, err := verifier(ctx, token)
		if err == nil {
			return id, nil
		}
		errs = append(errs, fmt.Errorf("%s verifier failed: %v", providerName, err))
	}

	if len(errs) > 1 {
		return identity{}, errors.Join(errs...)
	}
	if len(errs) == 1 {
		return identity{}, errs[0]
	}
	return identity{}, errors.New("no valid audiences configured or token invalid")
}

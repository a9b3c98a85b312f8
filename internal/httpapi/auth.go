package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"tokopintar/backend/internal/domain"
	"tokopintar/backend/internal/service"
	"tokopintar/backend/internal/store"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthManager issues and verifies the bearer tokens the API runs on.
// Credentials live in the store; tokens are HS256 JWTs carrying the username
// and role.
type AuthManager struct {
	repo   store.Store
	secret []byte
	ttl    time.Duration
}

func NewAuthManager(repo store.Store, secret string, ttl time.Duration) *AuthManager {
	return &AuthManager{repo: repo, secret: []byte(secret), ttl: ttl}
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := a.repo.GetUser(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(a.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.Username,
		"role": user.Role,
		"iat":  time.Now().Unix(),
		"exp":  expiresAt.Unix(),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return nil, err
	}
	return &domain.LoginResponse{
		AccessToken: signed,
		Role:        user.Role,
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) verify(tokenString string) (domain.Actor, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrInvalidCredentials
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Actor{}, ErrInvalidCredentials
	}
	username, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if username == "" || role == "" {
		return domain.Actor{}, ErrInvalidCredentials
	}
	return domain.Actor{Username: username, Role: role}, nil
}

// Require authenticates the request and, when roles are given, checks the
// actor holds one of them. Admin passes every role check.
func (a *AuthManager) Require(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			actor, err := a.verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if len(roles) > 0 && actor.Role != domain.RoleAdmin {
				allowed := false
				for _, role := range roles {
					if actor.Role == role {
						allowed = true
						break
					}
				}
				if !allowed {
					writeError(w, http.StatusForbidden, "insufficient role")
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
		})
	}
}

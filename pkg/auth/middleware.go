package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/pkg/reqctx"
	"github.com/go-chi/render"
)

type identityKeyType struct{}

var identityKey = identityKeyType{}

// WithIdentity кладет данные пользователя в контекст
func WithIdentity(ctx context.Context, id *interfaces.Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey, id)
	ctx = reqctx.WithUserID(ctx, id.UserID)
	return reqctx.WithAccountID(ctx, id.AccountID)
}

// IdentityFrom возвращает данные пользователя из контекста
func IdentityFrom(ctx context.Context) (*interfaces.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*interfaces.Identity)
	return id, ok && id != nil
}

type authError struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

func deny(w http.ResponseWriter, r *http.Request, status int, message string) {
	code := "unauthorized"
	if status == http.StatusForbidden {
		code = "forbidden"
	}
	render.Status(r, status)
	render.JSON(w, r, authError{Error: code, Code: status, Message: message})
}

// bearerToken извлекает токен из заголовка Authorization
func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware проверяет Bearer токен и кладет пользователя в контекст.
// Токен без account_id не дает доступа к операциям аккаунта
func AuthMiddleware(authenticator interfaces.AuthPort, logger interfaces.LoggerPort) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				deny(w, r, http.StatusUnauthorized, "Bearer token is required")
				return
			}

			identity, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				logger.WarnWithContext(r.Context(), "Недействительный токен", "error", err.Error())
				deny(w, r, http.StatusUnauthorized, "invalid token")
				return
			}
			if identity.AccountID == "" {
				deny(w, r, http.StatusForbidden, "token is not bound to an account")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAnyRole пропускает запрос, если у пользователя есть хотя бы одна из ролей
func RequireAnyRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				deny(w, r, http.StatusUnauthorized, "")
				return
			}
			for _, role := range roles {
				if identity.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			deny(w, r, http.StatusForbidden, "insufficient role")
		})
	}
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const stateCookie = "oauth_state"

// OAuthFlow вход через провайдера OpenID Connect
type OAuthFlow interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
}

// AuthHandler обработчик входа через Keycloak
type AuthHandler struct {
	flow   OAuthFlow
	logger interfaces.LoggerPort
}

// NewAuthHandler создает обработчик входа
func NewAuthHandler(flow OAuthFlow, logger interfaces.LoggerPort) *AuthHandler {
	return &AuthHandler{flow: flow, logger: logger}
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
}

// Login перенаправляет пользователя на страницу входа провайдера
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.flow.AuthCodeURL(state), http.StatusFound)
}

// Callback обменивает код авторизации на токен доступа
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		badRequest(w, r, "invalid oauth state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		badRequest(w, r, "code is required")
		return
	}

	token, err := h.flow.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.WarnWithContext(r.Context(), "Не удалось обменять код авторизации", "error", err.Error())
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, errorResponse{Error: "unauthorized", Code: http.StatusUnauthorized, Message: "code exchange failed"})
		return
	}

	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, r, http.StatusOK, tokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	})
}

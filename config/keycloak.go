package config

import (
	"github.com/athebyme/gomarket-sync/pkg/auth"
)

// KeycloakConfig представляет конфигурацию Keycloak.
// При выключенном Keycloak токены проверяются локальным JWT-менеджером
type KeycloakConfig struct {
	Enabled      bool
	ServerURL    string
	Realm        string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GetKeycloakConfig возвращает конфигурацию для auth.KeycloakClient
func (k *KeycloakConfig) GetKeycloakConfig() auth.KeycloakConfig {
	return auth.KeycloakConfig{
		ServerURL:    k.ServerURL,
		Realm:        k.Realm,
		ClientID:     k.ClientID,
		ClientSecret: k.ClientSecret,
		RedirectURL:  k.RedirectURL,
	}
}

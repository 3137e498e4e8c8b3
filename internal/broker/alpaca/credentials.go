// Package alpaca connects the engine to Alpaca's trading and market data APIs.
package alpaca

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Credentials identify the Alpaca account.
type Credentials struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// ErrMissingCredentials is returned when the API key pair is not configured.
var ErrMissingCredentials = errors.New("APCA_API_KEY_ID and APCA_API_SECRET_KEY must be set")

// LoadCredentials reads the key pair from the environment, loading envFiles first.
// baseURL is used when APCA_API_BASE_URL is unset.
func LoadCredentials(baseURL string, envFiles ...string) (Credentials, error) {
	_ = godotenv.Load(envFiles...) // best-effort
	creds := Credentials{
		APIKey:    firstEnv("APCA_API_KEY_ID", "ALPACA_API_KEY"),
		APISecret: firstEnv("APCA_API_SECRET_KEY", "ALPACA_SECRET_KEY"),
		BaseURL:   firstEnv("APCA_API_BASE_URL", "ALPACA_BASE_URL"),
	}
	if creds.BaseURL == "" {
		creds.BaseURL = baseURL
	}
	if creds.APIKey == "" || creds.APISecret == "" {
		return creds, ErrMissingCredentials
	}
	return creds, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

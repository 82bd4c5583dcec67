package secrets

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups jobagent's entries in the OS keychain.
const KeyringService = "jobagent"

var ErrNoToken = errors.New("api token not found (set it with `jobagent token set` or JOBAGENT_TOKEN)")

// TokenAccount names the keychain entry for a backend, one per host.
func TokenAccount(apiURL string) string {
	host := apiURL
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return fmt.Sprintf("jobagent:token:%s", host)
}

// GetToken prefers an explicit token (from the environment) over the keychain.
func GetToken(apiURL, explicit string) (string, error) {
	if t := strings.TrimSpace(explicit); t != "" {
		return t, nil
	}
	tok, err := keyring.Get(KeyringService, TokenAccount(apiURL))
	if err == nil && strings.TrimSpace(tok) != "" {
		return tok, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("keyring: %w", err)
	}
	return "", ErrNoToken
}

func SetToken(apiURL, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(KeyringService, TokenAccount(apiURL), strings.TrimSpace(token))
}

func DeleteToken(apiURL string) error {
	err := keyring.Delete(KeyringService, TokenAccount(apiURL))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

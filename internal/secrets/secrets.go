// Package secrets keeps adapter credentials in the OS keychain so they never
// land in the YAML config.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups this app's secrets in the OS keychain.
const KeyringService = "aeroscrap"

// GetAdapterKey returns the API key stored for the given adapter account
// (e.g. "aeroboard:<app_id>").
func GetAdapterKey(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", errors.New("keyring account name is empty")
	}
	key, err := keyring.Get(KeyringService, account)
	if err != nil || strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("adapter key not found for %q (set it in the keychain)", account)
	}
	return key, nil
}

// SetAdapterKey stores an API key for an adapter account.
func SetAdapterKey(account, key string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("key is empty")
	}
	return keyring.Set(KeyringService, account, key)
}

// DeleteAdapterKey removes an adapter credential.
func DeleteAdapterKey(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

// AeroBoardAccount is the keychain account name for the aeroboard API key.
func AeroBoardAccount(appID string) string {
	return fmt.Sprintf("aeroboard:%s", appID)
}

// AirMailAccount is the keychain account name for the airmail IMAP password.
func AirMailAccount(username, host string) string {
	return fmt.Sprintf("airmail:%s@%s", username, host)
}

package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// "Service" groups the engine's secrets in the OS keychain.
	KeyringService = "jobwatch"
)

// GetStorePassword looks up the database password for a postgres target whose
// URL carries no password.
func GetStorePassword(account string) (string, error) {
	if strings.TrimSpace(account) != "" {
		pw, err := keyring.Get(KeyringService, account)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
	}
	return "", errors.New("store password not found in keychain")
}

func SetStorePassword(account string, password string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, account, password)
}

func DeleteStorePassword(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

func StoreKeyringAccount(user, host string) string {
	return fmt.Sprintf("jobwatch:store:%s@%s", user, host)
}

// Package vault keeps unrevealed server seeds out of the database. Seeds go
// to the OS keychain, or to a JSON file when no keychain is reachable.
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	defaultService = "partydle"
	partServerSeed = "server_seed"
)

// ErrNotFound is returned when no seed is stored for a party.
var ErrNotFound = errors.New("vault: secret not found")

// Vault wraps the OS keychain with an optional file fallback.
type Vault struct {
	service      string
	fallbackPath string
	mu           sync.Mutex
}

// New creates a vault. An empty fallbackPath disables the file fallback.
func New(serviceName, fallbackPath string) *Vault {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = defaultService
	}
	return &Vault{
		service:      serviceName,
		fallbackPath: fallbackPath,
	}
}

func (v *Vault) key(partyID, part string) string {
	return fmt.Sprintf("party/%s/%s", partyID, part)
}

// PutServerSeed stores the server seed for a party.
func (v *Vault) PutServerSeed(partyID, seed string) error {
	return v.setSecret(partyID, partServerSeed, seed)
}

// ServerSeed returns the stored server seed for a party.
func (v *Vault) ServerSeed(partyID string) (string, error) {
	return v.getSecret(partyID, partServerSeed)
}

// DeleteServerSeed removes a party's seed from the keychain and the
// fallback file. Deleting a missing seed is not an error.
func (v *Vault) DeleteServerSeed(partyID string) error {
	err := keyring.Delete(v.service, v.key(partyID, partServerSeed))
	ferr := v.deleteFallback(partyID)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) && !isKeyringUnavailable(err) {
		return fmt.Errorf("vault: keyring delete: %w", err)
	}
	return ferr
}

func (v *Vault) setSecret(partyID, part, value string) error {
	partyID = strings.TrimSpace(partyID)
	if partyID == "" {
		return fmt.Errorf("vault: party id is required")
	}

	if err := keyring.Set(v.service, v.key(partyID, part), value); err == nil {
		return nil
	} else if !isKeyringUnavailable(err) {
		return fmt.Errorf("vault: keyring set %s: %w", part, err)
	}

	return v.setFallback(partyID, part, value)
}

func (v *Vault) getSecret(partyID, part string) (string, error) {
	partyID = strings.TrimSpace(partyID)
	if partyID == "" {
		return "", fmt.Errorf("vault: party id is required")
	}

	val, err := keyring.Get(v.service, v.key(partyID, part))
	if err == nil {
		return val, nil
	}
	if !isKeyringUnavailable(err) && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("vault: keyring get %s: %w", part, err)
	}

	fallback, ferr := v.getFallback(partyID, part)
	if ferr == nil {
		return fallback, nil
	}
	if errors.Is(err, keyring.ErrNotFound) || errors.Is(ferr, ErrNotFound) {
		return "", ErrNotFound
	}
	return "", ferr
}

func isKeyringUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "secret service") ||
		strings.Contains(msg, "dbus") ||
		strings.Contains(msg, "no keychain") ||
		strings.Contains(msg, "keyring backend not available")
}

type fallbackSecrets map[string]map[string]string

func (v *Vault) setFallback(partyID, part, value string) error {
	if strings.TrimSpace(v.fallbackPath) == "" {
		return fmt.Errorf("vault: keyring unavailable and no fallback path configured")
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	data, err := v.readFallbackUnlocked()
	if err != nil {
		return err
	}
	if _, ok := data[partyID]; !ok {
		data[partyID] = map[string]string{}
	}
	data[partyID][part] = value
	return v.writeFallbackUnlocked(data)
}

func (v *Vault) getFallback(partyID, part string) (string, error) {
	if strings.TrimSpace(v.fallbackPath) == "" {
		return "", fmt.Errorf("vault: fallback path not configured")
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	data, err := v.readFallbackUnlocked()
	if err != nil {
		return "", err
	}
	val, ok := data[partyID][part]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (v *Vault) deleteFallback(partyID string) error {
	if strings.TrimSpace(v.fallbackPath) == "" {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	data, err := v.readFallbackUnlocked()
	if err != nil {
		return err
	}
	if _, ok := data[partyID]; !ok {
		return nil
	}
	delete(data, partyID)
	return v.writeFallbackUnlocked(data)
}

func (v *Vault) readFallbackUnlocked() (fallbackSecrets, error) {
	out := fallbackSecrets{}
	raw, err := os.ReadFile(v.fallbackPath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("vault: read fallback secrets: %w", err)
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("vault: decode fallback secrets: %w", err)
	}
	return out, nil
}

func (v *Vault) writeFallbackUnlocked(data fallbackSecrets) error {
	if err := os.MkdirAll(filepath.Dir(v.fallbackPath), 0o700); err != nil {
		return fmt.Errorf("vault: mkdir fallback dir: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("vault: encode fallback secrets: %w", err)
	}
	if err := os.WriteFile(v.fallbackPath, raw, 0o600); err != nil {
		return fmt.Errorf("vault: write fallback secrets: %w", err)
	}
	return nil
}

package engine

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Seeds identify one reproducible draw stream. Server is used verbatim as
// the HMAC key (ASCII, never hex-decoded).
type Seeds struct {
	Server string `json:"server_seed"`
	Client string `json:"client_seed"`
	Nonce  uint64 `json:"nonce"`
}

const (
	serverSeedBytes = 32
	clientSeedBytes = 8
)

// NewSeeds draws a fresh server and client seed from the OS entropy source.
func NewSeeds() (Seeds, error) {
	server, err := randomHex(serverSeedBytes)
	if err != nil {
		return Seeds{}, fmt.Errorf("generate server seed: %w", err)
	}
	client, err := randomHex(clientSeedBytes)
	if err != nil {
		return Seeds{}, fmt.Errorf("generate client seed: %w", err)
	}
	return Seeds{Server: server, Client: client}, nil
}

// HashSeed returns the hex SHA-256 of a seed. The hash is what gets stored
// and shown before a party is revealed.
func HashSeed(seed string) string {
	if seed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

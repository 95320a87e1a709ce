package service

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// CredentialVerifier checks official login credentials. Officials have no
// signup; where their credentials live is up to the implementation.
type CredentialVerifier interface {
	Verify(id, secret string) bool
}

// OfficialsFile is the YAML credential store:
//
//	officials:
//	  "19472003": "$2a$10$..."
type OfficialsFile struct {
	Officials map[string]string `yaml:"officials"`
}

// HashedCredentials verifies secrets against bcrypt hashes keyed by official id.
type HashedCredentials struct {
	hashes map[string]string
}

func NewHashedCredentials(hashes map[string]string) *HashedCredentials {
	return &HashedCredentials{hashes: hashes}
}

// LoadOfficials reads the YAML credential store at path. An empty path yields
// a store that rejects everyone.
func LoadOfficials(path string) (*HashedCredentials, error) {
	if path == "" {
		slog.Warn("no OFFICIALS_FILE configured, official login disabled")
		return NewHashedCredentials(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read officials file: %w", err)
	}

	var file OfficialsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse officials file: %w", err)
	}

	for id, hash := range file.Officials {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("official %q: secret must be a bcrypt hash: %w", id, err)
		}
	}

	slog.Info("officials loaded", "count", len(file.Officials))
	return NewHashedCredentials(file.Officials), nil
}

func (c *HashedCredentials) Verify(id, secret string) bool {
	hash, ok := c.hashes[id]
	if !ok {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash()), []byte(secret))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

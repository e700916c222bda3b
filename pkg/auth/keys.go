// Package auth issues and verifies confirmation codes and bearer tokens.
package auth

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// MinSecretLength is the minimum length of the configured secret.
	MinSecretLength = 32

	derivedKeyLength = 32

	infoConfirmationCode = "yamdb confirmation code v1"
	infoAccessToken      = "yamdb access token v1"
)

// Keys holds the purpose-bound keys derived from the service secret.
type Keys struct {
	ConfirmationCode []byte
	AccessToken      []byte
}

// DeriveKeys expands secret into independent keys with HKDF-SHA256 so a leak
// of one derived key reveals nothing about the other.
func DeriveKeys(secret string) (*Keys, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}

	codeKey, err := derive(secret, infoConfirmationCode)
	if err != nil {
		return nil, err
	}
	tokenKey, err := derive(secret, infoAccessToken)
	if err != nil {
		return nil, err
	}

	return &Keys{ConfirmationCode: codeKey, AccessToken: tokenKey}, nil
}

func derive(secret, info string) ([]byte, error) {
	key := make([]byte, derivedKeyLength)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %q key: %w", info, err)
	}
	return key, nil
}

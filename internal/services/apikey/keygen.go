package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// keyIDPrefix marks the public half of a credential
	keyIDPrefix = "ak_"

	// keyIDBytes is the entropy of the public key ID (32 hex chars)
	keyIDBytes = 16

	// keySecretBytes is the entropy of the private secret (64 hex chars)
	keySecretBytes = 32

	// credentialSeparator joins the public and private halves
	credentialSeparator = ":"
)

// GenerateKeyPair creates a fresh keyId/keySecret pair from crypto/rand.
func GenerateKeyPair() (keyID, keySecret string, err error) {
	idBytes := make([]byte, keyIDBytes)
	if _, err := rand.Read(idBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate key ID: %w", err)
	}

	secretBytes := make([]byte, keySecretBytes)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate key secret: %w", err)
	}

	return keyIDPrefix + hex.EncodeToString(idBytes), hex.EncodeToString(secretBytes), nil
}

// ComposeCredential assembles the full credential string handed to the
// client exactly once at issuance time.
func ComposeCredential(keyID, keySecret string) string {
	return keyID + credentialSeparator + keySecret
}

// ParseCredential splits a raw credential into its public and private
// halves. Returns ErrMalformedCredential if the separator is absent or
// either half is empty.
func ParseCredential(credential string) (keyID, keySecret string, err error) {
	keyID, keySecret, found := strings.Cut(credential, credentialSeparator)
	if !found || keyID == "" || keySecret == "" {
		return "", "", ErrMalformedCredential
	}
	return keyID, keySecret, nil
}

package apikey

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerateKeyPair_Format(t *testing.T) {
	t.Parallel()

	keyID, keySecret, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}

	if !strings.HasPrefix(keyID, "ak_") {
		t.Errorf("Key ID should start with ak_, got: %s", keyID)
	}
	// ak_ + 16 bytes hex encoded
	if len(keyID) != len("ak_")+keyIDBytes*2 {
		t.Errorf("Key ID should be %d chars, got: %d", len("ak_")+keyIDBytes*2, len(keyID))
	}
	// 32 bytes hex encoded
	if len(keySecret) != keySecretBytes*2 {
		t.Errorf("Key secret should be %d chars, got: %d", keySecretBytes*2, len(keySecret))
	}
	if strings.Contains(keyID, credentialSeparator) {
		t.Errorf("Key ID must not contain the credential separator, got: %s", keyID)
	}
	if strings.Contains(keySecret, credentialSeparator) {
		t.Errorf("Key secret must not contain the credential separator, got: %s", keySecret)
	}
}

func TestGenerateKeyPair_Unique(t *testing.T) {
	t.Parallel()

	const numKeys = 100
	seenIDs := make(map[string]bool, numKeys)
	seenSecrets := make(map[string]bool, numKeys)

	for i := 0; i < numKeys; i++ {
		keyID, keySecret, err := GenerateKeyPair()
		if err != nil {
			t.Fatalf("GenerateKeyPair failed: %v", err)
		}
		if seenIDs[keyID] {
			t.Fatalf("Duplicate key ID generated: %s", keyID)
		}
		if seenSecrets[keySecret] {
			t.Fatalf("Duplicate key secret generated: %s", keySecret)
		}
		seenIDs[keyID] = true
		seenSecrets[keySecret] = true
	}
}

func TestParseCredential_RoundTrip(t *testing.T) {
	t.Parallel()

	keyID, keySecret, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}

	parsedID, parsedSecret, err := ParseCredential(ComposeCredential(keyID, keySecret))
	if err != nil {
		t.Fatalf("ParseCredential failed: %v", err)
	}
	if parsedID != keyID {
		t.Errorf("Parsed key ID = %s, want %s", parsedID, keyID)
	}
	if parsedSecret != keySecret {
		t.Errorf("Parsed key secret = %s, want %s", parsedSecret, keySecret)
	}
}

func TestParseCredential_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		credential string
	}{
		{"empty string", ""},
		{"no separator", "ak_deadbeef"},
		{"empty key id", ":secret"},
		{"empty secret", "ak_deadbeef:"},
		{"only separator", ":"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := ParseCredential(tt.credential)
			if !errors.Is(err, ErrMalformedCredential) {
				t.Errorf("ParseCredential(%q) error = %v, want ErrMalformedCredential", tt.credential, err)
			}
		})
	}
}

func TestParseCredential_SecretMayContainSeparator(t *testing.T) {
	t.Parallel()

	// Only the first separator splits; everything after belongs to the secret
	keyID, keySecret, err := ParseCredential("ak_abc:sec:ret")
	if err != nil {
		t.Fatalf("ParseCredential failed: %v", err)
	}
	if keyID != "ak_abc" {
		t.Errorf("Key ID = %s, want ak_abc", keyID)
	}
	if keySecret != "sec:ret" {
		t.Errorf("Key secret = %s, want sec:ret", keySecret)
	}
}

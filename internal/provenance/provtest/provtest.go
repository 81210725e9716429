// Package provtest creates signing keys and provenance files for tests
package provtest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/ralt/chartrepo/internal/utils"
)

// Signer holds a throwaway OpenPGP key
type Signer struct {
	Entity *openpgp.Entity
}

// NewSigner generates an EdDSA key
func NewSigner(t testing.TB, name string) *Signer {
	t.Helper()

	entity, err := openpgp.NewEntity(name, "", "signer@example.com", &packet.Config{
		Algorithm: packet.PubKeyAlgoEdDSA,
	})
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	return &Signer{Entity: entity}
}

// WriteKeyring writes the armored public key to dir/pubring.asc and returns its path
func (s *Signer) WriteKeyring(t testing.TB, dir string) string {
	t.Helper()

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("Failed to create armor: %v", err)
	}
	if err := s.Entity.Serialize(w); err != nil {
		t.Fatalf("Failed to serialize key: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close armor: %v", err)
	}

	path := filepath.Join(dir, "pubring.asc")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write keyring: %v", err)
	}
	return path
}

// Body returns the unsigned provenance body for a chart archive
func Body(t testing.TB, chartPath, name, version string) []byte {
	t.Helper()

	sum, err := utils.CalculateChecksums(chartPath)
	if err != nil {
		t.Fatalf("Failed to checksum chart: %v", err)
	}
	return []byte(fmt.Sprintf("apiVersion: v2\nname: %s\nversion: %s\n\n...\nfiles:\n  %s: sha256:%s\n",
		name, version, filepath.Base(chartPath), sum.SHA256))
}

// Sign clear-signs body and writes it to provPath
func (s *Signer) Sign(t testing.TB, body []byte, provPath string) {
	t.Helper()

	var buf bytes.Buffer
	w, err := clearsign.Encode(&buf, s.Entity.PrivateKey, nil)
	if err != nil {
		t.Fatalf("Failed to start signature: %v", err)
	}
	if _, err := w.Write(body); err != nil {
		t.Fatalf("Failed to sign: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to finish signature: %v", err)
	}

	if err := os.WriteFile(provPath, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write provenance: %v", err)
	}
}

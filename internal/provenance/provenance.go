// Package provenance verifies helm provenance (.prov) files: clear-signed
// documents carrying a chart's metadata and the sha256 digest of its archive
package provenance

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
	"github.com/ralt/chartrepo/internal/models"
	"github.com/ralt/chartrepo/internal/utils"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Provenance is the signed content of a provenance file
type Provenance struct {
	Chart  models.Chart
	Files  map[string]string // archive name -> "sha256:<hex>"
	Signer string
}

// Verifier checks provenance files against a keyring
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a Verifier from a public keyring file
func NewVerifier(keyringPath string) (*Verifier, error) {
	if keyringPath == "" {
		return nil, fmt.Errorf("keyring path is empty")
	}

	keyFile, err := os.Open(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	defer keyFile.Close()

	// Try to parse as armored keyring first
	entityList, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		// Try as binary keyring
		if _, seekErr := keyFile.Seek(0, 0); seekErr != nil {
			return nil, fmt.Errorf("failed to read keyring: %w", seekErr)
		}
		entityList, err = openpgp.ReadKeyRing(keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read keyring: %w", err)
		}
	}

	if len(entityList) == 0 {
		return nil, fmt.Errorf("no keys found in keyring")
	}

	return &Verifier{keyring: entityList}, nil
}

// Read parses a provenance file without checking its signature
func Read(provPath string) (*Provenance, error) {
	_, prov, err := decode(provPath)
	return prov, err
}

// Verify checks the signature of provPath and that the digest it records for
// the archive matches chartPath's content
func (v *Verifier) Verify(chartPath, provPath string) (*Provenance, error) {
	block, prov, err := decode(provPath)
	if err != nil {
		return nil, err
	}

	signer, err := openpgp.CheckDetachedSignature(v.keyring, bytes.NewReader(block.Bytes), block.ArmoredSignature.Body, nil)
	if err != nil {
		return nil, fmt.Errorf("signature verification failed: %w", err)
	}
	prov.Signer = signerName(signer)

	if err := prov.Check(chartPath); err != nil {
		return nil, err
	}

	logrus.Debugf("Provenance for %s signed by %s", filepath.Base(chartPath), prov.Signer)
	return prov, nil
}

// Check matches the digest recorded for chartPath's file name against its content
// A chart published under another name than the one it was signed as fails here
func (p *Provenance) Check(chartPath string) error {
	name := filepath.Base(chartPath)
	want, ok := p.Files[name]
	if !ok {
		return fmt.Errorf("no digest recorded for %s (provenance lists %s)", name, strings.Join(p.fileNames(), ", "))
	}

	sum, err := utils.CalculateChecksums(chartPath)
	if err != nil {
		return err
	}
	if got := "sha256:" + sum.SHA256; got != want {
		return fmt.Errorf("digest mismatch for %s: provenance has %s, archive is %s", name, want, got)
	}
	return nil
}

func (p *Provenance) fileNames() []string {
	names := make([]string, 0, len(p.Files))
	for name := range p.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func decode(provPath string) (*clearsign.Block, *Provenance, error) {
	data, err := os.ReadFile(provPath)
	if err != nil {
		return nil, nil, err
	}

	block, _ := clearsign.Decode(data)
	if block == nil {
		return nil, nil, errors.New("no clear-signed block found")
	}

	prov, err := Parse(block.Plaintext)
	if err != nil {
		return nil, nil, err
	}
	return block, prov, nil
}

// Parse splits the signed body into chart metadata and the files section
// The two YAML documents are separated by a "..." line
func Parse(plaintext []byte) (*Provenance, error) {
	parts := strings.SplitN(string(plaintext), "\n...\n", 2)
	if len(parts) != 2 {
		return nil, errors.New("malformed provenance: missing files section")
	}

	prov := &Provenance{}
	if err := yaml.Unmarshal([]byte(parts[0]), &prov.Chart); err != nil {
		return nil, fmt.Errorf("malformed provenance metadata: %w", err)
	}

	var files struct {
		Files map[string]string `yaml:"files"`
	}
	if err := yaml.Unmarshal([]byte(parts[1]), &files); err != nil {
		return nil, fmt.Errorf("malformed provenance files section: %w", err)
	}
	if len(files.Files) == 0 {
		return nil, errors.New("malformed provenance: no files listed")
	}
	prov.Files = files.Files

	return prov, nil
}

func signerName(e *openpgp.Entity) string {
	if e == nil {
		return "unknown"
	}
	for name := range e.Identities {
		return name
	}
	return fmt.Sprintf("%X", e.PrimaryKey.Fingerprint)
}

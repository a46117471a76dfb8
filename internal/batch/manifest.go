package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Case is one verification in a batch.
type Case struct {
	ID           string `yaml:"id" json:"id"`
	Front        string `yaml:"front,omitempty" json:"front,omitempty"`
	Back         string `yaml:"back,omitempty" json:"back,omitempty"`
	Surname      string `yaml:"surname" json:"surname"`
	GivenName    string `yaml:"given_name" json:"given_name"`
	DateOfBirth  string `yaml:"date_of_birth,omitempty" json:"date_of_birth,omitempty"`
	DocumentType string `yaml:"document_type,omitempty" json:"document_type,omitempty"`
}

// Manifest lists the cases of a batch run.
//
//	cases:
//	  - id: alice
//	    front: alice/front.jpg
//	    back: alice/back.jpg
//	    surname: Dupont
//	    given_name: Alice
//	    date_of_birth: 1990-05-12
//	    document_type: CNI
type Manifest struct {
	Cases []Case `yaml:"cases"`
}

// LoadManifest reads a YAML manifest. Relative image paths are resolved
// against the manifest's directory and missing IDs are numbered.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: manifest path is user input
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.resolve(filepath.Dir(path))
	return m, nil
}

// ParseManifest decodes and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if len(m.Cases) == 0 {
		return nil, errors.New("manifest has no cases")
	}

	seen := make(map[string]bool, len(m.Cases))
	for i := range m.Cases {
		c := &m.Cases[i]
		if strings.TrimSpace(c.ID) == "" {
			c.ID = "case-" + strconv.Itoa(i+1)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate case id %q", c.ID)
		}
		seen[c.ID] = true
		if c.Front == "" && c.Back == "" {
			return nil, fmt.Errorf("case %s: no front or back image", c.ID)
		}
	}
	return &m, nil
}

func (m *Manifest) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i := range m.Cases {
		m.Cases[i].Front = abs(m.Cases[i].Front)
		m.Cases[i].Back = abs(m.Cases[i].Back)
	}
}

package tile

import (
	"fmt"
	"os"
	"strings"

	"github.com/quantile-hw/quantile/qubit"
)

// A Store persists the tile's configured gate as a single upper-case word
// in a plain-text file, read at startup and rewritten whenever a
// reconfiguration is accepted.
//
// Writes are best-effort plain file replacement. A reconfiguration racing a
// concurrent startup read of the same file has no defined ordering; the
// interface contract leaves that open and no locking is layered on top.
type Store struct {
	path string
}

// NewStore returns a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the configured gate. On a missing or unreadable file, or an
// unknown gate name, it returns the identity gate along with the error so
// the tile can come up in a safe default and still report the problem.
func (s *Store) Load() (qubit.Gate, error) {
	fallback, _ := qubit.ByType(qubit.Identity)
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fallback, fmt.Errorf("reading gate config: %w", err)
	}
	name := strings.ToUpper(strings.TrimSpace(string(raw)))
	g, ok := qubit.ByName(name)
	if !ok {
		return fallback, fmt.Errorf("gate config %s names unknown gate %q", s.path, name)
	}
	return g, nil
}

// Save writes the gate name, upper-cased, as the file's entire content.
func (s *Store) Save(name string) error {
	if err := os.WriteFile(s.path, []byte(strings.ToUpper(name)), 0o644); err != nil {
		return fmt.Errorf("writing gate config: %w", err)
	}
	return nil
}

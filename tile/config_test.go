package tile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quantile-hw/quantile/qubit"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.cfg")
	s := NewStore(path)
	if err := s.Save("Hadamard"); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "HADAMARD" {
		t.Errorf("file content = %q, want upper-cased name", raw)
	}
	g, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.Type != qubit.Hadamard {
		t.Errorf("loaded gate = %#02x, want HADAMARD", byte(g.Type))
	}
}

func TestStoreLoadTolerantOfWhitespaceAndCase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.cfg")
	if err := os.WriteFile(path, []byte("  rz_pi_div4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	g, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.Type != qubit.RZPiDiv4 {
		t.Errorf("loaded gate = %#02x, want RZ_PI_DIV4", byte(g.Type))
	}
}

func TestStoreLoadFailuresDefaultToIdentity(t *testing.T) {
	dir := t.TempDir()

	g, err := NewStore(filepath.Join(dir, "missing.cfg")).Load()
	if err == nil {
		t.Error("Load of a missing file reported no error")
	}
	if g.Type != qubit.Identity {
		t.Errorf("missing file gate = %#02x, want IDENTITY", byte(g.Type))
	}

	path := filepath.Join(dir, "gate.cfg")
	if err := os.WriteFile(path, []byte("FLUX_CAPACITOR"), 0o644); err != nil {
		t.Fatal(err)
	}
	g, err = NewStore(path).Load()
	if err == nil {
		t.Error("Load of an unknown gate name reported no error")
	}
	if g.Type != qubit.Identity {
		t.Errorf("unknown name gate = %#02x, want IDENTITY", byte(g.Type))
	}
}

package watchdog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}

	d, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := d.Feed(); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte{0, 0, 0, 'V'}) {
		t.Errorf("device saw %q", data)
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected an error for a missing device")
	}
}

func TestNop(t *testing.T) {
	var w Watchdog = Nop{}
	if w.Feed() != nil || w.Close() != nil {
		t.Error("Nop should never fail")
	}
}

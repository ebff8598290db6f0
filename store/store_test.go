package store

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pedal", "eeprom.bin")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, path
}

func reopen(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	return s
}

func TestSettingsRepairAndPersist(t *testing.T) {
	s, path := openTemp(t)

	st, err := s.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if st != DefaultSettings() {
		t.Errorf("erased image gave %+v, want defaults", st)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("defaults were not persisted: %v", err)
	}

	st.Brightness = 9
	st.LiveGigMode = true
	if err := s.SaveSettings(st); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	got, err := reopen(t, path).LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got != st {
		t.Errorf("reloaded %+v, want %+v", got, st)
	}
}

func TestSettingsBadChecksum(t *testing.T) {
	s, path := openTemp(t)
	if err := s.SaveSettings(Settings{Brightness: 12, LiveGigMode: true}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	binary.LittleEndian.PutUint32(data[4:8], 0x1234)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	got, err := reopen(t, path).LoadSettings()
	if err != nil {
		t.Fatal(err)
	}
	if got != DefaultSettings() {
		t.Errorf("corrupt settings gave %+v, want defaults", got)
	}
}

func TestPatchesDefaultOnErased(t *testing.T) {
	s, path := openTemp(t)
	b, err := s.LoadPatches()
	if err != nil {
		t.Fatalf("LoadPatches: %v", err)
	}
	if b != DefaultBank() {
		t.Errorf("erased image gave %+v", b)
	}
	if s.ActivePatchCount() != 3 {
		t.Errorf("ActivePatchCount = %d, want 3", s.ActivePatchCount())
	}

	b2, err := reopen(t, path).LoadPatches()
	if err != nil {
		t.Fatal(err)
	}
	if b2 != b {
		t.Errorf("defaults did not survive a reload: %+v", b2)
	}
}

func TestPatchesRoundTrip(t *testing.T) {
	s, path := openTemp(t)
	b := DefaultBank()
	for _, p := range []Patch{{"AB", 60}, {"slow", 40}} {
		if _, err := b.Add(p); err != nil {
			t.Fatalf("Add(%+v): %v", p, err)
		}
	}
	if err := s.SavePatches(&b); err != nil {
		t.Fatal(err)
	}

	got, err := reopen(t, path).LoadPatches()
	if err != nil {
		t.Fatal(err)
	}
	if got.Count != 5 {
		t.Fatalf("Count = %d, want 5", got.Count)
	}
	if got.Patches[3] != (Patch{"AB  ", 60}) {
		t.Errorf("short label reloaded as %+v", got.Patches[3])
	}
	if got.Patches[4] != (Patch{"slow", 40}) {
		t.Errorf("patch 4 = %+v", got.Patches[4])
	}
}

func TestPatchesRepairOnInvalidRecord(t *testing.T) {
	tests := []struct {
		name   string
		record int
		mutate func(rec []byte)
	}{
		{"first record tempo", 0, func(rec []byte) { binary.LittleEndian.PutUint32(rec[8:12], 300) }},
		{"later record tempo", 1, func(rec []byte) { binary.LittleEndian.PutUint32(rec[8:12], 12) }},
		{"unprintable name", 2, func(rec []byte) { rec[1] = 0x07 }},
		{"first record empty", 0, func(rec []byte) { rec[0] = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, path := openTemp(t)
			b := DefaultBank()
			b.Patches[0] = Patch{"ONE ", 70}
			if err := s.SavePatches(&b); err != nil {
				t.Fatal(err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			off := patchesAddr + tt.record*patchSize
			tt.mutate(data[off : off+patchSize])
			if err := os.WriteFile(path, data, 0644); err != nil {
				t.Fatal(err)
			}

			got, err := reopen(t, path).LoadPatches()
			if err != nil {
				t.Fatal(err)
			}
			if got != DefaultBank() {
				t.Errorf("got %+v, want the built-in bank", got)
			}
		})
	}
}

func TestEraseRestoresDefaults(t *testing.T) {
	s, path := openTemp(t)
	if err := s.SaveSettings(Settings{Brightness: 15}); err != nil {
		t.Fatal(err)
	}
	b := DefaultBank()
	b.Delete(0)
	if err := s.SavePatches(&b); err != nil {
		t.Fatal(err)
	}
	if err := s.Erase(); err != nil {
		t.Fatal(err)
	}

	r := reopen(t, path)
	st, _ := r.LoadSettings()
	if st != DefaultSettings() {
		t.Errorf("settings after erase = %+v", st)
	}
	got, _ := r.LoadPatches()
	if got != DefaultBank() {
		t.Errorf("patches after erase = %+v", got)
	}
}

func TestBankOperations(t *testing.T) {
	b := DefaultBank()

	if _, err := b.Add(Patch{"TOOLONG", 100}); !errors.Is(err, ErrInvalidPatch) {
		t.Errorf("long name: err = %v", err)
	}
	if _, err := b.Add(Patch{"OK", 300}); !errors.Is(err, ErrInvalidPatch) {
		t.Errorf("bad tempo: err = %v", err)
	}
	if err := b.Update(3, Patch{"NEW", 100}); err != ErrInvalidIndex {
		t.Errorf("update past count: err = %v", err)
	}
	if err := b.Update(1, Patch{"ROCK", 140}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if b.Patches[1] != (Patch{"ROCK", 140}) {
		t.Errorf("patch 1 = %+v", b.Patches[1])
	}

	if err := b.Delete(0); err != nil {
		t.Fatal(err)
	}
	want := []Patch{{"ROCK", 140}, {"TWTY", 120}}
	active := b.Active()
	if len(active) != len(want) {
		t.Fatalf("active = %+v", active)
	}
	for i := range want {
		if active[i] != want[i] {
			t.Errorf("active[%d] = %+v, want %+v", i, active[i], want[i])
		}
	}
	if !b.Patches[2].Empty() {
		t.Errorf("tail slot not cleared: %+v", b.Patches[2])
	}

	b.Delete(0)
	if err := b.Delete(0); err != ErrLastPatch {
		t.Errorf("deleting the only patch: err = %v", err)
	}

	for b.Count < Capacity {
		if _, err := b.Add(Patch{"FILL", 100}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := b.Add(Patch{"OVER", 100}); err != ErrBankFull {
		t.Errorf("full bank: err = %v", err)
	}
}

func TestCommitWritesFullImage(t *testing.T) {
	s, path := openTemp(t)
	if s.Path() != path {
		t.Fatalf("Path = %q, want %q", s.Path(), path)
	}
	if err := s.SaveSettings(Settings{Brightness: 3}); err != nil {
		t.Fatal(err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != ImageSize {
		t.Errorf("image is %d bytes, want %d", fi.Size(), ImageSize)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary image left behind: %v", err)
	}
}

func TestCommitError(t *testing.T) {
	s, path := openTemp(t)
	// a directory in place of the temporary file makes the write fail
	if err := os.MkdirAll(path+".tmp", 0755); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSettings(DefaultSettings()); err == nil {
		t.Error("expected an error when the image cannot be written")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("image should not exist after a failed commit: %v", err)
	}
}

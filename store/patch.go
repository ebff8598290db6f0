package store

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/mastercactapus/metropedal/tempo"
)

// Capacity is the number of patch records in storage.
const Capacity = 10

// NameLen is the width of a patch label.
const NameLen = 4

var (
	ErrBankFull     = errors.New("maximum number of patches reached")
	ErrInvalidIndex = errors.New("invalid patch index")
	ErrInvalidPatch = errors.New("invalid patch")
	ErrLastPatch    = errors.New("cannot delete the last patch")
)

// Patch is a named tempo preset.
type Patch struct {
	Name  string `json:"name"`
	Tempo int    `json:"tempo"`
}

// Empty reports whether the slot holds no patch.
func (p Patch) Empty() bool { return p.Name == "" }

// Valid reports whether p could have been written by SavePatches: a label of
// exactly NameLen printable ASCII bytes and an in-range tempo.
func (p Patch) Valid() bool {
	if len(p.Name) != NameLen {
		return false
	}
	for i := 0; i < len(p.Name); i++ {
		if p.Name[i] < 32 || p.Name[i] > 126 {
			return false
		}
	}
	return p.Tempo >= tempo.MinBPM && p.Tempo <= tempo.MaxBPM
}

// Normalize pads the label with spaces and validates the result.
func Normalize(p Patch) (Patch, error) {
	if p.Name == "" || len(p.Name) > NameLen {
		return p, errors.Wrapf(ErrInvalidPatch, "name %q must be 1-%d characters", p.Name, NameLen)
	}
	p.Name += strings.Repeat(" ", NameLen-len(p.Name))
	if !p.Valid() {
		return p, errors.Wrapf(ErrInvalidPatch, "name %q tempo %d", p.Name, p.Tempo)
	}
	return p, nil
}

// Bank is the fixed-capacity patch table. Slots at or beyond Count are
// logically absent.
type Bank struct {
	Patches [Capacity]Patch
	Count   int
}

// DefaultBank returns the built-in patch set.
func DefaultBank() Bank {
	var b Bank
	b.Patches[0] = Patch{Name: "NINT", Tempo: 90}
	b.Patches[1] = Patch{Name: "HUND", Tempo: 100}
	b.Patches[2] = Patch{Name: "TWTY", Tempo: 120}
	b.Count = 3
	return b
}

// Active returns a copy of the selectable patches.
func (b *Bank) Active() []Patch {
	out := make([]Patch, b.Count)
	copy(out, b.Patches[:b.Count])
	return out
}

// Get returns the patch at i, or false when i is not selectable.
func (b *Bank) Get(i int) (Patch, bool) {
	if i < 0 || i >= b.Count {
		return Patch{}, false
	}
	return b.Patches[i], true
}

// Add appends p and returns its index.
func (b *Bank) Add(p Patch) (int, error) {
	if b.Count >= Capacity {
		return -1, ErrBankFull
	}
	p, err := Normalize(p)
	if err != nil {
		return -1, err
	}
	b.Patches[b.Count] = p
	b.Count++
	return b.Count - 1, nil
}

// Update replaces the patch at i.
func (b *Bank) Update(i int, p Patch) error {
	if i < 0 || i >= b.Count {
		return ErrInvalidIndex
	}
	p, err := Normalize(p)
	if err != nil {
		return err
	}
	b.Patches[i] = p
	return nil
}

// Delete removes the patch at i, shifting later patches down.
func (b *Bank) Delete(i int) error {
	if i < 0 || i >= b.Count {
		return ErrInvalidIndex
	}
	if b.Count == 1 {
		return ErrLastPatch
	}
	copy(b.Patches[i:b.Count-1], b.Patches[i+1:b.Count])
	b.Count--
	b.Patches[b.Count] = Patch{}
	return nil
}

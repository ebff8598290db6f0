// Package store persists settings and patches in a flat, fixed-offset image
// that mirrors the pedal's EEPROM layout.
package store

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mastercactapus/metropedal/tempo"
)

const (
	ImageSize = 512

	settingsAddr = 0
	settingsSize = 8
	patchesAddr  = settingsAddr + settingsSize
	patchSize    = 12

	settingsChecksum = 0xABCD

	MaxBrightness     = 15
	DefaultBrightness = 1

	erased = 0xFF
)

// Settings are the persisted device preferences.
type Settings struct {
	LiveGigMode bool  `json:"live_gig_mode"`
	Brightness  uint8 `json:"brightness"`
}

// DefaultSettings returns the factory settings.
func DefaultSettings() Settings {
	return Settings{Brightness: DefaultBrightness}
}

// Store is a file-backed image. Every Save writes the whole image back to
// disk before returning.
type Store struct {
	path  string
	img   [ImageSize]byte
	count int
}

// Open reads the image at path. A missing file is treated as erased memory.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	s.fill(erased)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.WithField("Path", path).Infoln("no storage image, starting erased")
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read storage image")
	}
	copy(s.img[:], data)
	return s, nil
}

func (s *Store) fill(b byte) {
	for i := range s.img {
		s.img[i] = b
	}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// LoadSettings returns the stored settings. A record failing its checksum is
// replaced by the defaults, which are written back immediately.
func (s *Store) LoadSettings() (Settings, error) {
	rec := s.img[settingsAddr : settingsAddr+settingsSize]
	if binary.LittleEndian.Uint32(rec[4:8]) != settingsChecksum {
		log.Warnln("invalid settings, initializing defaults")
		def := DefaultSettings()
		return def, s.SaveSettings(def)
	}

	st := Settings{
		LiveGigMode: rec[0] == 1,
		Brightness:  rec[1],
	}
	if st.Brightness > MaxBrightness {
		st.Brightness = MaxBrightness
	}
	log.WithFields(log.Fields{
		"Brightness": st.Brightness,
		"LiveGig":    st.LiveGigMode,
	}).Debugln("loaded settings")
	return st, nil
}

// SaveSettings writes st and commits the image.
func (s *Store) SaveSettings(st Settings) error {
	rec := s.img[settingsAddr : settingsAddr+settingsSize]
	for i := range rec {
		rec[i] = 0
	}
	if st.LiveGigMode {
		rec[0] = 1
	}
	rec[1] = st.Brightness
	binary.LittleEndian.PutUint32(rec[4:8], settingsChecksum)
	return errors.Wrap(s.commit(), "save settings")
}

// LoadPatches returns the stored bank. Slots are read up to the first empty
// label; if the first slot or any filled slot before that fails validation
// the built-in bank is restored and written back.
func (s *Store) LoadPatches() (Bank, error) {
	var b Bank
	for i := 0; i < Capacity; i++ {
		p := s.readPatch(i)
		if p.Empty() {
			break
		}
		if !p.Valid() {
			b.Count = 0
			break
		}
		b.Patches[i] = p
		b.Count++
	}

	if b.Count == 0 {
		log.Warnln("invalid patches found, initializing defaults")
		b = DefaultBank()
		return b, s.SavePatches(&b)
	}

	s.count = b.Count
	log.WithField("Count", b.Count).Infoln("loaded patches")
	return b, nil
}

// SavePatches writes every slot of b and commits the image.
func (s *Store) SavePatches(b *Bank) error {
	for i := 0; i < Capacity; i++ {
		p := Patch{}
		if i < b.Count {
			p = b.Patches[i]
		}
		s.writePatch(i, p)
	}
	s.count = b.Count
	return errors.Wrap(s.commit(), "save patches")
}

// ActivePatchCount is the number of patches last loaded or saved.
func (s *Store) ActivePatchCount() int { return s.count }

// Erase resets the image to erased memory and commits it.
func (s *Store) Erase() error {
	s.fill(erased)
	s.count = 0
	return errors.Wrap(s.commit(), "erase storage")
}

func (s *Store) readPatch(i int) Patch {
	rec := s.img[patchesAddr+i*patchSize : patchesAddr+(i+1)*patchSize]
	if rec[0] == 0 {
		return Patch{}
	}
	return Patch{
		Name:  string(rec[:NameLen]),
		Tempo: int(int32(binary.LittleEndian.Uint32(rec[8:12]))),
	}
}

func (s *Store) writePatch(i int, p Patch) {
	rec := s.img[patchesAddr+i*patchSize : patchesAddr+(i+1)*patchSize]
	for j := range rec {
		rec[j] = 0
	}
	tempoVal := p.Tempo
	if p.Empty() {
		tempoVal = tempo.DefaultBPM
	}
	copy(rec[:NameLen], p.Name)
	binary.LittleEndian.PutUint32(rec[8:12], uint32(int32(tempoVal)))
}

func (s *Store) commit() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err = f.Write(s.img[:]); err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.path)
}

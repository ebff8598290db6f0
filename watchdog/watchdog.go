// Package watchdog keeps a Linux hardware watchdog fed.
package watchdog

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultDevice is the kernel watchdog character device.
const DefaultDevice = "/dev/watchdog"

// Watchdog must be fed regularly or the device restarts.
type Watchdog interface {
	Feed() error
	Close() error
}

// Device feeds a watchdog device node. Once opened the kernel timer is armed;
// Close disarms it with the magic 'V' write.
type Device struct {
	path string
	f    *os.File
}

// Open arms the watchdog at path.
func Open(path string) (*Device, error) {
	if path == "" {
		path = DefaultDevice
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open watchdog %s", path)
	}
	log.WithField("Device", path).Infoln("watchdog armed")
	return &Device{path: path, f: f}, nil
}

// Feed resets the watchdog timer.
func (d *Device) Feed() error {
	if _, err := d.f.Write([]byte{0}); err != nil {
		return errors.Wrapf(err, "feed watchdog %s", d.path)
	}
	return nil
}

// Close disarms the watchdog and closes the device.
func (d *Device) Close() error {
	_, err := d.f.Write([]byte{'V'})
	cerr := d.f.Close()
	if err != nil {
		return errors.Wrapf(err, "disarm watchdog %s", d.path)
	}
	if cerr != nil {
		return errors.Wrapf(cerr, "close watchdog %s", d.path)
	}
	log.WithField("Device", d.path).Infoln("watchdog disarmed")
	return nil
}

// Nop is used when no watchdog is configured.
type Nop struct{}

func (Nop) Feed() error  { return nil }
func (Nop) Close() error { return nil }

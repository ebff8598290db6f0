package main

import (
	"io"
	"os"
	"path/filepath"
	"text/template"

	"github.com/kardianos/osext"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const serviceFile = `
[Unit]
Description=Metronome Pedal
After=network.target

[Service]
ExecStart={{.BinPath}} run -c {{ .ConfigFile }}
Restart=always
RestartSec=1

[Install]
WantedBy=multi-user.target
`

var serviceTmpl = template.Must(template.New("service").Parse(serviceFile))

func createFile(path string, perm os.FileMode) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	return f, errors.Wrapf(err, "create %s", path)
}

func installBinary(binPath string) error {
	self, err := osext.Executable()
	if err != nil {
		return errors.Wrap(err, "locate executable")
	}
	src, err := os.Open(self)
	if err != nil {
		return errors.Wrap(err, "open executable")
	}
	defer src.Close()

	dst, err := createFile(binPath, 0755)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		return errors.Wrapf(err, "copy to %s", binPath)
	}
	return dst.Close()
}

func installService(unitPath, binPath, cfgPath string) error {
	dst, err := createFile(unitPath, 0644)
	if err != nil {
		return err
	}
	defer dst.Close()

	err = serviceTmpl.Execute(dst, struct{ BinPath, ConfigFile string }{binPath, cfgPath})
	if err != nil {
		return errors.Wrap(err, "write service unit")
	}
	return dst.Close()
}

// installConfig writes the default config unless one exists and reset is
// false.
func installConfig(path string, reset bool) error {
	if _, err := os.Stat(path); err == nil && !reset {
		log.WithField("Path", path).Infoln("keeping existing config")
		return nil
	}
	dst, err := createFile(path, 0644)
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err = io.WriteString(dst, configFile); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return dst.Close()
}

func install(prefix string, reset bool) error {
	if prefix == "" {
		prefix = "/"
	}
	binPath := filepath.Join(prefix, "usr/bin/metropedal")
	if err := installBinary(binPath); err != nil {
		return err
	}
	unitPath := filepath.Join(prefix, "usr/lib/systemd/system/metropedal.service")
	if err := installService(unitPath, binPath, configPath); err != nil {
		return err
	}
	if err := installConfig(filepath.Join(prefix, configPath), reset); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"Binary":  binPath,
		"Service": unitPath,
	}).Infoln("installed")
	return nil
}

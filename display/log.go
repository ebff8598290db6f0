package display

import log "github.com/sirupsen/logrus"

// Log is a Renderer for units without a display attached. It logs each
// distinct frame.
type Log struct {
	last Frame
	seen bool
}

func (l *Log) Render(v View) error {
	f := Format(v)
	if l.seen && f == l.last {
		return nil
	}
	l.last, l.seen = f, true
	log.WithFields(log.Fields{
		"Frame":  f.String(),
		"Active": v.Active,
	}).Infoln("display")
	return nil
}

package beatout

import (
	"net"
	"strconv"

	"github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultOSCAddress is the OSC address pattern beats are sent to.
const DefaultOSCAddress = "/metropedal/beat"

// OSC sends "<address> <bpm>" to a UDP target on every beat, for lighting
// desks and DAWs.
type OSC struct {
	client  *osc.Client
	address string
	failing bool
}

// NewOSC targets host:port.
func NewOSC(target, address string) (*OSC, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return nil, errors.Wrapf(err, "osc target %q", target)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, errors.Wrapf(err, "osc port %q", portStr)
	}
	if address == "" {
		address = DefaultOSCAddress
	}
	return &OSC{client: osc.NewClient(host, port), address: address}, nil
}

func (o *OSC) Beat(bpm int) {
	msg := osc.NewMessage(o.address)
	msg.Append(int32(bpm))
	if err := o.client.Send(msg); err != nil {
		if !o.failing {
			log.Warnln("osc beat:", err)
		}
		o.failing = true
		return
	}
	o.failing = false
}

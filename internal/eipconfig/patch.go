package eipconfig

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/leapcode/vpnprov/internal/model"
)

// ErrAlreadyPatched is returned by [Patch] when a transport already carries
// certificate options.
var ErrAlreadyPatched = errors.New("eipconfig: transport already patched")

// Patch returns a copy of cfg where every obfs4 transport carries options
// binding cert and a disabled iatMode. An absent cert is kept absent; it
// is up to the template to decide how to render it. Other transports are
// copied unchanged and cfg itself is never modified.
func Patch(cfg *EIPConfig, cert model.Cert) (*EIPConfig, error) {
	out := cfg.Clone()
	for id, gw := range out.Gateways {
		for idx := range gw.Transports {
			t := &gw.Transports[idx]
			if t.Name != model.TransportOBFS4 {
				continue
			}
			if t.Options != nil {
				return nil, fmt.Errorf("%w: gateway %s, transport %d", ErrAlreadyPatched, id, idx)
			}
			t.Options = &TransportOptions{
				Cert:    cert,
				IATMode: strconv.Itoa(model.IATModeNone),
			}
		}
	}
	return out, nil
}

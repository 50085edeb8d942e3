// Package provision runs the two provisioning stages: generating the obfs4
// state of a bridge and assembling the configs that advertise it.
//
// The stages only share the state directory. [GenerateState] writes it;
// [Assemble] reads the certificate back from it and patches it into every
// obfs4 transport before rendering.
package provision

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"

	"github.com/leapcode/vpnprov/internal/eipconfig"
	"github.com/leapcode/vpnprov/internal/identity"
	"github.com/leapcode/vpnprov/internal/model"
	"github.com/leapcode/vpnprov/internal/render"
	"github.com/leapcode/vpnprov/obfs4"
	"github.com/leapcode/vpnprov/pkg/config"
)

var (
	// ErrUnknownSelector is returned for a selector other than eip or provider.
	ErrUnknownSelector = errors.New("unknown type of file")

	// ErrMissingOption is returned when a required path is not configured.
	ErrMissingOption = errors.New("provision: missing option")
)

// GenerateState creates a new obfs4 identity in the configured state directory.
func GenerateState(cfg *config.Config) (*identity.Identity, error) {
	if cfg.StateDir() == "" {
		return nil, fmt.Errorf("%w: state directory", ErrMissingOption)
	}
	return identity.Generate(cfg.StateDir(), cfg.Logger())
}

// Assemble parses the source document, patches the certificate found in the
// state directory (if any) and writes the rendered document to w.
func Assemble(cfg *config.Config, w io.Writer) error {
	switch cfg.Selector() {
	case model.SelectEIP, model.SelectProvider:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSelector, cfg.Selector())
	}
	if cfg.SourcePath() == "" {
		return fmt.Errorf("%w: source document", ErrMissingOption)
	}
	if cfg.TemplatePath() == "" {
		return fmt.Errorf("%w: template", ErrMissingOption)
	}

	eip, err := eipconfig.Parse(cfg.SourcePath())
	if err != nil {
		return err
	}
	cfg.Logger().Debugf("parsed %d locations, %d gateways, auth=%s",
		len(eip.Locations), len(eip.Gateways), eip.Auth)

	var out string
	switch cfg.Selector() {
	case model.SelectEIP:
		cert, err := LoadCert(cfg)
		if err != nil {
			return err
		}
		patched, err := eipconfig.Patch(eip, cert)
		if err != nil {
			return err
		}
		if cfg.VerifyCert() {
			if err := VerifyTransports(patched, cfg.Logger()); err != nil {
				return err
			}
		}
		out, err = render.EndpointConfig(cfg.Engine(), patched, cfg.TemplatePath())
		if err != nil {
			return err
		}
	case model.SelectProvider:
		out, err = render.ProviderConfig(cfg.Engine(), eip, cfg.TemplatePath())
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// LoadCert returns the certificate stored in the configured state
// directory, or an absent certificate when no directory is configured.
// When the directory also holds a state record, the certificate must
// match the one derived from it.
func LoadCert(cfg *config.Config) (model.Cert, error) {
	if cfg.StateDir() == "" {
		cfg.Logger().Info("no obfs4 state directory, rendering without certificate")
		return model.CertAbsent(), nil
	}
	cert, err := identity.ReadCertificate(cfg.StateDir())
	if err != nil {
		return model.CertAbsent(), err
	}
	id, err := identity.LoadState(cfg.StateDir())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg.Logger().Warnf("no %s in %s, using %s as is", model.StateFile, cfg.StateDir(), model.CertFile)
	case err != nil:
		return model.CertAbsent(), err
	case id.Certificate().String() != cert:
		return model.CertAbsent(), fmt.Errorf("%w: %s does not match %s",
			identity.ErrBadState, model.CertFile, model.StateFile)
	}
	return model.CertPresent(cert), nil
}

// VerifyTransports checks every patched obfs4 transport that has a
// certificate against an obfs4 client. Gateways without an ip_address
// attribute, and transports without a port, are skipped.
func VerifyTransports(eip *eipconfig.EIPConfig, logger model.Logger) error {
	ids := make([]string, 0, len(eip.Gateways))
	for id := range eip.Gateways {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		gw := eip.Gateways[id]
		host, _ := gw.Attrs["ip_address"].(string)
		for _, t := range gw.Transports {
			if t.Options == nil || t.Options.Cert.IsNone() {
				continue
			}
			if host == "" || len(t.Args) < 2 {
				logger.Warnf("gateway %s: not enough information to verify obfs4 transport", id)
				continue
			}
			port := fmt.Sprint(t.Args[1])
			node := obfs4.NewProxyNode(host, port, t.Options.Cert.Unwrap(), model.IATModeNone)
			if err := obfs4.CheckNode(node); err != nil {
				return fmt.Errorf("gateway %s: %w", id, err)
			}
			logger.Debugf("gateway %s: %s", id, node.URI())
		}
	}
	return nil
}

// Check loads the state directory, checks its consistency and returns the
// obfs4 node a client would use to reach a bridge at host:port.
func Check(cfg *config.Config, host, port string) (*obfs4.ProxyNode, error) {
	if cfg.StateDir() == "" {
		return nil, fmt.Errorf("%w: state directory", ErrMissingOption)
	}
	id, err := identity.LoadState(cfg.StateDir())
	if err != nil {
		return nil, err
	}
	cert := id.Certificate()
	if stored, err := identity.ReadCertificate(cfg.StateDir()); err == nil && stored != cert.String() {
		return nil, fmt.Errorf("%w: %s does not match %s", identity.ErrBadState, model.CertFile, model.StateFile)
	}
	node := obfs4.NewProxyNode(host, port, cert.String(), model.IATModeNone)
	if err := obfs4.CheckNode(node); err != nil {
		return nil, err
	}
	cfg.Logger().Infof("obfs4 cert: %s", cert)
	return node, nil
}

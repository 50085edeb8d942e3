// Package eipconfig loads the provider source document into an [EIPConfig]
// and patches obfs4 certificates into its gateway transports.
package eipconfig

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leapcode/vpnprov/internal/model"
)

var (
	// ErrBadSource is the generic error for malformed source documents.
	ErrBadSource = errors.New("eipconfig: bad source document")

	// ErrMissingSection is returned when a required top-level key is absent.
	ErrMissingSection = errors.New("eipconfig: missing section")

	// ErrUnknownAuth is returned for an auth value outside
	// [model.SupportedAuthMethods].
	ErrUnknownAuth = errors.New("unknown auth method")
)

// Top-level keys of the source document.
const (
	sectionOpenVPN   = "openvpn"
	sectionLocations = "locations"
	sectionGateways  = "gateways"
	sectionProvider  = "provider"
	sectionAuth      = "auth"
)

// attrTransports is the gateway attribute holding transport descriptors.
const attrTransports = "transports"

// EIPConfig is the in-memory model of a provider source document.
type EIPConfig struct {
	// OpenVPN holds the openvpn options, stringified.
	OpenVPN map[string]string

	// Locations maps a location id to its attributes.
	Locations map[string]map[string]any

	// Gateways maps a gateway id to the gateway.
	Gateways map[string]*Gateway

	// Provider holds the provider options.
	Provider map[string]any

	// Auth is the authentication method.
	Auth model.AuthMethod
}

// Gateway is a VPN gateway with its transports.
type Gateway struct {
	// Attrs are every attribute but transports.
	Attrs map[string]any

	// Transports are the gateway transports, in source order.
	Transports []Transport
}

// Transport is a transport descriptor such as ["obfs4", "tcp", "23042"].
type Transport struct {
	// Name is the first element of the descriptor.
	Name string

	// Args are the remaining positional elements.
	Args []any

	// Options is set by [Patch] on obfs4 transports.
	Options *TransportOptions
}

// TransportOptions are the options appended to an obfs4 descriptor.
type TransportOptions struct {
	Cert    model.Cert
	IATMode string
}

// Parse reads and parses the source document at path.
func Parse(path string) (*EIPConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

// ParseBytes parses a source document.
func ParseBytes(data []byte) (*EIPConfig, error) {
	doc := map[string]yaml.Node{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadSource, err)
	}

	cfg := &EIPConfig{}

	var openvpn Pairs
	if err := decodeSection(doc, sectionOpenVPN, &openvpn); err != nil {
		return nil, err
	}
	cfg.OpenVPN = openvpn.FoldText()

	auth, err := parseAuth(doc)
	if err != nil {
		return nil, err
	}
	cfg.Auth = auth

	var locations Entries
	if err := decodeSection(doc, sectionLocations, &locations); err != nil {
		return nil, err
	}
	cfg.Locations = make(map[string]map[string]any, len(locations))
	for _, entry := range locations {
		cfg.Locations[entry.ID] = entry.Attrs.Fold()
	}

	var gateways Entries
	if err := decodeSection(doc, sectionGateways, &gateways); err != nil {
		return nil, err
	}
	cfg.Gateways = make(map[string]*Gateway, len(gateways))
	for _, entry := range gateways {
		gw, err := newGateway(entry.Attrs.Fold())
		if err != nil {
			return nil, fmt.Errorf("%s: gateway %s: %w", sectionGateways, entry.ID, err)
		}
		cfg.Gateways[entry.ID] = gw
	}

	var provider Pairs
	if err := decodeSection(doc, sectionProvider, &provider); err != nil {
		return nil, err
	}
	cfg.Provider = provider.Fold()

	return cfg, nil
}

func decodeSection(doc map[string]yaml.Node, name string, out yaml.Unmarshaler) error {
	node, found := doc[name]
	if !found {
		return fmt.Errorf("%w: %s", ErrMissingSection, name)
	}
	if err := out.UnmarshalYAML(&node); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func parseAuth(doc map[string]yaml.Node) (model.AuthMethod, error) {
	node, found := doc[sectionAuth]
	if !found {
		return model.DefaultAuthMethod, nil
	}
	var auth string
	if err := node.Decode(&auth); err != nil {
		return "", fmt.Errorf("%s: %w: %s", sectionAuth, ErrBadSource, err)
	}
	method := model.AuthMethod(auth)
	if !method.IsSupported() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAuth, auth)
	}
	return method, nil
}

func newGateway(attrs map[string]any) (*Gateway, error) {
	gw := &Gateway{Attrs: attrs}
	raw, found := attrs[attrTransports]
	if !found {
		return gw, nil
	}
	delete(attrs, attrTransports)
	descriptors, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list", ErrBadSource, attrTransports)
	}
	for idx, d := range descriptors {
		t, err := newTransport(d)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", attrTransports, idx, err)
		}
		gw.Transports = append(gw.Transports, t)
	}
	return gw, nil
}

func newTransport(descriptor any) (Transport, error) {
	elems, ok := descriptor.([]any)
	if !ok || len(elems) == 0 {
		return Transport{}, fmt.Errorf("%w: transport must be a non-empty list", ErrBadSource)
	}
	name, ok := elems[0].(string)
	if !ok {
		return Transport{}, fmt.Errorf("%w: transport name must be a string", ErrBadSource)
	}
	return Transport{Name: name, Args: append([]any{}, elems[1:]...)}, nil
}

// Clone returns a deep copy of the model structure. Attribute values are
// shared, they are never modified in place.
func (c *EIPConfig) Clone() *EIPConfig {
	out := &EIPConfig{
		OpenVPN:   make(map[string]string, len(c.OpenVPN)),
		Locations: make(map[string]map[string]any, len(c.Locations)),
		Gateways:  make(map[string]*Gateway, len(c.Gateways)),
		Provider:  copyMap(c.Provider),
		Auth:      c.Auth,
	}
	for k, v := range c.OpenVPN {
		out.OpenVPN[k] = v
	}
	for id, attrs := range c.Locations {
		out.Locations[id] = copyMap(attrs)
	}
	for id, gw := range c.Gateways {
		out.Gateways[id] = gw.clone()
	}
	return out
}

func (gw *Gateway) clone() *Gateway {
	out := &Gateway{Attrs: copyMap(gw.Attrs)}
	for _, t := range gw.Transports {
		nt := Transport{Name: t.Name, Args: append([]any{}, t.Args...)}
		if t.Options != nil {
			opts := *t.Options
			nt.Options = &opts
		}
		out.Transports = append(out.Transports, nt)
	}
	return out
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Package render binds an [eipconfig.EIPConfig] to template variables and
// renders it through a template [Engine].
package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flosch/pongo2/v6"

	"github.com/leapcode/vpnprov/internal/eipconfig"
)

// ErrTemplate is returned when a template cannot be loaded or executed.
var ErrTemplate = errors.New("render: template error")

// Vars are the variables bound into a template.
type Vars map[string]any

// Engine renders templates.
type Engine interface {
	// RenderFile renders the template stored at path.
	RenderFile(path string, vars Vars) (string, error)

	// RenderString renders the given template text.
	RenderString(text string, vars Vars) (string, error)
}

func init() {
	// rendered documents are JSON and plain config files
	pongo2.SetAutoescape(false)
}

// Pongo2Engine is an [Engine] for Jinja-style templates.
type Pongo2Engine struct{}

var _ Engine = &Pongo2Engine{}

// NewEngine returns the default [Engine].
func NewEngine() *Pongo2Engine {
	return &Pongo2Engine{}
}

// RenderFile implements Engine. Templates may include sibling templates.
func (e *Pongo2Engine) RenderFile(path string, vars Vars) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", err
	}
	loader, err := pongo2.NewLocalFileSystemLoader(filepath.Dir(abs))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrTemplate, err)
	}
	set := pongo2.NewSet(filepath.Base(abs), loader)
	tpl, err := set.FromFile(filepath.Base(abs))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrTemplate, err)
	}
	return execute(tpl, vars)
}

// RenderString implements Engine.
func (e *Pongo2Engine) RenderString(text string, vars Vars) (string, error) {
	tpl, err := pongo2.FromString(text)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrTemplate, err)
	}
	return execute(tpl, vars)
}

func execute(tpl *pongo2.Template, vars Vars) (string, error) {
	out, err := tpl.Execute(pongo2.Context(vars))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrTemplate, err)
	}
	return out, nil
}

// EndpointVars binds locations, gateways, openvpn and auth.
//
// Each gateway is its attribute map with a "transports" list; a transport
// is a list starting with its name, followed by its positional arguments
// and, for patched obfs4 transports, a trailing options map
// {"cert": ..., "iatMode": "0"}. An absent certificate is bound as nil.
func EndpointVars(cfg *eipconfig.EIPConfig) Vars {
	locations := make(map[string]map[string]any, len(cfg.Locations))
	for id, attrs := range cfg.Locations {
		locations[id] = attrs
	}
	gateways := make(map[string]map[string]any, len(cfg.Gateways))
	for id, gw := range cfg.Gateways {
		gateways[id] = gatewayVars(gw)
	}
	openvpn := make(map[string]string, len(cfg.OpenVPN))
	for k, v := range cfg.OpenVPN {
		openvpn[k] = v
	}
	return Vars{
		"locations": locations,
		"gateways":  gateways,
		"openvpn":   openvpn,
		"auth":      cfg.Auth.String(),
	}
}

func gatewayVars(gw *eipconfig.Gateway) map[string]any {
	out := make(map[string]any, len(gw.Attrs)+1)
	for k, v := range gw.Attrs {
		out[k] = v
	}
	transports := make([]any, 0, len(gw.Transports))
	for _, t := range gw.Transports {
		transports = append(transports, transportVars(t))
	}
	out["transports"] = transports
	return out
}

func transportVars(t eipconfig.Transport) []any {
	out := make([]any, 0, len(t.Args)+2)
	out = append(out, t.Name)
	out = append(out, t.Args...)
	if t.Options != nil {
		out = append(out, map[string]any{
			"cert":    t.Options.Cert.Any(),
			"iatMode": t.Options.IATMode,
		})
	}
	return out
}

// ProviderVars binds only the provider section.
func ProviderVars(cfg *eipconfig.EIPConfig) Vars {
	return Vars{"provider": cfg.Provider}
}

// EndpointConfig renders the endpoint config template at path.
func EndpointConfig(engine Engine, cfg *eipconfig.EIPConfig, path string) (string, error) {
	return engine.RenderFile(path, EndpointVars(cfg))
}

// ProviderConfig renders the provider config template at path.
func ProviderConfig(engine Engine, cfg *eipconfig.EIPConfig, path string) (string, error) {
	return engine.RenderFile(path, ProviderVars(cfg))
}

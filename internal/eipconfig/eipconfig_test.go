package eipconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/leapcode/vpnprov/internal/model"
)

func TestParseFile(t *testing.T) {
	cfg, err := Parse(filepath.Join("testdata", "provider.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Auth != model.AuthSIP {
		t.Errorf("auth = %s", cfg.Auth)
	}
	wantOpenVPN := map[string]string{
		"auth":      "SHA512",
		"cipher":    "AES-256-GCM",
		"keepalive": "10 30",
		"tun-ipv6":  "true",
		"port":      "1194",
	}
	if diff := cmp.Diff(wantOpenVPN, cfg.OpenVPN); diff != "" {
		t.Errorf("openvpn mismatch (-want +got):\n%s", diff)
	}
	wantLocations := map[string]map[string]any{
		"paris": {
			"name":         "Paris",
			"country_code": "FR",
			"hemisphere":   "N",
			"timezone":     "+1",
		},
		"amsterdam": {
			"name":         "Amsterdam",
			"country_code": "NL",
		},
	}
	if diff := cmp.Diff(wantLocations, cfg.Locations); diff != "" {
		t.Errorf("locations mismatch (-want +got):\n%s", diff)
	}
	wantGateways := map[string]*Gateway{
		"gw1": {
			Attrs: map[string]any{
				"host":       "gw1.example.org",
				"ip_address": "203.0.113.10",
				"location":   "paris",
			},
			Transports: []Transport{
				{Name: "openvpn", Args: []any{"tcp", "1194"}},
				{Name: "obfs4", Args: []any{"tcp", "23042"}},
			},
		},
		"gw2": {
			Attrs: map[string]any{
				"host":       "gw2.example.org",
				"ip_address": "203.0.113.20",
				"location":   "amsterdam",
			},
			Transports: []Transport{
				{Name: "openvpn", Args: []any{"udp", "1194"}},
			},
		},
	}
	if diff := cmp.Diff(wantGateways, cfg.Gateways, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("gateways mismatch (-want +got):\n%s", diff)
	}
	wantProvider := map[string]any{
		"name":        "example",
		"domain":      "example.org",
		"description": "An example provider",
		"languages":   []any{"en", "fr"},
	}
	if diff := cmp.Diff(wantProvider, cfg.Provider); diff != "" {
		t.Errorf("provider mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Parse() error = %v, want %v", err, os.ErrNotExist)
	}
}

const minimalDocument = `
openvpn: [{a: 1}, {b: 2}, {a: 3}]
locations: [{loc1: [{name: One}]}]
gateways: [{gw1: [{transports: [["obfs4"]]}]}]
provider: [{name: example}]
`

func TestParseOpenVPNLastWins(t *testing.T) {
	cfg, err := ParseBytes([]byte(minimalDocument))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]string{"a": "3", "b": "2"}, cfg.OpenVPN); diff != "" {
		t.Errorf("openvpn mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAuth(t *testing.T) {
	t.Run("missing auth defaults to anon", func(t *testing.T) {
		cfg, err := ParseBytes([]byte(minimalDocument))
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Auth != model.AuthAnon {
			t.Errorf("auth = %s, want anon", cfg.Auth)
		}
	})
	t.Run("sip is accepted", func(t *testing.T) {
		cfg, err := ParseBytes([]byte(minimalDocument + "auth: sip\n"))
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Auth != model.AuthSIP {
			t.Errorf("auth = %s, want sip", cfg.Auth)
		}
	})
	t.Run("unknown auth names the value", func(t *testing.T) {
		_, err := ParseBytes([]byte(minimalDocument + "auth: oauth\n"))
		if !errors.Is(err, ErrUnknownAuth) {
			t.Fatalf("ParseBytes() error = %v, want %v", err, ErrUnknownAuth)
		}
		if err.Error() != `unknown auth method: "oauth"` {
			t.Errorf("unexpected message %q", err.Error())
		}
	})
	t.Run("non string auth", func(t *testing.T) {
		_, err := ParseBytes([]byte(minimalDocument + "auth: [anon]\n"))
		if !errors.Is(err, ErrBadSource) {
			t.Errorf("ParseBytes() error = %v, want %v", err, ErrBadSource)
		}
	})
}

func TestParseStructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{"not yaml", "openvpn: [", ErrBadSource},
		{"not a mapping", "- a\n- b\n", ErrBadSource},
		{"empty document", "", ErrMissingSection},
		{"missing provider", `
openvpn: []
locations: []
gateways: []
`, ErrMissingSection},
		{"missing gateways", `
openvpn: []
locations: []
provider: []
`, ErrMissingSection},
		{"openvpn is a mapping", `
openvpn: {a: 1}
locations: []
gateways: []
provider: []
`, ErrBadSource},
		{"transports not a list", `
openvpn: []
locations: []
gateways: [{gw1: [{transports: obfs4}]}]
provider: []
`, ErrBadSource},
		{"empty transport descriptor", `
openvpn: []
locations: []
gateways: [{gw1: [{transports: [[]]}]}]
provider: []
`, ErrBadSource},
		{"transport name not a string", `
openvpn: []
locations: []
gateways: [{gw1: [{transports: [[[obfs4]]]}]}]
provider: []
`, ErrBadSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.src))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseBytes() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseErrorNamesSection(t *testing.T) {
	_, err := ParseBytes([]byte(`
openvpn: []
locations: [{loc1: oops}]
gateways: []
provider: []
`))
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := err.Error(); !strings.HasPrefix(got, "locations: loc1:") {
		t.Errorf("error does not name the section: %q", got)
	}
}

func TestGatewayWithoutTransports(t *testing.T) {
	cfg, err := ParseBytes([]byte(`
openvpn: []
locations: []
gateways: [{gw1: [{host: a.example.org}]}]
provider: []
`))
	if err != nil {
		t.Fatal(err)
	}
	if n := len(cfg.Gateways["gw1"].Transports); n != 0 {
		t.Errorf("expected no transports, got %d", n)
	}
}

func TestCloneIsDeep(t *testing.T) {
	cfg, err := ParseBytes([]byte(minimalDocument))
	if err != nil {
		t.Fatal(err)
	}
	clone := cfg.Clone()
	clone.OpenVPN["a"] = "changed"
	clone.Locations["loc1"]["name"] = "changed"
	clone.Provider["name"] = "changed"
	clone.Gateways["gw1"].Transports[0].Name = "changed"
	clone.Gateways["gw1"].Attrs["x"] = 1

	if cfg.OpenVPN["a"] != "3" || cfg.Locations["loc1"]["name"] != "One" ||
		cfg.Provider["name"] != "example" || cfg.Gateways["gw1"].Transports[0].Name != "obfs4" {
		t.Error("clone shares state with the original")
	}
	if _, found := cfg.Gateways["gw1"].Attrs["x"]; found {
		t.Error("clone shares gateway attributes with the original")
	}
}

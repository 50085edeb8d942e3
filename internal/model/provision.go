package model

import (
	"fmt"

	"github.com/leapcode/vpnprov/internal/optional"
)

// AuthMethod is the authentication method advertised by the provider.
type AuthMethod string

var _ fmt.Stringer = AuthMethod("")

// String implements fmt.Stringer
func (a AuthMethod) String() string {
	return string(a)
}

const (
	// AuthAnon lets anyone fetch a client certificate.
	AuthAnon = AuthMethod("anon")

	// AuthSIP authenticates users against a SIP2 library backend.
	AuthSIP = AuthMethod("sip")
)

// DefaultAuthMethod is used when the source document has no auth key.
const DefaultAuthMethod = AuthAnon

// SupportedAuthMethods lists every accepted [AuthMethod].
var SupportedAuthMethods = []AuthMethod{AuthAnon, AuthSIP}

// IsSupported returns true if a is one of [SupportedAuthMethods].
func (a AuthMethod) IsSupported() bool {
	for _, m := range SupportedAuthMethods {
		if m == a {
			return true
		}
	}
	return false
}

// FileSelector picks which document the assembler renders.
type FileSelector string

const (
	// SelectEIP renders the endpoint (eip-service) config.
	SelectEIP = FileSelector("eip")

	// SelectProvider renders the provider config.
	SelectProvider = FileSelector("provider")
)

// Cert is an obfs4 certificate that may not be available for a given
// deployment. An absent Cert is distinct from an empty one.
type Cert = optional.Value[string]

// CertPresent wraps an available certificate.
func CertPresent(cert string) Cert {
	return optional.Some(cert)
}

// CertAbsent marks that no certificate was supplied.
func CertAbsent() Cert {
	return optional.None[string]()
}

// TransportOBFS4 is the transport name that receives certificate options.
const TransportOBFS4 = "obfs4"

// IATModeNone disables inter-arrival-time obfuscation.
const IATModeNone = 0

// State directory artifact names.
const (
	StateFile      = "obfs4_state.json"
	CertFile       = "obfs4_cert.txt"
	BridgeLineFile = "obfs4_bridgeline.txt"
)

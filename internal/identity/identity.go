// Package identity creates and persists the long-term identity of an obfs4
// bridge: a Curve25519 keypair, a node identifier and a DRBG seed.
//
// The certificate handed out to clients is derived from the node identifier
// and the public key only:
//
//	cert = base64(nodeID || publicKey)
//
// Two renderings exist. The padded one goes into the bridge line, the
// unpadded one (trailing '=' removed) is what clients and provider
// configs carry.
package identity

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"gitlab.com/yawning/obfs4.git/common/csrand"
	"gitlab.com/yawning/obfs4.git/common/drbg"
	"gitlab.com/yawning/obfs4.git/common/ntor"

	"github.com/leapcode/vpnprov/internal/runtimex"
)

var (
	// ErrRandom is returned when the random source fails.
	ErrRandom = errors.New("identity: cannot read randomness")

	// ErrBadCert is returned when a certificate cannot be decoded.
	ErrBadCert = errors.New("identity: bad certificate")
)

// CertLength is the decoded length of a certificate.
const CertLength = ntor.NodeIDLength + ntor.PublicKeyLength

const (
	bridgePreamble = "Bridge obfs4 <IP ADDRESS>:<PORT> <FINGERPRINT> cert="
	bridgeSuffix   = " iatMode=0"
)

// Identity is the key material of an obfs4 bridge.
type Identity struct {
	NodeID     ntor.NodeID
	PrivateKey ntor.PrivateKey
	PublicKey  ntor.PublicKey
	DRBGSeed   drbg.Seed
}

// New draws a fresh [Identity] from the system CSPRNG. The keypair, the
// node id and the seed are independent draws.
func New() (*Identity, error) {
	keypair, err := ntor.NewKeypair(false)
	if err != nil {
		return nil, fmt.Errorf("%w: keypair: %s", ErrRandom, err)
	}

	rawID := make([]byte, ntor.NodeIDLength)
	if err := csrand.Bytes(rawID); err != nil {
		return nil, fmt.Errorf("%w: node id: %s", ErrRandom, err)
	}
	nodeID, err := ntor.NewNodeID(rawID)
	runtimex.PanicOnError(err, "ntor.NewNodeID")

	seed, err := drbg.NewSeed()
	if err != nil {
		return nil, fmt.Errorf("%w: drbg seed: %s", ErrRandom, err)
	}

	return &Identity{
		NodeID:     *nodeID,
		PrivateKey: *keypair.Private(),
		PublicKey:  *keypair.Public(),
		DRBGSeed:   *seed,
	}, nil
}

// Certificate derives the certificate for this identity.
func (id *Identity) Certificate() Certificate {
	return NewCertificate(&id.NodeID, &id.PublicKey)
}

// Certificate is nodeID || publicKey.
type Certificate struct {
	raw [CertLength]byte
}

// NewCertificate packs a node id and a public key.
func NewCertificate(nodeID *ntor.NodeID, publicKey *ntor.PublicKey) Certificate {
	var c Certificate
	copy(c.raw[:ntor.NodeIDLength], nodeID[:])
	copy(c.raw[ntor.NodeIDLength:], publicKey.Bytes()[:])
	return c
}

// ParseCertificate decodes a padded or unpadded certificate.
func ParseCertificate(encoded string) (Certificate, error) {
	var c Certificate
	encoded = strings.TrimRight(strings.TrimSpace(encoded), "=")
	if pad := len(encoded) % 4; pad != 0 {
		encoded += strings.Repeat("=", 4-pad)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return c, fmt.Errorf("%w: %s", ErrBadCert, err)
	}
	if len(decoded) != CertLength {
		return c, fmt.Errorf("%w: expected %d bytes, got %d", ErrBadCert, CertLength, len(decoded))
	}
	copy(c.raw[:], decoded)
	return c, nil
}

// Bytes returns a copy of nodeID || publicKey.
func (c Certificate) Bytes() []byte {
	out := make([]byte, CertLength)
	copy(out, c.raw[:])
	return out
}

// NodeID returns the node id half of the certificate.
func (c Certificate) NodeID() *ntor.NodeID {
	var id ntor.NodeID
	copy(id[:], c.raw[:ntor.NodeIDLength])
	return &id
}

// PublicKey returns the public key half of the certificate.
func (c Certificate) PublicKey() *ntor.PublicKey {
	var pk ntor.PublicKey
	copy(pk[:], c.raw[ntor.NodeIDLength:])
	return &pk
}

// Padded returns the standard base64 encoding, with padding.
func (c Certificate) Padded() string {
	return base64.StdEncoding.EncodeToString(c.raw[:])
}

// String returns the unpadded encoding.
func (c Certificate) String() string {
	return strings.TrimRight(c.Padded(), "=")
}

// BridgeLine renders the operator-facing bridge line. The address, port and
// fingerprint are left as placeholders for the operator to fill in.
func BridgeLine(c Certificate) string {
	return bridgePreamble + c.Padded() + bridgeSuffix
}

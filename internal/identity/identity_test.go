package identity

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"gitlab.com/yawning/obfs4.git/common/drbg"
	"gitlab.com/yawning/obfs4.git/common/ntor"
)

// sequentialCert returns the certificate for nodeID = 0x00..0x13 and
// publicKey = 0x14..0x33.
func sequentialCert() Certificate {
	raw := make([]byte, CertLength)
	for i := range raw {
		raw[i] = byte(i)
	}
	var nodeID ntor.NodeID
	var pk ntor.PublicKey
	copy(nodeID[:], raw[:ntor.NodeIDLength])
	copy(pk[:], raw[ntor.NodeIDLength:])
	return NewCertificate(&nodeID, &pk)
}

const (
	sequentialPadded   = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8gISIjJCUmJygpKissLS4vMDEyMw=="
	sequentialUnpadded = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8gISIjJCUmJygpKissLS4vMDEyMw"
)

func TestNewIdentityLengths(t *testing.T) {
	id, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if n := len(id.NodeID); n != 20 {
		t.Errorf("node id length = %d", n)
	}
	if n := len(id.PrivateKey); n != 32 {
		t.Errorf("private key length = %d", n)
	}
	if n := len(id.PublicKey); n != 32 {
		t.Errorf("public key length = %d", n)
	}
	if n := len(id.DRBGSeed); n != drbg.SeedLength || n != 24 {
		t.Errorf("drbg seed length = %d", n)
	}
}

func TestNewIdentityIsFresh(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatal(err)
	}
	b, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if a.PrivateKey == b.PrivateKey {
		t.Error("two identities share a private key")
	}
	if a.NodeID == b.NodeID {
		t.Error("two identities share a node id")
	}
	if a.DRBGSeed == b.DRBGSeed {
		t.Error("two identities share a drbg seed")
	}
}

func TestCertificateEncoding(t *testing.T) {
	c := sequentialCert()
	if got := c.Padded(); got != sequentialPadded {
		t.Errorf("Padded() = %s", got)
	}
	if got := c.String(); got != sequentialUnpadded {
		t.Errorf("String() = %s", got)
	}
}

func TestCertificateRoundTrip(t *testing.T) {
	id, err := New()
	if err != nil {
		t.Fatal(err)
	}
	cert := id.Certificate()
	want := append(append([]byte{}, id.NodeID[:]...), id.PublicKey[:]...)

	decoded, err := base64.StdEncoding.DecodeString(cert.Padded())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, want) {
		t.Fatal("padded certificate does not decode to nodeID || publicKey")
	}

	for _, encoded := range []string{cert.String(), cert.Padded()} {
		parsed, err := ParseCertificate(encoded)
		if err != nil {
			t.Fatalf("ParseCertificate(%q): %v", encoded, err)
		}
		if !bytes.Equal(parsed.Bytes(), want) {
			t.Errorf("ParseCertificate(%q) lost information", encoded)
		}
		if *parsed.NodeID() != id.NodeID || *parsed.PublicKey() != id.PublicKey {
			t.Errorf("ParseCertificate(%q) unpacked the wrong halves", encoded)
		}
	}
}

func TestParseCertificateErrors(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"not base64", "!!!!"},
		{"too short", "ABCD"},
		{"too long", sequentialUnpadded + "AAAA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCertificate(tt.encoded); !errors.Is(err, ErrBadCert) {
				t.Errorf("ParseCertificate() error = %v, want %v", err, ErrBadCert)
			}
		})
	}
}

func TestBridgeLine(t *testing.T) {
	c := sequentialCert()
	line := BridgeLine(c)
	want := "Bridge obfs4 <IP ADDRESS>:<PORT> <FINGERPRINT> cert=" + sequentialPadded + " iatMode=0"
	if line != want {
		t.Errorf("BridgeLine() = %s", line)
	}
	if !strings.HasSuffix(line, " iatMode=0") {
		t.Error("bridge line must end with iatMode=0")
	}
	if !strings.Contains(line, c.Padded()) {
		t.Error("bridge line must carry the padded certificate")
	}
}

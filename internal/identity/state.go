package identity

//
// State directory I/O.
//

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"gitlab.com/yawning/obfs4.git/common/drbg"
	"gitlab.com/yawning/obfs4.git/common/ntor"
	"golang.org/x/crypto/curve25519"

	"github.com/leapcode/vpnprov/internal/model"
)

var (
	// ErrStateDir is returned when the state directory cannot be created.
	ErrStateDir = errors.New("identity: cannot create state directory")

	// ErrWriteState is returned when an artifact cannot be written.
	ErrWriteState = errors.New("identity: cannot write state")

	// ErrBadState is returned when a state record is unreadable or
	// internally inconsistent.
	ErrBadState = errors.New("identity: bad state")
)

// jsonState is the on-disk state record, readable by obfs4 servers.
type jsonState struct {
	NodeID     string `json:"node-id"`
	PrivateKey string `json:"private-key"`
	PublicKey  string `json:"public-key"`
	DRBGSeed   string `json:"drbg-seed"`
	IATMode    int    `json:"iatMode"`
}

func (id *Identity) toJSON() *jsonState {
	return &jsonState{
		NodeID:     id.NodeID.Hex(),
		PrivateKey: id.PrivateKey.Hex(),
		PublicKey:  id.PublicKey.Hex(),
		DRBGSeed:   id.DRBGSeed.Hex(),
		IATMode:    model.IATModeNone,
	}
}

// Generate makes sure stateDir exists, draws a new [Identity] and writes
// the state record, the certificate and the bridge line into stateDir.
// Nothing is generated if the directory cannot be created.
func Generate(stateDir string, logger model.Logger) (*Identity, error) {
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStateDir, err)
	}
	logger.Info("generating obfs4 parameters")
	id, err := New()
	if err != nil {
		return nil, err
	}
	if err := WriteState(stateDir, id); err != nil {
		return nil, err
	}
	logger.Infof("obfs4 cert: %s", id.Certificate())
	return id, nil
}

type artifact struct {
	name string
	perm os.FileMode
	data []byte
}

// WriteState writes the three artifacts for id into stateDir. Every
// artifact is first written to a temporary file next to its final path;
// files are only renamed into place once all three were written, so a
// failure while writing leaves any previous state untouched.
func WriteState(stateDir string, id *Identity) error {
	record, err := json.Marshal(id.toJSON())
	if err != nil {
		return fmt.Errorf("%w: %s", ErrWriteState, err)
	}
	cert := id.Certificate()
	artifacts := []artifact{
		{model.StateFile, 0600, record},
		{model.CertFile, 0644, []byte(cert.String())},
		{model.BridgeLineFile, 0644, []byte(BridgeLine(cert))},
	}

	pending := make([]*renameio.PendingFile, 0, len(artifacts))
	defer func() {
		for _, pf := range pending {
			pf.Cleanup()
		}
	}()
	for _, a := range artifacts {
		path := filepath.Join(stateDir, a.name)
		pf, err := renameio.NewPendingFile(path,
			renameio.WithTempDir(stateDir),
			renameio.WithStaticPermissions(a.perm))
		if err != nil {
			return fmt.Errorf("%w: %s", ErrWriteState, err)
		}
		pending = append(pending, pf)
		if _, err := pf.Write(a.data); err != nil {
			return fmt.Errorf("%w: %s: %s", ErrWriteState, a.name, err)
		}
		if err := pf.Sync(); err != nil {
			return fmt.Errorf("%w: %s: %s", ErrWriteState, a.name, err)
		}
	}
	for i, pf := range pending {
		if err := pf.CloseAtomicallyReplace(); err != nil {
			return fmt.Errorf("%w: %s: %s", ErrWriteState, artifacts[i].name, err)
		}
	}
	return nil
}

// LoadState reads the state record from stateDir and checks that the
// public key belongs to the private key.
func LoadState(stateDir string) (*Identity, error) {
	data, err := os.ReadFile(filepath.Join(stateDir, model.StateFile))
	if err != nil {
		return nil, err
	}
	js := &jsonState{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(js); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadState, err)
	}
	if js.IATMode != model.IATModeNone {
		return nil, fmt.Errorf("%w: unsupported iatMode %d", ErrBadState, js.IATMode)
	}
	return js.identity()
}

func (js *jsonState) identity() (*Identity, error) {
	id := &Identity{}

	nodeID, err := ntor.NodeIDFromHex(js.NodeID)
	if err != nil {
		return nil, fmt.Errorf("%w: node-id: %s", ErrBadState, err)
	}
	id.NodeID = *nodeID

	if err := decodeHexInto(id.PrivateKey[:], js.PrivateKey); err != nil {
		return nil, fmt.Errorf("%w: private-key: %s", ErrBadState, err)
	}
	if err := decodeHexInto(id.PublicKey[:], js.PublicKey); err != nil {
		return nil, fmt.Errorf("%w: public-key: %s", ErrBadState, err)
	}
	derived, err := curve25519.X25519(id.PrivateKey[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: private-key: %s", ErrBadState, err)
	}
	if !bytes.Equal(derived, id.PublicKey[:]) {
		return nil, fmt.Errorf("%w: public-key does not match private-key", ErrBadState)
	}

	seed, err := drbg.SeedFromHex(js.DRBGSeed)
	if err != nil {
		return nil, fmt.Errorf("%w: drbg-seed: %s", ErrBadState, err)
	}
	id.DRBGSeed = *seed
	return id, nil
}

func decodeHexInto(dst []byte, encoded string) error {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return err
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("expected %d bytes, got %d", len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}

// ReadCertificate returns the text of the certificate file in stateDir,
// without trailing whitespace. The content is not decoded.
func ReadCertificate(stateDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(stateDir, model.CertFile))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), " \r\n\t"), nil
}

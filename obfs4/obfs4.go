package obfs4

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	pt "git.torproject.org/pluggable-transports/goptlib.git"
	"gitlab.com/yawning/obfs4.git/transports/obfs4"
)

const (
	scheme = "obfs4"

	certArg = "cert"
	iatArg  = "iat-mode"
)

var (
	// ErrBadProxyURI is returned for URIs that do not describe an obfs4 node.
	ErrBadProxyURI = errors.New("obfs4: bad proxy uri")

	// ErrBadCert is returned when an obfs4 client rejects the node arguments.
	ErrBadCert = errors.New("obfs4: bad node arguments")
)

// ProxyNode is an obfs4 bridge as seen by a client.
type ProxyNode struct {
	Addr     string     // host:port
	Protocol string     // always obfs4
	url      *url.URL   // url
	Values   url.Values // contains the cert and iat-mode parameters
}

// NewProxyNodeFromURI parses a URI such as
//
//	obfs4://203.0.113.10:23042?cert=<cert>&iat-mode=0
//
// Be sure to urlencode the certificate.
func NewProxyNodeFromURI(uri string) (*ProxyNode, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return &ProxyNode{}, fmt.Errorf("%w: %s", ErrBadProxyURI, err)
	}
	if u.Scheme != scheme {
		return &ProxyNode{}, fmt.Errorf("%w: expected %s:// uri", ErrBadProxyURI, scheme)
	}
	if u.Hostname() == "" || u.Port() == "" {
		return &ProxyNode{}, fmt.Errorf("%w: missing host or port", ErrBadProxyURI)
	}
	return &ProxyNode{
		Addr:     net.JoinHostPort(u.Hostname(), u.Port()),
		Protocol: scheme,
		url:      u,
		Values:   u.Query(),
	}, nil
}

// NewProxyNode builds the node for a bridge listening on host:port with
// the given unpadded certificate and the given iat mode.
func NewProxyNode(host, port, cert string, iatMode int) *ProxyNode {
	values := url.Values{}
	values.Set(certArg, cert)
	values.Set(iatArg, strconv.Itoa(iatMode))
	addr := net.JoinHostPort(host, port)
	return &ProxyNode{
		Addr:     addr,
		Protocol: scheme,
		url: &url.URL{
			Scheme:   scheme,
			Host:     addr,
			RawQuery: values.Encode(),
		},
		Values: values,
	}
}

// URI returns the obfs4:// URI for this node.
func (n *ProxyNode) URI() string {
	if n.url == nil {
		return ""
	}
	return n.url.String()
}

// CheckNode feeds the node arguments to an obfs4 client factory, which
// decodes the certificate and the iat mode exactly as a connecting client
// would. No network I/O happens.
func CheckNode(node *ProxyNode) error {
	t := new(obfs4.Transport)
	cf, err := t.ClientFactory("")
	if err != nil {
		return err
	}
	ptArgs := pt.Args(node.Values)
	if _, err := cf.ParseArgs(&ptArgs); err != nil {
		return fmt.Errorf("%w: %s: %s", ErrBadCert, node.Addr, err)
	}
	return nil
}

//go:build !notls

package ws

import (
	"crypto/tls"
	"fmt"
	"net"

	fg "github.com/foxglove/foxglove-go"
)

// TLSAcceptor performs a server-side TLS handshake using the configured
// certificate.
type TLSAcceptor struct {
	config *tls.Config
}

// NewTLSAcceptor builds an Acceptor from a PEM-encoded X.509 certificate
// and PKCS8 private key.
func NewTLSAcceptor(certPEM, keyPEM []byte) (*TLSAcceptor, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: loading TLS identity: %v", fg.ErrConfiguration, err)
	}
	return &TLSAcceptor{config: &tls.Config{Certificates: []tls.Certificate{cert}}}, nil
}

func (a *TLSAcceptor) Accept(conn net.Conn) (net.Conn, error) {
	tlsConn := tls.Server(conn, a.config)
	if err := tlsConn.Handshake(); err != nil {
		return nil, fmt.Errorf("%w: TLS handshake: %v", fg.ErrTransport, err)
	}
	return tlsConn, nil
}

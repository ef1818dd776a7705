//go:build notls

package ws

import (
	"fmt"
	"net"

	fg "github.com/foxglove/foxglove-go"
)

// TLSAcceptor is unavailable in a notls build. NewTLSAcceptor always
// fails with a configuration error rather than silently falling back
// to plaintext.
type TLSAcceptor struct{}

func NewTLSAcceptor(certPEM, keyPEM []byte) (*TLSAcceptor, error) {
	return nil, fmt.Errorf("%w: TLS support was disabled at build time (notls build tag)", fg.ErrConfiguration)
}

func (a *TLSAcceptor) Accept(conn net.Conn) (net.Conn, error) {
	return nil, fmt.Errorf("%w: TLS support was disabled at build time (notls build tag)", fg.ErrTransport)
}

package transport

import "github.com/pkg/errors"

// ErrClosed is returned by Send* once a connection has been closed.
var ErrClosed = errors.New("transport: connection closed")

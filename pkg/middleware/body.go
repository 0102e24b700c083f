package middleware

import (
	"bytes"
	"io"
)

// newReplayBody rebuilds a request body consumed during signature
// verification so handlers can still bind it.
func newReplayBody(b []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(b))
}

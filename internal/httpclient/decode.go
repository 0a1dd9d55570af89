package httpclient

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// AcceptEncoding is the value API requests advertise. Setting the header
// manually disables the transport's automatic gzip handling, so DecodedBody
// must be used to read such responses.
const AcceptEncoding = "gzip, deflate, br"

// DecodedBody returns a reader over the response body, decompressed
// according to Content-Encoding. The returned closer closes the underlying
// body (and the gzip reader when one was layered on top).
func DecodedBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		return &layeredBody{r: zr, closers: []io.Closer{zr, resp.Body}}, nil
	case "br":
		return &layeredBody{r: brotli.NewReader(resp.Body), closers: []io.Closer{resp.Body}}, nil
	case "deflate":
		fr := flate.NewReader(resp.Body)
		return &layeredBody{r: fr, closers: []io.Closer{fr, resp.Body}}, nil
	default:
		return resp.Body, nil
	}
}

type layeredBody struct {
	r       io.Reader
	closers []io.Closer
}

func (b *layeredBody) Read(p []byte) (int, error) { return b.r.Read(p) }

func (b *layeredBody) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

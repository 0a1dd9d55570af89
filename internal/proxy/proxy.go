// Package proxy implements the pass-through image and stream proxies. Both
// forward upstream bytes verbatim in fixed-size chunks without buffering the
// payload; the stream variant must survive arbitrarily large and
// possibly-infinite bodies.
package proxy

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/xtream2m3u/xtream2m3u/internal/apierr"
	"github.com/xtream2m3u/xtream2m3u/internal/httpclient"
	"github.com/xtream2m3u/xtream2m3u/internal/metrics"
)

const copyChunkSize = 32 * 1024

// StreamStatus is the terminal state of one proxied transfer. Only failures
// that happen before any byte reaches the client may surface as an HTTP
// error; after the response has started, every exit is silent because
// raising would corrupt the chunked framing mid-body.
type StreamStatus int

const (
	// StreamCompleted: upstream body ended normally.
	StreamCompleted StreamStatus = iota
	// StreamUpstreamClosed: upstream transport failed mid-stream; the bytes
	// already sent stand as the final response.
	StreamUpstreamClosed
	// StreamClientClosed: the client went away mid-stream.
	StreamClientClosed
)

func (s StreamStatus) String() string {
	switch s {
	case StreamCompleted:
		return "completed"
	case StreamUpstreamClosed:
		return "upstream_closed"
	case StreamClientClosed:
		return "client_closed"
	}
	return "unknown"
}

// StreamResult reports what happened to one proxied body.
type StreamResult struct {
	BytesCopied int64
	Status      StreamStatus
}

// Handler serves /image-proxy/ and /stream-proxy/. Client defaults to the
// shared streaming client (no whole-request timeout).
type Handler struct {
	Client *http.Client
}

func (h *Handler) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return httpclient.ForStreaming()
}

// Image returns the handler for /image-proxy/{encoded-url}. Rejects
// upstream bodies whose content type is not image/* with 415.
func (h *Handler) Image() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target, ok := targetFromPath(r, "/image-proxy/")
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.serve(w, r, target, "image", true)
	})
}

// Stream returns the handler for /stream-proxy/{encoded-url}.
func (h *Handler) Stream() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target, ok := targetFromPath(r, "/stream-proxy/")
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.serve(w, r, target, "stream", false)
	})
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, target, variant string, imageOnly bool) {
	resp, err := h.open(r.Context(), target)
	if err != nil {
		metrics.ProxyRequests.WithLabelValues(variant, "error").Inc()
		log.Printf("proxy: %s pre-stream failure url=%s err=%v", variant, target, err)
		writeProxyError(w, err)
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if imageOnly && !strings.HasPrefix(contentType, "image/") {
		metrics.ProxyRequests.WithLabelValues(variant, "error").Inc()
		log.Printf("proxy: image rejected content type %q url=%s", contentType, target)
		writeProxyError(w, apierr.New(apierr.ProxyUnsupportedType, "invalid image type %q", contentType))
		return
	}
	if contentType == "" {
		contentType = contentTypeForPath(target)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	// Forward Content-Length only when upstream committed to one and was not
	// itself chunked; otherwise the outbound response falls back to chunked.
	if resp.ContentLength >= 0 && len(resp.TransferEncoding) == 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	metrics.ProxyInFlight.Inc()
	defer metrics.ProxyInFlight.Dec()
	res := copyStream(w, resp.Body)
	metrics.ProxyBytes.WithLabelValues(variant).Add(float64(res.BytesCopied))
	metrics.ProxyRequests.WithLabelValues(variant, res.Status.String()).Inc()
	log.Printf("proxy: %s %s bytes=%d url=%s", variant, res.Status, res.BytesCopied, target)
}

// open issues the upstream GET and classifies pre-stream failures per the
// error taxonomy: timeout, forwarded upstream status, or generic failure.
func (h *Handler) open(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.ProxyGeneric, err, "invalid upstream URL")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.client().Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, apierr.Wrap(apierr.ProxyTimeout, err, "upstream fetch timed out")
		}
		return nil, apierr.Wrap(apierr.ProxyGeneric, err, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status := resp.StatusCode
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &apierr.Error{
			Kind:           apierr.ProxyUpstreamHTTP,
			Detail:         "upstream returned " + resp.Status,
			UpstreamStatus: status,
		}
	}
	return resp, nil
}

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// copyStream pipes src to dst in fixed-size chunks, flushing after each
// write so live streams are paced by the client's read rate. Errors after
// the first byte are absorbed into the result, never raised: the response
// has already started.
func copyStream(dst io.Writer, src io.Reader) StreamResult {
	flusher, _ := dst.(http.Flusher)
	buf := make([]byte, copyChunkSize)
	var total int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			wn, writeErr := dst.Write(buf[:n])
			total += int64(wn)
			if writeErr != nil {
				return StreamResult{BytesCopied: total, Status: StreamClientClosed}
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return StreamResult{BytesCopied: total, Status: StreamCompleted}
			}
			return StreamResult{BytesCopied: total, Status: StreamUpstreamClosed}
		}
	}
}

// contentTypeForPath infers a content type from the requested path's
// extension when upstream did not supply one.
func contentTypeForPath(target string) string {
	p := target
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	switch {
	case strings.HasSuffix(p, ".ts"):
		return "video/MP2T"
	case strings.HasSuffix(p, ".m3u8"):
		return "application/vnd.apple.mpegurl"
	default:
		return "application/octet-stream"
	}
}

func writeProxyError(w http.ResponseWriter, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		http.Error(w, ae.Error(), ae.HTTPStatus())
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

package bridge

import (
	"io"
	"log/slog"
	"net/http"
)

// Option customizes a Handler.
type Option func(*Handler)

// WithIO sets the reader and writer for the handler.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
		if w != nil {
			h.w = w
		}
	}
}

// WithReader overrides the input stream.
func WithReader(r io.Reader) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
	}
}

// WithWriter overrides the output stream.
func WithWriter(w io.Writer) Option {
	return func(h *Handler) {
		if w != nil {
			h.w = w
		}
	}
}

// WithLogger overrides the logger. Diagnostics never touch the output stream,
// so the logger is the only place per-message failures surface.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithHTTPClient overrides the HTTP client used for upstream exchanges. The
// default client carries no timeout; callers that want one supply their own.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Handler) {
		if c != nil {
			h.client = c
		}
	}
}

// WithBasicAuth derives a Basic credential from the secret and attaches it to
// every upstream exchange. Any secret produces a credential, the empty string
// included; omit the option entirely to send no Authorization header.
func WithBasicAuth(secret string) Option {
	return func(h *Handler) {
		h.authz = BasicCredential(secret)
	}
}

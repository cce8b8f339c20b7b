package bridge

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/ggoodman/mcp-http-bridge/internal/jsonrpc"
	"github.com/ggoodman/mcp-http-bridge/internal/lifecycle"
	"github.com/ggoodman/mcp-http-bridge/internal/logctx"
	"github.com/google/uuid"
)

// ErrNoEndpoint is returned by New when the upstream endpoint is missing.
var ErrNoEndpoint = errors.New("bridge: endpoint must not be empty")

// Handler is a single-connection relay that reads JSON-RPC messages from an
// io.Reader, forwards each to an HTTP endpoint, and writes normalized
// responses to an io.Writer. By default it uses os.Stdin and os.Stdout.
type Handler struct {
	endpoint string
	authz    string // precomputed Authorization value; empty means no credential

	r      io.Reader
	w      io.Writer
	log    *slog.Logger
	client *http.Client

	writeMu sync.Mutex
}

// New constructs a Handler with defaults and applies options. The endpoint is
// the only required input; a missing endpoint is the relay's sole fatal
// startup condition.
func New(endpoint string, opts ...Option) (*Handler, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	h := &Handler{
		endpoint: endpoint,
		r:        os.Stdin,
		w:        os.Stdout,
		log:      slog.New(slog.DiscardHandler),
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Serve runs the relay loop until the reader reaches end-of-stream, then
// drains: it returns only once every dispatched exchange has completed. It is
// safe to call at most once per Handler.
//
// Lines are read and classified strictly in arrival order. Completions (and
// therefore output lines) may land in any order; callers correlate by id.
func (h *Handler) Serve(ctx context.Context) error {
	tr := lifecycle.NewTracker()
	br := bufio.NewReader(h.r)

	var readErr error
	for {
		line, err := br.ReadBytes('\n')
		// A non-empty remainder at EOF is a complete line: the stream is
		// closed, so the buffered partial can never grow further.
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			h.dispatch(ctx, tr, trimmed)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			break
		}
	}

	tr.MarkClosed()
	h.log.DebugContext(ctx, "input closed, draining", slog.Int("pending", tr.Pending()))

	select {
	case <-tr.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return readErr
}

// dispatch classifies one line and, when it names a method, launches the
// upstream exchange. The pending count is incremented before the exchange
// starts and decremented on every exit path.
func (h *Handler) dispatch(ctx context.Context, tr *lifecycle.Tracker, line []byte) {
	req, err := jsonrpc.ParseRequest(line)
	if err != nil {
		// Malformed framing from the caller is unrecoverable: there is no id
		// to correlate an error to, so the line is dropped without a trace.
		return
	}

	msgType := "notification"
	if req.IsRequest() {
		msgType = "request"
	}
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: req.Method,
		ID:     req.ID.String(),
		Type:   msgType,
	})
	ctx = logctx.WithExchangeData(ctx, &logctx.ExchangeData{ExchangeID: uuid.NewString()})

	tr.Begin()
	go func() {
		defer tr.End()
		h.relay(ctx, req, line)
	}()
}

// relay performs the exchange and emits the normalized outcome, if any. A
// request yields at most one output line (none when the upstream answers
// no-content); a notification never yields one.
func (h *Handler) relay(ctx context.Context, req *jsonrpc.Request, payload []byte) {
	var out []byte
	status, body, err := h.exchange(ctx, payload)
	if err != nil {
		h.log.WarnContext(ctx, "upstream exchange failed", slog.String("error", err.Error()))
		if req.IsRequest() {
			out = mustMarshal(jsonrpc.NewErrorResponse(
				req.ID, jsonrpc.ErrorCodeInternalError, "Bridge error: "+err.Error()))
		}
	} else {
		out = h.normalize(ctx, req, status, body)
	}
	if out != nil {
		h.writeLine(ctx, out)
	}
}

// writeLine emits one complete protocol line. A single Write under the mutex
// keeps concurrent completions from interleaving partial lines.
func (h *Handler) writeLine(ctx context.Context, line []byte) {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')

	h.writeMu.Lock()
	_, err := h.w.Write(buf)
	h.writeMu.Unlock()
	if err != nil {
		h.log.ErrorContext(ctx, "output write failed", slog.String("error", err.Error()))
	}
}

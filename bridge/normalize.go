package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/ggoodman/mcp-http-bridge/internal/jsonrpc"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// diagnosticLimit caps how much of an unparsable upstream body is logged.
const diagnosticLimit = 200

// normalize validates and, where needed, repairs one upstream reply into an
// output line, or nil when the contract says to stay silent:
//
//   - 204 / empty body: nothing to emit, request or not.
//   - any object reply to a notification: dropped; a notification never
//     produces output, whatever the upstream did.
//   - object reply to a request with a concrete id: forwarded byte-for-byte.
//   - object reply to a request without an id: the request's id is spliced in.
//   - unparsable reply: synthesized -32603 for a request, log-only for a
//     notification. Note the notification case can mask a genuine upstream
//     failure; the caller asked for no reply, so none is sent.
func (h *Handler) normalize(ctx context.Context, req *jsonrpc.Request, status int, body []byte) []byte {
	body = bytes.TrimSpace(body)
	if status == http.StatusNoContent || len(body) == 0 {
		// The upstream acknowledged without a reply. Expected for
		// notifications; honored silently either way.
		return nil
	}

	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		h.log.WarnContext(ctx, "upstream returned non-JSON reply",
			slog.Int("status", status),
			slog.String("body", truncate(body, diagnosticLimit)))
		if !req.IsRequest() {
			return nil
		}
		return mustMarshal(jsonrpc.NewErrorResponse(
			req.ID, jsonrpc.ErrorCodeInternalError, "Server returned non-JSON response"))
	}

	if !req.IsRequest() {
		// A notification never produces output, whatever the upstream sent
		// back; an id-bearing reply to a notification is the upstream
		// misbehaving, not license to emit.
		if id := gjson.GetBytes(body, "id"); id.Exists() && id.Type != gjson.Null {
			h.log.WarnContext(ctx, "dropping id-bearing reply to notification",
				slog.String("reply_id", id.Raw))
		}
		return nil
	}

	if id := gjson.GetBytes(body, "id"); id.Exists() && id.Type != gjson.Null {
		// Concrete reply id: emit the upstream's exact bytes. Re-serializing
		// could reorder or drop fields the relay has no business touching.
		return body
	}

	// The reply lacks the id the caller needs for correlation; splice the
	// original request id in without disturbing any other byte.
	repaired, err := sjson.SetRawBytes(body, "id", []byte(req.ID))
	if err != nil {
		h.log.WarnContext(ctx, "reply id repair failed", slog.String("error", err.Error()))
		return mustMarshal(jsonrpc.NewErrorResponse(
			req.ID, jsonrpc.ErrorCodeInternalError, "Bridge error: "+err.Error()))
	}
	return repaired
}

func mustMarshal(resp *jsonrpc.Response) []byte {
	b, err := json.Marshal(resp)
	if err != nil {
		// Response is built from plain values; marshal cannot fail.
		panic(err)
	}
	return b
}

// truncate caps b at n bytes, backing up so a multi-byte rune is never split
// mid-sequence.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return string(b[:n])
}


package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.DiscardHandler)
}

// runRelay drives a Handler over the given input against the upstream and
// returns the emitted output lines once the relay has fully drained.
func runRelay(t *testing.T, upstream http.Handler, input string, opts ...Option) []string {
	t.Helper()

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)
	return runRelayAt(t, srv.URL, input, opts...)
}

func runRelayAt(t *testing.T, endpoint, input string, opts ...Option) []string {
	t.Helper()

	var out bytes.Buffer
	opts = append(opts, WithIO(strings.NewReader(input), &out), WithLogger(testLogger(t)))
	h, err := New(endpoint, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h.Serve(context.Background()); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	return readLines(out.String())
}

func readLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func jsonUpstream(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestNew_RequiresEndpoint(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err != ErrNoEndpoint {
		t.Fatalf("New(\"\") error = %v, want ErrNoEndpoint", err)
	}
}

func TestServe_RequestPassthrough(t *testing.T) {
	t.Parallel()

	reply := `{"jsonrpc":"2.0","id":1,"result":{}}`
	lines := runRelay(t, jsonUpstream(http.StatusOK, reply),
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n")

	if len(lines) != 1 {
		t.Fatalf("got %d output lines, want 1: %v", len(lines), lines)
	}
	if lines[0] != reply {
		t.Fatalf("reply not forwarded verbatim:\n got %s\nwant %s", lines[0], reply)
	}
}

func TestServe_ReplyFieldOrderPreserved(t *testing.T) {
	t.Parallel()

	// Field order and whitespace inside values must survive: the relay may
	// not re-serialize a reply that already carries a concrete id.
	reply := `{"result":{"z":1,"a":2},"id":7,"jsonrpc":"2.0"}`
	lines := runRelay(t, jsonUpstream(http.StatusOK, reply),
		`{"jsonrpc":"2.0","id":7,"method":"tools/list"}`+"\n")

	if len(lines) != 1 || lines[0] != reply {
		t.Fatalf("reply altered: %v", lines)
	}
}

func TestServe_NotificationNoContent(t *testing.T) {
	t.Parallel()

	lines := runRelay(t, jsonUpstream(http.StatusAccepted, ""),
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`+"\n")

	if len(lines) != 0 {
		t.Fatalf("notification produced output: %v", lines)
	}
}

func TestServe_NoContentStatusSilencesRequest(t *testing.T) {
	t.Parallel()

	lines := runRelay(t, jsonUpstream(http.StatusNoContent, ""),
		`{"jsonrpc":"2.0","id":9,"method":"ping"}`+"\n")

	if len(lines) != 0 {
		t.Fatalf("204 must produce no output, got %v", lines)
	}
}

func TestServe_IDRepairForZeroID(t *testing.T) {
	t.Parallel()

	lines := runRelay(t, jsonUpstream(http.StatusOK, `{"jsonrpc":"2.0","result":{}}`),
		`{"jsonrpc":"2.0","id":0,"method":"ping"}`+"\n")

	if len(lines) != 1 {
		t.Fatalf("got %d output lines, want 1: %v", len(lines), lines)
	}
	want := `{"jsonrpc":"2.0","result":{},"id":0}`
	if lines[0] != want {
		t.Fatalf("repaired reply:\n got %s\nwant %s", lines[0], want)
	}
}

func TestServe_IDRepairReplacesNullID(t *testing.T) {
	t.Parallel()

	lines := runRelay(t, jsonUpstream(http.StatusOK, `{"jsonrpc":"2.0","id":null,"result":{}}`),
		`{"jsonrpc":"2.0","id":"abc","method":"ping"}`+"\n")

	if len(lines) != 1 {
		t.Fatalf("got %d output lines, want 1: %v", len(lines), lines)
	}
	var resp struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(resp.ID) != `"abc"` {
		t.Fatalf("repaired id = %s, want %q", resp.ID, `"abc"`)
	}
}

func TestServe_IDBearingReplyForNotificationDropped(t *testing.T) {
	t.Parallel()

	// A misbehaving upstream may answer a notification with a full
	// id-bearing response; the relay still owes the caller silence.
	lines := runRelay(t, jsonUpstream(http.StatusOK, `{"jsonrpc":"2.0","id":77,"result":{}}`),
		`{"jsonrpc":"2.0","method":"notifications/x"}`+"\n")

	if len(lines) != 0 {
		t.Fatalf("notification produced output: %v", lines)
	}
}

func TestServe_IDlessReplyForNotificationDropped(t *testing.T) {
	t.Parallel()

	lines := runRelay(t, jsonUpstream(http.StatusOK, `{"jsonrpc":"2.0","result":{}}`),
		`{"jsonrpc":"2.0","method":"notifications/progress"}`+"\n")

	if len(lines) != 0 {
		t.Fatalf("notification produced output: %v", lines)
	}
}

func TestServe_TransportFailureSynthesizesError(t *testing.T) {
	t.Parallel()

	// A server that is already closed yields a connection failure.
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	lines := runRelayAt(t, srv.URL, `{"jsonrpc":"2.0","id":5,"method":"x"}`+"\n")
	if len(lines) != 1 {
		t.Fatalf("got %d output lines, want 1: %v", len(lines), lines)
	}

	var resp struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.JSONRPC != "2.0" || string(resp.ID) != "5" {
		t.Fatalf("bad envelope: %s", lines[0])
	}
	if resp.Error == nil || resp.Error.Code != -32603 {
		t.Fatalf("expected -32603 error, got %s", lines[0])
	}
	if !strings.HasPrefix(resp.Error.Message, "Bridge error: ") {
		t.Fatalf("error message = %q, want Bridge error prefix", resp.Error.Message)
	}
}

func TestServe_TransportFailureForNotificationIsSilent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	lines := runRelayAt(t, srv.URL, `{"jsonrpc":"2.0","method":"notifications/x"}`+"\n")
	if len(lines) != 0 {
		t.Fatalf("notification failure produced output: %v", lines)
	}
}

func TestServe_NonJSONReply(t *testing.T) {
	t.Parallel()

	lines := runRelay(t, jsonUpstream(http.StatusBadGateway, "<html>upstream exploded</html>"),
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`+"\n")

	if len(lines) != 1 {
		t.Fatalf("got %d output lines, want 1: %v", len(lines), lines)
	}
	var resp struct {
		ID    json.RawMessage `json:"id"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(resp.ID) != "3" {
		t.Fatalf("id = %s, want 3", resp.ID)
	}
	if resp.Error == nil || resp.Error.Message != "Server returned non-JSON response" {
		t.Fatalf("unexpected error payload: %s", lines[0])
	}
}

func TestServe_MalformedAndMethodlessLinesDiscarded(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	})

	input := strings.Join([]string{
		`this is not json`,
		`{"jsonrpc":"2.0","id":1}`,
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
	}, "\n") + "\n"

	lines := runRelay(t, upstream, input)
	if got := hits.Load(); got != 1 {
		t.Fatalf("upstream hit %d times, want 1 (junk lines must not dispatch)", got)
	}
	if len(lines) != 1 {
		t.Fatalf("got %d output lines, want 1: %v", len(lines), lines)
	}
}

func TestServe_EmptyInputExitsPromptly(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(jsonUpstream(http.StatusOK, ""))
	defer srv.Close()

	var out bytes.Buffer
	h, err := New(srv.URL, WithIO(strings.NewReader(""), &out), WithLogger(testLogger(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	served := make(chan error, 1)
	go func() { served <- h.Serve(context.Background()) }()
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not return promptly on immediate EOF")
	}
	if got := readLines(out.String()); len(got) != 0 {
		t.Fatalf("empty input produced output: %v", got)
	}
}

func TestServe_TrailingPartialLineProcessedAtEOF(t *testing.T) {
	t.Parallel()

	// No trailing newline: the buffered remainder is complete once the
	// stream closes.
	lines := runRelay(t, jsonUpstream(http.StatusOK, `{"jsonrpc":"2.0","id":8,"result":{}}`),
		`{"jsonrpc":"2.0","id":8,"method":"ping"}`)

	if len(lines) != 1 {
		t.Fatalf("got %d output lines, want 1: %v", len(lines), lines)
	}
}

func TestServe_ConcurrentExchangesAllComplete(t *testing.T) {
	t.Parallel()

	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		// Stall the first request so its completion lands after the second.
		if string(req.ID) == "1" {
			time.Sleep(150 * time.Millisecond)
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":{}}`))
	})

	input := `{"jsonrpc":"2.0","id":1,"method":"a"}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"b"}` + "\n"

	lines := runRelay(t, upstream, input)
	if len(lines) != 2 {
		t.Fatalf("got %d output lines, want 2: %v", len(lines), lines)
	}
	seen := map[string]bool{}
	for _, l := range lines {
		var resp struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal([]byte(l), &resp); err != nil {
			t.Fatalf("unmarshal %q: %v", l, err)
		}
		seen[string(resp.ID)] = true
	}
	if !seen["1"] || !seen["2"] {
		t.Fatalf("missing correlated responses, saw %v", seen)
	}
}

func TestServe_OutboundHeaders(t *testing.T) {
	t.Parallel()

	wantAuthz := BasicCredential("s3cret")
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != wantAuthz {
			t.Errorf("Authorization = %q, want %q", got, wantAuthz)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	runRelay(t, upstream, `{"jsonrpc":"2.0","method":"notifications/x"}`+"\n",
		WithBasicAuth("s3cret"))
}

func TestServe_NoSecretMeansNoAuthorizationHeader(t *testing.T) {
	t.Parallel()

	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Errorf("Authorization header sent without a secret")
		}
		w.WriteHeader(http.StatusNoContent)
	})

	runRelay(t, upstream, `{"jsonrpc":"2.0","method":"notifications/x"}`+"\n")
}

func TestServe_RequestBodyForwardedExactly(t *testing.T) {
	t.Parallel()

	line := `{"jsonrpc":"2.0","id":4,"method":"ping","params":{"b":2,"a":1}}`
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r.Body)
		if buf.String() != line {
			t.Errorf("payload altered:\n got %s\nwant %s", buf.String(), line)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	runRelay(t, upstream, line+"\n")
}

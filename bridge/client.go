package bridge

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/elnormous/contenttype"
)

var jsonMediaType = contenttype.NewMediaType("application/json")

const (
	contentTypeHeader   = "Content-Type"
	authorizationHeader = "Authorization"
)

// exchange performs the single outbound POST for one message: no timeout, no
// retry, at most this one attempt. It returns the status and the full reply
// body, or the transport failure.
func (h *Handler) exchange(ctx context.Context, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set(contentTypeHeader, jsonMediaType.String())
	if h.authz != "" {
		req.Header.Set(authorizationHeader, h.authz)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

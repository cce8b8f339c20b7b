// Package bridge relays newline-delimited JSON-RPC 2.0 between a stdio-style
// line stream and an HTTP endpoint. It lets a stdio-only client talk to an
// HTTP-only server: each inbound line becomes one HTTP POST, and the reply is
// normalized back onto the output stream as at most one line.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client, 1 upstream endpoint
//	Auth             : optional Basic credential attached to every POST
//	State            : none; every message is independent
//	Transport        : line / stream oriented JSON-RPC in, HTTP POST out
//
// The relay is transport-only. It classifies messages by presence of an id
// (request vs notification) and otherwise never interprets bodies: replies
// that already carry a concrete id are forwarded byte-for-byte.
//
// Exchanges run concurrently without a cap and without timeouts; a hung
// upstream exchange delays termination after the input closes. Both are
// deliberate: the relay imposes no policy the caller didn't ask for.
//
// Example:
//
//	h, err := bridge.New("https://mcp.example.com/mcp", bridge.WithBasicAuth(secret))
//	if err != nil { log.Fatal(err) }
//	if err := h.Serve(context.Background()); err != nil { log.Fatal(err) }
package bridge

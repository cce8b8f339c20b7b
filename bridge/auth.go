package bridge

import "encoding/base64"

// BasicCredential derives the Authorization header value attached to upstream
// exchanges. The username is the fixed literal "user"; only the secret varies.
// Derived once at startup and immutable for the life of the process.
func BasicCredential(secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte("user:"+secret))
}

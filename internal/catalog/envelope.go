package catalog

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
)

// apiEnvelope is the wire shape of a source-hosting contents API
// response. The real document travels base64-encoded in Content.
type apiEnvelope struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// IsEnvelopeURL reports whether a catalog URL points at a known
// source-hosting API, meaning the response body will be an envelope
// rather than the raw document.
func IsEnvelopeURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "api.github.com" {
		return true
	}

	// Self-hosted forge APIs expose the same contents route.
	path := strings.ToLower(u.Path)
	return strings.Contains(path, "/repos/") && strings.Contains(path, "/contents/")
}

// DecodeEnvelope unwraps an API envelope and returns the decoded
// document bytes. The content field may contain newlines (the GitHub
// contents API wraps base64 at 60 columns).
func DecodeEnvelope(raw []byte) ([]byte, error) {
	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &EnvelopeError{Reason: "body is not an envelope object", Err: err}
	}

	if strings.TrimSpace(env.Content) == "" {
		return nil, &EnvelopeError{Reason: "empty content field"}
	}

	compact := strings.NewReplacer("\n", "", "\r", "").Replace(env.Content)
	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, &EnvelopeError{Reason: "invalid base64 content", Err: err}
	}

	return decoded, nil
}

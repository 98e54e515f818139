package catalog

import "fmt"

// EnvelopeError reports a present-but-malformed API envelope: a missing
// or empty content field, or invalid base64. Kept distinct from
// MalformedCatalogError so status messages can say which layer broke.
type EnvelopeError struct {
	Reason string
	Err    error
}

func (e *EnvelopeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("envelope: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("envelope: %s", e.Reason)
}

func (e *EnvelopeError) Unwrap() error { return e.Err }

// MalformedCatalogError reports a body that is not a valid catalog
// document (not a JSON object, or missing the assets array).
type MalformedCatalogError struct {
	Reason string
	Err    error
}

func (e *MalformedCatalogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed catalog: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed catalog: %s", e.Reason)
}

func (e *MalformedCatalogError) Unwrap() error { return e.Err }

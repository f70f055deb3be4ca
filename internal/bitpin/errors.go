package bitpin

import "fmt"

// TransportError reports a network failure or a non-2xx response.
// Status is zero when the request never produced a response.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("bitpin: %s returned status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("bitpin: request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that does not match the expected shape.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bitpin: decoding response from %s failed: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

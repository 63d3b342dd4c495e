package refresh

import (
	"fmt"
	"net/http"
)

// RequestError reports a failed refresh or upload exchange. Status is the
// HTTP status when the backend answered, zero for transport failures.
type RequestError struct {
	Exchange string
	Status   int
	Err      error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s request failed with status %d %s: %v", e.Exchange, e.Status, http.StatusText(e.Status), e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Exchange, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

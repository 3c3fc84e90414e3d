package lmstudio

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyResponse indicates a completion with no choices.
	ErrEmptyResponse = errors.New("empty completion from LM Studio")

	// ErrNoJSON indicates the model reply contained no JSON object.
	ErrNoJSON = errors.New("no JSON object in model reply")
)

// APIError is a non-200 reply from the LM Studio server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("LM Studio returned status %d: %s", e.StatusCode, e.Body)
}

// IsModelNotLoaded reports whether err means the requested model is not
// loaded in LM Studio.
func IsModelNotLoaded(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

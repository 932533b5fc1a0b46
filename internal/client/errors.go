package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/spec-kit/diet-tracker/pkg/util"
)

// APIError is a decoded server error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// IsSessionTerminal reports failures that no refresh can recover.
func IsSessionTerminal(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok || apiErr.Status != http.StatusUnauthorized {
		return false
	}
	return apiErr.Code == apperrors.CodeSessionExpired || apiErr.Code == apperrors.CodeRefreshFailed
}

// isRefreshable reports authentication failures a fresh access token may fix.
func isRefreshable(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok || apiErr.Status != http.StatusUnauthorized {
		return false
	}
	switch apiErr.Code {
	case apperrors.CodeSessionExpired, apperrors.CodeRefreshFailed, apperrors.CodeInvalidCredentials:
		return false
	}
	return true
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var env struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Details = env.Error.Details
		return apiErr
	}
	apiErr.Code = "HTTP_ERROR"
	apiErr.Message = http.StatusText(resp.StatusCode)
	return apiErr
}

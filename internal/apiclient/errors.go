package apiclient

import (
	"encoding/json"
	"net/http"
	"strings"

	"projectdesk/internal/domain"
)

const defaultFailureMessage = "An error occurred during the API call"

// errorBody covers the shapes the backend uses for failures: FastAPI's
// {"detail": "..."}, ad-hoc {"error": "..."} / {"message": "..."}, and
// RFC 7807 problem details (title/detail).
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Title   string          `json:"title"`
}

// serverMessage extracts the human-readable message from an error body, or "".
func serverMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}

	// detail is a string for HTTPException and a list for request validation
	if len(eb.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(eb.Detail, &detail); err == nil && detail != "" {
			return detail
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(eb.Detail, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
			return items[0].Msg
		}
	}

	for _, s := range []string{eb.Error, eb.Message, eb.Title} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// errorFromResponse maps a non-2xx response onto the domain taxonomy.
func errorFromResponse(status int, body []byte, fallback string) error {
	message := serverMessage(body)
	if message == "" {
		message = fallback
	}
	if message == "" {
		message = defaultFailureMessage
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &domain.AuthError{Status: status, Message: message}
	case http.StatusNotFound:
		return &domain.NotFoundError{Message: message}
	default:
		return &domain.ServerError{Status: status, Message: message}
	}
}

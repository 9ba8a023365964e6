package runtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
)

var (
	// ErrResponseSent is returned to handler writes that arrive after a
	// response was already produced for the request.
	ErrResponseSent = errors.New("response already sent")

	// ErrServerAlreadyStarted is returned by a second StartServer call.
	ErrServerAlreadyStarted = errors.New("server already started")

	// ErrUnsupportedEvent is reported for Lambda payloads that are not HTTP events.
	ErrUnsupportedEvent = errors.New("unsupported event type")

	errBodyTooLarge = errors.New("request body too large")
)

// errorBody is the JSON payload of responses generated by this layer.
type errorBody struct {
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	Message    string `json:"message,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
}

func badRequestBody() errorBody {
	return errorBody{Error: "Bad Request"}
}

func tooLargeBody() errorBody {
	return errorBody{Error: "Payload Too Large"}
}

func timeoutBody(requestID string) errorBody {
	return errorBody{
		Error:      "Gateway Timeout",
		StatusCode: http.StatusGatewayTimeout,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		RequestID:  requestID,
	}
}

// internalErrorBody carries the failure message only when detailed is set.
func internalErrorBody(requestID string, err error, detailed bool) errorBody {
	body := errorBody{
		Error:      "Internal Server Error",
		StatusCode: http.StatusInternalServerError,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		RequestID:  requestID,
	}
	if detailed && err != nil {
		body.Message = err.Error()
	}
	return body
}

// writeJSON writes a complete JSON response with an explicit Content-Length.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		data = []byte(`{"error":"Internal Server Error"}`)
	}

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

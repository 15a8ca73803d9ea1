package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/layer-3/wellness/core"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusError maps a failed response onto the core error taxonomy. A 401
// means something different on each auth endpoint.
func statusError(op, path string, status int, data []byte) error {
	var body errorBody
	_ = json.Unmarshal(data, &body)
	message := body.Error
	if message == "" {
		message = strings.TrimSpace(string(data))
		if len(message) > 200 {
			message = message[:200]
		}
	}

	var err error
	switch {
	case status == http.StatusUnauthorized:
		p, _, _ := strings.Cut(path, "?")
		switch strings.TrimRight(p, "/") {
		case PathLogin:
			err = core.ErrInvalidCredentials
		case PathRegister:
			err = core.ErrValidation
		case PathRefresh:
			err = core.ErrInvalidRefreshToken
		default:
			err = core.ErrUnauthorized
		}
	case status == http.StatusForbidden:
		err = core.ErrUnauthorized
	case status == http.StatusNotFound:
		err = core.ErrNotFound
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		err = core.ErrValidation
	default:
		err = core.ErrServer
	}

	return &core.APIError{Op: op, Status: status, Message: message, Err: err}
}

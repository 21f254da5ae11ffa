package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"hypogate/domain/core"
	"hypogate/internal/errors"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	switch {
	case core.IsNotFoundError(err):
		code = errors.CodeNotFound
	case code == "" && (stderrors.Is(err, core.ErrInvalidTransition) || stderrors.Is(err, core.ErrTerminalState)):
		code = errors.CodeInvalidTransition
	case code == "":
		code = errors.CodeInternalError
	}
	writeJSON(w, statusFor(code), errorBody{Code: code, Message: err.Error()})
}

func statusFor(code string) int {
	switch code {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeConfigInvalid:
		return http.StatusBadRequest
	case errors.CodeInvalidTransition, errors.CodeCancelled:
		return http.StatusConflict
	case errors.CodeExternalService, errors.CodeExternalPermanent:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

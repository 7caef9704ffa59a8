package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/LavaJover/shvark-commission-service/internal/delivery/http/dto/commission"
	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

// mapDomainError picks the status and code returned for a usecase error.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, domain.ErrNotReady):
		return http.StatusPreconditionFailed, "payout_account_not_ready"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrTransferFailed):
		return http.StatusBadGateway, "transfer_failed"
	case errors.Is(err, domain.ErrExternalAPI):
		// a processor 404 still means the processor call failed, not our route
		return http.StatusBadGateway, "processor_error"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, commission.ErrorResponse{Code: code, Message: message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code := mapDomainError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeError(w, status, code, message)
}

func writeValidationError(w http.ResponseWriter, err error) {
	fields := map[string]string{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[jsonFieldName(fe.Namespace())] = messageForTag(fe.Tag(), fe.Param())
		}
	}
	writeJSON(w, http.StatusBadRequest, commission.ErrorResponse{
		Code:    "validation_failed",
		Message: "request validation failed",
		Fields:  fields,
	})
}

// jsonFieldName drops the struct prefix from a validator namespace.
func jsonFieldName(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of: " + param
	case "numeric":
		return "must be a number"
	case "startswith":
		return "must start with " + param
	}
	return "is invalid"
}

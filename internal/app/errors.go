package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"binder/api/internal/blob"
	"binder/api/internal/export"
	"binder/api/internal/outline"
	"binder/api/internal/resequence"
	"binder/api/internal/store"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}

	var persistErr *resequence.PersistenceError
	if errors.As(err, &persistErr) {
		return http.StatusBadGateway, "PERSISTENCE_FAILED", "Saving the new order failed", map[string]any{"failures": persistErr.Failures}
	}

	var moveErr *outline.MoveError
	errors.As(err, &moveErr)
	switch {
	case errors.Is(err, outline.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Content not found", moveDetails(moveErr)
	case errors.Is(err, outline.ErrInvalidMove):
		return http.StatusConflict, "INVALID_MOVE", "Move not allowed", moveDetails(moveErr)
	case errors.Is(err, outline.ErrUnknownDirection):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown direction", map[string]any{"allowed": outline.Directions}
	case errors.Is(err, outline.ErrInvalidTree):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Outline would become invalid", moveDetails(moveErr)
	case errors.Is(err, resequence.ErrAlreadyActive):
		return http.StatusConflict, "ALREADY_ACTIVE", "Resequencing already active", nil
	case errors.Is(err, resequence.ErrNotActive):
		return http.StatusConflict, "NOT_ACTIVE", "Resequencing not active", nil
	case errors.Is(err, resequence.ErrCommitInFlight):
		return http.StatusConflict, "COMMIT_IN_FLIGHT", "A commit is in progress", nil
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "CONFLICT", "Already exists", nil
	case errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Body not found", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be 'html', 'pdf' or 'docx'", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func moveDetails(err *outline.MoveError) any {
	if err == nil {
		return nil
	}
	details := map[string]any{"op": err.Op, "nodeId": err.NodeID}
	if err.Reason != "" {
		details["reason"] = err.Reason
	}
	return details
}

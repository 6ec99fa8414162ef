package api

import (
	"net/http"

	apperrors "gopower/internal/errors"
)

// StatusFor maps an analysis error onto an HTTP status
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch apperrors.GetCode(err) {
	case apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeValidationError, apperrors.CodeInvalidStructure:
		return http.StatusUnprocessableEntity
	case apperrors.CodeInfeasible, apperrors.CodeBracketingFailure, apperrors.CodeNoConvergence:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

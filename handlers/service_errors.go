package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/nse-market-bot/services"
	"github.com/upb/nse-market-bot/services/retrieval"
	"github.com/upb/nse-market-bot/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)
	if len(details) == 0 {
		details = nil
	}

	var domainErr *services.DomainError
	errors.As(err, &domainErr)

	switch {
	case services.IsNotFoundError(err):
		if err := utils.WriteNotFound(w, domainErr.Message); err != nil {
			logger.Error("failed to write not found response", zap.Error(err))
		}

	case services.IsValidationError(err):
		// the domain message is the client facing text
		if err := utils.WriteBadRequest(w, domainErr.Message, details); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}

	case services.IsEmbeddingError(err), services.IsExternalError(err):
		logger.Error("upstream failure", zap.Error(err))
		if err := utils.WriteBadGateway(w, domainErr.Message, details); err != nil {
			logger.Error("failed to write bad gateway response", zap.Error(err))
		}

	case services.IsStorageError(err):
		logger.Error("storage failure", zap.Error(err))
		if err := utils.WriteInternalServerError(w, retrieval.ErrorMessage); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}

	case services.IsInternalError(err):
		// Log internal errors but return generic message
		logger.Error("internal server error", zap.Error(err))
		if err := utils.WriteInternalServerError(w, "An internal error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
	}

	if domainErr != nil {
		logger.Debug("handled service error",
			zap.String("type", string(domainErr.Type)),
			zap.String("message", domainErr.Message),
			zap.Any("details", domainErr.Details))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/storage"
)

const (
	jsonKeyError   = "error"
	jsonKeyMessage = "message"

	errorValueInvalidJSON        = "invalid_json"
	errorValueMissingFields      = "missing_fields"
	errorValueInvalidInput       = "invalid_input"
	errorValueUnknownListing     = "unknown_listing"
	errorValueSaveFailed         = "save_failed"
	errorValueQueryFailed        = "query_failed"
	errorValueDeleteFailed       = "delete_failed"
	errorValueNoData             = "no_data"
	errorValueRenderFailed       = "render_failed"
	errorValueStorageUnavailable = "storage_unavailable"
	errorValueInvalidImage       = "invalid_image"

	messageUnknownListing = "Listing not found."
	messageQueryFailed    = "Unable to load data. Please try again."
	messageSaveFailed     = "Unable to save changes. Please try again."
	messageRenderFailed   = "Unable to generate the report. Please try again."
)

func respondInvalidJSON(context *gin.Context) {
	context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: errorValueInvalidJSON})
}

func respondInvalidInput(context *gin.Context, inputErr error) {
	context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: errorValueInvalidInput, jsonKeyMessage: inputErr.Error()})
}

func respondUnauthorized(context *gin.Context) {
	context.JSON(http.StatusUnauthorized, gin.H{jsonKeyError: authErrorUnauthorized})
}

// respondStoreError maps storage errors: missing records are 404, everything else is 500 with the given code.
func respondStoreError(context *gin.Context, logger *zap.Logger, logEvent string, storeErr error, failureCode string) {
	if errors.Is(storeErr, storage.ErrNotFound) {
		context.JSON(http.StatusNotFound, gin.H{jsonKeyError: errorValueUnknownListing, jsonKeyMessage: messageUnknownListing})
		return
	}
	if errors.Is(storeErr, storage.ErrMissingOwner) {
		respondUnauthorized(context)
		return
	}
	logger.Error(logEvent, zap.Error(storeErr))
	message := messageQueryFailed
	if failureCode == errorValueSaveFailed || failureCode == errorValueDeleteFailed {
		message = messageSaveFailed
	}
	context.JSON(http.StatusInternalServerError, gin.H{jsonKeyError: failureCode, jsonKeyMessage: message})
}

// ownerFromContext resolves the caller identity or writes a 401.
func ownerFromContext(context *gin.Context) (string, bool) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok || currentUser.OwnerID() == "" {
		respondUnauthorized(context)
		return "", false
	}
	return currentUser.OwnerID(), true
}

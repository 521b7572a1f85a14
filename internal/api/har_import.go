package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/harimport"
)

const logEventHARImport = "har_import"

type harImportRequest struct {
	Data string `json:"data"`
}

// HARImportHandlers exposes the HAR paste import.
type HARImportHandlers struct {
	importer *harimport.Importer
	logger   *zap.Logger
}

func NewHARImportHandlers(importer *harimport.Importer, logger *zap.Logger) *HARImportHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HARImportHandlers{importer: importer, logger: logger}
}

// Import parses pasted HAR traffic text and reports which rows match the caller's listings.
func (handlers *HARImportHandlers) Import(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	var payload harImportRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		respondInvalidJSON(context)
		return
	}

	result, importErr := handlers.importer.Import(context.Request.Context(), ownerID, payload.Data)
	switch {
	case importErr == nil:
		context.JSON(http.StatusOK, result)
	case errors.Is(importErr, harimport.ErrNoData), errors.Is(importErr, harimport.ErrNoRows):
		context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: errorValueNoData, jsonKeyMessage: importErr.Error()})
	default:
		respondStoreError(context, handlers.logger, logEventHARImport, importErr, errorValueQueryFailed)
	}
}

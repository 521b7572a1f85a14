package harimport

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/storage"
)

const (
	errorMessageNoRows = "No HAR traffic rows detected. Please double-check the pasted data."

	logEventImportMatched = "har_import_matched"
)

var (
	// ErrNoData indicates the pasted text was empty.
	ErrNoData = errors.New(ErrorMessageNoData)
	// ErrNoRows indicates the text contained no usable traffic rows.
	ErrNoRows = errors.New(errorMessageNoRows)
)

// ListingLister lists the caller's non-deleted listings.
type ListingLister interface {
	ListListings(ctx context.Context, ownerID string) ([]model.Listing, error)
}

// ImportResult summarizes one import run.
type ImportResult struct {
	TotalRows int              `json:"total_rows"`
	Matched   int              `json:"matched"`
	Updated   int              `json:"updated"`
	Unmatched []UnmatchedEntry `json:"unmatched"`
	Errors    []string         `json:"errors"`
	Warnings  []string         `json:"warnings"`
}

// Importer binds pasted HAR traffic rows to the caller's listings.
// Write-back is disabled: matched rows are counted and logged, never persisted.
type Importer struct {
	listings ListingLister
	logger   *zap.Logger
}

// NewImporter builds an Importer.
func NewImporter(listings ListingLister, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{listings: listings, logger: logger}
}

// Import parses raw text and matches every row against the caller's listings.
func (importer *Importer) Import(ctx context.Context, ownerID string, raw string) (ImportResult, error) {
	parsed := Parse(raw)
	if len(parsed.Errors) > 0 {
		return ImportResult{}, ErrNoData
	}
	if len(parsed.Entries) == 0 {
		return ImportResult{}, ErrNoRows
	}
	if model.NormalizeOwnerID(ownerID) == "" {
		return ImportResult{}, storage.ErrMissingOwner
	}

	listings, listErr := importer.listings.ListListings(ctx, ownerID)
	if listErr != nil {
		return ImportResult{}, fmt.Errorf("harimport: list listings: %w", listErr)
	}

	matches, unmatched := MatchEntries(BuildMLSIndex(listings), parsed.Entries)
	for _, match := range matches {
		importer.logger.Debug(logEventImportMatched,
			zap.String("listing_id", match.ListingID),
			zap.String("mls_number", match.Entry.MLSNumber))
	}

	return ImportResult{
		TotalRows: len(parsed.Entries),
		Matched:   len(matches),
		Updated:   0,
		Unmatched: unmatched,
		Errors:    []string{},
		Warnings:  parsed.Warnings,
	}, nil
}

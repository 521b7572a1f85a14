package harimport

import (
	"regexp"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
)

var listingMLSPattern = regexp.MustCompile(`\b\d{5,}\b`)

// ExtractMLS returns the first run of five or more digits in a listing name.
func ExtractMLS(listingName string) (string, bool) {
	match := listingMLSPattern.FindString(listingName)
	if match == "" {
		return "", false
	}
	return NormalizeMLS(match), true
}

// MLSIndex maps a normalized MLS number to a listing identifier.
type MLSIndex map[string]string

// BuildMLSIndex indexes listings by the MLS number embedded in their names.
// Listings without one are left out. On duplicates the later listing wins.
func BuildMLSIndex(listings []model.Listing) MLSIndex {
	index := make(MLSIndex, len(listings))
	for _, listing := range listings {
		mlsNumber, found := ExtractMLS(listing.Name)
		if !found {
			continue
		}
		index[mlsNumber] = listing.ID
	}
	return index
}

// Lookup matches an MLS number by exact digit equality.
func (index MLSIndex) Lookup(mlsNumber string) (string, bool) {
	listingID, found := index[NormalizeMLS(mlsNumber)]
	return listingID, found
}

// Match is a parsed entry bound to a listing.
type Match struct {
	ListingID string
	Entry     Entry
}

// UnmatchedEntry is reported back for operator review.
type UnmatchedEntry struct {
	MLSNumber string `json:"mls_number"`
	Address   string `json:"address,omitempty"`
}

// MatchEntries splits parsed entries into matches and unmatched rows.
func MatchEntries(index MLSIndex, entries []Entry) ([]Match, []UnmatchedEntry) {
	matches := make([]Match, 0, len(entries))
	unmatched := make([]UnmatchedEntry, 0)
	for _, entry := range entries {
		listingID, found := index.Lookup(entry.MLSNumber)
		if !found {
			unmatched = append(unmatched, UnmatchedEntry{MLSNumber: entry.MLSNumber, Address: entry.Address})
			continue
		}
		matches = append(matches, Match{ListingID: listingID, Entry: entry})
	}
	return matches, unmatched
}

package harimport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// ErrorMessageNoData is reported when the pasted text is empty.
	ErrorMessageNoData = "No data provided."

	expectedColumnCount = 7
	minimumColumnCount  = 3

	columnAddress      = 0
	columnMLSNumber    = 1
	columnDaysOnMarket = 2
	columnStatus       = 3
	columnDesktopViews = 4
	columnMobileViews  = 5
	columnPhotoViews   = 6

	warningTooFewColumnsFormat = "Line %d: expected traffic columns, found %d; skipped"
	warningMissingMLSFormat    = "Line %d: missing MLS number; skipped"
)

var (
	headerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)mls#`),
		regexp.MustCompile(`(?i)mls number`),
	}
	wideSpacePattern = regexp.MustCompile(`\s{2,}`)
	nonDigitPattern  = regexp.MustCompile(`\D`)

	statusLabels = map[string]string{
		"A":  "Active",
		"P":  "Pending",
		"S":  "Sold",
		"PS": "Pending Continue to Show",
		"OP": "Option Pending",
		"T":  "Temporarily Off Market",
	}
)

// Entry is one parsed traffic row. Numeric fields are nil when the column was absent or not numeric.
type Entry struct {
	Address      string `json:"address"`
	MLSNumber    string `json:"mls_number"`
	DaysOnMarket *int64 `json:"days_on_market"`
	Status       string `json:"status"`
	DesktopViews *int64 `json:"desktop_views"`
	MobileViews  *int64 `json:"mobile_views"`
	PhotoViews   *int64 `json:"photo_views"`
}

// ParseResult holds parsed entries, skipped-row warnings, and fatal errors.
type ParseResult struct {
	Entries  []Entry
	Warnings []string
	Errors   []string
}

// Parse reads pasted traffic-report text. It never panics on malformed input;
// unusable rows become warnings and only empty input is fatal.
func Parse(raw string) ParseResult {
	result := ParseResult{Entries: []Entry{}, Warnings: []string{}, Errors: []string{}}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		result.Errors = append(result.Errors, ErrorMessageNoData)
		return result
	}

	lines := dataLines(trimmed)
	for index := 0; index < len(lines); index++ {
		lineNumber := index + 1
		columns := splitColumns(lines[index])
		if len(columns) < expectedColumnCount && index+1 < len(lines) {
			merged := append(append([]string{}, columns...), splitColumns(lines[index+1])...)
			if len(merged) >= expectedColumnCount {
				columns = merged
				index++
			}
		}
		if len(columns) < minimumColumnCount {
			result.Warnings = append(result.Warnings, fmt.Sprintf(warningTooFewColumnsFormat, lineNumber, len(columns)))
			continue
		}

		mlsNumber := NormalizeMLS(column(columns, columnMLSNumber))
		if mlsNumber == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf(warningMissingMLSFormat, lineNumber))
			continue
		}

		result.Entries = append(result.Entries, Entry{
			Address:      column(columns, columnAddress),
			MLSNumber:    mlsNumber,
			DaysOnMarket: parseCount(column(columns, columnDaysOnMarket)),
			Status:       MapStatus(column(columns, columnStatus)),
			DesktopViews: parseCount(column(columns, columnDesktopViews)),
			MobileViews:  parseCount(column(columns, columnMobileViews)),
			PhotoViews:   parseCount(column(columns, columnPhotoViews)),
		})
	}
	return result
}

// NormalizeMLS strips every non-digit character.
func NormalizeMLS(raw string) string {
	return nonDigitPattern.ReplaceAllString(raw, "")
}

// MapStatus expands a status code; unknown codes pass through unchanged.
func MapStatus(code string) string {
	trimmed := strings.TrimSpace(code)
	if label, found := statusLabels[strings.ToUpper(trimmed)]; found {
		return label
	}
	return trimmed
}

// dataLines returns trimmed non-empty lines, dropping everything up to and including
// the first header line.
func dataLines(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	var lines []string
	for _, line := range strings.Split(normalized, "\n") {
		if trimmedLine := strings.TrimSpace(line); trimmedLine != "" {
			lines = append(lines, trimmedLine)
		}
	}
	for index, line := range lines {
		if isHeaderLine(line) {
			return lines[index+1:]
		}
	}
	return lines
}

func isHeaderLine(line string) bool {
	for _, pattern := range headerPatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

func splitColumns(line string) []string {
	var parts []string
	if strings.Contains(line, "\t") {
		parts = strings.Split(line, "\t")
	} else {
		parts = wideSpacePattern.Split(line, -1)
	}
	columns := make([]string, len(parts))
	for index, part := range parts {
		columns[index] = strings.TrimSpace(part)
	}
	return columns
}

func column(columns []string, index int) string {
	if index < len(columns) {
		return columns[index]
	}
	return ""
}

func parseCount(raw string) *int64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return nil
	}
	value, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return nil
	}
	return &value
}

package report

import (
	"encoding/base64"
	"html/template"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	logoDataURIFormatPrefix = "data:"
	logoDataURIBase64Marker = ";base64,"
	logoMimePrefix          = "image/"

	logEventLogoUnavailable = "report_logo_unavailable"
)

// LoadLogo reads the branding image once and returns it as a data URI.
// A missing or non-image file yields an empty URI so reports render without a logo.
func LoadLogo(path string, logger *zap.Logger) template.URL {
	if logger == nil {
		logger = zap.NewNop()
	}
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return ""
	}
	contents, readErr := os.ReadFile(trimmedPath)
	if readErr != nil {
		logger.Warn(logEventLogoUnavailable, zap.String("path", trimmedPath), zap.Error(readErr))
		return ""
	}
	return encodeLogo(contents, trimmedPath, logger)
}

func encodeLogo(contents []byte, path string, logger *zap.Logger) template.URL {
	detected := mimetype.Detect(contents)
	if !strings.HasPrefix(detected.String(), logoMimePrefix) {
		logger.Warn(logEventLogoUnavailable, zap.String("path", path), zap.String("mime", detected.String()))
		return ""
	}
	encoded := base64.StdEncoding.EncodeToString(contents)
	return template.URL(logoDataURIFormatPrefix + detected.String() + logoDataURIBase64Marker + encoded)
}

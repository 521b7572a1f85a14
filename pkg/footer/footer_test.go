package footer

import (
	"html/template"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testFooterElementID      = "report-footer"
	testFooterBaseClass      = "footer-base"
	testFooterColumnClass    = "footer-column"
	testFooterLabelClass     = "footer-label"
	testFooterValueClass     = "footer-value"
	testFooterDisclaimerID   = "footer-disclaimer"
	testFooterGeneratedDate  = "March 4, 2024"
	testFooterCustomTitle    = "Quarterly Traffic Report"
	testFooterEscapedTitle   = "<b>Bold</b>"
	testFooterTemplateName   = "footer"
	testFooterTemplateOption = "missingkey=error"
	testFooterTemplateError  = "{{.MissingValue}}"
)

func baseFooterConfig() Config {
	return Config{
		ElementID:     testFooterElementID,
		BaseClass:     testFooterBaseClass,
		ColumnClass:   testFooterColumnClass,
		LabelClass:    testFooterLabelClass,
		ValueClass:    testFooterValueClass,
		DisclaimerID:  testFooterDisclaimerID,
		GeneratedDate: testFooterGeneratedDate,
	}
}

func TestRenderFooterWithDefaults(testingT *testing.T) {
	rendered, renderErr := Render(baseFooterConfig().WithDefaults())
	require.NoError(testingT, renderErr)

	renderedText := string(rendered)
	require.Contains(testingT, renderedText, `id="`+testFooterElementID+`"`)
	require.Contains(testingT, renderedText, DefaultGeneratedLabel)
	require.Contains(testingT, renderedText, testFooterGeneratedDate)
	require.Contains(testingT, renderedText, DefaultTitle)
	require.Contains(testingT, renderedText, DefaultDocumentLabel)
	require.Contains(testingT, renderedText, DefaultPageLabel)
	require.Contains(testingT, renderedText, "proprietary traffic analytics data")
}

func TestWithDefaultsKeepsCustomText(testingT *testing.T) {
	footerConfig := baseFooterConfig()
	footerConfig.Title = testFooterCustomTitle

	rendered, renderErr := Render(footerConfig.WithDefaults())
	require.NoError(testingT, renderErr)
	require.Contains(testingT, string(rendered), testFooterCustomTitle)
	require.False(testingT, strings.Contains(string(rendered), DefaultTitle))
}

func TestRenderFooterWithoutDisclaimerOmitsParagraph(testingT *testing.T) {
	rendered, renderErr := Render(baseFooterConfig())
	require.NoError(testingT, renderErr)
	require.False(testingT, strings.Contains(string(rendered), testFooterDisclaimerID))
}

func TestRenderFooterEscapesText(testingT *testing.T) {
	footerConfig := baseFooterConfig()
	footerConfig.Title = testFooterEscapedTitle

	rendered, renderErr := Render(footerConfig)
	require.NoError(testingT, renderErr)
	require.Contains(testingT, string(rendered), "&lt;b&gt;Bold&lt;/b&gt;")
}

func TestRenderFooterReportsTemplateError(testingT *testing.T) {
	originalTemplate := footerTemplate
	testingT.Cleanup(func() {
		footerTemplate = originalTemplate
	})
	footerTemplate = template.Must(template.New(testFooterTemplateName).Option(testFooterTemplateOption).Parse(testFooterTemplateError))

	_, renderErr := Render(baseFooterConfig())
	require.Error(testingT, renderErr)
}

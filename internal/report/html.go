package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/dustin/go-humanize"

	"github.com/MarkoPoloResearchLab/listingtraffic/pkg/footer"
)

const (
	reportTemplateName = "report"

	reportFooterElementID    = "report-footer"
	reportFooterBaseClass    = "report-footer"
	reportFooterColumnClass  = "report-footer-column"
	reportFooterLabelClass   = "report-label"
	reportFooterValueClass   = "report-value"
	reportFooterDisclaimerID = "report-footer-disclaimer"

	platformNameHAR     = "HAR.com"
	platformNameRealtor = "Realtor.com"
	platformNameZillow  = "Zillow.com"
	postLabelFormat     = "Post %d"

	errorMessageRenderFooter = "render report footer"
	errorMessageRenderReport = "render report page"
)

// Variant selects the surface a report page is rendered for.
type Variant int

const (
	// VariantPrint renders the browser print page with a print button.
	VariantPrint Variant = iota
	// VariantPDF renders the document handed to the PDF engine.
	VariantPDF
)

//go:embed templates/report.tmpl
var reportTemplateHTML string

type platformCard struct {
	Key        string
	Name       string
	Views      string
	Clicks     string
	ShowClicks bool
}

type facebookPostBlock struct {
	Label  string
	URL    string
	Views  string
	Clicks string
}

type reportTemplateData struct {
	ListingID     string
	ListingName   string
	ImageURL      string
	LogoURI       template.URL
	ReportDate    string
	TotalViews    string
	TotalClicks   string
	Platforms     []platformCard
	FacebookPosts []facebookPostBlock
	ShowToolbar   bool
	FooterHTML    template.HTML
}

// HTMLRenderer renders report summaries into a self-contained HTML document.
type HTMLRenderer struct {
	template *template.Template
	logoURI  template.URL
	options  Options
}

// NewHTMLRenderer compiles the report template with the branding logo and rendering options.
func NewHTMLRenderer(logoURI template.URL, options Options) *HTMLRenderer {
	return &HTMLRenderer{
		template: template.Must(template.New(reportTemplateName).Parse(reportTemplateHTML)),
		logoURI:  logoURI,
		options:  options,
	}
}

// Render produces the report page for the summary.
func (renderer *HTMLRenderer) Render(summary Summary, variant Variant) ([]byte, error) {
	footerHTML, footerErr := footer.Render(footer.Config{
		ElementID:     reportFooterElementID,
		BaseClass:     reportFooterBaseClass,
		ColumnClass:   reportFooterColumnClass,
		LabelClass:    reportFooterLabelClass,
		ValueClass:    reportFooterValueClass,
		DisclaimerID:  reportFooterDisclaimerID,
		GeneratedDate: summary.ReportDate,
	}.WithDefaults())
	if footerErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageRenderFooter, footerErr)
	}

	payload := reportTemplateData{
		ListingID:     summary.ListingID,
		ListingName:   summary.ListingName,
		ImageURL:      summary.ImageURL,
		LogoURI:       renderer.logoURI,
		ReportDate:    summary.ReportDate,
		TotalViews:    humanize.Comma(summary.TotalViews),
		TotalClicks:   humanize.Comma(summary.TotalClicks),
		Platforms:     renderer.platformCards(summary),
		FacebookPosts: facebookPostBlocks(summary.FacebookEntries),
		ShowToolbar:   variant == VariantPrint,
		FooterHTML:    footerHTML,
	}

	var buffer bytes.Buffer
	if err := renderer.template.Execute(&buffer, payload); err != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageRenderReport, err)
	}
	return buffer.Bytes(), nil
}

func (renderer *HTMLRenderer) platformCards(summary Summary) []platformCard {
	cards := make([]platformCard, 0, 3)
	appendCard := func(present bool, key string, name string, views int64) {
		if !present {
			return
		}
		cards = append(cards, platformCard{
			Key:        key,
			Name:       name,
			Views:      humanize.Comma(views),
			Clicks:     humanize.Comma(EstimateClicks(views)),
			ShowClicks: renderer.options.EstimatePlatformClicks,
		})
	}
	appendCard(summary.HasHAR, "har", platformNameHAR, summary.HARViews)
	appendCard(summary.HasRealtor, "realtor", platformNameRealtor, summary.RealtorViews)
	appendCard(summary.HasZillow, "zillow", platformNameZillow, summary.ZillowViews)
	return cards
}

func facebookPostBlocks(entries []FacebookEntry) []facebookPostBlock {
	blocks := make([]facebookPostBlock, 0, len(entries))
	for index, entry := range entries {
		blocks = append(blocks, facebookPostBlock{
			Label:  fmt.Sprintf(postLabelFormat, index+1),
			URL:    entry.URL,
			Views:  humanize.Comma(entry.Views),
			Clicks: humanize.Comma(entry.Clicks),
		})
	}
	return blocks
}

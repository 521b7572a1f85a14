package footer

import (
	"bytes"
	"html/template"
)

const (
	DefaultGeneratedLabel = "Report Generated"
	DefaultTitle          = "Premium Traffic Report"
	DefaultDocumentLabel  = "Document"
	DefaultPageLabel      = "Page 1 of 1"
	DefaultDisclaimer     = "This report contains proprietary traffic analytics data. All metrics are aggregated from verified listing platforms and social media channels. Data accuracy is subject to third-party reporting systems."
)

// Config captures the text and style hooks required to render the report footer.
type Config struct {
	ElementID      string
	BaseClass      string
	ColumnClass    string
	LabelClass     string
	ValueClass     string
	DisclaimerID   string
	GeneratedLabel string
	GeneratedDate  string
	Title          string
	DocumentLabel  string
	PageLabel      string
	Disclaimer     string
}

var (
	footerTemplate = template.Must(template.New("footer").Parse(`<footer id="{{.ElementID}}" class="{{.BaseClass}}">
  <div class="{{.ColumnClass}}">
    <div class="{{.LabelClass}}">{{.GeneratedLabel}}</div>
    <div class="{{.ValueClass}}">{{.GeneratedDate}}</div>
  </div>
  <div class="{{.ColumnClass}}">
    <div class="{{.ValueClass}}">{{.Title}}</div>
  </div>
  <div class="{{.ColumnClass}}">
    <div class="{{.LabelClass}}">{{.DocumentLabel}}</div>
    <div class="{{.ValueClass}}">{{.PageLabel}}</div>
  </div>
  {{if .Disclaimer}}<p id="{{.DisclaimerID}}">{{.Disclaimer}}</p>{{end}}
</footer>`))
)

// WithDefaults fills empty text fields with the standard report wording.
func (config Config) WithDefaults() Config {
	if config.GeneratedLabel == "" {
		config.GeneratedLabel = DefaultGeneratedLabel
	}
	if config.Title == "" {
		config.Title = DefaultTitle
	}
	if config.DocumentLabel == "" {
		config.DocumentLabel = DefaultDocumentLabel
	}
	if config.PageLabel == "" {
		config.PageLabel = DefaultPageLabel
	}
	if config.Disclaimer == "" {
		config.Disclaimer = DefaultDisclaimer
	}
	return config
}

// Render returns the footer HTML for the provided configuration.
func Render(config Config) (template.HTML, error) {
	var buffer bytes.Buffer
	if err := footerTemplate.Execute(&buffer, config); err != nil {
		return "", err
	}
	return template.HTML(buffer.String()), nil
}

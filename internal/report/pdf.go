package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	browserEnvironmentChromedp   = "CHROMEDP_BROWSER"
	browserEnvironmentChromePath = "CHROME_PATH"

	// DefaultPDFTimeout bounds a single PDF render.
	DefaultPDFTimeout = 30 * time.Second

	letterPaperWidthInches  = 8.5
	letterPaperHeightInches = 11.0
	pdfMarginInches         = 0.4
	pdfPageRange            = "1"
	documentReadySelector   = "body"

	errorMessageLocateBrowser = "locate headless browser"
	errorMessageRenderPDF     = "render pdf"

	logEventPDFRendered = "report_pdf_rendered"
)

var (
	// ErrBrowserNotFound indicates no headless browser binary could be located.
	ErrBrowserNotFound = errors.New("headless browser executable not found")
	// ErrEmptyDocument indicates an empty HTML document was handed to the PDF engine.
	ErrEmptyDocument = errors.New("empty report document")

	browserExecutableNames = []string{
		"chromium",
		"chromium-browser",
		"google-chrome",
		"google-chrome-stable",
		"headless-shell",
	}
)

// PDFRenderer converts an HTML document into a PDF byte stream.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, document []byte) ([]byte, error)
}

// LocateBrowserExecutable resolves the browser binary from the configured path, the environment, or PATH.
func LocateBrowserExecutable(configuredPath string) (string, error) {
	candidates := []string{
		configuredPath,
		os.Getenv(browserEnvironmentChromedp),
		os.Getenv(browserEnvironmentChromePath),
	}
	for _, candidate := range candidates {
		trimmedCandidate := strings.TrimSpace(candidate)
		if trimmedCandidate != "" {
			return trimmedCandidate, nil
		}
	}
	for _, executableName := range browserExecutableNames {
		executablePath, lookupErr := exec.LookPath(executableName)
		if lookupErr == nil {
			return executablePath, nil
		}
	}
	return "", fmt.Errorf("%s: %w", errorMessageLocateBrowser, ErrBrowserNotFound)
}

// ChromePDFRenderer prints documents with a headless Chrome instance per request.
type ChromePDFRenderer struct {
	executablePath string
	timeout        time.Duration
	logger         *zap.Logger
}

// NewChromePDFRenderer constructs a renderer; a non-positive timeout falls back to DefaultPDFTimeout.
func NewChromePDFRenderer(executablePath string, timeout time.Duration, logger *zap.Logger) *ChromePDFRenderer {
	if timeout <= 0 {
		timeout = DefaultPDFTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromePDFRenderer{
		executablePath: strings.TrimSpace(executablePath),
		timeout:        timeout,
		logger:         logger,
	}
}

// RenderPDF loads the document into a blank page and prints the first Letter page with backgrounds.
func (renderer *ChromePDFRenderer) RenderPDF(ctx context.Context, document []byte) ([]byte, error) {
	if len(document) == 0 {
		return nil, ErrEmptyDocument
	}

	allocatorOptions := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if renderer.executablePath != "" {
		allocatorOptions = append(allocatorOptions, chromedp.ExecPath(renderer.executablePath))
	}

	allocatorContext, allocatorCancel := chromedp.NewExecAllocator(ctx, allocatorOptions...)
	defer allocatorCancel()

	browserContext, browserCancel := chromedp.NewContext(allocatorContext)
	defer browserCancel()

	contextWithTimeout, timeoutCancel := context.WithTimeout(browserContext, renderer.timeout)
	defer timeoutCancel()

	startedAt := time.Now()
	var pdfBytes []byte
	runErr := chromedp.Run(contextWithTimeout,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(actionContext context.Context) error {
			frameTree, frameErr := page.GetFrameTree().Do(actionContext)
			if frameErr != nil {
				return frameErr
			}
			return page.SetDocumentContent(frameTree.Frame.ID, string(document)).Do(actionContext)
		}),
		chromedp.WaitReady(documentReadySelector, chromedp.ByQuery),
		chromedp.ActionFunc(func(actionContext context.Context) error {
			printed, _, printErr := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(letterPaperWidthInches).
				WithPaperHeight(letterPaperHeightInches).
				WithMarginTop(pdfMarginInches).
				WithMarginBottom(pdfMarginInches).
				WithMarginLeft(pdfMarginInches).
				WithMarginRight(pdfMarginInches).
				WithPageRanges(pdfPageRange).
				Do(actionContext)
			if printErr != nil {
				return printErr
			}
			pdfBytes = printed
			return nil
		}),
	)
	if runErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageRenderPDF, runErr)
	}

	renderer.logger.Debug(logEventPDFRendered, zap.Int("bytes", len(pdfBytes)), zap.Duration("elapsed", time.Since(startedAt)))
	return pdfBytes, nil
}

// Generator turns report summaries into print pages and PDFs.
type Generator struct {
	html *HTMLRenderer
	pdf  PDFRenderer
}

// NewGenerator pairs the HTML renderer with a PDF engine.
func NewGenerator(htmlRenderer *HTMLRenderer, pdfRenderer PDFRenderer) *Generator {
	return &Generator{html: htmlRenderer, pdf: pdfRenderer}
}

// PrintPage renders the browser print surface.
func (generator *Generator) PrintPage(summary Summary) ([]byte, error) {
	return generator.html.Render(summary, VariantPrint)
}

// PDF renders the PDF surface.
func (generator *Generator) PDF(ctx context.Context, summary Summary) ([]byte, error) {
	document, renderErr := generator.html.Render(summary, VariantPDF)
	if renderErr != nil {
		return nil, renderErr
	}
	return generator.pdf.RenderPDF(ctx, document)
}

package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/propform/proposals-tracker/internal/common"
)

// PDFExtractor reads the text layer of a PDF document.
type PDFExtractor struct {
	log *slog.Logger
}

func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{log: logger}
}

// Extract validates the document structure, then concatenates the text layer
// of every page in page order. Pages whose text layer cannot be decoded are
// skipped; a fully unreadable document surfaces as short output, which the
// pipeline treats as extraction failure.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (TextExtractionResult, error) {
	if err := api.ValidateFile(path, nil); err != nil {
		e.log.Warn("extract.invalid_pdf", "path", path, "error", err)
		return TextExtractionResult{}, common.NewAppError("EXTRACT_INVALID", fmt.Sprintf("not a readable PDF: %s", path), err)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return TextExtractionResult{}, common.NewAppError("EXTRACT_OPEN", fmt.Sprintf("open pdf: %s", path), err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.log.Warn("extract.close_failed", "path", path, "error", cerr)
		}
	}()

	var b strings.Builder
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return TextExtractionResult{}, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			e.log.Warn("extract.page_failed", "path", path, "page", i, "error", err)
			continue
		}
		b.WriteString(text)
	}

	return TextExtractionResult{Text: b.String(), Pages: total}, nil
}

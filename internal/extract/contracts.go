package extract

import "context"

// TextExtractionResult summarizes one extraction run.
type TextExtractionResult struct {
	Text  string
	Pages int
}

// TextExtractor turns a source document into plain text. Implementations
// concatenate per-page text layers in page order.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/ports"
)

// Dispatcher routes a staged file to the right extractor by extension.
type Dispatcher struct {
	plainText ports.TextExtractor
	pdf       ports.TextExtractor
	image     ports.TextExtractor
}

func NewDispatcher(plainText, pdf, image ports.TextExtractor) *Dispatcher {
	return &Dispatcher{plainText: plainText, pdf: pdf, image: image}
}

// KindOf classifies a path as document or image input. The second value
// is false for extensions no extractor handles.
func KindOf(path string) (domain.SourceKind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf":
		return domain.SourceDocument, true
	case ".png", ".jpg", ".jpeg", ".webp", ".tiff":
		return domain.SourceImage, true
	}
	return "", false
}

func (d *Dispatcher) Extract(ctx context.Context, path string) (string, error) {
	kind, ok := KindOf(path)
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract",
			fmt.Errorf("unsupported source extension: %s", filepath.Ext(path)))
	}
	if kind == domain.SourceImage {
		return d.image.Extract(ctx, path)
	}
	if strings.ToLower(filepath.Ext(path)) == ".pdf" {
		return d.pdf.Extract(ctx, path)
	}
	return d.plainText.Extract(ctx, path)
}

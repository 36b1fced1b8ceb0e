package ocr

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// ClassifierPages is how many leading pages the classifier inspects.
	ClassifierPages = 3
	// MinPageChars is the text a page needs to count as having a native text layer.
	MinPageChars = 50
)

// Classifier decides whether a PDF is text-native or a scanned image.
type Classifier struct {
	layer  TextLayer
	logger *slog.Logger
}

func NewClassifier(layer TextLayer, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{layer: layer, logger: logger}
}

// IsScanned reports true when none of the first pages carries more than
// MinPageChars of text. Read errors also report true so the caller falls
// back to OCR.
func (c *Classifier) IsScanned(ctx context.Context, path string) bool {
	pages, err := c.layer.PageTexts(ctx, path, ClassifierPages)
	if err != nil {
		c.logger.Warn("classifier could not read text layer; assuming scanned", "path", path, "error", err)
		return true
	}
	for i, p := range pages {
		if len([]rune(strings.TrimSpace(p))) > MinPageChars {
			c.logger.Debug("native text layer found", "path", path, "page", i+1)
			return false
		}
	}
	return true
}

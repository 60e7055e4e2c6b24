package pdf

import (
	"context"
	"fmt"
	"os"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"go-stamppdf/internal/logger"
)

// MergeFiles joins the PDFs in files, in order, into outputPath and strips
// the bookmarks each source carried. A single input is copied as is.
func MergeFiles(files []string, outputPath string) error {
	switch len(files) {
	case 0:
		return fmt.Errorf("no files to merge")
	case 1:
		data, err := os.ReadFile(files[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", files[0], err)
		}
		return os.WriteFile(outputPath, data, 0o644)
	}

	if err := pdfapi.MergeCreateFile(files, outputPath, false, newConfig()); err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("failed to merge PDFs: %w", err)
	}
	if err := RemoveBookmarks(outputPath); err != nil {
		logger.Warn(context.Background(), "merged PDF keeps its bookmarks", logger.Fields{
			"path":  outputPath,
			"error": err.Error(),
		})
	}
	return nil
}

// RemoveBookmarks drops the outline of the PDF at pdfPath in place.
func RemoveBookmarks(pdfPath string) error {
	return pdfapi.RemoveBookmarksFile(pdfPath, pdfPath, newConfig())
}

package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/refseek/refseek/internal/models"
)

// kindForExt maps file extensions to content kinds. Files outside this map
// are not picked up by directory intake.
var kindForExt = map[string]models.ContentKind{
	".pdf":      models.KindPDF,
	".html":     models.KindHTML,
	".htm":      models.KindHTML,
	".md":       models.KindMarkdown,
	".markdown": models.KindMarkdown,
	".txt":      models.KindText,
	".text":     models.KindText,
}

// FileDocID returns a stable document ID for the given path. The same path
// always yields the same ID, so reindexing a file updates its document
// instead of creating a new one.
func FileDocID(path string) string {
	normalized := filepath.Clean(path)
	hash := sha256.Sum256([]byte(normalized))
	return "file:" + hex.EncodeToString(hash[:])
}

// InputFromFile reads a local file into a DocumentInput. The title is the
// base name without extension; the kind is derived from the extension.
func InputFromFile(path string) (*models.DocumentInput, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	kind, ok := kindForExt[strings.ToLower(filepath.Ext(absPath))]
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Base(absPath))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	base := filepath.Base(absPath)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	input := &models.DocumentInput{
		DocumentID:  FileDocID(absPath),
		Title:       title,
		ContentKind: kind,
	}
	switch kind {
	case models.KindText, models.KindMarkdown:
		input.Text = string(data)
	default:
		input.RawContent = data
	}
	return input, nil
}

// CollectInputs resolves a file or directory path into DocumentInputs. For a
// directory, supported files are collected recursively and unreadable ones
// are reported as failures; an unsupported file named directly is an error.
func CollectInputs(path string) ([]*models.DocumentInput, []models.DocumentFailure, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		input, err := InputFromFile(path)
		if err != nil {
			return nil, nil, err
		}
		return []*models.DocumentInput{input}, nil, nil
	}

	var inputs []*models.DocumentInput
	var failures []models.DocumentFailure
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := kindForExt[strings.ToLower(filepath.Ext(p))]; !ok {
			return nil
		}
		input, err := InputFromFile(p)
		if err != nil {
			failures = append(failures, models.DocumentFailure{
				DocumentID: FileDocID(p),
				Reason:     err.Error(),
			})
			return nil
		}
		inputs = append(inputs, input)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk directory: %w", err)
	}
	return inputs, failures, nil
}

// IndexPath indexes a single file or, recursively, every supported file under
// a directory.
func (idx *Indexer) IndexPath(ctx context.Context, path string, force bool) (*models.IndexReport, error) {
	inputs, failures, err := CollectInputs(path)
	if err != nil {
		return nil, err
	}
	report, runErr := idx.IndexDocuments(ctx, inputs, force)
	report.Failed += len(failures)
	report.Failures = append(report.Failures, failures...)
	return report, runErr
}

// IndexDirectory walks dir recursively and indexes every supported file.
// Files that cannot be read are recorded as failures in the report.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, force bool) (*models.IndexReport, error) {
	return idx.IndexPath(ctx, dir, force)
}

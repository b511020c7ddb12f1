package indexer

import (
	"os"
	"path/filepath"

	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/pkg/model"
)

// CreateArgs are the inputs of Create.
type CreateArgs struct {
	Category     string
	DocumentType string

	// FilePath and Content are mutually exclusive.
	FilePath string
	Content  []byte
	FileName string

	Fields model.FieldValues
}

// Validate checks the arguments before any backend call.
func (a CreateArgs) Validate() error {
	if err := validateType(a.Category, a.DocumentType); err != nil {
		return err
	}

	hasPath := a.FilePath != ""
	hasContent := a.Content != nil
	switch {
	case hasPath && hasContent:
		return edmerrors.ValidationError("file path and content are mutually exclusive", nil)
	case !hasPath && !hasContent:
		return edmerrors.ValidationError("a file path or content is required", nil).
			WithSuggestion("Pass --file or supply the content with a file name")
	case hasContent && a.FileName == "":
		return edmerrors.ValidationError("file name is required when uploading content", nil)
	}

	if hasPath {
		info, err := os.Stat(a.FilePath)
		if err != nil {
			if os.IsNotExist(err) {
				return edmerrors.New(edmerrors.ErrCodeFileNotFound, "file not found: "+a.FilePath, err).
					WithDetail("path", a.FilePath)
			}
			return edmerrors.IOError("cannot access file: "+a.FilePath, err)
		}
		if info.IsDir() {
			return edmerrors.ValidationError("file path is a directory: "+a.FilePath, nil)
		}
	}
	return nil
}

func (a CreateArgs) upload() Upload {
	if a.FilePath != "" {
		name := a.FileName
		if name == "" {
			name = filepath.Base(a.FilePath)
		}
		return Upload{Path: a.FilePath, FileName: name}
	}
	return Upload{FileName: a.FileName, Content: a.Content}
}

// IndexArgs are the inputs of Index and Reindex.
type IndexArgs struct {
	DocumentID   string
	Category     string
	DocumentType string
	Fields       model.FieldValues
}

// Validate checks the arguments before any backend call.
func (a IndexArgs) Validate() error {
	if err := validateType(a.Category, a.DocumentType); err != nil {
		return err
	}
	if a.DocumentID == "" {
		return edmerrors.ValidationError("document id is required", nil)
	}
	return nil
}

func validateType(category, documentType string) error {
	if category == "" {
		return edmerrors.ValidationError("category is required", nil)
	}
	if documentType == "" {
		return edmerrors.ValidationError("document type is required", nil)
	}
	return nil
}

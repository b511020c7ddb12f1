package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/internal/lock"
	"github.com/Aman-CERP/edmindex/internal/metadata"
	"github.com/Aman-CERP/edmindex/pkg/indexer"
	"github.com/Aman-CERP/edmindex/pkg/model"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// documentFlags are the flags shared by create, index and reindex.
type documentFlags struct {
	category     string
	documentType string
	documentID   string
	file         string
	fileName     string
	metadataJSON string
	metadataFile string
	fields       []string
	format       string
}

func (f *documentFlags) register(cmd *cobra.Command, withDocumentID bool) {
	fs := cmd.Flags()
	fs.StringVarP(&f.category, "category", "c", "", "Document type category")
	fs.StringVarP(&f.documentType, "document-type", "d", "", "Document type name")
	if withDocumentID {
		fs.StringVarP(&f.documentID, "document-id", "i", "", "Id of an uploaded document")
	}
	fs.StringVarP(&f.metadataJSON, "metadata-json", "j", "", `Metadata as JSON, e.g. '{"Vendor ID": "V-1"}'`)
	fs.StringVarP(&f.metadataFile, "metadata-file", "m", "", "Metadata file (.json, .yaml or .yml)")
	fs.StringArrayVar(&f.fields, "field", nil, "Field value as name=value; repeat a name for multi-select values")
	fs.StringVar(&f.format, "format", formatText, "Output format: text or json")
}

// fieldValues merges the metadata sources. A field named by two sources is rejected.
func (f *documentFlags) fieldValues() (model.FieldValues, error) {
	var sources []metadata.Fields
	if f.metadataJSON != "" {
		fields, err := metadata.ParseJSON([]byte(f.metadataJSON))
		if err != nil {
			return model.FieldValues{}, err
		}
		sources = append(sources, fields)
	}
	if f.metadataFile != "" {
		fields, err := metadata.ParseFile(f.metadataFile)
		if err != nil {
			return model.FieldValues{}, err
		}
		sources = append(sources, fields)
	}
	if len(f.fields) > 0 {
		fields, err := metadata.ParseAssignments(f.fields)
		if err != nil {
			return model.FieldValues{}, err
		}
		sources = append(sources, fields)
	}
	return metadata.Merge(sources...)
}

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	default:
		return edmerrors.ValidationError("unknown output format: "+format, nil).
			WithSuggestion("Use --format text or --format json")
	}
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	var f documentFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Upload a file and index it",
		Long: `Upload a file and write its index metadata.

If indexing fails after the upload, the uploaded document is deleted.`,
		Example: `  edmindex create -c Finance -d Invoice -f invoice.pdf \
    --field "Vendor ID=V-1" --field "Invoice Date=01-03-2024"

  edmindex create -c Finance -d Invoice -f invoice.pdf -m invoice.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(f.format); err != nil {
				return err
			}
			fields, err := f.fieldValues()
			if err != nil {
				return err
			}
			ix, err := opts.newIndexer()
			if err != nil {
				return err
			}
			res, err := ix.Create(cmd.Context(), indexer.CreateArgs{
				Category:     f.category,
				DocumentType: f.documentType,
				FilePath:     f.file,
				FileName:     f.fileName,
				Fields:       fields,
			})
			if err != nil {
				return err
			}
			return opts.printResult(cmd, "Document created", res, f.format)
		},
	}

	f.register(cmd, false)
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "File to upload")
	cmd.Flags().StringVar(&f.fileName, "file-name", "", "Name to store the file under (default: base name of --file)")

	return cmd
}

func newIndexCmd(opts *rootOptions) *cobra.Command {
	var f documentFlags

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index an uploaded document",
		Long: `Write the first index metadata of a document that was uploaded but not yet indexed.

The document is locked for the duration of the operation so concurrent
edmindex processes on this machine do not interleave writes.`,
		Example: `  edmindex index -i 0123456789ABCDEF -c Finance -d Invoice --field "Vendor ID=V-1"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.runIndex(cmd, &f, false)
		},
	}
	f.register(cmd, true)
	return cmd
}

func newReindexCmd(opts *rootOptions) *cobra.Command {
	var f documentFlags

	cmd := &cobra.Command{
		Use:     "reindex",
		Aliases: []string{"update"},
		Short:   "Update the index metadata of a document",
		Long: `Update fields of an indexed document. Fields that are not supplied keep their
current values; a field given with no value is cleared.`,
		Example: `  edmindex reindex -i 0123456789ABCDEF -c Finance -d Invoice --field "Status=Paid"

  # Clear a field
  edmindex update -i 0123456789ABCDEF -c Finance -d Invoice --field "Notes="`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.runIndex(cmd, &f, true)
		},
	}
	f.register(cmd, true)
	return cmd
}

func (o *rootOptions) runIndex(cmd *cobra.Command, f *documentFlags, reindex bool) error {
	if err := validateFormat(f.format); err != nil {
		return err
	}
	fields, err := f.fieldValues()
	if err != nil {
		return err
	}
	args := indexer.IndexArgs{
		DocumentID:   f.documentID,
		Category:     f.category,
		DocumentType: f.documentType,
		Fields:       fields,
	}
	if err := args.Validate(); err != nil {
		return err
	}
	ix, err := o.newIndexer()
	if err != nil {
		return err
	}

	var res *indexer.Result
	err = o.withDocumentLock(cmd.Context(), args.DocumentID, func(ctx context.Context) error {
		var err error
		if reindex {
			res, err = ix.Reindex(ctx, args)
		} else {
			res, err = ix.Index(ctx, args)
		}
		return err
	})
	if err != nil {
		return err
	}

	title := "Document indexed"
	if reindex {
		title = "Document reindexed"
	}
	return o.printResult(cmd, title, res, f.format)
}

// withDocumentLock runs fn while holding the document's lock file.
func (o *rootOptions) withDocumentLock(ctx context.Context, documentID string, fn func(context.Context) error) error {
	l := lock.New(o.cfg.Locks.Dir, documentID)
	ok, err := l.TryAcquire()
	if err != nil {
		return edmerrors.IOError("failed to lock document "+documentID, err)
	}
	if !ok {
		o.logger.Info("waiting for document lock",
			slog.String("document_id", documentID),
			slog.String("lock", l.Path()))
		if err := l.Acquire(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return edmerrors.IOError("failed to lock document "+documentID, err)
		}
	}
	defer func() {
		if err := l.Release(); err != nil {
			o.logger.Warn("failed to release document lock", slog.String("error", err.Error()))
		}
	}()
	return fn(ctx)
}

func (o *rootOptions) printResult(cmd *cobra.Command, title string, res *indexer.Result, format string) error {
	out := o.stdout(cmd)
	if format == formatJSON {
		return out.JSON(res)
	}

	out.Success(title)
	out.KeyValue("Document ID", res.DocumentID, 15)
	out.KeyValue("Document type", res.Category+" / "+res.DocumentType, 15)
	if len(res.Fields) > 0 {
		out.Newline()
		out.Header("Fields")
		out.Fields(res.Fields, o.cfg.Indexing.DateFormat)
	}
	return nil
}

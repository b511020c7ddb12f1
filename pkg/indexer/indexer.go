package indexer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aman-CERP/edmindex/internal/catalog"
	"github.com/Aman-CERP/edmindex/internal/coerce"
	"github.com/Aman-CERP/edmindex/internal/datasource"
	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/internal/indexing"
	"github.com/Aman-CERP/edmindex/pkg/model"
)

const tracerName = "github.com/Aman-CERP/edmindex/pkg/indexer"

// compensationTimeout bounds the delete issued after a failed create.
const compensationTimeout = 30 * time.Second

// ErrNilBackend is returned when creating an Indexer without a backend.
var ErrNilBackend = errors.New("indexer backend is required")

// Indexer runs create, index and reindex operations against a Backend.
type Indexer struct {
	backend        Backend
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	coerce         coerce.Options
	newOperationID func() string
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ix *Indexer) {
		if l != nil {
			ix.logger = l
		}
	}
}

// WithTracerProvider sets the tracer provider. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(ix *Indexer) {
		if tp != nil {
			ix.tracerProvider = tp
		}
	}
}

// WithDateLayout sets the Go time layout used to parse DATE text.
func WithDateLayout(layout string) Option {
	return func(ix *Indexer) {
		if layout != "" {
			ix.coerce.DateLayout = layout
		}
	}
}

// WithOperationIDs overrides the operation id generator.
func WithOperationIDs(fn func() string) Option {
	return func(ix *Indexer) {
		if fn != nil {
			ix.newOperationID = fn
		}
	}
}

// New creates an Indexer backed by backend.
func New(backend Backend, opts ...Option) (*Indexer, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	ix := &Indexer{
		backend:        backend,
		logger:         slog.Default(),
		tracerProvider: otel.GetTracerProvider(),
		coerce:         coerce.DefaultOptions(),
		newOperationID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.tracer = ix.tracerProvider.Tracer(tracerName)
	return ix, nil
}

// Create uploads a file, indexes it and returns the persisted fields.
//
// If any step after the upload fails the uploaded document is deleted.
// A failing delete is logged and never replaces the original error.
func (ix *Indexer) Create(ctx context.Context, args CreateArgs) (res *Result, err error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	ctx, span, log := ix.begin(ctx, "create", args.Category, args.DocumentType, "")
	defer func() { ix.end(span, log, err) }()

	docType, err := ix.resolveType(ctx, log, args.Category, args.DocumentType)
	if err != nil {
		return nil, err
	}

	docID, err := runStep(ctx, ix.tracer, "upload", func(ctx context.Context) (string, error) {
		return ix.backend.UploadFile(ctx, args.upload())
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("edm.document_id", docID))
	log = log.With(slog.String("document_id", docID))
	log.Info("file uploaded", slog.String("file", args.upload().FileName))

	guard := onError(func(ctx context.Context) error {
		return ix.backend.DeleteDocument(ctx, docID)
	})
	defer func() { guard.run(ctx, err, log) }()

	entries, err := ix.process(ctx, log, pass{
		doc:      documentFor(docID, args.Category, args.DocumentType, docType),
		values:   args.Fields,
		validate: indexing.ValidateAllRequired,
		submit:   ix.backend.SubmitIndex,
	})
	if err != nil {
		return nil, err
	}

	return newResult(docID, args.Category, args.DocumentType, docType, entries), nil
}

// Index indexes a document that is already uploaded. Every required field of
// the document type must end up with a value.
func (ix *Indexer) Index(ctx context.Context, args IndexArgs) (res *Result, err error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	ctx, span, log := ix.begin(ctx, "index", args.Category, args.DocumentType, args.DocumentID)
	defer func() { ix.end(span, log, err) }()

	docType, err := ix.resolveType(ctx, log, args.Category, args.DocumentType)
	if err != nil {
		return nil, err
	}

	entries, err := ix.process(ctx, log, pass{
		doc:      documentFor(args.DocumentID, args.Category, args.DocumentType, docType),
		values:   args.Fields,
		validate: indexing.ValidateAllRequired,
		submit:   ix.backend.SubmitIndex,
	})
	if err != nil {
		return nil, err
	}

	return newResult(args.DocumentID, args.Category, args.DocumentType, docType, entries), nil
}

// Reindex updates the fields of an indexed document. Only the supplied fields
// and the fields computed from them are submitted; required fields that are
// not supplied are left untouched.
func (ix *Indexer) Reindex(ctx context.Context, args IndexArgs) (res *Result, err error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	ctx, span, log := ix.begin(ctx, "reindex", args.Category, args.DocumentType, args.DocumentID)
	defer func() { ix.end(span, log, err) }()

	docType, err := ix.resolveType(ctx, log, args.Category, args.DocumentType)
	if err != nil {
		return nil, err
	}

	entries, err := ix.process(ctx, log, pass{
		doc:          documentFor(args.DocumentID, args.Category, args.DocumentType, docType),
		values:       args.Fields,
		loadExisting: true,
		validate:     indexing.ValidateRequiredPresent,
		submit:       ix.backend.SubmitReindex,
	})
	if err != nil {
		return nil, err
	}

	return newResult(args.DocumentID, args.Category, args.DocumentType, docType, entries), nil
}

type submitFunc func(ctx context.Context, documentTypeID, documentID string, entries []model.IndexingEntry) ([]model.IndexingEntry, error)

// pass is one resolution run: catalog, builder, datasources, validation, submit.
type pass struct {
	doc          datasource.Document
	values       model.FieldValues
	loadExisting bool
	validate     func([]model.IndexingEntry, *catalog.Catalog) error
	submit       submitFunc
}

func (ix *Indexer) process(ctx context.Context, log *slog.Logger, p pass) ([]model.IndexingEntry, error) {
	defs, err := runStep(ctx, ix.tracer, "fetch_catalog", func(ctx context.Context) ([]model.FieldDefinition, error) {
		return ix.backend.FetchFieldCatalog(ctx, p.doc.TypeID, p.doc.ID)
	})
	if err != nil {
		return nil, err
	}
	cat := catalog.New(p.doc.TypeName, defs)

	var existing []model.ExistingEntry
	if p.loadExisting {
		existing, err = runStep(ctx, ix.tracer, "fetch_existing", func(ctx context.Context) ([]model.ExistingEntry, error) {
			return ix.backend.FetchExistingEntries(ctx, p.doc.ID)
		})
		if err != nil {
			return nil, err
		}
	}

	builder := indexing.NewBuilder(cat, existing, ix.coerce)
	if err := builder.Add(p.values); err != nil {
		return nil, err
	}

	executor := datasource.NewExecutor(ix.backend,
		datasource.WithLogger(log),
		datasource.WithTracerProvider(ix.tracerProvider),
		datasource.WithCoerceOptions(ix.coerce))
	resolved, err := executor.Execute(ctx, datasource.Request{
		Document: p.doc,
		Values:   p.values,
		Catalog:  cat,
	})
	if err != nil {
		return nil, err
	}
	if err := builder.AddResolved(resolved); err != nil {
		return nil, err
	}

	entries := builder.Build()
	if err := p.validate(entries, cat); err != nil {
		return nil, err
	}

	persisted, err := runStep(ctx, ix.tracer, "submit", func(ctx context.Context) ([]model.IndexingEntry, error) {
		return p.submit(ctx, p.doc.TypeID, p.doc.ID, entries)
	})
	if err != nil {
		return nil, err
	}
	log.Info("index submitted",
		slog.Int("entries", len(entries)),
		slog.Int("resolved", len(resolved)),
		slog.Int("persisted", len(persisted)))
	return persisted, nil
}

func (ix *Indexer) resolveType(ctx context.Context, log *slog.Logger, category, name string) (model.DocumentType, error) {
	docType, err := runStep(ctx, ix.tracer, "resolve_document_type", func(ctx context.Context) (model.DocumentType, error) {
		return ix.backend.ResolveDocumentType(ctx, category, name)
	})
	if err != nil {
		return model.DocumentType{}, err
	}
	log.Info("document type resolved", slog.String("document_type_id", docType.ID))
	return docType, nil
}

func (ix *Indexer) begin(ctx context.Context, op, category, documentType, documentID string) (context.Context, trace.Span, *slog.Logger) {
	opID := ix.newOperationID()
	ctx, span := ix.tracer.Start(ctx, "indexer."+op, trace.WithAttributes(
		attribute.String("edm.operation_id", opID),
		attribute.String("edm.category", category),
		attribute.String("edm.document_type", documentType),
	))

	log := ix.logger.With(
		slog.String("operation", op),
		slog.String("operation_id", opID),
		slog.String("category", category),
		slog.String("document_type", documentType),
	)
	if documentID != "" {
		span.SetAttributes(attribute.String("edm.document_id", documentID))
		log = log.With(slog.String("document_id", documentID))
	}
	log.Info(op + " started")
	return ctx, span, log
}

func (ix *Indexer) end(span trace.Span, log *slog.Logger, err error) {
	defer span.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("operation failed", edmerrors.LogAttrs(err)...)
		return
	}
	log.Info("operation completed")
}

// runStep runs fn inside a child span named after the step.
func runStep[T any](ctx context.Context, tracer trace.Tracer, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	v, err := fn(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}

func documentFor(docID, category, documentType string, docType model.DocumentType) datasource.Document {
	return datasource.Document{
		ID:           docID,
		TypeID:       docType.ID,
		TypeName:     documentType,
		CategoryName: category,
	}
}

// Package datasource computes server-side field values from the values a
// caller supplied.
//
// A field A whose definition lists B in its responsibility mapping feeds B's
// datasource. When the caller supplies A but not B, the executor builds B's
// prompt arguments and asks the server to evaluate B once. Resolution is
// single-level: B is never used to compute a further field in the same pass.
package datasource

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aman-CERP/edmindex/internal/catalog"
	"github.com/Aman-CERP/edmindex/internal/coerce"
	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/pkg/model"
)

const tracerName = "github.com/Aman-CERP/edmindex/internal/datasource"

// Evaluator evaluates one field's datasource on the server.
type Evaluator interface {
	EvaluateDatasource(ctx context.Context, documentID, documentTypeID, fieldID string, args []model.DatasourceArgument) ([]any, error)
}

// Request is the input of one execution pass.
type Request struct {
	Document Document
	Values   model.FieldValues
	Catalog  *catalog.Catalog
}

// Executor finds fields eligible for server-side computation and evaluates
// each exactly once, in catalog order.
type Executor struct {
	evaluator Evaluator
	logger    *slog.Logger
	tracer    trace.Tracer
	opts      coerce.Options
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracerProvider sets the tracer provider used for evaluation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Executor) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithCoerceOptions sets the options used to coerce prompt values.
func WithCoerceOptions(opts coerce.Options) Option {
	return func(e *Executor) {
		e.opts = opts
	}
}

// NewExecutor creates an Executor backed by evaluator.
func NewExecutor(evaluator Evaluator, opts ...Option) *Executor {
	e := &Executor{
		evaluator: evaluator,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		opts:      coerce.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Eligible returns the definitions to evaluate for req, in catalog order.
// A field qualifies when a caller-supplied field lists it as a dependent and
// the caller did not supply it directly.
func Eligible(req Request) ([]model.FieldDefinition, error) {
	eligible := make(map[string]bool)
	for _, def := range req.Catalog.Definitions() {
		if !def.HasDependents() || !req.Values.Has(def.Name) {
			continue
		}
		for _, dep := range def.ResponsibilityMapping {
			if req.Values.Has(dep) {
				continue
			}
			if _, err := req.Catalog.Require(dep); err != nil {
				return nil, err
			}
			eligible[dep] = true
		}
	}

	var out []model.FieldDefinition
	for _, def := range req.Catalog.Definitions() {
		if eligible[def.Name] {
			out = append(out, def)
			delete(eligible, def.Name)
		}
	}
	return out, nil
}

// Execute evaluates every eligible field once. Fields whose datasource
// returns no value are left out of the result.
func (e *Executor) Execute(ctx context.Context, req Request) ([]model.ResolvedField, error) {
	fields, err := Eligible(req)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	resolver := NewPromptResolver(req.Document, req.Catalog, req.Values, e.opts)

	var resolved []model.ResolvedField
	for _, def := range fields {
		rf, ok, err := e.evaluate(ctx, req.Document, resolver, def)
		if err != nil {
			return nil, err
		}
		if ok {
			resolved = append(resolved, rf)
		}
	}
	return resolved, nil
}

func (e *Executor) evaluate(ctx context.Context, doc Document, resolver *PromptResolver, def model.FieldDefinition) (model.ResolvedField, bool, error) {
	ctx, span := e.tracer.Start(ctx, "datasource.evaluate",
		trace.WithAttributes(
			attribute.String("edm.field", def.Name),
			attribute.String("edm.field_id", def.ID),
		))
	defer span.End()

	args, err := resolver.Resolve(def)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return model.ResolvedField{}, false, err
	}

	values, err := e.evaluator.EvaluateDatasource(ctx, doc.ID, doc.TypeID, def.ID, args)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return model.ResolvedField{}, false, fmt.Errorf("evaluate datasource for %q: %w", def.Name, err)
	}
	span.SetAttributes(attribute.Int("edm.result_count", len(values)))

	switch len(values) {
	case 0:
		e.logger.Debug("datasource returned no value", slog.String("field", def.Name))
		return model.ResolvedField{}, false, nil
	case 1:
		e.logger.Info("datasource evaluated",
			slog.String("field", def.Name),
			slog.Int("arguments", len(args)))
		return model.ResolvedField{
			Name:       def.Name,
			FieldID:    def.ID,
			Value:      values[0],
			Provenance: model.ProvenanceDatasource,
		}, true, nil
	default:
		err := edmerrors.DatasourceMultiValue(doc.TypeName, def.Name, values)
		span.SetStatus(codes.Error, err.Error())
		return model.ResolvedField{}, false, err
	}
}

package docfinity

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/pkg/model"
)

// ResolveDocumentType looks up the document type by category and name.
// Single matches are cached; concurrent lookups of the same key share one
// request. The shared request is detached from any single caller's
// cancellation; each caller stops waiting when its own ctx is done.
func (c *Client) ResolveDocumentType(ctx context.Context, category, name string) (model.DocumentType, error) {
	key := category + "\x00" + name
	if dt, ok := c.types.Get(key); ok {
		return dt, nil
	}

	lookupCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if dt, ok := c.types.Get(key); ok {
			return dt, nil
		}
		dt, err := c.lookupDocumentType(lookupCtx, category, name)
		if err != nil {
			return nil, err
		}
		c.types.Add(key, dt)
		return dt, nil
	})

	select {
	case <-ctx.Done():
		return model.DocumentType{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.DocumentType{}, res.Err
		}
		return res.Val.(model.DocumentType), nil
	}
}

func (c *Client) lookupDocumentType(ctx context.Context, category, name string) (model.DocumentType, error) {
	f, err := json.Marshal(filterGroup{
		Logic: "AND",
		Filters: []filter{
			{Field: "name", Operator: "eq", Value: name},
			{Field: "categoryName", Operator: "eq", Value: category},
		},
	})
	if err != nil {
		return model.DocumentType{}, edmerrors.InternalError("failed to encode filter", err)
	}

	req := request{
		method: http.MethodGet,
		path:   pathDocumentType,
		query:  url.Values{"filter": {string(f)}, "includeNested": {"false"}},
	}
	var page documentTypePage
	if err := c.read(ctx, req, &page); err != nil {
		return model.DocumentType{}, err
	}

	switch len(page.Results) {
	case 0:
		return model.DocumentType{}, edmerrors.DocumentTypeNotFound(category, name)
	case 1:
		dt := page.Results[0].model()
		c.logger.Debug("document type found",
			slog.String("category", category),
			slog.String("document_type", name),
			slog.String("document_type_id", dt.ID))
		return dt, nil
	default:
		return model.DocumentType{}, edmerrors.AmbiguousDocumentType(category, name, len(page.Results))
	}
}

// InvalidateDocumentTypes drops all cached document types.
func (c *Client) InvalidateDocumentTypes() {
	c.types.Purge()
}

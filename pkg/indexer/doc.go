// Package indexer indexes documents into a DocFinity-style document server.
//
// The Indexer sequences the steps of one operation against a [Backend]:
//
//	┌──────────────────────┐
//	│  resolve doc type    │
//	└──────────┬───────────┘
//	           │ (create only: upload file, arm compensating delete)
//	┌──────────▼───────────┐
//	│  fetch field catalog │  (reindex: + existing entries)
//	└──────────┬───────────┘
//	┌──────────▼───────────┐
//	│  builder ← caller    │
//	│  datasources         │
//	│  builder ← resolved  │
//	└──────────┬───────────┘
//	┌──────────▼───────────┐
//	│  validate → submit   │
//	└──────────────────────┘
//
// # Usage
//
//	ix, err := indexer.New(backend, indexer.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	fields, err := model.NewFieldValues(
//	    model.NewFieldValue("Vendor", "ACME"),
//	    model.NewFieldValue("Tags", "urgent", "paper"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	res, err := ix.Create(ctx, indexer.CreateArgs{
//	    Category:     "Finance",
//	    DocumentType: "Invoice",
//	    FilePath:     "invoice.pdf",
//	    Fields:       fields,
//	})
//
// # Concurrency
//
// An Indexer holds no per-operation state and may be shared by goroutines.
// Operations on the same document id must be serialized by the caller.
package indexer

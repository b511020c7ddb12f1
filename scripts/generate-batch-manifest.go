//go:build ignore

// Package main generates a synthetic batch manifest and placeholder files for
// load-testing `edmindex batch` against a test server.
// Usage: go run scripts/generate-batch-manifest.go -items 500 -output testdata/batch
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	numItems     = flag.Int("items", 100, "Number of manifest items to generate")
	outputDir    = flag.String("output", "testdata/batch", "Output directory")
	seed         = flag.Int64("seed", 42, "Random seed for reproducibility")
	category     = flag.String("category", "Finance", "Document type category")
	documentType = flag.String("document-type", "Invoice", "Document type name")
	reindexPct   = flag.Int("reindex-percent", 20, "Share of items that reindex existing documents")
	dateLayout   = flag.String("date-format", "02-01-2006", "Go layout for generated DATE values")
)

var (
	vendors = []string{"ACME", "Globex", "Initech", "Umbrella", "Hooli", "Stark", "Wayne", "Wonka"}
	tags    = []string{"urgent", "q1", "q2", "q3", "q4", "audit", "recurring", "disputed"}
)

// Placeholder content; the server only needs bytes to store.
const placeholderPDF = "%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF\n"

type manifest struct {
	Defaults defaults `yaml:"defaults"`
	Items    []item   `yaml:"items"`
}

type defaults struct {
	Category     string `yaml:"category"`
	DocumentType string `yaml:"document_type"`
}

type item struct {
	Operation  string         `yaml:"operation"`
	DocumentID string         `yaml:"document_id,omitempty"`
	File       string         `yaml:"file,omitempty"`
	Fields     map[string]any `yaml:"fields"`
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	filesDir := filepath.Join(*outputDir, "files")
	if err := os.MkdirAll(filesDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generating %d items in %s...\n", *numItems, *outputDir)

	m := manifest{Defaults: defaults{Category: *category, DocumentType: *documentType}}
	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < *numItems; i++ {
		fields := map[string]any{
			"Vendor ID":    fmt.Sprintf("V-%04d", rng.Intn(10000)),
			"Vendor Name":  vendors[rng.Intn(len(vendors))],
			"Invoice Date": base.AddDate(0, 0, rng.Intn(365)).Format(*dateLayout),
			"Amount":       float64(rng.Intn(1_000_000)) / 100,
			"Tags":         []string{tags[rng.Intn(len(tags))], tags[rng.Intn(len(tags))]},
		}

		if rng.Intn(100) < *reindexPct {
			m.Items = append(m.Items, item{
				Operation:  "reindex",
				DocumentID: fmt.Sprintf("%016X", i),
				Fields:     map[string]any{"Vendor Name": fields["Vendor Name"], "Tags": fields["Tags"]},
			})
			continue
		}

		name := fmt.Sprintf("invoice_%05d.pdf", i)
		if err := os.WriteFile(filepath.Join(filesDir, name), []byte(placeholderPDF), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", name, err)
			os.Exit(1)
		}
		m.Items = append(m.Items, item{Operation: "create", File: filepath.Join("files", name), Fields: fields})
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding manifest: %v\n", err)
		os.Exit(1)
	}
	path := filepath.Join(*outputDir, "manifest.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing manifest: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s (%d items).\n", path, len(m.Items))
}

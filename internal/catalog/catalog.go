// Package catalog provides typed lookup over a document type's field definitions.
package catalog

import (
	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/pkg/model"
)

// Catalog is an immutable, ordered view of a document type's field definitions.
// It is safe for concurrent reads.
type Catalog struct {
	documentType string
	defs         []model.FieldDefinition
	byName       map[string]int
	byID         map[string]int
}

// New builds a Catalog for the named document type. Definition order is
// preserved; when two definitions share a name the first one wins.
func New(documentType string, defs []model.FieldDefinition) *Catalog {
	c := &Catalog{
		documentType: documentType,
		defs:         append([]model.FieldDefinition(nil), defs...),
		byName:       make(map[string]int, len(defs)),
		byID:         make(map[string]int, len(defs)),
	}
	for i, d := range c.defs {
		if _, ok := c.byName[d.Name]; !ok {
			c.byName[d.Name] = i
		}
		if _, ok := c.byID[d.ID]; !ok {
			c.byID[d.ID] = i
		}
	}
	return c
}

// DocumentType returns the document type name the catalog belongs to.
func (c *Catalog) DocumentType() string {
	return c.documentType
}

// Lookup returns the definition for name.
func (c *Catalog) Lookup(name string) (model.FieldDefinition, bool) {
	i, ok := c.byName[name]
	if !ok {
		return model.FieldDefinition{}, false
	}
	return c.defs[i], true
}

// Require returns the definition for name or an UnknownMetadataField error
// listing the available names.
func (c *Catalog) Require(name string) (model.FieldDefinition, error) {
	def, ok := c.Lookup(name)
	if !ok {
		return model.FieldDefinition{}, edmerrors.UnknownMetadataField(c.documentType, name, c.Names())
	}
	return def, nil
}

// ByID returns the definition with the given field id.
func (c *Catalog) ByID(id string) (model.FieldDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.FieldDefinition{}, false
	}
	return c.defs[i], true
}

// Names returns field names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.defs))
	for i, d := range c.defs {
		names[i] = d.Name
	}
	return names
}

// Definitions returns a copy of the definitions in catalog order.
func (c *Catalog) Definitions() []model.FieldDefinition {
	return append([]model.FieldDefinition(nil), c.defs...)
}

// Required returns the required definitions in catalog order.
func (c *Catalog) Required() []model.FieldDefinition {
	var out []model.FieldDefinition
	for _, d := range c.defs {
		if d.Required {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

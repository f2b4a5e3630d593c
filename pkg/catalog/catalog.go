package catalog

import (
	"time"

	"github.com/flowdeckhq/flowdeck/pkg/models"
)

// Catalog aggregates the static node, app and provider registries. It is
// built once at startup and safe for concurrent reads; construct separate
// instances in tests to avoid shared state.
type Catalog struct {
	nodes     map[models.NodeType]NodeDefinition
	nodeOrder []models.NodeType

	apps      []*App
	appsByKey map[string]*App
	synonyms  map[string]string

	tools      []Tool
	toolsByKey map[string]Tool
}

// New builds the catalog with every built-in node type, app and action
// registered.
func New() *Catalog {
	c := &Catalog{
		nodes:      make(map[models.NodeType]NodeDefinition),
		appsByKey:  make(map[string]*App),
		synonyms:   make(map[string]string),
		toolsByKey: make(map[string]Tool),
	}

	c.registerDefaultNodes()
	c.registerDefaultApps()
	c.buildToolCatalog()

	return c
}

func nowReference() time.Time {
	return time.Now().UTC()
}

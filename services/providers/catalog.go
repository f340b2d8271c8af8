package providers

import (
	"sync"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/models"
)

// Catalog is a concurrency-safe model list shared by the adapters
type Catalog struct {
	mu     sync.RWMutex
	models []models.AIModel
}

// Replace swaps in a new catalogue, discarding the previous one
func (c *Catalog) Replace(ms []models.AIModel) {
	cp := make([]models.AIModel, len(ms))
	for i, m := range ms {
		cp[i] = m.Clone()
	}

	c.mu.Lock()
	c.models = cp
	c.mu.Unlock()
}

// Models returns a deep copy of the catalogue
func (c *Catalog) Models() []models.AIModel {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.AIModel, len(c.models))
	for i, m := range c.models {
		out[i] = m.Clone()
	}
	return out
}

// Lookup finds a model by id
func (c *Catalog) Lookup(id string) (models.AIModel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.models {
		if m.ID == id {
			return m.Clone(), true
		}
	}
	return models.AIModel{}, false
}

// IDs returns the model ids in catalogue order
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, len(c.models))
	for i, m := range c.models {
		ids[i] = m.ID
	}
	return ids
}

// Len returns the number of models
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}

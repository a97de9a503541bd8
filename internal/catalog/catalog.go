package catalog

import "strings"

// Catalog is the (type,name) -> Entity map for one book (or, at the series
// root, for the series memory). Iteration order matches insertion order.
type Catalog struct {
	order    []Key
	entities map[Key]*Entity
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{entities: make(map[Key]*Entity)}
}

// Get returns the entity for key, or nil if absent.
func (c *Catalog) Get(key Key) *Entity {
	return c.entities[key]
}

// Len reports the number of entities in the catalog.
func (c *Catalog) Len() int { return len(c.order) }

// All returns entities in insertion order. The returned slice shares no
// backing array with the catalog's internals; callers may retain it.
func (c *Catalog) All() []*Entity {
	out := make([]*Entity, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.entities[k])
	}
	return out
}

// ByType returns entities of the given type in insertion order.
func (c *Catalog) ByType(t EntityType) []*Entity {
	var out []*Entity
	for _, k := range c.order {
		if k.Type == t {
			out = append(out, c.entities[k])
		}
	}
	return out
}

// FindByAlias performs a case-insensitive alias lookup within type. This is
// the direct-match step of MergeEntity and is also exposed for Illustrate's
// prompt-enrichment lookup.
func (c *Catalog) FindByAlias(t EntityType, name string) *Entity {
	folded := foldName(name)
	for _, k := range c.order {
		if k.Type != t {
			continue
		}
		e := c.entities[k]
		if e.HasAlias(folded) {
			return e
		}
	}
	return nil
}

// FindAny performs FindByAlias across every entity type, for callers (the
// Illustrate prompt enricher, Extract's shard reconciliation) that have a
// bare name with no known type.
func (c *Catalog) FindAny(name string) *Entity {
	for _, t := range typeOrder {
		if e := c.FindByAlias(t, name); e != nil {
			return e
		}
	}
	return nil
}

// insert adds a brand-new entity, keyed by its current (folded) name.
func (c *Catalog) insert(e *Entity) {
	key := Key{Type: e.Type, Name: foldName(e.Name)}
	c.order = append(c.order, key)
	c.entities[key] = e
}

// foldName is the canonical name form used throughout: lowercase, trimmed.
// Aliases are always stored folded; Entity.Name keeps its original casing
// for display.
func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

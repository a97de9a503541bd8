package catalog

import "encoding/json"

// entitySnapshot is the on-disk shape for one entity, keyed separately so
// the JSON file preserves insertion order as an explicit array rather than
// relying on Go map iteration (which is randomized).
type entitySnapshot struct {
	Entity
}

// snapshot is the full on-disk shape of .elements-memory.json /
// .series-elements-memory.json.
type snapshot struct {
	Version  int              `json:"version"`
	Entities []entitySnapshot `json:"entities"`
}

const snapshotVersion = 1

// MarshalJSON serializes the catalog preserving insertion order.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	snap := snapshot{Version: snapshotVersion}
	for _, e := range c.All() {
		snap.Entities = append(snap.Entities, entitySnapshot{Entity: *e})
	}
	return json.Marshal(snap)
}

// UnmarshalJSON restores a catalog from its on-disk shape, preserving the
// stored insertion order.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	c.order = nil
	c.entities = make(map[Key]*Entity, len(snap.Entities))
	for i := range snap.Entities {
		e := snap.Entities[i].Entity
		c.insert(&e)
	}
	return nil
}

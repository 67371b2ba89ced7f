package fixture

import "fmt"

// Cluster is one citation request: a group of cites rendered together.
// Cites keep their per-cite properties untouched.
type Cluster struct {
	ID         int              `json:"id"`
	NoteNumber int              `json:"note_number"`
	Cites      []map[string]any `json:"cites"`
}

// IsInteractive reports whether the fixture drives the processor with a
// sequence of citation updates rather than a fixed cluster list.
func (f *Fixture) IsInteractive() bool {
	return f.Citations != nil
}

// Clusters derives the cluster list for non-interactive runs. Each
// CITATION-ITEMS group n becomes cluster n in note n. Without any citation
// data, one cluster cites every input item in order. Interactive fixtures
// return nil; their instructions are in Citations.
func (f *Fixture) Clusters() ([]Cluster, error) {
	if f.CitationItems != nil {
		clusters := make([]Cluster, 0, len(f.CitationItems))
		for i, g := range f.CitationItems {
			group, ok := g.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: citation-items[%d] is %T, want a list", ErrInvalidPayload, i, g)
			}
			cites := make([]map[string]any, 0, len(group))
			for j, c := range group {
				cite, ok := c.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%w: citation-items[%d][%d] is %T, want an object", ErrInvalidPayload, i, j, c)
				}
				cites = append(cites, cite)
			}
			clusters = append(clusters, Cluster{ID: i + 1, NoteNumber: i + 1, Cites: cites})
		}
		return clusters, nil
	}
	if f.IsInteractive() {
		return nil, nil
	}

	cites := make([]map[string]any, 0, len(f.Input))
	for _, it := range f.Input {
		id, ok := it.ID()
		if !ok {
			continue
		}
		cites = append(cites, map[string]any{"id": id})
	}
	return []Cluster{{ID: 1, NoteNumber: 1, Cites: cites}}, nil
}

// ItemIDs returns the ids of every input item in file order, skipping items
// without an id.
func (f *Fixture) ItemIDs() []string {
	ids := make([]string, 0, len(f.Input))
	for _, it := range f.Input {
		if id, ok := it.ID(); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

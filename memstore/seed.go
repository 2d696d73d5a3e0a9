package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/nisimpson/attrstore"
)

// SeedItem is one item of a seed document. Attribute values may be given as a single
// string or as an array of strings:
//
//	[
//	  {"domain": "notes", "name": "n-1", "attributes": {"Title": "hello", "tags": ["a", "b"]}}
//	]
type SeedItem struct {
	Domain     string                `json:"domain"`
	Name       string                `json:"name"`
	Attributes map[string]seedValues `json:"attributes,omitempty"`
}

type seedValues []string

func (v *seedValues) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*v = seedValues{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("attribute values must be a string or an array of strings: %w", err)
	}
	*v = many
	return nil
}

// SeedJSON reads a JSON array of SeedItem from r and stores each item, creating domains
// as needed. Seeded attributes replace any values already stored under the same names.
// Returns the number of items stored.
func (s *Store) SeedJSON(ctx context.Context, r io.Reader) (int, error) {
	var document []SeedItem
	if err := json.NewDecoder(r).Decode(&document); err != nil {
		return 0, fmt.Errorf("failed to parse seed document: %w", err)
	}

	for i, seed := range document {
		if seed.Domain == "" {
			return 0, fmt.Errorf("seed item at index %d missing required 'domain' field", i)
		}
		if seed.Name == "" {
			return 0, fmt.Errorf("seed item at index %d missing required 'name' field", i)
		}
	}

	count := 0
	for _, seed := range document {
		if err := s.CreateDomain(ctx, seed.Domain); err != nil {
			return count, fmt.Errorf("failed to create domain %s: %w", seed.Domain, err)
		}
		if err := s.BatchPut(ctx, seed.Domain, []attrstore.Item{seed.item()}); err != nil {
			return count, fmt.Errorf("failed to seed item %s/%s: %w", seed.Domain, seed.Name, err)
		}
		count++
	}
	return count, nil
}

func (seed SeedItem) item() attrstore.Item {
	names := make([]string, 0, len(seed.Attributes))
	for name := range seed.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	item := attrstore.Item{Name: seed.Name}
	for _, name := range names {
		for i, value := range seed.Attributes[name] {
			item.Attributes = append(item.Attributes, attrstore.Attribute{
				Name:    name,
				Value:   value,
				Replace: i == 0,
			})
		}
	}
	return item
}

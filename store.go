package attrstore

import (
	"context"
	"strings"
)

// MaxBatchSize is the largest number of items a store adapter sends in a single batch
// request. Adapters split larger batches.
const MaxBatchSize = 25

// Store is a schemaless key/attribute store organised into domains. Implementations
// must be safe for concurrent use.
type Store interface {
	// CreateDomain creates the named domain. Creating a domain that exists is not an error.
	CreateDomain(ctx context.Context, name string) error

	// Select returns one page of items. An empty NextToken in the output means there
	// are no further pages.
	Select(ctx context.Context, in *SelectInput) (*SelectOutput, error)

	// BatchPut writes items into domain. For every attribute name of a put item that
	// has at least one Replace attribute, all values previously stored under that name
	// are discarded before the new values are added. Other values are appended.
	BatchPut(ctx context.Context, domain string, items []Item) error

	// BatchDelete removes the named items from domain. Names that do not exist are ignored.
	BatchDelete(ctx context.Context, domain string, names []string) error
}

// SelectInput describes one page request.
type SelectInput struct {
	Domain         string // The domain to read
	ItemName       string // If set, only the item with this name is returned
	NextToken      string // Continuation token from the previous page
	ConsistentRead bool   // Observe all writes completed before the read
	Limit          int    // Optional page size hint; zero lets the store decide
}

// Expression renders the input as a select expression, e.g.
//
//	select * from `notes` where itemName() = 'n-1'
func (in *SelectInput) Expression() string {
	var sb strings.Builder
	sb.WriteString("select * from `")
	sb.WriteString(strings.ReplaceAll(in.Domain, "`", "``"))
	sb.WriteString("`")
	if in.ItemName != "" {
		sb.WriteString(" where itemName() = '")
		sb.WriteString(strings.ReplaceAll(in.ItemName, "'", "''"))
		sb.WriteString("'")
	}
	return sb.String()
}

// SelectOutput is one page of select results.
type SelectOutput struct {
	Items     []Item
	NextToken string
}

// ApplyAttributes merges put into existing using the replace rules of Store.BatchPut and
// returns the resulting attribute list. existing is not modified.
func ApplyAttributes(existing, put []Attribute) []Attribute {
	replaced := make(map[string]bool)
	for _, attr := range put {
		if attr.Replace {
			replaced[attr.Name] = true
		}
	}

	merged := make([]Attribute, 0, len(existing)+len(put))
	for _, attr := range existing {
		if !replaced[attr.Name] {
			attr.Replace = false
			merged = append(merged, attr)
		}
	}
	for _, attr := range put {
		attr.Replace = false
		merged = append(merged, attr)
	}
	return merged
}

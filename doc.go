// Package attrstore persists Go structs in schemaless key/attribute stores such as
// Amazon SimpleDB, where every item is an item name plus a multimap of string
// attributes with a bounded value length.
//
// # Key Concepts
//
// Record types are plain structs. The mapper reads the attr struct tag to find the
// single key field (stored as the item name) and the persistable fields (stored as
// attributes named after the field):
//
//	type Note struct {
//	    ID      string `attr:",key"`
//	    Title   string
//	    Body    string `attr:"body"`
//	    Draft   string `attr:"-"`
//	    Created time.Time
//	}
//
// Field values are formatted as strings. Values longer than MaxChunkSize runes are
// split into ordered chunks, each prefixed with a marker:
//
//	| name | value                    | replace |
//	| ==== | ======================== | ======= |
//	| body | [Sort0]first 500 runes.. | true    |
//	| body | [Sort1]next 500 runes..  | false   |
//	| body | [Sort2]remaining runes   | false   |
//
// The first chunk is authoritative: storing it discards every value previously held
// under the same name, so a value that shrinks leaves no stale chunks behind.
//
// # Basic Usage
//
//	store := memstore.New()
//	notes, err := attrstore.New[Note, string](store)
//	err = notes.EnsureDomain(ctx)
//	err = notes.Save(ctx, Note{ID: "n-1", Title: "hello"})
//	note, found, err := notes.Get(ctx, "n-1")
//	all, err := notes.GetAll(ctx)
//	err = notes.Delete(ctx, "n-1")
//
// # Stores
//
// Providers talk to a Store. The memstore package holds items in memory, the
// dynamostore package keeps each domain in a DynamoDB table, and Instrument wraps any
// Store with prometheus metrics.
package attrstore

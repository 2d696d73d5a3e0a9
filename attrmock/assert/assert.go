// Package assert provides fluent assertions over attrstore items. It keeps store and
// provider tests short when checking chunked values and replace flags.
//
// # Usage
//
//	import "github.com/nisimpson/attrstore/attrmock/assert"
//
//	// Assert on a page of items
//	assert.Items(t, out.Items).
//		HasCount(2).
//		ContainsItem("n-1").
//		HasAttribute("n-1", "Title", "hello")
//
//	// Assert on a single item
//	assert.Item(t, item).
//		HasName("n-1").
//		HasChunks("body", 3).
//		Decodes("body", body)
package assert

import (
	"slices"
	"testing"

	"github.com/nisimpson/attrstore"
)

// ItemsAssertion provides fluent assertions for a list of items.
type ItemsAssertion struct {
	t     testing.TB
	items []attrstore.Item
}

// Items creates a new ItemsAssertion for the given items.
func Items(t testing.TB, items []attrstore.Item) *ItemsAssertion {
	return &ItemsAssertion{
		t:     t,
		items: items,
	}
}

// HasCount asserts that the list holds the expected number of items.
func (a *ItemsAssertion) HasCount(expected int) *ItemsAssertion {
	a.t.Helper()
	if len(a.items) != expected {
		a.t.Errorf("expected %d items, got %d", expected, len(a.items))
	}
	return a
}

// IsEmpty asserts that the list is empty.
func (a *ItemsAssertion) IsEmpty() *ItemsAssertion {
	a.t.Helper()
	return a.HasCount(0)
}

// HasNames asserts the item names, in order.
func (a *ItemsAssertion) HasNames(expected ...string) *ItemsAssertion {
	a.t.Helper()
	names := make([]string, len(a.items))
	for i, item := range a.items {
		names[i] = item.Name
	}
	if !slices.Equal(names, expected) {
		a.t.Errorf("expected item names %v, got %v", expected, names)
	}
	return a
}

// ContainsItem asserts that an item with the given name is present.
func (a *ItemsAssertion) ContainsItem(name string) *ItemsAssertion {
	a.t.Helper()
	if _, ok := a.find(name); !ok {
		a.t.Errorf("expected item %s not found", name)
	}
	return a
}

// HasAttribute asserts that the named item stores exactly one value for attr and that
// the value equals expected.
func (a *ItemsAssertion) HasAttribute(name, attr, expected string) *ItemsAssertion {
	a.t.Helper()
	item, ok := a.find(name)
	if !ok {
		a.t.Errorf("expected item %s not found", name)
		return a
	}
	Item(a.t, item).HasValues(attr, expected)
	return a
}

func (a *ItemsAssertion) find(name string) (attrstore.Item, bool) {
	for _, item := range a.items {
		if item.Name == name {
			return item, true
		}
	}
	return attrstore.Item{}, false
}

// ItemAssertion provides fluent assertions for a single item.
type ItemAssertion struct {
	t    testing.TB
	item attrstore.Item
}

// Item creates a new ItemAssertion for the given item.
func Item(t testing.TB, item attrstore.Item) *ItemAssertion {
	return &ItemAssertion{
		t:    t,
		item: item,
	}
}

// HasName asserts the item name.
func (a *ItemAssertion) HasName(expected string) *ItemAssertion {
	a.t.Helper()
	if a.item.Name != expected {
		a.t.Errorf("expected item name %s, got %s", expected, a.item.Name)
	}
	return a
}

// HasValues asserts the values stored under attr, in stored order.
func (a *ItemAssertion) HasValues(attr string, expected ...string) *ItemAssertion {
	a.t.Helper()
	if got := a.item.Values(attr); !slices.Equal(got, expected) {
		a.t.Errorf("expected %s values %q, got %q", attr, expected, got)
	}
	return a
}

// HasChunks asserts the number of values stored under attr.
func (a *ItemAssertion) HasChunks(attr string, expected int) *ItemAssertion {
	a.t.Helper()
	if got := len(a.item.Values(attr)); got != expected {
		a.t.Errorf("expected %d %s chunks, got %d", expected, attr, got)
	}
	return a
}

// LacksAttribute asserts that nothing is stored under attr.
func (a *ItemAssertion) LacksAttribute(attr string) *ItemAssertion {
	a.t.Helper()
	if got := a.item.Values(attr); len(got) > 0 {
		a.t.Errorf("expected no %s values, got %q", attr, got)
	}
	return a
}

// Decodes asserts that the values under attr reassemble into expected.
func (a *ItemAssertion) Decodes(attr, expected string) *ItemAssertion {
	a.t.Helper()
	got, err := attrstore.Decode(attr, a.item.Values(attr))
	if err != nil {
		a.t.Errorf("failed to decode %s: %v", attr, err)
		return a
	}
	if got != expected {
		a.t.Errorf("expected %s to decode to %q, got %q", attr, expected, got)
	}
	return a
}

// ReplacesOnly asserts that exactly the named attributes carry a Replace flag and that
// each flag is on the first value of its name.
func (a *ItemAssertion) ReplacesOnly(attrs ...string) *ItemAssertion {
	a.t.Helper()
	seen := make(map[string]bool)
	var replaced []string
	for _, attr := range a.item.Attributes {
		first := !seen[attr.Name]
		seen[attr.Name] = true
		if !attr.Replace {
			continue
		}
		if !first {
			a.t.Errorf("expected replace flag on first %s value only", attr.Name)
		}
		replaced = append(replaced, attr.Name)
	}

	slices.Sort(replaced)
	want := slices.Clone(attrs)
	slices.Sort(want)
	if !slices.Equal(replaced, want) {
		a.t.Errorf("expected replaced attributes %v, got %v", want, replaced)
	}
	return a
}

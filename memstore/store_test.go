package memstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/nisimpson/attrstore"
	"github.com/nisimpson/attrstore/attrmock/assert"
)

func TestStore_CreateDomain(t *testing.T) {
	ctx := context.Background()
	store := New()

	for i := 0; i < 2; i++ {
		if err := store.CreateDomain(ctx, "notes"); err != nil {
			t.Fatalf("Attempt %d: unexpected error: %v", i, err)
		}
	}
	if err := store.CreateDomain(ctx, ""); err == nil {
		t.Error("Expected error for empty domain name")
	}

	if got := store.Domains(); !reflect.DeepEqual(got, []string{"notes"}) {
		t.Errorf("Expected [notes], got %v", got)
	}

	if err := store.DeleteDomain(ctx, "notes"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := store.Domains(); len(got) != 0 {
		t.Errorf("Expected no domains, got %v", got)
	}
}

func TestStore_MissingDomain(t *testing.T) {
	ctx := context.Background()
	store := New()

	if _, err := store.Select(ctx, &attrstore.SelectInput{Domain: "nope"}); !errors.Is(err, ErrNoSuchDomain) {
		t.Errorf("Expected ErrNoSuchDomain from Select, got %v", err)
	}
	if err := store.BatchPut(ctx, "nope", []attrstore.Item{{Name: "a"}}); !errors.Is(err, ErrNoSuchDomain) {
		t.Errorf("Expected ErrNoSuchDomain from BatchPut, got %v", err)
	}
	if err := store.BatchDelete(ctx, "nope", []string{"a"}); !errors.Is(err, ErrNoSuchDomain) {
		t.Errorf("Expected ErrNoSuchDomain from BatchDelete, got %v", err)
	}
}

func TestStore_BatchPutReplaceRules(t *testing.T) {
	ctx := context.Background()
	store := New()
	if err := store.CreateDomain(ctx, "notes"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	put := func(attrs ...attrstore.Attribute) {
		t.Helper()
		if err := store.BatchPut(ctx, "notes", []attrstore.Item{{Name: "n-1", Attributes: attrs}}); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	values := func(name string) []string {
		t.Helper()
		out, err := store.Select(ctx, &attrstore.SelectInput{Domain: "notes", ItemName: "n-1"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(out.Items) != 1 {
			t.Fatalf("Expected 1 item, got %d", len(out.Items))
		}
		return out.Items[0].Values(name)
	}

	put(attrstore.Encode("body", strings.Repeat("x", 1200))...)
	out, err := store.Select(ctx, &attrstore.SelectInput{Domain: "notes", ItemName: "n-1"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	assert.Items(t, out.Items).HasCount(1)
	assert.Item(t, out.Items[0]).
		HasChunks("body", 3).
		Decodes("body", strings.Repeat("x", 1200)).
		ReplacesOnly()

	put(attrstore.Encode("body", "short")...)
	if got := values("body"); !reflect.DeepEqual(got, []string{"short"}) {
		t.Errorf("Expected [short], got %v", got)
	}

	put(attrstore.Attribute{Name: "tags", Value: "a"})
	put(attrstore.Attribute{Name: "tags", Value: "b"})
	if got := values("tags"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Expected [a b], got %v", got)
	}
	if got := values("body"); !reflect.DeepEqual(got, []string{"short"}) {
		t.Errorf("Expected body untouched by other puts, got %v", got)
	}

	if err := store.BatchPut(ctx, "notes", []attrstore.Item{{Name: ""}}); err == nil {
		t.Error("Expected error for empty item name")
	}
}

func TestStore_SelectPaging(t *testing.T) {
	ctx := context.Background()
	store := New(WithPageSize(3))
	if err := store.CreateDomain(ctx, "notes"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var items []attrstore.Item
	for i := 0; i < 8; i++ {
		items = append(items, attrstore.Item{Name: fmt.Sprintf("n-%d", i)})
	}
	if err := store.BatchPut(ctx, "notes", items); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var (
		names []string
		pages int
		in    = attrstore.SelectInput{Domain: "notes", ConsistentRead: true}
	)
	for {
		out, err := store.Select(ctx, &in)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		pages++
		for _, item := range out.Items {
			names = append(names, item.Name)
		}
		if out.NextToken == "" {
			break
		}
		in.NextToken = out.NextToken
	}

	if pages != 3 {
		t.Errorf("Expected 3 pages, got %d", pages)
	}
	want := []string{"n-0", "n-1", "n-2", "n-3", "n-4", "n-5", "n-6", "n-7"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Expected %v, got %v", want, names)
	}

	t.Run("request limit overrides page size", func(t *testing.T) {
		out, err := store.Select(ctx, &attrstore.SelectInput{Domain: "notes", Limit: 8})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(out.Items) != 8 || out.NextToken != "" {
			t.Errorf("Expected one full page, got %d items and token %q", len(out.Items), out.NextToken)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := store.Select(ctx, &attrstore.SelectInput{Domain: "notes", NextToken: "%%%"})
		if err == nil {
			t.Error("Expected error for invalid token")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := store.Select(cctx, &attrstore.SelectInput{Domain: "notes"}); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}

func TestStore_SelectReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := New()
	if err := store.CreateDomain(ctx, "notes"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := store.BatchPut(ctx, "notes", []attrstore.Item{{
		Name:       "n-1",
		Attributes: []attrstore.Attribute{{Name: "title", Value: "original", Replace: true}},
	}}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	out, _ := store.Select(ctx, &attrstore.SelectInput{Domain: "notes", ItemName: "n-1"})
	out.Items[0].Attributes[0].Value = "changed"

	out, _ = store.Select(ctx, &attrstore.SelectInput{Domain: "notes", ItemName: "n-1"})
	if got := out.Items[0].Values("title"); got[0] != "original" {
		t.Errorf("Expected stored value to be unchanged, got %s", got[0])
	}
}

func TestStore_BatchDelete(t *testing.T) {
	ctx := context.Background()
	store := New()
	if err := store.CreateDomain(ctx, "notes"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := store.BatchPut(ctx, "notes", []attrstore.Item{{Name: "a"}, {Name: "b"}}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := store.BatchDelete(ctx, "notes", []string{"a", "missing"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	out, err := store.Select(ctx, &attrstore.SelectInput{Domain: "notes"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	assert.Items(t, out.Items).HasNames("b")
}

func TestStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := New()
	if err := store.CreateDomain(ctx, "notes"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			item := attrstore.Item{Name: fmt.Sprintf("n-%d", i), Attributes: attrstore.Encode("v", "x")}
			if err := store.BatchPut(ctx, "notes", []attrstore.Item{item}); err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := store.Select(ctx, &attrstore.SelectInput{Domain: "notes"}); err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	out, err := store.Select(ctx, &attrstore.SelectInput{Domain: "notes"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(out.Items) != 20 {
		t.Errorf("Expected 20 items, got %d", len(out.Items))
	}
}

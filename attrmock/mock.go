// Package attrmock provides an expectation-style mock of attrstore.Store for unit tests.
// Every operation is backed by a func field; fields left at their defaults fail the
// test when called.
package attrmock

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/nisimpson/attrstore"
)

// MockStore is a simple expectation-based mock for attrstore.Store.
type MockStore struct {
	CreateDomainFunc func(ctx context.Context, name string) error
	SelectFunc       func(ctx context.Context, in *attrstore.SelectInput) (*attrstore.SelectOutput, error)
	BatchPutFunc     func(ctx context.Context, domain string, items []attrstore.Item) error
	BatchDeleteFunc  func(ctx context.Context, domain string, names []string) error

	mu    sync.Mutex
	calls map[string]int
}

// Ensure MockStore implements attrstore.Store
var _ attrstore.Store = (*MockStore)(nil)

// NewMockStore creates a mock whose operations all fail the test until replaced.
func NewMockStore(t testing.TB) *MockStore {
	return &MockStore{
		CreateDomainFunc: func(context.Context, string) error {
			t.Fatal("unexpected call to CreateDomain")
			return nil
		},
		SelectFunc: func(context.Context, *attrstore.SelectInput) (*attrstore.SelectOutput, error) {
			t.Fatal("unexpected call to Select")
			return nil, nil
		},
		BatchPutFunc: func(context.Context, string, []attrstore.Item) error {
			t.Fatal("unexpected call to BatchPut")
			return nil
		},
		BatchDeleteFunc: func(context.Context, string, []string) error {
			t.Fatal("unexpected call to BatchDelete")
			return nil
		},
	}
}

// Calls returns the number of times the named operation was invoked.
func (m *MockStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockStore) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

// CreateDomain invokes CreateDomainFunc.
func (m *MockStore) CreateDomain(ctx context.Context, name string) error {
	m.record("CreateDomain")
	return m.CreateDomainFunc(ctx, name)
}

// Select invokes SelectFunc.
func (m *MockStore) Select(ctx context.Context, in *attrstore.SelectInput) (*attrstore.SelectOutput, error) {
	m.record("Select")
	return m.SelectFunc(ctx, in)
}

// BatchPut invokes BatchPutFunc.
func (m *MockStore) BatchPut(ctx context.Context, domain string, items []attrstore.Item) error {
	m.record("BatchPut")
	return m.BatchPutFunc(ctx, domain, items)
}

// BatchDelete invokes BatchDeleteFunc.
func (m *MockStore) BatchDelete(ctx context.Context, domain string, names []string) error {
	m.record("BatchDelete")
	return m.BatchDeleteFunc(ctx, domain, names)
}

// Pages returns a SelectFunc that serves pages in order. Page i carries the token
// "page-{i+1}" when another page follows it. A request whose NextToken does not
// name a page fails the test.
func Pages(t testing.TB, pages ...[]attrstore.Item) func(context.Context, *attrstore.SelectInput) (*attrstore.SelectOutput, error) {
	return func(ctx context.Context, in *attrstore.SelectInput) (*attrstore.SelectOutput, error) {
		index := 0
		if in.NextToken != "" {
			index = pageIndex(in.NextToken)
			if index <= 0 || index >= len(pages) {
				t.Fatalf("unexpected next token %q", in.NextToken)
				return nil, nil
			}
		}

		out := &attrstore.SelectOutput{}
		if index < len(pages) {
			out.Items = pages[index]
		}
		if index+1 < len(pages) {
			out.NextToken = "page-" + strconv.Itoa(index+1)
		}
		return out, nil
	}
}

func pageIndex(token string) int {
	digits, ok := strings.CutPrefix(token, "page-")
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return -1
	}
	return n
}

// Package memstore provides an in-memory attrstore.Store with SimpleDB semantics.
// It is intended for tests and local development.
package memstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/nisimpson/attrstore"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// DefaultPageSize is the number of items returned per select page when neither the
// store nor the request sets a limit.
const DefaultPageSize = 100

// ErrNoSuchDomain is returned when an operation targets a domain that was never created.
var ErrNoSuchDomain = errors.New("memstore: no such domain")

// Options configures a Store.
type Options struct {
	PageSize int         // Items per select page. Default is DefaultPageSize.
	Logger   *zap.Logger // Default is a no-op logger
}

// WithPageSize sets the number of items returned per select page.
func WithPageSize(n int) func(*Options) {
	return func(o *Options) {
		o.PageSize = n
	}
}

// WithLogger sets the store's logger.
func WithLogger(logger *zap.Logger) func(*Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Store keeps domains in memory. All reads are consistent.
type Store struct {
	domains *xsync.MapOf[string, *domain]
	opts    Options
}

type domain struct {
	mu    sync.RWMutex
	items map[string][]attrstore.Attribute
}

// Ensure Store implements attrstore.Store
var _ attrstore.Store = (*Store)(nil)

// New creates an empty Store.
func New(opts ...func(*Options)) *Store {
	options := Options{PageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&options)
	}
	if options.PageSize <= 0 {
		options.PageSize = DefaultPageSize
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	return &Store{
		domains: xsync.NewMapOf[string, *domain](),
		opts:    options,
	}
}

// CreateDomain creates the named domain if it does not exist.
func (s *Store) CreateDomain(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("invalid domain name: empty")
	}
	_, loaded := s.domains.LoadOrStore(name, &domain{items: make(map[string][]attrstore.Attribute)})
	if !loaded {
		s.opts.Logger.Debug("created domain", zap.String("domain", name))
	}
	return nil
}

// DeleteDomain removes the named domain and all of its items.
func (s *Store) DeleteDomain(ctx context.Context, name string) error {
	s.domains.Delete(name)
	return nil
}

// Domains returns the names of all domains in sorted order.
func (s *Store) Domains() []string {
	var names []string
	s.domains.Range(func(name string, _ *domain) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

func (s *Store) domain(name string) (*domain, error) {
	d, ok := s.domains.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchDomain, name)
	}
	return d, nil
}

// Select returns one page of items in item name order.
func (s *Store) Select(ctx context.Context, in *attrstore.SelectInput) (*attrstore.SelectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := s.domain(in.Domain)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if in.ItemName != "" {
		out := &attrstore.SelectOutput{}
		if attrs, ok := d.items[in.ItemName]; ok {
			out.Items = []attrstore.Item{newItem(in.ItemName, attrs)}
		}
		return out, nil
	}

	after, err := decodeToken(in.NextToken)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(d.items))
	for name := range d.items {
		names = append(names, name)
	}
	sort.Strings(names)

	start := 0
	if in.NextToken != "" {
		start = sort.Search(len(names), func(i int) bool { return names[i] > after })
	}

	limit := s.opts.PageSize
	if in.Limit > 0 {
		limit = in.Limit
	}
	end := min(start+limit, len(names))

	out := &attrstore.SelectOutput{
		Items: make([]attrstore.Item, 0, end-start),
	}
	for _, name := range names[start:end] {
		out.Items = append(out.Items, newItem(name, d.items[name]))
	}
	if end < len(names) {
		out.NextToken = encodeToken(names[end-1])
	}
	return out, nil
}

// BatchPut writes items, applying attribute replace rules per name.
func (s *Store) BatchPut(ctx context.Context, domainName string, items []attrstore.Item) error {
	d, err := s.domain(domainName)
	if err != nil {
		return err
	}

	for _, item := range items {
		if item.Name == "" {
			return fmt.Errorf("invalid item name: empty")
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, item := range items {
		d.items[item.Name] = attrstore.ApplyAttributes(d.items[item.Name], item.Attributes)
	}

	s.opts.Logger.Debug("put items",
		zap.String("domain", domainName),
		zap.Int("items", len(items)),
	)
	return nil
}

// BatchDelete removes the named items.
func (s *Store) BatchDelete(ctx context.Context, domainName string, names []string) error {
	d, err := s.domain(domainName)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, name := range names {
		delete(d.items, name)
	}

	s.opts.Logger.Debug("deleted items",
		zap.String("domain", domainName),
		zap.Int("items", len(names)),
	)
	return nil
}

func newItem(name string, attrs []attrstore.Attribute) attrstore.Item {
	return attrstore.Item{Name: name, Attributes: slices.Clone(attrs)}
}

func encodeToken(after string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(after))
}

func decodeToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("invalid next token: %w", err)
	}
	return string(b), nil
}

package attrstore

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of records converted in parallel when Options.Concurrency
// is not set.
const DefaultConcurrency = 8

// Options configures a Provider.
type Options struct {
	DomainName  string      // Overrides the domain name derived from the record type
	Logger      *zap.Logger // Default is a no-op logger
	Concurrency int         // Maximum parallel record conversions. Default is DefaultConcurrency.
	Mapper      *Mapper     // Entity map cache. Default is DefaultMapper.
	Codec       Codec       // Value chunking. Default is DefaultCodec.
}

// WithDomainName overrides the provider's domain name.
func WithDomainName(name string) func(*Options) {
	return func(o *Options) {
		o.DomainName = name
	}
}

// WithLogger sets the provider's logger.
func WithLogger(logger *zap.Logger) func(*Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

func newOptions(opts []func(*Options)) Options {
	options := Options{
		Concurrency: DefaultConcurrency,
		Codec:       DefaultCodec,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Mapper == nil {
		options.Mapper = DefaultMapper
	}
	if options.Concurrency <= 0 {
		options.Concurrency = DefaultConcurrency
	}
	return options
}

// Provider persists records of type T, identified by values of type K, in a single
// store domain. K must be the type of T's key field. A Provider is safe for concurrent
// use if its Store is.
type Provider[T, K any] struct {
	store  Store
	entity *EntityMap
	domain string
	opts   Options
}

// New creates a Provider for T. The entity map is derived immediately, so a record type
// with a missing or duplicated key field fails here, before any store call.
func New[T, K any](store Store, opts ...func(*Options)) (*Provider[T, K], error) {
	options := newOptions(opts)

	entity, err := options.Mapper.Map(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}

	if kt := reflect.TypeFor[K](); kt != entity.Key.Type {
		return nil, &MappingError{
			Type:  entity.Type,
			Field: entity.Key.Name,
			Err:   fmt.Errorf("%w: got %v, want %v", ErrKeyType, kt, entity.Key.Type),
		}
	}

	domain := entity.Domain
	if options.DomainName != "" {
		domain = options.DomainName
	}

	return &Provider[T, K]{
		store:  store,
		entity: entity,
		domain: domain,
		opts:   options,
	}, nil
}

// DomainName returns the domain the provider reads and writes.
func (p *Provider[T, K]) DomainName() string {
	return p.domain
}

// EntityMap returns the mapping of T.
func (p *Provider[T, K]) EntityMap() *EntityMap {
	return p.entity
}

// EnsureDomain creates the provider's domain if it does not exist.
func (p *Provider[T, K]) EnsureDomain(ctx context.Context) error {
	if err := p.store.CreateDomain(ctx, p.domain); err != nil {
		return &StoreError{Op: "CreateDomain", Domain: p.domain, Err: err}
	}
	p.opts.Logger.Debug("domain ready", zap.String("domain", p.domain))
	return nil
}

// Get returns the record identified by id. The boolean result is false if no such
// record exists.
func (p *Provider[T, K]) Get(ctx context.Context, id K) (T, bool, error) {
	var zero T

	name, err := p.itemName(id)
	if err != nil {
		return zero, false, err
	}

	items, err := fetchAll(ctx, p.store, SelectInput{Domain: p.domain, ItemName: name}, p.opts.Logger)
	if err != nil {
		return zero, false, err
	}

	for _, item := range items {
		if item.Name != name {
			continue
		}
		var record T
		if err := p.opts.Codec.UnmarshalItem(p.entity, item, &record); err != nil {
			return zero, false, err
		}
		return record, true, nil
	}
	return zero, false, nil
}

// GetAll returns every record in the domain, in the order the store reports them.
// If any item fails to convert, no records are returned.
func (p *Provider[T, K]) GetAll(ctx context.Context) ([]T, error) {
	items, err := fetchAll(ctx, p.store, SelectInput{Domain: p.domain}, p.opts.Logger)
	if err != nil {
		return nil, err
	}

	records := make([]T, len(items))
	err = p.each(len(items), func(i int) error {
		return p.opts.Codec.UnmarshalItem(p.entity, items[i], &records[i])
	})
	if err != nil {
		return nil, err
	}

	p.opts.Logger.Debug("fetched records",
		zap.String("domain", p.domain),
		zap.Int("items", len(records)),
	)
	return records, nil
}

// Save writes records in a single batch. Each record replaces the attributes previously
// stored for its fields. If any record fails to convert, nothing is written.
func (p *Provider[T, K]) Save(ctx context.Context, records ...T) error {
	if len(records) == 0 {
		return nil
	}

	items := make([]Item, len(records))
	err := p.each(len(records), func(i int) (err error) {
		items[i], err = p.opts.Codec.MarshalItem(p.entity, &records[i])
		return err
	})
	if err != nil {
		return err
	}

	if err := p.store.BatchPut(ctx, p.domain, items); err != nil {
		return &StoreError{Op: "BatchPut", Domain: p.domain, Err: err}
	}

	p.opts.Logger.Debug("saved records",
		zap.String("domain", p.domain),
		zap.Int("items", len(items)),
	)
	return nil
}

// Delete removes the records identified by ids. Identifiers with no stored record are
// ignored.
func (p *Provider[T, K]) Delete(ctx context.Context, ids ...K) error {
	if len(ids) == 0 {
		return nil
	}

	names := make([]string, len(ids))
	for i, id := range ids {
		name, err := p.itemName(id)
		if err != nil {
			return err
		}
		names[i] = name
	}

	if err := p.store.BatchDelete(ctx, p.domain, names); err != nil {
		return &StoreError{Op: "BatchDelete", Domain: p.domain, Err: err}
	}

	p.opts.Logger.Debug("deleted records",
		zap.String("domain", p.domain),
		zap.Int("items", len(names)),
	)
	return nil
}

func (p *Provider[T, K]) itemName(id K) (string, error) {
	name, err := formatValue(p.entity.Key.Kind, reflect.ValueOf(id))
	if err != nil {
		return "", &ConversionError{Field: p.entity.Key.Name, Err: err}
	}
	if name == "" {
		return "", &ConversionError{Field: p.entity.Key.Name, Err: ErrEmptyKey}
	}
	return name, nil
}

// each runs fn for every index in [0, n) on up to Options.Concurrency goroutines and
// returns the first error.
func (p *Provider[T, K]) each(n int, fn func(i int) error) error {
	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			return fn(i)
		})
	}
	return g.Wait()
}

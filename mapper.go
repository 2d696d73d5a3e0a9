package attrstore

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// TagName is the struct tag read by the mapper. The tag value is the attribute name
// followed by options:
//
//	ID      string `attr:",key"`         // the item name; stored as the identifier, not an attribute
//	Title   string `attr:"title"`        // stored under the "title" attribute
//	Body    string                       // stored under the "Body" attribute
//	Scratch string `attr:"-"`            // never persisted
const TagName = "attr"

// DomainNamer can be implemented by record types to override their domain name.
// Without it, the domain is the name of the Go type.
type DomainNamer interface {
	DomainName() string
}

// Field describes one mapped struct field.
type Field struct {
	Name     string       // Attribute name
	Index    []int        // Index sequence for reflect.Value.FieldByIndex
	Type     reflect.Type // Declared Go type
	Kind     Kind         // String conversion used for the field
	Optional bool         // True if the field is a pointer; nil is stored as the empty string
}

// EntityMap describes how a record type maps to store items.
type EntityMap struct {
	Type   reflect.Type // The mapped struct type
	Domain string       // Domain name from DomainNamer, or the type name
	Key    Field        // The identifier field
	Fields []Field      // Persistable fields, in declaration order
}

// Field returns the persistable field stored under the given attribute name.
func (m *EntityMap) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// CreateMap derives the EntityMap for the struct type t. It fails with a *MappingError
// if t is not a struct, has no key field, has more than one key field, or declares a
// persistable field whose type cannot be converted to a string.
func CreateMap(t reflect.Type) (*EntityMap, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &MappingError{Type: t, Err: ErrNotStruct}
	}

	var (
		keys   []Field
		fields []Field
		seen   = make(map[string]bool)
	)

	for _, sf := range reflect.VisibleFields(t) {
		if sf.Anonymous {
			if sf.Type.Kind() == reflect.Pointer {
				return nil, &MappingError{Type: t, Field: sf.Name, Err: fmt.Errorf("%w: embedded pointer", ErrUnsupportedType)}
			}
			continue // promoted fields are visited separately
		}
		if !sf.IsExported() {
			continue
		}

		name, isKey, exclude, err := parseTag(sf)
		if err != nil {
			return nil, &MappingError{Type: t, Field: sf.Name, Err: err}
		}
		if exclude {
			continue
		}

		kind, optional := kindOf(sf.Type)
		if kind == KindInvalid || (isKey && optional) {
			return nil, &MappingError{Type: t, Field: sf.Name, Err: fmt.Errorf("%w: %v", ErrUnsupportedType, sf.Type)}
		}

		field := Field{
			Name:     name,
			Index:    sf.Index,
			Type:     sf.Type,
			Kind:     kind,
			Optional: optional,
		}

		if isKey {
			keys = append(keys, field)
			continue
		}

		if seen[name] {
			return nil, &MappingError{Type: t, Field: sf.Name, Err: fmt.Errorf("duplicate attribute name %q", name)}
		}
		seen[name] = true
		fields = append(fields, field)
	}

	switch len(keys) {
	case 0:
		return nil, &MappingError{Type: t, Err: ErrKeyNotFound}
	case 1:
	default:
		return nil, &MappingError{Type: t, Err: ErrMultipleKeys}
	}

	return &EntityMap{
		Type:   t,
		Domain: domainNameOf(t),
		Key:    keys[0],
		Fields: fields,
	}, nil
}

func parseTag(sf reflect.StructField) (name string, isKey, exclude bool, err error) {
	tag, ok := sf.Tag.Lookup(TagName)
	if !ok {
		return sf.Name, false, false, nil
	}
	if tag == "-" {
		return "", false, true, nil
	}

	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = sf.Name
	}

	if opts != "" {
		for _, opt := range strings.Split(opts, ",") {
			switch opt {
			case "key":
				isKey = true
			default:
				return "", false, false, fmt.Errorf("unknown tag option %q", opt)
			}
		}
	}

	return name, isKey, false, nil
}

func domainNameOf(t reflect.Type) string {
	if namer, ok := reflect.New(t).Interface().(DomainNamer); ok {
		return namer.DomainName()
	}
	return t.Name()
}

// Mapper caches entity maps by type. It is safe for concurrent use.
type Mapper struct {
	maps *xsync.MapOf[reflect.Type, *EntityMap]
}

// NewMapper creates an empty Mapper.
func NewMapper() *Mapper {
	return &Mapper{maps: xsync.NewMapOf[reflect.Type, *EntityMap]()}
}

// DefaultMapper is the Mapper used by providers that are not given one.
var DefaultMapper = NewMapper()

// Map returns the cached EntityMap for t, creating it on first use. Mapping errors
// are not cached.
func (m *Mapper) Map(t reflect.Type) (*EntityMap, error) {
	if em, ok := m.maps.Load(t); ok {
		return em, nil
	}

	em, err := CreateMap(t)
	if err != nil {
		return nil, err
	}

	em, _ = m.maps.LoadOrStore(t, em)
	return em, nil
}

// MapOf returns the EntityMap for T from the DefaultMapper.
func MapOf[T any]() (*EntityMap, error) {
	return DefaultMapper.Map(reflect.TypeFor[T]())
}

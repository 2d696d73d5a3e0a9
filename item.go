package attrstore

import (
	"fmt"
	"reflect"
)

// Item is the untyped form of a record as held by a store: an item name plus a
// multimap of attributes.
type Item struct {
	Name       string      // The item name, formatted from the record's key field
	Attributes []Attribute // Attributes in field order; names may repeat
}

// Values returns the values stored under name, in attribute order.
func (i Item) Values(name string) []string {
	var values []string
	for _, attr := range i.Attributes {
		if attr.Name == name {
			values = append(values, attr.Value)
		}
	}
	return values
}

// Names returns the distinct attribute names of the item in order of first appearance.
func (i Item) Names() []string {
	var (
		names []string
		seen  = make(map[string]bool, len(i.Attributes))
	)
	for _, attr := range i.Attributes {
		if !seen[attr.Name] {
			seen[attr.Name] = true
			names = append(names, attr.Name)
		}
	}
	return names
}

// groups returns the values of each attribute name, preserving attribute order.
func (i Item) groups() map[string][]string {
	groups := make(map[string][]string, len(i.Attributes))
	for _, attr := range i.Attributes {
		groups[attr.Name] = append(groups[attr.Name], attr.Value)
	}
	return groups
}

// MarshalItem converts record, a value of (or pointer to) the mapped type, into an
// Item using the DefaultCodec.
func MarshalItem(m *EntityMap, record any) (Item, error) {
	return DefaultCodec.MarshalItem(m, record)
}

// UnmarshalItem converts item into a new T using the DefaultCodec.
func UnmarshalItem[T any](m *EntityMap, item Item) (T, error) {
	var out T
	err := DefaultCodec.UnmarshalItem(m, item, &out)
	return out, err
}

// Unmarshal converts item into the value pointed to by out using the DefaultCodec.
func (m *EntityMap) Unmarshal(item Item, out any) error {
	return DefaultCodec.UnmarshalItem(m, item, out)
}

// MarshalItem converts record into an Item. The key field becomes the item name and
// each persistable field is formatted and chunked into attributes. A nil optional
// field is stored as the empty string.
func (c Codec) MarshalItem(m *EntityMap, record any) (Item, error) {
	v := reflect.ValueOf(record)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return Item{}, &MappingError{Type: m.Type, Err: fmt.Errorf("nil record")}
		}
		v = v.Elem()
	}
	if v.Type() != m.Type {
		return Item{}, &MappingError{Type: m.Type, Err: fmt.Errorf("record has type %v", v.Type())}
	}

	name, err := formatField(m.Key, v)
	if err != nil {
		return Item{}, err
	}
	if name == "" {
		return Item{}, &ConversionError{Field: m.Key.Name, Err: ErrEmptyKey}
	}

	item := Item{
		Name:       name,
		Attributes: make([]Attribute, 0, len(m.Fields)),
	}

	for _, f := range m.Fields {
		raw, err := formatField(f, v)
		if err != nil {
			return Item{}, err
		}
		item.Attributes = append(item.Attributes, c.Encode(f.Name, raw)...)
	}

	return item, nil
}

// UnmarshalItem populates the struct pointed to by out from item. Fields without
// attributes keep their zero value; attributes without fields are ignored.
func (c Codec) UnmarshalItem(m *EntityMap, item Item, out any) error {
	ptr := reflect.ValueOf(out)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() || ptr.Elem().Type() != m.Type {
		return &MappingError{Type: m.Type, Err: fmt.Errorf("cannot unmarshal into %T", out)}
	}

	v := reflect.New(m.Type).Elem()

	if err := parseField(m.Key, v, item.Name); err != nil {
		return err
	}

	groups := item.groups()
	for _, f := range m.Fields {
		values, ok := groups[f.Name]
		if !ok {
			continue
		}

		raw, err := c.Decode(f.Name, values)
		if err != nil {
			return err
		}
		if err := parseField(f, v, raw); err != nil {
			return err
		}
	}

	ptr.Elem().Set(v)
	return nil
}

func formatField(f Field, record reflect.Value) (string, error) {
	fv := record.FieldByIndex(f.Index)
	if f.Optional {
		if fv.IsNil() {
			return "", nil
		}
		fv = fv.Elem()
	}

	s, err := formatValue(f.Kind, fv)
	if err != nil {
		return "", &ConversionError{Field: f.Name, Err: err}
	}
	return s, nil
}

func parseField(f Field, record reflect.Value, raw string) error {
	if f.Optional && raw == "" {
		return nil
	}

	t := f.Type
	if f.Optional {
		t = t.Elem()
	}

	pv, err := parseValue(f.Kind, t, raw)
	if err != nil {
		return &ConversionError{Field: f.Name, Value: raw, Err: err}
	}

	fv := record.FieldByIndex(f.Index)
	if f.Optional {
		p := reflect.New(t)
		p.Elem().Set(pv)
		pv = p
	}
	fv.Set(pv)
	return nil
}

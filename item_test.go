package attrstore

import (
	"errors"
	"net/netip"
	"reflect"
	"strings"
	"testing"
	"time"
)

type Sample struct {
	ID       int64 `attr:",key"`
	Name     string
	Count    int
	Size     uint16
	Ratio    float32
	Enabled  bool
	Created  time.Time
	Timeout  time.Duration
	Addr     netip.Addr
	Nickname *string
	Expires  *time.Time
	Body     string `attr:"body"`
}

func mustMap[T any](t *testing.T) *EntityMap {
	t.Helper()
	m, err := CreateMap(reflect.TypeFor[T]())
	if err != nil {
		t.Fatalf("Unexpected mapping error: %v", err)
	}
	return m
}

func TestMarshalItem_RoundTrip(t *testing.T) {
	m := mustMap[Sample](t)

	nickname := "sam"
	expires := time.Date(2030, 1, 2, 3, 4, 5, 6, time.UTC)
	in := Sample{
		ID:       42,
		Name:     "sample",
		Count:    -7,
		Size:     65535,
		Ratio:    0.25,
		Enabled:  true,
		Created:  time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC),
		Timeout:  90 * time.Second,
		Addr:     netip.MustParseAddr("10.0.0.1"),
		Nickname: &nickname,
		Expires:  &expires,
		Body:     strings.Repeat("lorem ipsum ", 200),
	}

	item, err := MarshalItem(m, in)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if item.Name != "42" {
		t.Errorf("Expected item name 42, got %s", item.Name)
	}
	if got := item.Values("Timeout"); len(got) != 1 || got[0] != "1m30s" {
		t.Errorf("Expected Timeout 1m30s, got %v", got)
	}
	if got := item.Values("body"); len(got) != 5 {
		t.Errorf("Expected body in 5 chunks, got %d", len(got))
	}

	out, err := UnmarshalItem[Sample](m, item)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("Expected %+v, got %+v", in, out)
	}
}

func TestMarshalItem_FieldOrder(t *testing.T) {
	m := mustMap[Article](t)

	item, err := MarshalItem(m, &Article{ID: "a-1", Title: "t", Body: "b"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{"Title", "body", "Views", "Rating", "Published"}
	if got := item.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected names %v, got %v", want, got)
	}
	for _, attr := range item.Attributes {
		if !attr.Replace {
			t.Errorf("Expected single-chunk attribute %s to be authoritative", attr.Name)
		}
	}
}

func TestMarshalItem_OptionalNil(t *testing.T) {
	m := mustMap[Sample](t)

	item, err := MarshalItem(m, Sample{ID: 1})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := item.Values("Nickname"); len(got) != 1 || got[0] != "" {
		t.Errorf("Expected empty Nickname value, got %v", got)
	}

	out, err := UnmarshalItem[Sample](m, item)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Nickname != nil || out.Expires != nil {
		t.Error("Expected nil optional fields")
	}
}

func TestMarshalItem_Errors(t *testing.T) {
	m := mustMap[Article](t)

	t.Run("empty key", func(t *testing.T) {
		_, err := MarshalItem(m, Article{})
		if !errors.Is(err, ErrEmptyKey) {
			t.Errorf("Expected ErrEmptyKey, got %v", err)
		}
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := MarshalItem(m, customDomain{Key: 1})
		var mapErr *MappingError
		if !errors.As(err, &mapErr) {
			t.Errorf("Expected *MappingError, got %v", err)
		}
	})

	t.Run("nil pointer", func(t *testing.T) {
		_, err := MarshalItem(m, (*Article)(nil))
		var mapErr *MappingError
		if !errors.As(err, &mapErr) {
			t.Errorf("Expected *MappingError, got %v", err)
		}
	})
}

func TestUnmarshalItem(t *testing.T) {
	m := mustMap[Sample](t)

	t.Run("missing attributes keep zero values", func(t *testing.T) {
		out, err := UnmarshalItem[Sample](m, Item{
			Name: "9",
			Attributes: []Attribute{
				{Name: "Name", Value: "partial"},
				{Name: "Unknown", Value: "ignored"},
			},
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		want := Sample{ID: 9, Name: "partial"}
		if !reflect.DeepEqual(out, want) {
			t.Errorf("Expected %+v, got %+v", want, out)
		}
	})

	t.Run("empty value is the zero value", func(t *testing.T) {
		out, err := UnmarshalItem[Sample](m, Item{
			Name:       "9",
			Attributes: []Attribute{{Name: "Count", Value: ""}},
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if out.Count != 0 {
			t.Errorf("Expected 0, got %d", out.Count)
		}
	})

	t.Run("chunked value out of order", func(t *testing.T) {
		out, err := UnmarshalItem[Sample](m, Item{
			Name: "9",
			Attributes: []Attribute{
				{Name: "body", Value: "[Sort1]world"},
				{Name: "Name", Value: "n"},
				{Name: "body", Value: "[Sort0]hello "},
			},
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if out.Body != "hello world" {
			t.Errorf("Expected 'hello world', got %q", out.Body)
		}
	})

	conversionTests := []struct {
		name  string
		item  Item
		field string
		value string
	}{
		{
			name:  "bad int",
			item:  Item{Name: "1", Attributes: []Attribute{{Name: "Count", Value: "abc"}}},
			field: "Count",
			value: "abc",
		},
		{
			name:  "uint overflow",
			item:  Item{Name: "1", Attributes: []Attribute{{Name: "Size", Value: "70000"}}},
			field: "Size",
			value: "70000",
		},
		{
			name:  "bad time",
			item:  Item{Name: "1", Attributes: []Attribute{{Name: "Created", Value: "yesterday"}}},
			field: "Created",
			value: "yesterday",
		},
		{
			name:  "bad text",
			item:  Item{Name: "1", Attributes: []Attribute{{Name: "Addr", Value: "not-an-ip"}}},
			field: "Addr",
			value: "not-an-ip",
		},
		{
			name:  "bad key",
			item:  Item{Name: "x"},
			field: "ID",
			value: "x",
		},
	}

	for _, tt := range conversionTests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalItem[Sample](m, tt.item)
			var convErr *ConversionError
			if !errors.As(err, &convErr) {
				t.Fatalf("Expected *ConversionError, got %v", err)
			}
			if convErr.Field != tt.field || convErr.Value != tt.value {
				t.Errorf("Expected field %s value %q, got field %s value %q", tt.field, tt.value, convErr.Field, convErr.Value)
			}
		})
	}

	t.Run("wrong destination", func(t *testing.T) {
		var a Article
		err := m.Unmarshal(Item{Name: "1"}, &a)
		var mapErr *MappingError
		if !errors.As(err, &mapErr) {
			t.Errorf("Expected *MappingError, got %v", err)
		}
	})
}

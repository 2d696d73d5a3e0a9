package attrstore

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Kind identifies the string conversion used for a field's declared type.
type Kind int

const (
	KindInvalid  Kind = iota
	KindString        // string and named string types
	KindInt           // signed integers
	KindUint          // unsigned integers
	KindBool          // booleans
	KindFloat         // float32, float64
	KindTime          // time.Time, stored as RFC 3339 with nanoseconds
	KindDuration      // time.Duration, stored in its String form
	KindText          // types implementing encoding.TextMarshaler and encoding.TextUnmarshaler
)

var kindNames = [...]string{"invalid", "string", "int", "uint", "bool", "float", "time", "duration", "text"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

var (
	timeType            = reflect.TypeFor[time.Time]()
	durationType        = reflect.TypeFor[time.Duration]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// kindOf returns the conversion kind for t, and whether t is optional (a pointer to a
// supported type). Pointers to pointers are not supported.
func kindOf(t reflect.Type) (kind Kind, optional bool) {
	if t.Kind() == reflect.Pointer {
		if t.Elem().Kind() == reflect.Pointer {
			return KindInvalid, false
		}
		return baseKindOf(t.Elem()), true
	}
	return baseKindOf(t), false
}

func baseKindOf(t reflect.Type) Kind {
	switch {
	case t == timeType:
		return KindTime
	case t == durationType:
		return KindDuration
	case isText(t):
		return KindText
	}

	switch t.Kind() {
	case reflect.String:
		return KindString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KindInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindUint
	case reflect.Bool:
		return KindBool
	case reflect.Float32, reflect.Float64:
		return KindFloat
	}
	return KindInvalid
}

func isText(t reflect.Type) bool {
	ptr := reflect.PointerTo(t)
	return ptr.Implements(textUnmarshalerType) &&
		(t.Implements(textMarshalerType) || ptr.Implements(textMarshalerType))
}

// formatValue renders v, a non-pointer value of a supported type, as a string.
func formatValue(kind Kind, v reflect.Value) (string, error) {
	switch kind {
	case KindString:
		return v.String(), nil
	case KindInt:
		return strconv.FormatInt(v.Int(), 10), nil
	case KindUint:
		return strconv.FormatUint(v.Uint(), 10), nil
	case KindBool:
		return strconv.FormatBool(v.Bool()), nil
	case KindFloat:
		return strconv.FormatFloat(v.Float(), 'g', -1, v.Type().Bits()), nil
	case KindTime:
		return v.Interface().(time.Time).Format(time.RFC3339Nano), nil
	case KindDuration:
		return time.Duration(v.Int()).String(), nil
	case KindText:
		text, err := textMarshaler(v).MarshalText()
		if err != nil {
			return "", err
		}
		return string(text), nil
	}
	return "", fmt.Errorf("%w: %v", ErrUnsupportedType, v.Type())
}

// textMarshaler returns v as a TextMarshaler, taking the address of a copy when
// the method has a pointer receiver.
func textMarshaler(v reflect.Value) encoding.TextMarshaler {
	if m, ok := v.Interface().(encoding.TextMarshaler); ok {
		return m
	}
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	return ptr.Interface().(encoding.TextMarshaler)
}

// parseValue converts s into a new value of type t. An empty string yields the zero value.
func parseValue(kind Kind, t reflect.Type, s string) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	if s == "" {
		return out, nil
	}

	switch kind {
	case KindString:
		out.SetString(s)
	case KindInt:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return out, err
		}
		out.SetInt(n)
	case KindUint:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return out, err
		}
		out.SetUint(n)
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return out, err
		}
		out.SetBool(b)
	case KindFloat:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return out, err
		}
		out.SetFloat(f)
	case KindTime:
		tm, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return out, err
		}
		out.Set(reflect.ValueOf(tm))
	case KindDuration:
		d, err := time.ParseDuration(s)
		if err != nil {
			return out, err
		}
		out.SetInt(int64(d))
	case KindText:
		ptr := reflect.New(t)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return out, err
		}
		out = ptr.Elem()
	default:
		return out, fmt.Errorf("%w: %v", ErrUnsupportedType, t)
	}
	return out, nil
}

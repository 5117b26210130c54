package part

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a node in the column type tree: a fixed-width primitive,
// a string, or one of the three structural wrappers the flattening rule in
// the data model distinguishes (Nullable, Array, Nested).
type Kind int

const (
	KindUInt8 Kind = iota
	KindUInt16
	KindUInt32
	KindUInt64
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindString
	KindNullable
	KindArray
	KindNested
)

func (k Kind) String() string {
	switch k {
	case KindUInt8:
		return "UInt8"
	case KindUInt16:
		return "UInt16"
	case KindUInt32:
		return "UInt32"
	case KindUInt64:
		return "UInt64"
	case KindInt8:
		return "Int8"
	case KindInt16:
		return "Int16"
	case KindInt32:
		return "Int32"
	case KindInt64:
		return "Int64"
	case KindFloat32:
		return "Float32"
	case KindFloat64:
		return "Float64"
	case KindString:
		return "String"
	case KindNullable:
		return "Nullable"
	case KindArray:
		return "Array"
	case KindNested:
		return "Nested"
	default:
		return "Unknown"
	}
}

// NestedField is one member of a Nested(...) type: a logical sub-column
// name (joined to its parent with a dot when flattened) and its type.
type NestedField struct {
	Name string
	Type Type
}

// Type is a node in the column type algebra:
//
//	Primitive(p) | Nullable(t) | Array(t) | Nested(fields)
//
// Primitive and String types are leaves. Nullable and Array wrap exactly
// one child type (Elem). Nested carries an ordered list of named fields.
type Type struct {
	Kind   Kind
	Elem   *Type
	Fields []NestedField
}

func Primitive(k Kind) Type { return Type{Kind: k} }

func Nullable(inner Type) Type { return Type{Kind: KindNullable, Elem: &inner} }

func Array(inner Type) Type { return Type{Kind: KindArray, Elem: &inner} }

func Nested(fields ...NestedField) Type { return Type{Kind: KindNested, Fields: fields} }

// IsPrimitive reports whether t is a leaf primitive (including String).
func (t Type) IsPrimitive() bool {
	return t.Kind != KindNullable && t.Kind != KindArray && t.Kind != KindNested
}

// String renders t using the canonical type grammar persisted in
// columns.txt:
//
//	UInt8 | ... | Float64 | String |
//	Nullable(<type>) | Array(<type>) | Nested(<name> <type>, ...)
func (t Type) String() string {
	switch t.Kind {
	case KindNullable:
		return fmt.Sprintf("Nullable(%s)", t.Elem.String())
	case KindArray:
		return fmt.Sprintf("Array(%s)", t.Elem.String())
	case KindNested:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Name + " " + f.Type.String()
		}
		return fmt.Sprintf("Nested(%s)", strings.Join(parts, ", "))
	default:
		return t.Kind.String()
	}
}

// ParseType parses the canonical type grammar produced by Type.String,
// round-tripping columns.txt. It is a small recursive-descent parser over
// the grammar in SPEC_FULL.md §3.
func ParseType(s string) (Type, error) {
	t, rest, err := parseType(strings.TrimSpace(s))
	if err != nil {
		return Type{}, err
	}
	if strings.TrimSpace(rest) != "" {
		return Type{}, fmt.Errorf("part: trailing input after type %q: %q", s, rest)
	}
	return t, nil
}

func parseType(s string) (Type, string, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "Nullable("):
		inner, rest, err := parseType(s[len("Nullable("):])
		if err != nil {
			return Type{}, "", err
		}
		rest, err = expect(rest, ")")
		if err != nil {
			return Type{}, "", err
		}
		return Nullable(inner), rest, nil
	case strings.HasPrefix(s, "Array("):
		inner, rest, err := parseType(s[len("Array("):])
		if err != nil {
			return Type{}, "", err
		}
		rest, err = expect(rest, ")")
		if err != nil {
			return Type{}, "", err
		}
		return Array(inner), rest, nil
	case strings.HasPrefix(s, "Nested("):
		rest := s[len("Nested("):]
		var fields []NestedField
		for {
			rest = strings.TrimSpace(rest)
			name, afterName, err := parseIdent(rest)
			if err != nil {
				return Type{}, "", err
			}
			fieldType, afterType, err := parseType(afterName)
			if err != nil {
				return Type{}, "", err
			}
			fields = append(fields, NestedField{Name: name, Type: fieldType})
			afterType = strings.TrimSpace(afterType)
			if strings.HasPrefix(afterType, ",") {
				rest = afterType[1:]
				continue
			}
			rest, err = expect(afterType, ")")
			if err != nil {
				return Type{}, "", err
			}
			return Nested(fields...), rest, nil
		}
	default:
		name, rest, err := parseIdent(s)
		if err != nil {
			return Type{}, "", err
		}
		k, ok := primitiveKindByName[name]
		if !ok {
			return Type{}, "", fmt.Errorf("part: unknown primitive type %q", name)
		}
		return Primitive(k), rest, nil
	}
}

var primitiveKindByName = map[string]Kind{
	"UInt8": KindUInt8, "UInt16": KindUInt16, "UInt32": KindUInt32, "UInt64": KindUInt64,
	"Int8": KindInt8, "Int16": KindInt16, "Int32": KindInt32, "Int64": KindInt64,
	"Float32": KindFloat32, "Float64": KindFloat64, "String": KindString,
}

func parseIdent(s string) (ident, rest string, err error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && (isIdentByte(s[i])) {
		i++
	}
	if i == 0 {
		return "", s, fmt.Errorf("part: expected identifier in %q", s)
	}
	return s[:i], s[i:], nil
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '.' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func expect(s, tok string) (string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, tok) {
		return "", fmt.Errorf("part: expected %q in %q", tok, s)
	}
	return s[len(tok):], nil
}

// nestedRoot strips the final dotted suffix from a flattened column name,
// e.g. "a.b.c" -> "a.b". A name with no dot is its own nested root.
func nestedRoot(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// itoa is a small local alias kept for readability at call sites that build
// "%size<level>" stream names.
func itoa(n int) string { return strconv.Itoa(n) }

package decoder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var arraySuffix = regexp.MustCompile(`^(\[[0-9]*\])*$`)

// Field is one declared event field. Type is a Solidity type name; tuples use
// "tuple" (optionally with array suffixes) and list their Components.
type Field struct {
	Type       string
	Components []Field
}

// Schema declares the indexed and body field types of one event, in order.
type Schema struct {
	Indexed []Field
	Body    []Field
}

// ParseField parses a type expression such as "uint256", "bytes10",
// "(address,uint256)" or "(address,bool)[]".
func ParseField(expr string) (Field, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Field{}, fmt.Errorf("empty type")
	}

	if expr[0] != '(' {
		if strings.ContainsAny(expr, "(), ") {
			return Field{}, fmt.Errorf("invalid type: %s", expr)
		}
		return Field{Type: expr}, nil
	}

	depth := 0
	end := -1
	for i, r := range expr {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && end < 0 {
				end = i
			}
		}
		if depth < 0 {
			return Field{}, fmt.Errorf("unbalanced parentheses: %s", expr)
		}
	}
	if depth != 0 || end < 0 {
		return Field{}, fmt.Errorf("unbalanced parentheses: %s", expr)
	}

	suffix := expr[end+1:]
	if !arraySuffix.MatchString(suffix) {
		return Field{}, fmt.Errorf("invalid tuple suffix: %s", expr)
	}

	parts, err := splitTopLevel(expr[1:end])
	if err != nil {
		return Field{}, err
	}
	components := make([]Field, 0, len(parts))
	for _, part := range parts {
		component, err := ParseField(part)
		if err != nil {
			return Field{}, err
		}
		components = append(components, component)
	}

	return Field{Type: "tuple" + suffix, Components: components}, nil
}

// MustField is ParseField for static schemas; it panics on a malformed expression.
func MustField(expr string) Field {
	f, err := ParseField(expr)
	if err != nil {
		panic(err)
	}
	return f
}

// NewSchema parses indexed and body type expressions into a Schema.
func NewSchema(indexed, body []string) (Schema, error) {
	var s Schema
	for _, expr := range indexed {
		f, err := ParseField(expr)
		if err != nil {
			return Schema{}, fmt.Errorf("indexed: %w", err)
		}
		s.Indexed = append(s.Indexed, f)
	}
	for _, expr := range body {
		f, err := ParseField(expr)
		if err != nil {
			return Schema{}, fmt.Errorf("body: %w", err)
		}
		s.Body = append(s.Body, f)
	}
	return s, nil
}

// String returns the canonical type expression of the field.
func (f Field) String() string {
	if !strings.HasPrefix(f.Type, "tuple") {
		return f.Type
	}
	parts := make([]string, 0, len(f.Components))
	for _, c := range f.Components {
		parts = append(parts, c.String())
	}
	return "(" + strings.Join(parts, ",") + ")" + strings.TrimPrefix(f.Type, "tuple")
}

// String renders the schema as "indexed=[...] body=[...]".
func (s Schema) String() string {
	return fmt.Sprintf("indexed=[%s] body=[%s]", joinFields(s.Indexed), joinFields(s.Body))
}

// Equal reports whether both schemas declare the same types in the same order.
func (s Schema) Equal(other Schema) bool {
	return joinFields(s.Indexed) == joinFields(other.Indexed) && joinFields(s.Body) == joinFields(other.Body)
}

func joinFields(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, ",")
}

func splitTopLevel(input string) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("empty tuple")
	}
	var parts []string
	depth, start := 0, 0
	for i, r := range input {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, input[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, input[start:]), nil
}

func (f Field) marshaling(name string) abi.ArgumentMarshaling {
	am := abi.ArgumentMarshaling{Name: name, Type: f.Type}
	for i, c := range f.Components {
		am.Components = append(am.Components, c.marshaling(fmt.Sprintf("field%d", i)))
	}
	return am
}

func arguments(fields []Field, indexed bool) (abi.Arguments, error) {
	prefix := "field"
	if indexed {
		prefix = "topic"
	}
	args := make(abi.Arguments, 0, len(fields))
	for i, f := range fields {
		am := f.marshaling(fmt.Sprintf("%s%d", prefix, i))
		typ, err := abi.NewType(am.Type, "", am.Components)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", f.String(), err)
		}
		args = append(args, abi.Argument{Name: am.Name, Type: typ, Indexed: indexed})
	}
	return args, nil
}

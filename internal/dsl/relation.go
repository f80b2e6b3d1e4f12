package dsl

import (
	"strings"

	"github.com/pkg/errors"
)

// String renders the flag as @unique or @unique(map: "name")
func (u UniqueFlag) String() string {
	if u.Map == "" {
		return "@unique"
	}
	return `@unique(map: "` + u.Map + `")`
}

// String renders the relation as a @relation(...) attribute
func (r Relation) String() string {
	var parts []string
	if len(r.Fields) > 0 {
		parts = append(parts, "fields: ["+strings.Join(r.Fields, ", ")+"]")
	}
	if len(r.References) > 0 {
		parts = append(parts, "references: ["+strings.Join(r.References, ", ")+"]")
	}
	if r.Map != "" {
		parts = append(parts, `map: "`+r.Map+`"`)
	}
	if r.OnDelete != "" {
		parts = append(parts, "onDelete: "+r.OnDelete)
	}
	if r.OnUpdate != "" {
		parts = append(parts, "onUpdate: "+r.OnUpdate)
	}
	return "@relation(" + strings.Join(parts, ", ") + ")"
}

// ParseRelation parses a complete @relation(...) attribute.
// Any argument other than fields, references, map, onDelete and onUpdate is an error.
func ParseRelation(attr string) (*Relation, error) {
	inner, ok := strings.CutPrefix(strings.TrimSpace(attr), "@relation(")
	if !ok {
		return nil, errors.Errorf("not a relation attribute: %q", attr)
	}
	inner, ok = strings.CutSuffix(inner, ")")
	if !ok {
		return nil, errors.Errorf("relation attribute is not closed: %q", attr)
	}

	rel := &Relation{}
	if strings.TrimSpace(inner) == "" {
		return rel, nil
	}

	for _, piece := range splitTopLevel(inner, ',') {
		piece = strings.TrimSpace(piece)
		key, value, _ := strings.Cut(piece, ":")
		value = strings.TrimSpace(value)

		var err error
		switch strings.TrimSpace(key) {
		case "fields":
			rel.Fields, err = parseList(value)
		case "references":
			rel.References, err = parseList(value)
		case "onDelete":
			rel.OnDelete = value
		case "onUpdate":
			rel.OnUpdate = value
		case "map":
			rel.Map = unquote(value)
		default:
			return nil, errors.Errorf("unrecognized relation argument %q in %q", piece, attr)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "invalid relation argument %q", piece)
		}
	}

	return rel, nil
}

// parseUniqueFlag parses @unique or @unique(...) and keeps only the map argument
func parseUniqueFlag(attr string) (*UniqueFlag, error) {
	rest := strings.TrimPrefix(strings.TrimSpace(attr), "@unique")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return &UniqueFlag{}, nil
	}

	inner, ok := strings.CutPrefix(rest, "(")
	if ok {
		inner, ok = strings.CutSuffix(inner, ")")
	}
	if !ok {
		return nil, errors.Errorf("malformed unique attribute %q", attr)
	}

	flag := &UniqueFlag{}
	for _, piece := range splitTopLevel(inner, ',') {
		key, value, found := strings.Cut(strings.TrimSpace(piece), ":")
		if found && strings.TrimSpace(key) == "map" {
			flag.Map = unquote(strings.TrimSpace(value))
		}
	}
	return flag, nil
}

// parseList parses "[a, b]" into its elements
func parseList(value string) ([]string, error) {
	inner, ok := strings.CutPrefix(value, "[")
	if ok {
		inner, ok = strings.CutSuffix(inner, "]")
	}
	if !ok {
		return nil, errors.Errorf("expected a bracketed list, got %q", value)
	}

	var items []string
	for _, item := range strings.Split(inner, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// splitTopLevel splits s on sep where sep is outside brackets, parentheses,
// braces and double-quoted strings
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inQuote := false
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote && c == '\\':
			i++
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

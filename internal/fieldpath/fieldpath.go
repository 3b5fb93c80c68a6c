// Copyright Contributors to the TaskBench project

// Package fieldpath resolves dotted paths against unstructured Kubernetes
// objects. It replaces jsonpath string scraping with typed traversal: a
// missing field is reported as not-found, distinct from an empty value, and
// list filters that match nothing resolve to not-found rather than erroring.
package fieldpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Path is a parsed field path ready for repeated resolution.
type Path struct {
	raw      string
	segments []segment
}

type segmentKind int

const (
	segField segmentKind = iota
	segIndex
	segFilter
)

type segment struct {
	kind segmentKind

	// segField
	field string

	// segIndex
	index int

	// segFilter: the element whose filterField equals filterValue
	filterField string
	filterValue string
}

// Parse compiles a path such as "spec.ports[?port==80].targetPort" or
// "spec.containers[0].image". Supported segments are field names, numeric
// indexes in brackets, and field-equality filters "[?field==value]". The
// scanner walks left to right, so dots inside a bracket selector stay part
// of the selector: [?image==nginx:1.21] filters on the literal "nginx:1.21".
func Parse(raw string) (*Path, error) {
	if raw == "" {
		return nil, fmt.Errorf("field path must not be empty")
	}
	p := &Path{raw: raw}
	i := 0
	for i < len(raw) {
		switch raw[i] {
		case '.':
			return nil, fmt.Errorf("field path %q: empty segment", raw)
		case '[':
			end := strings.IndexByte(raw[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("field path %q: unclosed bracket", raw)
			}
			seg, err := parseSelector(raw[i+1 : i+end])
			if err != nil {
				return nil, fmt.Errorf("field path %q: %v", raw, err)
			}
			p.segments = append(p.segments, seg)
			i += end + 1
		default:
			j := i
			for j < len(raw) && raw[j] != '.' && raw[j] != '[' {
				j++
			}
			p.segments = append(p.segments, segment{kind: segField, field: raw[i:j]})
			i = j
		}
		if i == len(raw) {
			return p, nil
		}
		// A segment may be followed by a dot, another bracket, or the end.
		switch raw[i] {
		case '.':
			i++
			if i == len(raw) {
				return nil, fmt.Errorf("field path %q: empty segment", raw)
			}
		case '[':
		default:
			return nil, fmt.Errorf("field path %q: unexpected %q", raw, raw[i:])
		}
	}
	return p, nil
}

func parseSelector(sel string) (segment, error) {
	if sel == "" {
		return segment{}, fmt.Errorf("empty selector")
	}
	if sel[0] == '?' {
		body := sel[1:]
		eq := strings.Index(body, "==")
		if eq <= 0 {
			return segment{}, fmt.Errorf("filter %q must have the form ?field==value", sel)
		}
		field := body[:eq]
		value := strings.Trim(body[eq+2:], `'"`)
		if field == "" || value == "" {
			return segment{}, fmt.Errorf("filter %q must have the form ?field==value", sel)
		}
		return segment{kind: segFilter, filterField: field, filterValue: value}, nil
	}
	n, err := strconv.Atoi(sel)
	if err != nil || n < 0 {
		return segment{}, fmt.Errorf("index %q must be a non-negative integer", sel)
	}
	return segment{kind: segIndex, index: n}, nil
}

// String returns the original path text.
func (p *Path) String() string {
	return p.raw
}

// Resolve walks the path through obj. found=false means some step did not
// resolve: a missing map key, an out-of-range index, or a filter with no
// matching element. An error means the path is incompatible with the data
// shape, e.g. indexing into a scalar.
func (p *Path) Resolve(obj map[string]interface{}) (value interface{}, found bool, err error) {
	var cur interface{} = obj
	for _, seg := range p.segments {
		switch seg.kind {
		case segField:
			m, ok := cur.(map[string]interface{})
			if !ok {
				return nil, false, fmt.Errorf("path %s: cannot read field %q of %T", p.raw, seg.field, cur)
			}
			next, ok := m[seg.field]
			if !ok {
				return nil, false, nil
			}
			cur = next
		case segIndex:
			list, ok := cur.([]interface{})
			if !ok {
				return nil, false, fmt.Errorf("path %s: cannot index into %T", p.raw, cur)
			}
			if seg.index >= len(list) {
				return nil, false, nil
			}
			cur = list[seg.index]
		case segFilter:
			list, ok := cur.([]interface{})
			if !ok {
				return nil, false, fmt.Errorf("path %s: cannot filter %T", p.raw, cur)
			}
			match, ok := filterList(list, seg.filterField, seg.filterValue)
			if !ok {
				// Zero matching elements resolves to missing, not an error.
				return nil, false, nil
			}
			cur = match
		}
	}
	return cur, true, nil
}

// Resolve is a one-shot parse-and-resolve convenience.
func Resolve(obj map[string]interface{}, path string) (interface{}, bool, error) {
	p, err := Parse(path)
	if err != nil {
		return nil, false, err
	}
	return p.Resolve(obj)
}

func filterList(list []interface{}, field, want string) (interface{}, bool) {
	for _, el := range list {
		m, ok := el.(map[string]interface{})
		if !ok {
			continue
		}
		v, ok := m[field]
		if !ok {
			continue
		}
		if scalarString(v) == want {
			return el, true
		}
	}
	return nil, false
}

// scalarString renders a scalar for filter comparison. Filters compare
// textually so both [?port==80] and [?name==web] read naturally in YAML.
func scalarString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

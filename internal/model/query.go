package model

// SearchQuery is the opaque nested filter document sent to the search
// endpoint. Callers mutate a Clone, never a shared template.
type SearchQuery map[string]any

// Clone returns a deep copy of the query.
func (q SearchQuery) Clone() SearchQuery {
	if q == nil {
		return nil
	}
	return cloneValue(map[string]any(q)).(map[string]any)
}

// Set assigns value at the nested path, creating intermediate objects and
// replacing any non-object value found on the way.
func (q SearchQuery) Set(value any, path ...string) {
	if len(path) == 0 {
		return
	}
	cur := map[string]any(q)
	for _, k := range path[:len(path)-1] {
		next, ok := cur[k].(map[string]any)
		if !ok {
			// SearchQuery values nest as plain maps after a Clone, but a
			// literal built by hand may use the named type.
			if sq, isSQ := cur[k].(SearchQuery); isSQ {
				next = map[string]any(sq)
			} else {
				next = make(map[string]any)
			}
			cur[k] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = value
}

// Lookup returns the value at path.
func (q SearchQuery) Lookup(path ...string) (any, bool) {
	var cur any = map[string]any(q)
	for _, k := range path {
		var m map[string]any
		switch v := cur.(type) {
		case map[string]any:
			m = v
		case SearchQuery:
			m = v
		default:
			return nil, false
		}
		val, ok := m[k]
		if !ok {
			return nil, false
		}
		cur = val
	}
	return cur, true
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case SearchQuery:
		return cloneValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = val
		}
		return out
	default:
		return t
	}
}

// SearchResult is one page of listing identifiers plus the token that ties
// later fetches to the same result set.
type SearchResult struct {
	IDs     []string `json:"result"`
	QueryID string   `json:"id"`
	Total   int      `json:"total"`
}

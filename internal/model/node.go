package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Node is a read-only view over decoded JSON. Every accessor degrades to the
// zero Node (or ok=false) when a level is missing or has the wrong type, so
// callers can walk partially malformed listings without checking each step.
type Node struct {
	v any
}

// NodeOf wraps an already decoded JSON value.
func NodeOf(v any) Node {
	return Node{v: v}
}

// ParseNode decodes raw JSON into a Node.
func ParseNode(b []byte) (Node, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return Node{}, err
	}
	return Node{v: v}, nil
}

func (n *Node) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &n.v)
}

func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.v)
}

// Raw returns the wrapped value.
func (n Node) Raw() any {
	return n.v
}

// Exists reports whether the node holds a non-null value.
func (n Node) Exists() bool {
	return n.v != nil
}

// Get returns the child under key, or the zero Node when n is not an object.
func (n Node) Get(key string) Node {
	m, ok := n.v.(map[string]any)
	if !ok {
		return Node{}
	}
	return Node{v: m[key]}
}

// Path walks nested objects.
func (n Node) Path(keys ...string) Node {
	cur := n
	for _, k := range keys {
		cur = cur.Get(k)
		if !cur.Exists() {
			return Node{}
		}
	}
	return cur
}

// Object returns the node as a map.
func (n Node) Object() (map[string]any, bool) {
	m, ok := n.v.(map[string]any)
	return m, ok
}

// List returns the elements of an array node; anything else yields nil.
func (n Node) List() []Node {
	arr, ok := n.v.([]any)
	if !ok {
		return nil
	}
	out := make([]Node, len(arr))
	for i, v := range arr {
		out[i] = Node{v: v}
	}
	return out
}

// String returns the node as a string when it is one.
func (n Node) String() (string, bool) {
	s, ok := n.v.(string)
	return s, ok
}

// Str returns the string value or "".
func (n Node) Str() string {
	s, _ := n.String()
	return s
}

// Float accepts JSON numbers and numeric strings.
func (n Node) Float() (float64, bool) {
	switch v := n.v.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// Strings collects the string elements of an array node, skipping others.
func (n Node) Strings() []string {
	var out []string
	for _, el := range n.List() {
		if s, ok := el.String(); ok {
			out = append(out, s)
		}
	}
	return out
}

package Store

import (
	"encoding/json"
	"fmt"
)

// normalize converts v to its generic JSON form and drops nulls and empty
// objects, which do not exist in the document tree.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	var raw []byte
	switch t := v.(type) {
	case json.RawMessage:
		raw = t
	case []byte:
		raw = t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding value: %w", err)
		}
		raw = b
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decoding value: %w", err)
	}
	return prune(generic), nil
}

func prune(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if p := prune(child); p == nil {
				delete(t, k)
			} else {
				t[k] = p
			}
		}
		if len(t) == 0 {
			return nil
		}
		return t
	case []any:
		if len(t) == 0 {
			return nil
		}
		for i := range t {
			t[i] = prune(t[i])
		}
		return t
	default:
		return v
	}
}

func lookup(node any, segs []string) (any, bool) {
	for _, s := range segs {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[s]
		if !ok {
			return nil, false
		}
	}
	return node, node != nil
}

// put stores value under segs, creating intermediate objects. A nil value
// deletes the path and prunes parents left empty.
func put(node map[string]any, segs []string, value any) {
	key := segs[0]
	if len(segs) == 1 {
		if value == nil {
			delete(node, key)
		} else {
			node[key] = value
		}
		return
	}
	child, ok := node[key].(map[string]any)
	if !ok {
		if value == nil {
			return
		}
		child = map[string]any{}
		node[key] = child
	}
	put(child, segs[1:], value)
	if len(child) == 0 {
		delete(node, key)
	}
}

func encode(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

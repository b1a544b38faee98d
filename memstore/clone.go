package memstore

import (
	"github.com/jacentio/docket/store"
)

// clone deep-copies the container types documents are built from.
func clone(f store.Fields) store.Fields {
	if f == nil {
		return nil
	}
	out := make(store.Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case store.Fields:
		return clone(x)
	case map[string]any:
		return map[string]any(clone(x))
	case map[string]bool:
		out := make(map[string]bool, len(x))
		for k, b := range x {
			out[k] = b
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(x))
		for k, s := range x {
			out[k] = s
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	}
	return v
}

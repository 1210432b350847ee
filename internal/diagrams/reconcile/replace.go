package reconcile

// Substitutions maps a client-supplied entity id to the id it was signed to.
type Substitutions map[string]string

// Add records old -> new unless old already has an entry.
func (s Substitutions) Add(oldID, newID string) {
	if _, ok := s[oldID]; ok {
		return
	}
	s[oldID] = newID
}

// ReplaceIDs walks a decoded JSON value and returns a copy in which every
// string equal to a key of subs is replaced by its value. Object keys are
// never rewritten. The walk does not know any entity schema.
func ReplaceIDs(v any, subs Substitutions) any {
	switch t := v.(type) {
	case string:
		if n, ok := subs[t]; ok {
			return n
		}
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = ReplaceIDs(val, subs)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = ReplaceIDs(val, subs)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, val := range t {
			if n, ok := subs[val]; ok {
				val = n
			}
			out[i] = val
		}
		return out
	default:
		return v
	}
}

// RewriteLayout applies subs to a diagram layout.
func RewriteLayout(layout map[string]any, subs Substitutions) map[string]any {
	if layout == nil {
		return nil
	}
	return ReplaceIDs(layout, subs).(map[string]any)
}

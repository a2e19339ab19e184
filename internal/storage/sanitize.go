package storage

// Sanitize returns v with every nil map value and nil slice element removed,
// recursively. Remote stores reject undefined values, so documents pass
// through here before every write. Maps and slices are copied, never
// modified in place.
func Sanitize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = Sanitize(val)
		}
		return out
	case Document:
		return Document(Sanitize(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			if val == nil {
				continue
			}
			out = append(out, Sanitize(val))
		}
		return out
	default:
		return v
	}
}

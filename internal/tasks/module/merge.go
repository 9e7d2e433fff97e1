package module

// merge folds override into base. Objects merge key by key, recursively;
// any other override value replaces what base holds.
func merge(base, override any) any {
	b, ok := base.(map[string]any)
	if !ok {
		return override
	}
	o, ok := override.(map[string]any)
	if !ok {
		return override
	}

	out := make(map[string]any, len(b)+len(o))
	for k, v := range b {
		out[k] = v
	}
	for k, v := range o {
		if cur, exists := out[k]; exists {
			out[k] = merge(cur, v)
		} else {
			out[k] = v
		}
	}
	return out
}

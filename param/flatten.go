package param

// Sep joins nested keys in a flattened name.
const Sep = "."

// Flatten turns a nested tree into a flat mapping whose keys join ancestor
// keys with Sep. Leaves, including sequences, are copied unchanged.
func Flatten(tree map[string]any) Map {
	out := make(Map)
	flattenInto(out, "", tree)
	return out
}

func flattenInto(out Map, prefix string, tree map[string]any) {
	for key, value := range tree {
		switch sub := value.(type) {
		case map[string]any:
			flattenInto(out, prefix+key+Sep, sub)
		case Map:
			flattenInto(out, prefix+key+Sep, sub)
		default:
			out[prefix+key] = value
		}
	}
}

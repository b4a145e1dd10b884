package document

// Merge layers overlay on top of base and returns a new document. Neither
// input is mutated.
//
// Merge semantics are the authoritative layering contract:
//   - Both values are mappings: recursive merge, overlay wins key-by-key
//   - Both values are lists: overlay replaces the list wholesale
//   - Overlay value is explicit null: the key is removed from the result
//   - Anything else: overlay replaces
func Merge(base, overlay Document) Document {
	result := Copy(base)

	for key, overlayValue := range overlay {
		if overlayValue == nil {
			delete(result, key)
			continue
		}

		baseValue, exists := result[key]
		if !exists {
			result[key] = copyValue(overlayValue)
			continue
		}

		baseMap, baseIsMap := baseValue.(map[string]any)
		overlayMap, overlayIsMap := overlayValue.(map[string]any)
		if baseIsMap && overlayIsMap {
			result[key] = Merge(baseMap, overlayMap)
			continue
		}

		result[key] = copyValue(overlayValue)
	}

	return result
}

// MergeAll layers documents in order, lowest precedence first.
func MergeAll(layers ...Document) Document {
	result := make(Document)
	for _, layer := range layers {
		result = Merge(result, layer)
	}
	return result
}

package conf

// MergeDefaults prefixes every key of the given maps with ns. Later maps
// override earlier ones.
func MergeDefaults[M ~map[string]V, V any](ns string, maps ...M) M {
	fullCap := 0
	for _, m := range maps {
		fullCap += len(m)
	}

	merged := make(M, fullCap)
	for _, m := range maps {
		for key, val := range m {
			if ns != "" {
				key = ns + "." + key
			}
			merged[key] = val
		}
	}

	return merged
}

// Merge combines flat default maps into one. Later maps override earlier
// ones.
func Merge[M ~map[string]V, V any](maps ...M) M {
	return MergeDefaults("", maps...)
}

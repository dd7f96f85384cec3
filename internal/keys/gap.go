package keys

// Set is a membership set of keys.
type Set map[string]struct{}

// NewSet builds a set from a list of keys.
func NewSet(keys ...string) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts a key.
func (s Set) Add(key string) {
	s[key] = struct{}{}
}

// Has reports whether the key is in the set.
func (s Set) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Gap returns candidates not present in existing, preserving candidate order.
func Gap(candidates []string, existing Set) []string {
	out := make([]string, 0, len(candidates))
	for _, k := range candidates {
		if !existing.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// PrefixBreakdown counts keys by their leading digit (0xxxx through 9xxxx).
func PrefixBreakdown(keys []string) [10]int {
	var counts [10]int
	for _, k := range keys {
		if k == "" {
			continue
		}
		if d := k[0]; d >= '0' && d <= '9' {
			counts[d-'0']++
		}
	}
	return counts
}

// Batches splits keys into consecutive slices of at most size elements.
func Batches(keys []string, size int) [][]string {
	if size <= 0 {
		size = len(keys)
	}
	var out [][]string
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		out = append(out, keys[start:end])
	}
	return out
}

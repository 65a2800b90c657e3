package trend

// Dedupe removes duplicate items from a batch, keeping the first occurrence
// of every fingerprint and preserving input order. It is a pure in-memory
// pass and idempotent: Dedupe(Dedupe(x)) == Dedupe(x).
func Dedupe(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))

	for _, it := range items {
		fp := it.ID
		if fp == "" {
			fp = Fingerprint(it)
		}
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		it.ID = fp
		out = append(out, it)
	}
	return out
}

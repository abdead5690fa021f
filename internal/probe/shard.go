package probe

import "hash/fnv"

// OwnedByShard reports whether name belongs to shard k of n for the
// `update-upstream-versions --job=K --n-jobs=N` sharded-run mode (spec.md
// §4.3): each job probes a disjoint, deterministic subset of packages.
func OwnedByShard(name string, k, n int) bool {
	if n <= 1 {
		return true
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return int(h.Sum32()%uint32(n)) == k
}

package worker

import "math/rand/v2"

// chooseDistinct draws k distinct ids uniformly at random without
// replacement using a partial Fisher-Yates shuffle over a copy of ids.
// Every k-subset is equally likely. It returns nil if ids has fewer than k
// entries.
func chooseDistinct(rng *rand.Rand, ids []string, k int) []string {
	if k < 0 || len(ids) < k {
		return nil
	}
	pool := make([]string, len(ids))
	copy(pool, ids)
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

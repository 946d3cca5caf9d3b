package ransac

import (
	"math/rand"
	"slices"

	"go.viam.com/klt/utils"
)

// sampler draws random subsets of indices without replacement.
type sampler struct {
	rng    *rand.Rand
	perm   []int
	sample []int
}

func newSampler(seed int64) *sampler {
	return &sampler{rng: rand.New(rand.NewSource(seed))} //nolint:gosec
}

// draw returns k distinct indices in [0, n). The returned slice is reused by the next call.
func (s *sampler) draw(n, k int) []int {
	if n > 10*k {
		return s.drawRejection(n, k)
	}
	return s.drawShuffle(n, k)
}

// drawRejection draws indices until k distinct ones are found, which is fast when k is a small
// fraction of n.
func (s *sampler) drawRejection(n, k int) []int {
	s.sample = s.sample[:0]
	for len(s.sample) < k {
		idx := utils.SampleRandomIntRange(0, n-1, s.rng)
		if !slices.Contains(s.sample, idx) {
			s.sample = append(s.sample, idx)
		}
	}
	return s.sample
}

// drawShuffle runs the first k steps of a Fisher-Yates shuffle.
func (s *sampler) drawShuffle(n, k int) []int {
	if len(s.perm) != n {
		s.perm = make([]int, n)
		for i := range s.perm {
			s.perm[i] = i
		}
	}
	for i := 0; i < k; i++ {
		j := utils.SampleRandomIntRange(i, n-1, s.rng)
		s.perm[i], s.perm[j] = s.perm[j], s.perm[i]
	}
	s.sample = append(s.sample[:0], s.perm[:k]...)
	return s.sample
}

package utils

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/atomic"
	"go.viam.com/test"
)

func TestGroupWorkParallel(t *testing.T) {
	for _, totalSize := range []int{0, 1, 3, 17, 1000} {
		seen := make([]atomic.Int32, totalSize)
		var groups int
		var mu sync.Mutex
		var covered int
		err := GroupWorkParallel(
			context.Background(),
			totalSize,
			func(numGroups int) {
				groups = numGroups
			},
			func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc) {
				return func(memberNum, workNum int) {
						seen[workNum].Inc()
					}, func() {
						mu.Lock()
						covered += to - from
						mu.Unlock()
					}
			},
		)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, groups, test.ShouldBeLessThanOrEqualTo, ParallelFactor)
		test.That(t, covered, test.ShouldEqual, totalSize)
		for i := range seen {
			test.That(t, seen[i].Load(), test.ShouldEqual, int32(1))
		}
	}
}

func TestGroupWorkParallelCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran atomic.Int32
	err := GroupWorkParallel(ctx, 100, nil, func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc) {
		return func(memberNum, workNum int) {
			ran.Inc()
		}, nil
	})
	test.That(t, err, test.ShouldBeError, context.Canceled)
	test.That(t, ran.Load(), test.ShouldEqual, int32(0))
}

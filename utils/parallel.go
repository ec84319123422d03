// Package utils contains small helpers shared by the image and vision packages.
package utils

import (
	"context"
	"image"
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelFactor is the maximum number of goroutines a parallel helper starts. Tests may lower it.
var ParallelFactor = max(runtime.GOMAXPROCS(0), 1)

// RangeWorkFunc processes the items in [from, to).
type RangeWorkFunc func(from, to int)

// ParallelRange splits [0, totalSize) into at most ParallelFactor contiguous ranges and runs work on
// each of them concurrently. Ranges not started yet when ctx is done are skipped.
func ParallelRange(ctx context.Context, totalSize int, work RangeWorkFunc) error {
	numGroups := min(ParallelFactor, totalSize)
	if numGroups <= 0 {
		return ctx.Err()
	}
	groupSize, extra := totalSize/numGroups, totalSize%numGroups

	var wait sync.WaitGroup
	wait.Add(numGroups)
	from := 0
	for groupNum := 0; groupNum < numGroups; groupNum++ {
		to := from + groupSize
		if groupNum < extra {
			to++
		}
		lo, hi := from, to
		utils.PanicCapturingGo(func() {
			defer wait.Done()
			if ctx.Err() != nil {
				return
			}
			work(lo, hi)
		})
		from = to
	}
	wait.Wait()
	return ctx.Err()
}

// ParallelForEachPixel calls f for every position of an image of the given size. Rows are split in
// bands processed concurrently.
func ParallelForEachPixel(size image.Point, f func(x, y int)) {
	if size.X <= 0 || size.Y <= 0 {
		return
	}
	utils.UncheckedError(ParallelRange(context.Background(), size.Y, func(from, to int) {
		for y := from; y < to; y++ {
			for x := 0; x < size.X; x++ {
				f(x, y)
			}
		}
	}))
}

package labels

import (
	"runtime"
	"sync"

	"labelmesh/internal/models"
)

// Options controls the values written to the indicator volume and the number
// of workers used to evaluate the per-voxel predicate.
type Options struct {
	// InsideValue is written where the predicate holds
	InsideValue uint8

	// OutsideValue is written everywhere else
	OutsideValue uint8

	// NumCores is the number of goroutines sharing the z-slabs
	NumCores int
}

// DefaultOptions returns {1, 0} indicator values and one worker per CPU.
func DefaultOptions() Options {
	return Options{
		InsideValue:  1,
		OutsideValue: 0,
		NumCores:     runtime.NumCPU(),
	}
}

// Filter marks every voxel whose label is in set. The result has the geometry
// of v; v is not modified. An empty set yields an all-background volume.
func Filter[T models.Pixel](v *models.Volume[T], set LabelSet[T], opts Options) *models.BinaryVolume {
	out := models.NewVolume[uint8](v.Geometry)
	forEachSlab(v.Geometry, opts.NumCores, func(start, end int) {
		for i := start; i < end; i++ {
			if set.Contains(v.Data[i]) {
				out.Data[i] = opts.InsideValue
			} else {
				out.Data[i] = opts.OutsideValue
			}
		}
	})
	return out
}

// forEachSlab splits the volume into contiguous ranges of whole z-slices and
// runs fn on each range in its own goroutine. Ranges never overlap, so fn may
// write to its range without locking.
func forEachSlab(geom models.Geometry, numCores int, fn func(start, end int)) {
	depth := geom.Size[2]
	sliceSize := geom.Size[0] * geom.Size[1]
	if numCores < 1 {
		numCores = 1
	}
	if numCores > depth {
		numCores = depth
	}
	if numCores <= 1 {
		fn(0, depth*sliceSize)
		return
	}

	slicesPerCore := (depth + numCores - 1) / numCores

	var wg sync.WaitGroup
	for c := 0; c < numCores; c++ {
		startSlice := c * slicesPerCore
		if startSlice >= depth {
			break
		}
		endSlice := startSlice + slicesPerCore
		if endSlice > depth {
			endSlice = depth
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(startSlice*sliceSize, endSlice*sliceSize)
	}
	wg.Wait()
}

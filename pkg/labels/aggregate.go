package labels

import (
	"errors"
	"fmt"
	"math"

	"labelmesh/internal/models"
)

// ErrTooFewLabels is returned by Aggregate when fewer than two label values
// are supplied.
var ErrTooFewLabels = errors.New("at least 2 label values are required")

// MinAggregateLabels is the minimum number of label values Aggregate accepts.
const MinAggregateLabels = 2

// Threshold writes inside where lower <= V[p] <= upper and outside elsewhere.
// Voxel values are compared as float64.
func Threshold[T models.Pixel](v *models.Volume[T], lower, upper float64, inside, outside uint8, numCores int) *models.BinaryVolume {
	out := models.NewVolume[uint8](v.Geometry)
	forEachSlab(v.Geometry, numCores, func(start, end int) {
		for i := start; i < end; i++ {
			p := float64(v.Data[i])
			if p >= lower && p <= upper {
				out.Data[i] = inside
			} else {
				out.Data[i] = outside
			}
		}
	})
	return out
}

// Add accumulates mask into acc pointwise. acc is wide enough that summing
// any realistic number of {0,1} masks cannot wrap.
func Add[T models.Pixel](acc *models.Volume[uint32], mask *models.Volume[T]) error {
	if acc.Size != mask.Size {
		return fmt.Errorf("cannot add volumes of size %v and %v", acc.Size, mask.Size)
	}
	for i, p := range mask.Data {
		acc.Data[i] += uint32(p)
	}
	return nil
}

// Aggregate marks every voxel equal to any of labels. It builds one
// single-value mask per label, sums them and re-binarizes the sum so that a
// voxel matched by several (duplicate) labels still ends up exactly 1.
func Aggregate[T models.Pixel](v *models.Volume[T], labels []float64, opts Options) (*models.BinaryVolume, error) {
	if len(labels) < MinAggregateLabels {
		return nil, fmt.Errorf("%w, got %d", ErrTooFewLabels, len(labels))
	}

	acc := models.NewVolume[uint32](v.Geometry)
	for _, label := range labels {
		mask := Threshold(v, label, label, 1, 0, opts.NumCores)
		if err := Add(acc, mask); err != nil {
			return nil, err
		}
	}

	return Threshold(acc, 1, math.Inf(1), opts.InsideValue, opts.OutsideValue, opts.NumCores), nil
}

// Package labels turns labeled volumes into binary indicator volumes, either
// by set membership or by OR-ing single-value threshold masks.
package labels

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"labelmesh/internal/models"
)

// LabelSet is an unordered set of labels of interest.
type LabelSet[T models.Pixel] struct {
	members map[T]struct{}
}

// NewLabelSet builds a set from values, dropping duplicates.
func NewLabelSet[T models.Pixel](values ...T) LabelSet[T] {
	s := LabelSet[T]{members: make(map[T]struct{}, len(values))}
	for _, v := range values {
		s.members[v] = struct{}{}
	}
	return s
}

// Contains reports whether label is in the set.
func (s LabelSet[T]) Contains(label T) bool {
	_, ok := s.members[label]
	return ok
}

// Len returns the number of distinct labels.
func (s LabelSet[T]) Len() int {
	return len(s.members)
}

// Values returns the labels in ascending order.
func (s LabelSet[T]) Values() []T {
	out := make([]T, 0, len(s.members))
	for v := range s.members {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s LabelSet[T]) String() string {
	parts := make([]string, 0, s.Len())
	for _, v := range s.Values() {
		parts = append(parts, fmt.Sprint(v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ParseLabelSet parses decimal labels into a set of T. Values that cannot be
// represented exactly by T are rejected.
func ParseLabelSet[T models.Pixel](fields []string) (LabelSet[T], error) {
	values := make([]T, 0, len(fields))
	for _, f := range fields {
		v, err := ParseLabel[T](f)
		if err != nil {
			return LabelSet[T]{}, err
		}
		values = append(values, v)
	}
	return NewLabelSet(values...), nil
}

// ParseLabel parses a single decimal label into T.
func ParseLabel[T models.Pixel](field string) (T, error) {
	field = strings.TrimSpace(field)
	var zero T
	if ^zero < zero {
		// signed
		n, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return zero, fmt.Errorf("invalid label %q: %v", field, err)
		}
		if int64(T(n)) != n {
			return zero, fmt.Errorf("label %q out of range for %s", field, models.PixelTypeName[T]())
		}
		return T(n), nil
	}
	n, err := strconv.ParseUint(field, 10, 64)
	if err != nil {
		return zero, fmt.Errorf("invalid label %q: %v", field, err)
	}
	if uint64(T(n)) != n {
		return zero, fmt.Errorf("label %q out of range for %s", field, models.PixelTypeName[T]())
	}
	return T(n), nil
}

// SplitLabelList splits a comma separated flag value into fields.
func SplitLabelList(list string) []string {
	var fields []string
	for _, f := range strings.Split(list, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

package core

import (
	"fmt"
	"maps"

	"github.com/mohae/deepcopy"
)

// DeepCopy returns a deep copy of v. Unexported fields are not copied.
func DeepCopy[T any](v T) (T, error) {
	var zero T
	copied := deepcopy.Copy(v)
	if copied == nil {
		return zero, nil
	}
	result, ok := copied.(T)
	if !ok {
		return zero, fmt.Errorf("failed to cast copied value to type %T", zero)
	}
	return result, nil
}

// MustDeepCopy is DeepCopy for value types where the cast cannot fail.
func MustDeepCopy[T any](v T) T {
	out, err := DeepCopy(v)
	if err != nil {
		panic(err)
	}
	return out
}

// CopyMaps merges the given maps into a new map. Later maps win.
func CopyMaps[K comparable, V any](sources ...map[K]V) map[K]V {
	size := 0
	for _, m := range sources {
		size += len(m)
	}
	out := make(map[K]V, size)
	for _, m := range sources {
		maps.Copy(out, m)
	}
	return out
}

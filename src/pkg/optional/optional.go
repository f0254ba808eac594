package optional

import "github.com/Blackdeer1524/HeapDB/src/pkg/assert"

type Optional[T any] struct {
	present bool
	value   T
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{present: true, value: value}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) IsSome() bool {
	return o.present
}

func (o Optional[T]) IsNone() bool {
	return !o.present
}

// Get returns the value and whether it is present, comma-ok style.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

func (o Optional[T]) Unwrap() T {
	assert.Assert(o.present, "unwrapping an empty optional")
	return o.value
}

func (o Optional[T]) OrElse(fallback T) T {
	if !o.present {
		return fallback
	}
	return o.value
}

package utils

// Value dereferences v, returning the zero value for nil. Optional JSON fields
// decode to pointers and are read through it.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// Ptr returns a pointer to a copy of v, for filling optional fields.
func Ptr[T any](v T) *T {
	return &v
}

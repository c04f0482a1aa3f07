package sparkify

import (
	"context"
)

// Loader writes the rows projected from one source object.
// Implementations commit each call on its own so a failure affects one object only.
type Loader interface {
	Load(context.Context, *Batch) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(context.Context, *Batch) error

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, b *Batch) error {
	return f(ctx, b)
}

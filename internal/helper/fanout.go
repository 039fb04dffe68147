package helper

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one fanned-out item. Index is the item's position
// in the input slice, not its completion order.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// FanOut runs fn for every item concurrently and returns only after every call
// has finished. A failing item never cancels its siblings. Each goroutine owns
// its own slot of the result slice, so no lock guards the accumulation.
// limit <= 0 means no concurrency bound.
func FanOut[In, Out any](ctx context.Context, items []In, limit int, fn func(ctx context.Context, index int, item In) (Out, error)) []Result[Out] {
	results := make([]Result[Out], len(items))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, item := range items {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					results[i] = Result[Out]{Index: i, Err: fmt.Errorf("panic in fan-out item %d: %v", i, r)}
				}
			}()

			out, fnErr := fn(ctx, i, item)
			results[i] = Result[Out]{Index: i, Value: out, Err: fnErr}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

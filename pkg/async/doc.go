// Package async provides a small generic Future primitive for running a
// computation in its own goroutine and collecting its result later.
//
// The realtime engine uses futures to decouple enqueueing a storage write
// from awaiting its outcome: the write queue returns a *Future immediately
// and the router awaits it before fanning out notifications.
//
//	future := async.Async(ctx, task, func(ctx context.Context, t Task) (Result, error) {
//		return engine.Write(ctx, t)
//	})
//	res, err := future.Await()
//
// If the context is already canceled when Async runs, the future completes
// with the context error without invoking the function.
package async

// Package writer executes storage writes on a bounded worker pool.
//
// The write router enqueues one task per document mutation and receives a
// future it awaits before fanning out notifications; a failed write
// therefore suppresses notification entirely. Workers serialize nothing
// beyond their own count; ordering guarantees, where needed, belong to the
// storage engine.
//
//	q := writer.New(engine, writer.WithWorkers(4))
//	defer q.Close()
//
//	future := q.Enqueue(ctx, writer.Task{
//		Op:         storage.OpCreate,
//		Collection: "users",
//		Document:   doc,
//	})
//	res, err := future.Await()
package writer

// Package storage defines the persistence collaborator the write router
// delegates document mutations to, together with two engines: an in-memory
// engine for tests and single-node development, and a MongoDB engine for
// durable deployments.
//
// The realtime core never queries the engine; it only issues writes and
// waits for their outcome before fanning out notifications. A failed write
// suppresses notification entirely.
package storage

// Package events provides a typed, synchronous in-process event bus.
//
// A Bus is parameterized by a closed set of event kinds K and a single
// payload type T, so emitters and handlers agree on the payload shape at
// compile time. Emission dispatches synchronously: every handler registered
// for the kind runs before Emit returns, and each handler observes the exact
// payload instance the emitter passed, not a copy.
//
// Subscribing returns an explicit cancellation handle:
//
//	bus := events.New[string, *Request]()
//	sub := bus.On("data:create", func(req *Request) { ... })
//	defer sub.Cancel()
//
//	bus.Emit("data:create", req)
//
// A panicking handler is recovered and isolated; it neither stops dispatch
// to the remaining handlers nor propagates to the emitter.
package events

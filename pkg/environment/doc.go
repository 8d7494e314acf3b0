// Package environment defines the application environment enum and context
// helpers used by the logger factory and service wiring.
package environment

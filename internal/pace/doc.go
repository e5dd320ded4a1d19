// Package pace spaces out browser actions with randomized, cancellable waits.
package pace

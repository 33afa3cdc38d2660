// Package stores holds the persisted per-subsystem stores of the app:
// workout plans, premade plans, plan progress and notification preferences.
//
// Each store is a container.Container over a shared ports.Storage, so all of
// them write through the same Operation Queue instead of keeping private
// write chains. Hosts that want a subsystem's backlog isolated from the
// others pass that store its own storage.Queued (and therefore its own queue).
package stores

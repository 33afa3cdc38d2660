/*
Package liftlog is the persistence core of a workout-tracking app: an ordered
write queue, persisted reactive stores and the lifecycle hook that flushes
pending writes before the host suspends the process.

Writes to the same key can be issued faster than the backend completes them.
Without coordination an older snapshot may land after a newer one. liftlog
routes every write through an Operation Queue that runs them one at a time in
submission order, isolates failures per operation and lets callers wait for
everything issued so far.

# Key Features

  - Ordered Writes: snapshots land in mutation order even when the backend's latency varies per call.
  - Failure Isolation: a failed or hung write only fails its own Future; the queue always advances.
  - Hydration Gate: reads can tell "not loaded yet" apart from "does not exist".
  - Lifecycle Flush: moving to the background waits for pending writes, bounded by a timeout.
  - Pluggable Backends: memory, file or redis, decorated with encryption and metrics middleware.

# Usage

Compose the stack once, at the outermost point of the application:

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/liftlog/pkg/adapters/file"
		"github.com/aretw0/liftlog/pkg/lifecycle"
		"github.com/aretw0/liftlog/pkg/registry"
	)

	func main() {
		ctx := context.Background()

		// One shared queue, bound to the process-wide instance.
		reg := registry.Default(file.New(".liftlog/data"))

		// Flush pending writes when the OS asks the process to stop or suspend.
		source := lifecycle.NewSignalSource(lifecycle.DefaultSignalMapping())
		source.Start(ctx)
		defer reg.WatchLifecycle(source)()

		stores := reg.Stores()
		if err := stores.Rehydrate(ctx); err != nil {
			log.Printf("Some stores failed to load: %v", err)
		}

		stores.Plans.Create("Push Pull Legs", nil)

		// Durability checkpoint before exit.
		if err := reg.Flush(ctx); err != nil {
			log.Fatal(err)
		}
	}
*/
package liftlog

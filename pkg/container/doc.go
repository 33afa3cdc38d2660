/*
Package container provides a persisted reactive state container.

A Container holds an in-memory value of type T. Mutations through Set apply
synchronously, notify subscribers, and hand a serialized snapshot to the
configured storage. When the storage is a *storage.Queued the write is
enqueued without waiting, so snapshots land in mutation order without ever
blocking the caller.

# Hydration

A Container starts with its initial value and Hydrated() == false. Rehydrate
loads the persisted snapshot, migrates it if its version differs, merges it into
memory and then opens the hydration gate, whatever the outcome. Consumers that
need authoritative state wait for the gate:

	plans := container.New("plans", []domain.WorkoutPlan{}, store)
	go plans.Rehydrate(ctx)

	if err := plans.WaitHydrated(ctx); err != nil {
		return err
	}
	current := plans.Get() // authoritative from here on

Set calls made before hydration change the in-memory value but are not
written, because the provisional value would replace a snapshot that has not
been read yet. Rehydrate replays those updates over the loaded snapshot and
persists the result once.

# Wire format

Snapshots are stored as {"state": <T as JSON>, "version": <int>}.
*/
package container

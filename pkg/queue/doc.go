/*
Package queue provides the Operation Queue: a serializer that runs submitted
asynchronous operations one at a time, in submission order, regardless of
whether earlier operations succeeded or failed.

# Chain model

The queue holds a single reference to "the tail": a channel that is closed when
the most recently submitted operation settles. Submit swaps the tail for a new
channel and starts a goroutine that waits on the previous one, runs the
operation exactly once, records the outcome in a Future and finally closes its
own channel. The chain itself therefore never fails; only the Future of the
operation that failed observes the failure.

	q := queue.New(queue.WithLogger(logger))

	f := queue.Submit(q, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	v, err := f.Wait(ctx)

	// Durability checkpoint: waits for everything submitted so far.
	_ = q.Flush(ctx)

Operations are never cancelled once submitted. WithOperationTimeout bounds how
long the chain waits for a single operation; a timed-out operation is abandoned
and the queue advances.
*/
package queue

/*
Package lifecycle drains pending writes when the host application leaves the
foreground.

The host may suspend or kill the process shortly after a background
transition. Listener subscribes once to the host's AppStateSource and, on
"background" or "inactive", waits for the write queue to drain. Flush failures
are logged and never propagated into the host's dispatch path.

	l := lifecycle.NewListener(source, queued, lifecycle.WithLogger(logger))
	cleanup := l.Setup()
	defer cleanup()

SetupFlushListener and FlushPendingWrites are process-wide shortcuts bound to
queue.Global().
*/
package lifecycle

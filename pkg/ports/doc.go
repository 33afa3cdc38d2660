/*
Package ports defines the driven ports (interfaces) of the liftlog persistence core.

These interfaces decouple the queue, the storage adapter and the reactive
containers from concrete backends and from the host application.

# Key Interfaces

  - KVStore: The raw persistent key-value store (memory, file, Redis).
  - Storage: The three-method contract a reactive container persists through.
  - AppStateSource: The host's foreground/background signal.
  - Flusher: Anything that can wait for its pending writes to land.
*/
package ports

/*
Package domain contains the core domain models shared by the liftlog persistence core.

It is kept pure and free of I/O so that queues, adapters and containers can all
depend on it without pulling in each other.

# Key Entities

  - AppState: The foreground/background state reported by the host application.
  - WorkoutPlan, PlanProgress, NotificationPreferences: The snapshots persisted by the stores.
  - Sentinel errors: Returned by stores and queues and checked with errors.Is.
*/
package domain

package domain

import "time"

// Exercise is a single movement prescribed on a plan day.
type Exercise struct {
	Name string `json:"name"`
	Sets int    `json:"sets"`
	Reps int    `json:"reps"`
	// RestSeconds between sets. Zero means "as needed".
	RestSeconds int `json:"restSeconds,omitempty"`
}

// PlanDay is one training day of a WorkoutPlan.
type PlanDay struct {
	Title     string     `json:"title"`
	Exercises []Exercise `json:"exercises"`
}

// WorkoutPlan is a user-created or premade multi-day program.
type WorkoutPlan struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Days      []PlanDay `json:"days"`
	Premade   bool      `json:"premade,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PlanProgress tracks which days of a plan have been completed.
type PlanProgress struct {
	PlanID        string         `json:"planId"`
	CompletedDays map[int]string `json:"completedDays"` // day index -> RFC3339 completion time
	CurrentDay    int            `json:"currentDay"`
}

// NotificationPreferences are the user's reminder settings.
type NotificationPreferences struct {
	Enabled         bool   `json:"enabled"`
	ReminderTime    string `json:"reminderTime"` // HH:MM, local time
	RestDayReminder bool   `json:"restDayReminder"`
	StreakAlerts    bool   `json:"streakAlerts"`
}

// DefaultNotificationPreferences returns the settings used before anything is persisted.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		Enabled:      true,
		ReminderTime: "18:00",
		StreakAlerts: true,
	}
}

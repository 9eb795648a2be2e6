package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TeacherUnavailableSlot describes a blocked teaching window.
type TeacherUnavailableSlot struct {
	DayOfWeek string `json:"day_of_week"`
	TimeRange string `json:"time_range"`
}

// TeacherPreference stores a teacher's standing unavailability windows, fed
// into the scheduler as pre-booked teacher slots before generation begins.
type TeacherPreference struct {
	ID          string         `db:"id" json:"id"`
	TeacherID   string         `db:"teacher_id" json:"teacher_id"`
	Unavailable types.JSONText `db:"unavailable" json:"unavailable"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

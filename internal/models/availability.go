package models

import (
	"encoding/json"
	"strings"
	"time"
)

// AvailabilityType describes when a user is generally free to swap.
type AvailabilityType string

const (
	AvailabilityWeekdays AvailabilityType = "WEEKDAYS"
	AvailabilityWeekends AvailabilityType = "WEEKENDS"
	AvailabilityEvenings AvailabilityType = "EVENINGS"
	AvailabilityMornings AvailabilityType = "MORNINGS"
	AvailabilityFlexible AvailabilityType = "FLEXIBLE"
)

// Valid reports whether t is a known availability type.
func (t AvailabilityType) Valid() bool {
	switch t {
	case AvailabilityWeekdays, AvailabilityWeekends, AvailabilityEvenings, AvailabilityMornings, AvailabilityFlexible:
		return true
	}
	return false
}

// DayList is a set of lowercase weekday names stored as comma-joined text.
type DayList string

// NewDayList joins days into their stored form.
func NewDayList(days []string) DayList {
	return DayList(strings.Join(days, ","))
}

// Days splits the stored value back into weekday names.
func (d DayList) Days() []string {
	if d == "" {
		return []string{}
	}
	return strings.Split(string(d), ",")
}

// MarshalJSON renders the list as a JSON array.
func (d DayList) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Days())
}

// UnmarshalJSON accepts a JSON array of weekday names.
func (d *DayList) UnmarshalJSON(b []byte) error {
	var days []string
	if err := json.Unmarshal(b, &days); err != nil {
		return err
	}
	*d = NewDayList(days)
	return nil
}

// UserAvailability is descriptive scheduling metadata for a user.
type UserAvailability struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	UserID           uint             `gorm:"not null;index" json:"userId"`
	AvailabilityType AvailabilityType `gorm:"type:varchar(10);not null" json:"availabilityType"`
	StartTime        string           `gorm:"size:5" json:"startTime,omitempty"`
	EndTime          string           `gorm:"size:5" json:"endTime,omitempty"`
	DaysOfWeek       DayList          `gorm:"type:text" json:"daysOfWeek"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// TableName specifies the table name for GORM
func (UserAvailability) TableName() string {
	return "user_availabilities"
}

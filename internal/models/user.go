// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// ProfileVisibility controls who may view a user's profile.
type ProfileVisibility string

const (
	// VisibilityPublic profiles are searchable and can receive swap requests.
	VisibilityPublic ProfileVisibility = "PUBLIC"
	// VisibilityPrivate profiles are only visible to their owner.
	VisibilityPrivate ProfileVisibility = "PRIVATE"
)

// Valid reports whether v is a known visibility.
func (v ProfileVisibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// User represents a SkillSwap member.
type User struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	Email             string            `gorm:"uniqueIndex;not null;size:255" json:"email,omitempty"`
	Password          string            `gorm:"not null" json:"-"`
	FirstName         string            `gorm:"size:50;not null" json:"firstName"`
	LastName          string            `gorm:"size:50;not null" json:"lastName"`
	Location          string            `gorm:"size:100" json:"location"`
	Bio               string            `gorm:"size:500" json:"bio"`
	ProfilePhoto      *string           `json:"profilePhoto"`
	ProfileVisibility ProfileVisibility `gorm:"type:varchar(10);not null;default:'PUBLIC'" json:"profileVisibility"`
	IsAvailable       bool              `gorm:"not null;default:true" json:"isAvailable"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`

	Skills         []UserSkill        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"skills,omitempty"`
	Availabilities []UserAvailability `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"availability,omitempty"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// BeforeSave keeps emails lower-cased so the unique index is case-insensitive.
func (u *User) BeforeSave(_ *gorm.DB) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.ProfileVisibility == "" {
		u.ProfileVisibility = VisibilityPublic
	}
	return nil
}

// IsPublic reports whether the profile may be viewed by other users.
func (u *User) IsPublic() bool {
	return u.ProfileVisibility != VisibilityPrivate
}

// UserSummary is the participant projection embedded in swap and feedback payloads.
type UserSummary struct {
	ID           uint    `json:"id"`
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	ProfilePhoto *string `json:"profilePhoto"`
}

// Summary projects u to the public participant fields.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, ProfilePhoto: u.ProfilePhoto}
}

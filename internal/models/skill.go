package models

import "time"

// Skill is a catalog entry that users can offer or want.
type Skill struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:50;not null" json:"name"`
	Category    string    `gorm:"size:50;not null;index:idx_skills_category" json:"category"`
	Description string    `gorm:"size:200" json:"description"`
	IsCustom    bool      `gorm:"not null;default:false" json:"isCustom"`
	CreatedAt   time.Time `json:"createdAt"`

	// UserSkillCount is populated by catalog queries; not a column.
	UserSkillCount int64 `gorm:"->;-:migration" json:"userSkillCount"`
}

// TableName specifies the table name for GORM
func (Skill) TableName() string {
	return "skills"
}

// SkillType is the role a skill holds for a user.
type SkillType string

const (
	// SkillOffered marks a skill the user can teach.
	SkillOffered SkillType = "OFFERED"
	// SkillWanted marks a skill the user wants to learn.
	SkillWanted SkillType = "WANTED"
)

// Valid reports whether t is OFFERED or WANTED.
func (t SkillType) Valid() bool {
	return t == SkillOffered || t == SkillWanted
}

// UserSkill links a user to a skill with a role and proficiency level.
type UserSkill struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_skill_type" json:"userId"`
	SkillID   uint      `gorm:"not null;uniqueIndex:idx_user_skill_type;index" json:"skillId"`
	SkillType SkillType `gorm:"type:varchar(10);not null;uniqueIndex:idx_user_skill_type" json:"skillType"`
	Level     int       `gorm:"not null;default:1" json:"level"`
	CreatedAt time.Time `json:"createdAt"`

	Skill Skill `gorm:"foreignKey:SkillID;constraint:OnDelete:CASCADE" json:"skill"`
}

// TableName specifies the table name for GORM
func (UserSkill) TableName() string {
	return "user_skills"
}

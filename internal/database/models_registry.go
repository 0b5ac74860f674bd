package database

import "skillswap/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models,
// parents before children.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Skill{},
		&models.UserSkill{},
		&models.UserAvailability{},
		&models.SwapRequest{},
		&models.Feedback{},
	}
}

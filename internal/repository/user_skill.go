package repository

import (
	"context"
	"errors"

	"skillswap/internal/models"

	"gorm.io/gorm"
)

// UserSkillRepository manages the OFFERED/WANTED links between users and skills.
type UserSkillRepository interface {
	Create(ctx context.Context, us *models.UserSkill) error
	GetForUser(ctx context.Context, id, userID uint) (*models.UserSkill, error)
	Delete(ctx context.Context, id uint) error
	Exists(ctx context.Context, userID, skillID uint, skillType models.SkillType) (bool, error)
}

type userSkillRepository struct {
	db *gorm.DB
}

// NewUserSkillRepository creates a new user skill repository
func NewUserSkillRepository(db *gorm.DB) UserSkillRepository {
	return &userSkillRepository{db: db}
}

// Create inserts the link and reloads it with its skill.
func (r *userSkillRepository) Create(ctx context.Context, us *models.UserSkill) error {
	if err := r.db.WithContext(ctx).Omit("Skill").Create(us).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("You already have this skill with this type", err)
		}
		return models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Preload("Skill").First(us, us.ID).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetForUser scopes the lookup to userID so other users' rows read as missing.
func (r *userSkillRepository) GetForUser(ctx context.Context, id, userID uint) (*models.UserSkill, error) {
	var us models.UserSkill
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&us).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("User skill not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &us, nil
}

func (r *userSkillRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.UserSkill{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userSkillRepository) Exists(ctx context.Context, userID, skillID uint, skillType models.SkillType) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserSkill{}).
		Where("user_id = ? AND skill_id = ? AND skill_type = ?", userID, skillID, skillType).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

package repository

import (
	"context"
	"errors"
	"strings"

	"skillswap/internal/models"
	"skillswap/internal/observability"

	"gorm.io/gorm"
)

// UserSearchFilter narrows the public user directory.
type UserSearchFilter struct {
	Skill     string
	SkillType models.SkillType
	Location  string
	Available bool
	Page      Page
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetProfile(ctx context.Context, id uint) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	Search(ctx context.Context, filter UserSearchFilter) ([]models.User, int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	defer observability.TrackQuery("get", "users")()
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("User not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no account uses email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetProfile loads a user with skills and availability windows.
func (r *userRepository) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	defer observability.TrackQuery("get_profile", "users")()
	var user models.User
	err := readDB(r.db).WithContext(ctx).
		Preload("Skills", func(db *gorm.DB) *gorm.DB {
			return db.Order("user_skills.created_at ASC")
		}).
		Preload("Skills.Skill").
		Preload("Availabilities").
		First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("User not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("An account with this email already exists", err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundMessage("User not found")
	}
	return nil
}

// Search lists PUBLIC users. The skill filter is a name substring over the
// user's skills, applied in SQL so pagination counts stay exact.
func (r *userRepository) Search(ctx context.Context, filter UserSearchFilter) ([]models.User, int64, error) {
	defer observability.TrackQuery("search", "users")()
	query := readDB(r.db).WithContext(ctx).
		Model(&models.User{}).
		Where("profile_visibility = ?", models.VisibilityPublic)

	if loc := strings.TrimSpace(filter.Location); loc != "" {
		query = query.Where("LOWER(location) LIKE ?", likePattern(loc))
	}
	if filter.Available {
		query = query.Where("is_available = ?", true)
	}
	if skill := strings.TrimSpace(filter.Skill); skill != "" {
		sub := r.db.Table("user_skills").
			Select("1").
			Joins("JOIN skills ON skills.id = user_skills.skill_id").
			Where("user_skills.user_id = users.id AND LOWER(skills.name) LIKE ?", likePattern(skill))
		if filter.SkillType != "" {
			sub = sub.Where("user_skills.skill_type = ?", filter.SkillType)
		}
		query = query.Where("EXISTS (?)", sub)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	skillScope := func(db *gorm.DB) *gorm.DB {
		if filter.SkillType != "" {
			return db.Where("skill_type = ?", filter.SkillType)
		}
		return db
	}

	var users []models.User
	if err := filter.Page.apply(query).
		Preload("Skills", skillScope).
		Preload("Skills.Skill").
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}

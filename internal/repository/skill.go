package repository

import (
	"context"
	"errors"
	"strings"

	"skillswap/internal/models"
	"skillswap/internal/observability"

	"gorm.io/gorm"
)

// SkillFilter narrows the catalog listing.
type SkillFilter struct {
	Category string
	Search   string
	Page     Page
}

// SkillRepository reads and extends the skill catalog.
type SkillRepository interface {
	List(ctx context.Context, filter SkillFilter) ([]models.Skill, int64, error)
	Search(ctx context.Context, query, category string, limit int) ([]models.Skill, error)
	GetByID(ctx context.Context, id uint) (*models.Skill, error)
	GetByNameInsensitive(ctx context.Context, name string) (*models.Skill, error)
	Create(ctx context.Context, skill *models.Skill) error
	Categories(ctx context.Context) ([]string, error)
	Popular(ctx context.Context, limit int) ([]models.Skill, error)
}

type skillRepository struct {
	db *gorm.DB
}

// NewSkillRepository creates a new skill repository
func NewSkillRepository(db *gorm.DB) SkillRepository {
	return &skillRepository{db: db}
}

const skillCountColumn = "(SELECT COUNT(*) FROM user_skills WHERE user_skills.skill_id = skills.id) AS user_skill_count"

func withSkillCount(db *gorm.DB) *gorm.DB {
	return db.Select("skills.*, " + skillCountColumn)
}

func matchSkillText(db *gorm.DB, text string) *gorm.DB {
	pattern := likePattern(text)
	return db.Where("(LOWER(skills.name) LIKE ? OR LOWER(skills.description) LIKE ?)", pattern, pattern)
}

func (r *skillRepository) List(ctx context.Context, filter SkillFilter) ([]models.Skill, int64, error) {
	defer observability.TrackQuery("list", "skills")()
	query := readDB(r.db).WithContext(ctx).Model(&models.Skill{})
	if filter.Category != "" {
		query = query.Where("skills.category = ?", filter.Category)
	}
	if strings.TrimSpace(filter.Search) != "" {
		query = matchSkillText(query, filter.Search)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var skills []models.Skill
	if err := filter.Page.apply(withSkillCount(query)).
		Order("skills.is_custom ASC, skills.name ASC").
		Find(&skills).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return skills, total, nil
}

func (r *skillRepository) Search(ctx context.Context, text, category string, limit int) ([]models.Skill, error) {
	query := matchSkillText(readDB(r.db).WithContext(ctx).Model(&models.Skill{}), text)
	if category != "" {
		query = query.Where("skills.category = ?", category)
	}
	var skills []models.Skill
	if err := withSkillCount(query).
		Order("skills.name ASC").
		Limit(limit).
		Find(&skills).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return skills, nil
}

func (r *skillRepository) GetByID(ctx context.Context, id uint) (*models.Skill, error) {
	var skill models.Skill
	err := withSkillCount(readDB(r.db).WithContext(ctx).Model(&models.Skill{})).
		Where("skills.id = ?", id).
		Take(&skill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("Skill not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &skill, nil
}

// GetByNameInsensitive returns nil, nil when no skill has that name in any case.
func (r *skillRepository) GetByNameInsensitive(ctx context.Context, name string) (*models.Skill, error) {
	var skill models.Skill
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&skill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &skill, nil
}

func (r *skillRepository) Create(ctx context.Context, skill *models.Skill) error {
	if err := r.db.WithContext(ctx).Create(skill).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("A skill with this name already exists", err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *skillRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := readDB(r.db).WithContext(ctx).
		Model(&models.Skill{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

func (r *skillRepository) Popular(ctx context.Context, limit int) ([]models.Skill, error) {
	defer observability.TrackQuery("popular", "skills")()
	var skills []models.Skill
	if err := withSkillCount(readDB(r.db).WithContext(ctx).Model(&models.Skill{})).
		Order("user_skill_count DESC, skills.name ASC").
		Limit(limit).
		Find(&skills).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return skills, nil
}

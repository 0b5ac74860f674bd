package service

import (
	"context"
	"strings"

	"skillswap/internal/cache"
	"skillswap/internal/featureflags"
	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/validation"
)

const maxSkillSearchResults = 20

// SkillListInput filters and pages the catalog.
type SkillListInput struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}

// SkillList is one catalog page plus every known category.
type SkillList struct {
	Skills     []models.Skill `json:"skills"`
	Pagination Pagination     `json:"pagination"`
	Categories []string       `json:"categories"`
}

// CreateSkillInput is the body of a user-defined skill.
type CreateSkillInput struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// SkillService serves the skill catalog.
type SkillService struct {
	skills repository.SkillRepository
	flags  *featureflags.Manager
}

// NewSkillService creates the catalog service. With nil flags custom skills are always allowed.
func NewSkillService(skills repository.SkillRepository, flags *featureflags.Manager) *SkillService {
	return &SkillService{skills: skills, flags: flags}
}

func (s *SkillService) List(ctx context.Context, in SkillListInput) (*SkillList, error) {
	page := normalizePage(in.Limit, in.Offset, 50)
	skills, total, err := s.skills.List(ctx, repository.SkillFilter{
		Category: strings.TrimSpace(in.Category),
		Search:   strings.TrimSpace(in.Search),
		Page:     page,
	})
	if err != nil {
		return nil, err
	}
	categories, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return &SkillList{Skills: nonNilSkills(skills), Pagination: newPagination(total, page), Categories: categories}, nil
}

func (s *SkillService) Search(ctx context.Context, query, category string) ([]models.Skill, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Validation error",
			models.FieldError{Field: "q", Message: "Search query is required"})
	}
	skills, err := s.skills.Search(ctx, query, strings.TrimSpace(category), maxSkillSearchResults)
	if err != nil {
		return nil, err
	}
	return nonNilSkills(skills), nil
}

func (s *SkillService) GetByID(ctx context.Context, id uint) (*models.Skill, error) {
	return s.skills.GetByID(ctx, id)
}

// CreateCustom adds a user-defined skill to the catalog.
func (s *SkillService) CreateCustom(ctx context.Context, userID uint, in CreateSkillInput) (*models.Skill, error) {
	if s.flags != nil {
		if err := s.flags.Require(featureflags.CustomSkills, userID); err != nil {
			return nil, err
		}
	}

	var errs validation.Errors
	errs.Length("name", in.Name, 2, 50)
	errs.Length("category", in.Category, 2, 50)
	errs.Length("description", in.Description, 0, 200)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	existing, err := s.skills.GetByNameInsensitive(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewBusinessRuleError("A skill with this name already exists")
	}

	skill := &models.Skill{
		Name:        name,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		IsCustom:    true,
	}
	if err := s.skills.Create(ctx, skill); err != nil {
		return nil, err
	}
	cache.InvalidateSkillCategories(ctx)
	return skill, nil
}

// Categories lists distinct categories, cached for ten minutes.
func (s *SkillService) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := cache.Aside(ctx, cache.SkillCategoriesKey, &categories, cache.SkillCategoriesTTL, func() error {
		var err error
		categories, err = s.skills.Categories(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

// Popular returns the most referenced skills, cached for two minutes.
func (s *SkillService) Popular(ctx context.Context, limit int) ([]models.Skill, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	var skills []models.Skill
	err := cache.Aside(ctx, cache.PopularSkillsKey(limit), &skills, cache.PopularSkillsTTL, func() error {
		var err error
		skills, err = s.skills.Popular(ctx, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return nonNilSkills(skills), nil
}

func nonNilSkills(items []models.Skill) []models.Skill {
	if items == nil {
		return []models.Skill{}
	}
	return items
}

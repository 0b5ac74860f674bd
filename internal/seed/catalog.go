package seed

import (
	_ "embed"
	"fmt"

	"skillswap/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed skills.yaml
var catalogYAML []byte

type catalogCategory struct {
	Category string `yaml:"category"`
	Skills   []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"skills"`
}

// Catalog returns the predefined skills in file order.
func Catalog() ([]models.Skill, error) {
	return parseCatalog(catalogYAML)
}

func parseCatalog(data []byte) ([]models.Skill, error) {
	var categories []catalogCategory
	if err := yaml.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("parse skill catalog: %w", err)
	}

	seen := make(map[string]bool)
	var skills []models.Skill
	for _, cat := range categories {
		if cat.Category == "" {
			return nil, fmt.Errorf("parse skill catalog: category without a name")
		}
		for _, s := range cat.Skills {
			if s.Name == "" {
				return nil, fmt.Errorf("parse skill catalog: unnamed skill in %q", cat.Category)
			}
			if seen[s.Name] {
				return nil, fmt.Errorf("parse skill catalog: duplicate skill %q", s.Name)
			}
			seen[s.Name] = true
			skills = append(skills, models.Skill{
				Name:        s.Name,
				Category:    cat.Category,
				Description: s.Description,
			})
		}
	}
	return skills, nil
}

// Skills upserts the predefined catalog by name. Existing rows keep their IDs.
func Skills(db *gorm.DB) ([]models.Skill, error) {
	catalog, err := Catalog()
	if err != nil {
		return nil, err
	}

	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "description"}),
	}).Create(&catalog).Error; err != nil {
		return nil, fmt.Errorf("seed skills: %w", err)
	}

	names := make([]string, len(catalog))
	for i, s := range catalog {
		names[i] = s.Name
	}
	var stored []models.Skill
	if err := db.Where("name IN ?", names).Order("id").Find(&stored).Error; err != nil {
		return nil, fmt.Errorf("reload skills: %w", err)
	}
	return stored, nil
}

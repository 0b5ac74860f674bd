// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"

	"skillswap/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	// FakeUsers adds that many generated members on top of the sample users.
	FakeUsers int
	// Clean removes all existing rows first.
	Clean bool
}

type sampleSkill struct {
	name  string
	kind  models.SkillType
	level int
}

type sampleUser struct {
	user         models.User
	skills       []sampleSkill
	availability models.UserAvailability
}

var sampleUsers = []sampleUser{
	{
		user: models.User{
			Email:     "john.doe@example.com",
			FirstName: "John",
			LastName:  "Doe",
			Location:  "New York, NY",
			Bio:       "Full-stack developer passionate about teaching and learning new technologies.",
		},
		skills: []sampleSkill{
			{"JavaScript", models.SkillOffered, 4},
			{"React", models.SkillOffered, 4},
			{"Node.js", models.SkillOffered, 3},
			{"Photography", models.SkillWanted, 1},
			{"Spanish", models.SkillWanted, 2},
		},
		availability: models.UserAvailability{
			AvailabilityType: models.AvailabilityEvenings,
			StartTime:        "18:00",
			EndTime:          "21:00",
			DaysOfWeek:       models.NewDayList([]string{"monday", "wednesday", "friday"}),
		},
	},
	{
		user: models.User{
			Email:     "jane.smith@example.com",
			FirstName: "Jane",
			LastName:  "Smith",
			Location:  "San Francisco, CA",
			Bio:       "UX designer and photography enthusiast. Always eager to learn new creative skills.",
		},
		skills: []sampleSkill{
			{"Graphic Design", models.SkillOffered, 5},
			{"Photography", models.SkillOffered, 4},
			{"JavaScript", models.SkillWanted, 1},
			{"Python", models.SkillWanted, 2},
		},
		availability: models.UserAvailability{
			AvailabilityType: models.AvailabilityWeekends,
			StartTime:        "10:00",
			EndTime:          "16:00",
			DaysOfWeek:       models.NewDayList([]string{"saturday", "sunday"}),
		},
	},
	{
		user: models.User{
			Email:     "mike.wilson@example.com",
			FirstName: "Mike",
			LastName:  "Wilson",
			Location:  "Austin, TX",
			Bio:       "Data scientist who loves cooking and fitness. Looking to improve my Spanish skills.",
		},
		skills: []sampleSkill{
			{"Data Analysis", models.SkillOffered, 4},
			{"Python", models.SkillOffered, 4},
			{"Cooking", models.SkillWanted, 1},
			{"Spanish", models.SkillWanted, 1},
		},
		availability: models.UserAvailability{
			AvailabilityType: models.AvailabilityFlexible,
			StartTime:        "09:00",
			EndTime:          "17:00",
			DaysOfWeek:       models.NewDayList([]string{"monday", "tuesday", "wednesday", "thursday", "friday"}),
		},
	},
}

// Seeder populates a database with the skill catalog and demo members.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run seeds the catalog, the sample users and any requested fake users.
func (s *Seeder) Run(opts Options) error {
	if opts.Clean {
		if err := s.ClearAll(); err != nil {
			return err
		}
	}

	skills, err := Skills(s.db)
	if err != nil {
		return err
	}
	log.Printf("✅ Seeded %d predefined skills", len(skills))

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	users, err := s.SampleUsers(skills, string(hash))
	if err != nil {
		return err
	}
	log.Printf("✅ Seeded %d sample users", len(users))

	if opts.FakeUsers > 0 {
		f := NewFactory(s.db, string(hash))
		for i := 0; i < opts.FakeUsers; i++ {
			if _, err := f.CreateMember(skills); err != nil {
				return fmt.Errorf("fake user %d: %w", i+1, err)
			}
		}
		log.Printf("✅ Seeded %d generated users", opts.FakeUsers)
	}
	return nil
}

// SampleUsers creates the three demo members with their skills and availability.
// Members whose email already exists are left untouched.
func (s *Seeder) SampleUsers(catalog []models.Skill, passwordHash string) ([]models.User, error) {
	byName := make(map[string]uint, len(catalog))
	for _, sk := range catalog {
		byName[sk.Name] = sk.ID
	}

	created := make([]models.User, 0, len(sampleUsers))
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, sample := range sampleUsers {
			var count int64
			if err := tx.Model(&models.User{}).Where("email = ?", sample.user.Email).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			user := sample.user
			user.Password = passwordHash
			user.ProfileVisibility = models.VisibilityPublic
			user.IsAvailable = true
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("create %s: %w", user.Email, err)
			}

			for _, sk := range sample.skills {
				skillID, ok := byName[sk.name]
				if !ok {
					return fmt.Errorf("sample skill %q missing from catalog", sk.name)
				}
				us := models.UserSkill{UserID: user.ID, SkillID: skillID, SkillType: sk.kind, Level: sk.level}
				if err := tx.Omit("Skill").Create(&us).Error; err != nil {
					return err
				}
			}

			avail := sample.availability
			avail.UserID = user.ID
			if err := tx.Create(&avail).Error; err != nil {
				return err
			}
			created = append(created, user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ClearAll deletes every row, children before parents.
func (s *Seeder) ClearAll() error {
	tables := []string{"feedback", "swap_requests", "user_skills", "user_availabilities", "users", "skills"}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	log.Println("🗑️  Cleared existing data")
	return nil
}

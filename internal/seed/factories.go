package seed

import (
	"fmt"
	"strings"

	"skillswap/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

var (
	availabilityTypes = []string{
		string(models.AvailabilityWeekdays),
		string(models.AvailabilityWeekends),
		string(models.AvailabilityEvenings),
		string(models.AvailabilityMornings),
		string(models.AvailabilityFlexible),
	}
	weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db           *gorm.DB
	passwordHash string
}

// NewFactory creates a Factory whose users all share passwordHash.
func NewFactory(db *gorm.DB, passwordHash string) *Factory {
	return &Factory{db: db, passwordHash: passwordHash}
}

// BuildUser returns an unsaved member with generated profile fields.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	user := &models.User{
		Email: fmt.Sprintf("%s.%s.%d@example.com",
			strings.ToLower(first), strings.ToLower(last), gofakeit.Number(1000, 999999)),
		Password:          f.passwordHash,
		FirstName:         first,
		LastName:          last,
		Location:          gofakeit.City() + ", " + gofakeit.StateAbr(),
		Bio:               gofakeit.Sentence(12),
		ProfileVisibility: models.VisibilityPublic,
		IsAvailable:       true,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser persists a generated member.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// AddSkill links skillID to user with the given role and a random level.
func (f *Factory) AddSkill(user *models.User, skillID uint, kind models.SkillType) (*models.UserSkill, error) {
	us := &models.UserSkill{
		UserID:    user.ID,
		SkillID:   skillID,
		SkillType: kind,
		Level:     gofakeit.Number(1, 5),
	}
	if err := f.db.Omit("Skill").Create(us).Error; err != nil {
		return nil, err
	}
	return us, nil
}

// AddAvailability attaches a random availability window to user.
func (f *Factory) AddAvailability(user *models.User) (*models.UserAvailability, error) {
	start := gofakeit.Number(7, 18)
	days := make([]string, 0, len(weekdays))
	for _, d := range weekdays {
		if gofakeit.Bool() {
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		days = append(days, weekdays[gofakeit.Number(0, len(weekdays)-1)])
	}

	a := &models.UserAvailability{
		UserID:           user.ID,
		AvailabilityType: models.AvailabilityType(gofakeit.RandomString(availabilityTypes)),
		StartTime:        fmt.Sprintf("%02d:00", start),
		EndTime:          fmt.Sprintf("%02d:00", start+gofakeit.Number(1, 4)),
		DaysOfWeek:       models.NewDayList(days),
	}
	if err := f.db.Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// CreateMember persists a generated user offering and wanting distinct
// skills drawn from catalog, with one availability window.
func (f *Factory) CreateMember(catalog []models.Skill) (*models.User, error) {
	var user *models.User
	err := f.db.Transaction(func(tx *gorm.DB) error {
		txf := &Factory{db: tx, passwordHash: f.passwordHash}
		var err error
		if user, err = txf.CreateUser(); err != nil {
			return err
		}
		if len(catalog) < 2 {
			return nil
		}

		picks := pickDistinct(len(catalog), gofakeit.Number(2, min(5, len(catalog))))
		offered := 1 + len(picks)/2
		for i, idx := range picks {
			kind := models.SkillWanted
			if i < offered {
				kind = models.SkillOffered
			}
			if _, err := txf.AddSkill(user, catalog[idx].ID, kind); err != nil {
				return err
			}
		}
		_, err = txf.AddAvailability(user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// pickDistinct returns k distinct indexes in [0, n).
func pickDistinct(n, k int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	gofakeit.ShuffleInts(idx)
	return idx[:k]
}

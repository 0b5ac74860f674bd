package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"skillswap/internal/database"
	"skillswap/internal/models"
	"skillswap/internal/notifications"
	"skillswap/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type swapRepoStub struct {
	createFn            func(context.Context, *models.SwapRequest) error
	getForParticipantFn func(context.Context, uint, uint) (*models.SwapRequest, error)
	hasPendingFn        func(context.Context, uint, uint) (bool, error)
	listFn              func(context.Context, repository.SwapFilter) ([]models.SwapRequest, int64, error)
	updateStatusFn      func(context.Context, uint, models.SwapStatus, repository.SwapUpdate) (bool, error)
	deleteTerminalFn    func(context.Context, uint, uint) (*models.SwapRequest, error)
}

func (s *swapRepoStub) Create(ctx context.Context, swap *models.SwapRequest) error {
	return s.createFn(ctx, swap)
}
func (s *swapRepoStub) GetForParticipant(ctx context.Context, id, userID uint) (*models.SwapRequest, error) {
	return s.getForParticipantFn(ctx, id, userID)
}
func (s *swapRepoStub) HasPendingBetween(ctx context.Context, a, b uint) (bool, error) {
	return s.hasPendingFn(ctx, a, b)
}
func (s *swapRepoStub) List(ctx context.Context, f repository.SwapFilter) ([]models.SwapRequest, int64, error) {
	return s.listFn(ctx, f)
}
func (s *swapRepoStub) UpdateStatus(ctx context.Context, id uint, from models.SwapStatus, u repository.SwapUpdate) (bool, error) {
	return s.updateStatusFn(ctx, id, from, u)
}
func (s *swapRepoStub) DeleteTerminal(ctx context.Context, id, userID uint) (*models.SwapRequest, error) {
	return s.deleteTerminalFn(ctx, id, userID)
}

func noopSwapRepo() *swapRepoStub {
	return &swapRepoStub{
		createFn: func(_ context.Context, s *models.SwapRequest) error { s.ID = 1; return nil },
		getForParticipantFn: func(context.Context, uint, uint) (*models.SwapRequest, error) {
			return nil, models.NewNotFoundMessage("Swap request not found")
		},
		hasPendingFn: func(context.Context, uint, uint) (bool, error) { return false, nil },
		listFn: func(context.Context, repository.SwapFilter) ([]models.SwapRequest, int64, error) {
			return nil, 0, nil
		},
		updateStatusFn: func(context.Context, uint, models.SwapStatus, repository.SwapUpdate) (bool, error) {
			return true, nil
		},
		deleteTerminalFn: func(context.Context, uint, uint) (*models.SwapRequest, error) { return nil, nil },
	}
}

type userRepoStub struct {
	getByIDFn    func(context.Context, uint) (*models.User, error)
	getByEmailFn func(context.Context, string) (*models.User, error)
	getProfileFn func(context.Context, uint) (*models.User, error)
	createFn     func(context.Context, *models.User) error
	updateFn     func(context.Context, uint, map[string]interface{}) error
	searchFn     func(context.Context, repository.UserSearchFilter) ([]models.User, int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	return s.getProfileFn(ctx, id)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.updateFn(ctx, id, fields)
}
func (s *userRepoStub) Search(ctx context.Context, f repository.UserSearchFilter) ([]models.User, int64, error) {
	return s.searchFn(ctx, f)
}

func publicUser(id uint) *models.User {
	return &models.User{
		ID:                id,
		FirstName:         fmt.Sprintf("User%d", id),
		LastName:          "Test",
		ProfileVisibility: models.VisibilityPublic,
		IsAvailable:       true,
	}
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:    func(_ context.Context, id uint) (*models.User, error) { return publicUser(id), nil },
		getByEmailFn: func(context.Context, string) (*models.User, error) { return nil, nil },
		getProfileFn: func(_ context.Context, id uint) (*models.User, error) { return publicUser(id), nil },
		createFn:     func(_ context.Context, u *models.User) error { u.ID = 1; return nil },
		updateFn:     func(context.Context, uint, map[string]interface{}) error { return nil },
		searchFn: func(context.Context, repository.UserSearchFilter) ([]models.User, int64, error) {
			return nil, 0, nil
		},
	}
}

type userSkillRepoStub struct {
	createFn     func(context.Context, *models.UserSkill) error
	getForUserFn func(context.Context, uint, uint) (*models.UserSkill, error)
	deleteFn     func(context.Context, uint) error
	existsFn     func(context.Context, uint, uint, models.SkillType) (bool, error)
}

func (s *userSkillRepoStub) Create(ctx context.Context, us *models.UserSkill) error {
	return s.createFn(ctx, us)
}
func (s *userSkillRepoStub) GetForUser(ctx context.Context, id, userID uint) (*models.UserSkill, error) {
	return s.getForUserFn(ctx, id, userID)
}
func (s *userSkillRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userSkillRepoStub) Exists(ctx context.Context, userID, skillID uint, t models.SkillType) (bool, error) {
	return s.existsFn(ctx, userID, skillID, t)
}

func noopUserSkillRepo() *userSkillRepoStub {
	return &userSkillRepoStub{
		createFn: func(_ context.Context, us *models.UserSkill) error { us.ID = 1; return nil },
		getForUserFn: func(context.Context, uint, uint) (*models.UserSkill, error) {
			return nil, models.NewNotFoundMessage("User skill not found")
		},
		deleteFn: func(context.Context, uint) error { return nil },
		existsFn: func(context.Context, uint, uint, models.SkillType) (bool, error) { return true, nil },
	}
}

type skillRepoStub struct {
	listFn       func(context.Context, repository.SkillFilter) ([]models.Skill, int64, error)
	searchFn     func(context.Context, string, string, int) ([]models.Skill, error)
	getByIDFn    func(context.Context, uint) (*models.Skill, error)
	getByNameFn  func(context.Context, string) (*models.Skill, error)
	createFn     func(context.Context, *models.Skill) error
	categoriesFn func(context.Context) ([]string, error)
	popularFn    func(context.Context, int) ([]models.Skill, error)
}

func (s *skillRepoStub) List(ctx context.Context, f repository.SkillFilter) ([]models.Skill, int64, error) {
	return s.listFn(ctx, f)
}
func (s *skillRepoStub) Search(ctx context.Context, q, category string, limit int) ([]models.Skill, error) {
	return s.searchFn(ctx, q, category, limit)
}
func (s *skillRepoStub) GetByID(ctx context.Context, id uint) (*models.Skill, error) {
	return s.getByIDFn(ctx, id)
}
func (s *skillRepoStub) GetByNameInsensitive(ctx context.Context, name string) (*models.Skill, error) {
	return s.getByNameFn(ctx, name)
}
func (s *skillRepoStub) Create(ctx context.Context, skill *models.Skill) error {
	return s.createFn(ctx, skill)
}
func (s *skillRepoStub) Categories(ctx context.Context) ([]string, error) {
	return s.categoriesFn(ctx)
}
func (s *skillRepoStub) Popular(ctx context.Context, limit int) ([]models.Skill, error) {
	return s.popularFn(ctx, limit)
}

func noopSkillRepo() *skillRepoStub {
	return &skillRepoStub{
		listFn: func(context.Context, repository.SkillFilter) ([]models.Skill, int64, error) {
			return nil, 0, nil
		},
		searchFn: func(context.Context, string, string, int) ([]models.Skill, error) { return nil, nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Skill, error) {
			return &models.Skill{ID: id, Name: "JavaScript", Category: "Programming"}, nil
		},
		getByNameFn:  func(context.Context, string) (*models.Skill, error) { return nil, nil },
		createFn:     func(_ context.Context, s *models.Skill) error { s.ID = 99; return nil },
		categoriesFn: func(context.Context) ([]string, error) { return nil, nil },
		popularFn:    func(context.Context, int) ([]models.Skill, error) { return nil, nil },
	}
}

type feedbackRepoStub struct {
	createFn       func(context.Context, *models.Feedback) error
	getByIDFn      func(context.Context, uint) (*models.Feedback, error)
	existsFn       func(context.Context, uint, uint) (bool, error)
	listReceivedFn func(context.Context, uint, repository.Page) ([]models.Feedback, int64, error)
	listForSwapFn  func(context.Context, uint) ([]models.Feedback, error)
	listByUserFn   func(context.Context, uint, repository.FeedbackListType, repository.Page) ([]models.Feedback, int64, error)
	updateFn       func(context.Context, *models.Feedback) error
	deleteFn       func(context.Context, uint) error
	statsFn        func(context.Context, uint) (models.FeedbackStats, error)
}

func (s *feedbackRepoStub) Create(ctx context.Context, fb *models.Feedback) error {
	return s.createFn(ctx, fb)
}
func (s *feedbackRepoStub) GetByID(ctx context.Context, id uint) (*models.Feedback, error) {
	return s.getByIDFn(ctx, id)
}
func (s *feedbackRepoStub) Exists(ctx context.Context, swapID, giverID uint) (bool, error) {
	return s.existsFn(ctx, swapID, giverID)
}
func (s *feedbackRepoStub) ListReceived(ctx context.Context, userID uint, p repository.Page) ([]models.Feedback, int64, error) {
	return s.listReceivedFn(ctx, userID, p)
}
func (s *feedbackRepoStub) ListForSwap(ctx context.Context, swapID uint) ([]models.Feedback, error) {
	return s.listForSwapFn(ctx, swapID)
}
func (s *feedbackRepoStub) ListByUser(ctx context.Context, userID uint, t repository.FeedbackListType, p repository.Page) ([]models.Feedback, int64, error) {
	return s.listByUserFn(ctx, userID, t, p)
}
func (s *feedbackRepoStub) Update(ctx context.Context, fb *models.Feedback) error {
	return s.updateFn(ctx, fb)
}
func (s *feedbackRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *feedbackRepoStub) Stats(ctx context.Context, userID uint) (models.FeedbackStats, error) {
	return s.statsFn(ctx, userID)
}

func noopFeedbackRepo() *feedbackRepoStub {
	return &feedbackRepoStub{
		createFn: func(_ context.Context, fb *models.Feedback) error { fb.ID = 1; return nil },
		getByIDFn: func(context.Context, uint) (*models.Feedback, error) {
			return nil, models.NewNotFoundMessage("Feedback not found")
		},
		existsFn: func(context.Context, uint, uint) (bool, error) { return false, nil },
		listReceivedFn: func(context.Context, uint, repository.Page) ([]models.Feedback, int64, error) {
			return nil, 0, nil
		},
		listForSwapFn: func(context.Context, uint) ([]models.Feedback, error) { return nil, nil },
		listByUserFn: func(context.Context, uint, repository.FeedbackListType, repository.Page) ([]models.Feedback, int64, error) {
			return nil, 0, nil
		},
		updateFn: func(context.Context, *models.Feedback) error { return nil },
		deleteFn: func(context.Context, uint) error { return nil },
		statsFn:  func(context.Context, uint) (models.FeedbackStats, error) { return models.FeedbackStats{}, nil },
	}
}

type availabilityRepoStub struct {
	createFn     func(context.Context, *models.UserAvailability) error
	getForUserFn func(context.Context, uint, uint) (*models.UserAvailability, error)
	deleteFn     func(context.Context, uint) error
}

func (s *availabilityRepoStub) Create(ctx context.Context, a *models.UserAvailability) error {
	return s.createFn(ctx, a)
}
func (s *availabilityRepoStub) GetForUser(ctx context.Context, id, userID uint) (*models.UserAvailability, error) {
	return s.getForUserFn(ctx, id, userID)
}
func (s *availabilityRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopAvailabilityRepo() *availabilityRepoStub {
	return &availabilityRepoStub{
		createFn: func(_ context.Context, a *models.UserAvailability) error { a.ID = 1; return nil },
		getForUserFn: func(context.Context, uint, uint) (*models.UserAvailability, error) {
			return nil, models.NewNotFoundMessage("Availability not found")
		},
		deleteFn: func(context.Context, uint) error { return nil },
	}
}

type published struct {
	userID uint
	event  notifications.Event
}

// recordingPublisher captures notifications instead of delivering them.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(userID uint, ev notifications.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{userID: userID, event: ev})
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %#v", err)
	require.Equal(t, code, appErr.Code, "message: %s", appErr.Message)
	return appErr
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFeedbackService(fb *feedbackRepoStub, swaps *swapRepoStub, users *userRepoStub) *FeedbackService {
	svc := NewFeedbackService(fb, swaps, users)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestFeedbackServiceCreate(t *testing.T) {
	t.Parallel()

	t.Run("rates the counterpart", func(t *testing.T) {
		t.Parallel()
		repo := noopFeedbackRepo()
		var saved *models.Feedback
		repo.createFn = func(_ context.Context, fb *models.Feedback) error {
			fb.ID = 3
			saved = fb
			return nil
		}
		svc := newTestFeedbackService(repo, participantRepo(swapInState(models.SwapCompleted)), noopUserRepo())

		fb, err := svc.Create(context.Background(), 2, CreateFeedbackInput{SwapRequestID: 5, Rating: 4, Comment: " Patient and clear "})
		require.NoError(t, err)
		assert.Same(t, saved, fb)
		assert.Equal(t, uint(2), fb.GiverID)
		assert.Equal(t, uint(1), fb.ReceiverID)
		assert.Equal(t, "Patient and clear", fb.Comment)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		svc := newTestFeedbackService(noopFeedbackRepo(), noopSwapRepo(), noopUserRepo())
		for _, in := range []CreateFeedbackInput{
			{SwapRequestID: 5, Rating: 0},
			{SwapRequestID: 5, Rating: 6},
			{Rating: 3},
			{SwapRequestID: 5, Rating: 3, Comment: strings.Repeat("c", 501)},
		} {
			_, err := svc.Create(context.Background(), 1, in)
			assertValidationError(t, err)
		}
	})

	for _, status := range []models.SwapStatus{models.SwapPending, models.SwapAccepted, models.SwapCancelled, models.SwapRejected} {
		t.Run("not completed "+string(status), func(t *testing.T) {
			t.Parallel()
			svc := newTestFeedbackService(noopFeedbackRepo(), participantRepo(swapInState(status)), noopUserRepo())
			_, err := svc.Create(context.Background(), 1, CreateFeedbackInput{SwapRequestID: 5, Rating: 5})
			appErr := assertAppError(t, err, models.CodeNotFound)
			assert.Equal(t, "Swap request not found or not completed", appErr.Message)
		})
	}

	t.Run("non participant", func(t *testing.T) {
		t.Parallel()
		svc := newTestFeedbackService(noopFeedbackRepo(), participantRepo(swapInState(models.SwapCompleted)), noopUserRepo())
		_, err := svc.Create(context.Background(), 9, CreateFeedbackInput{SwapRequestID: 5, Rating: 5})
		appErr := assertAppError(t, err, models.CodeNotFound)
		assert.Equal(t, "Swap request not found or not completed", appErr.Message)
	})

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()
		repo := noopFeedbackRepo()
		repo.existsFn = func(context.Context, uint, uint) (bool, error) { return true, nil }
		svc := newTestFeedbackService(repo, participantRepo(swapInState(models.SwapCompleted)), noopUserRepo())
		_, err := svc.Create(context.Background(), 1, CreateFeedbackInput{SwapRequestID: 5, Rating: 5})
		appErr := assertAppError(t, err, models.CodeBusinessRule)
		assert.Equal(t, "You have already provided feedback for this swap", appErr.Message)
	})

	t.Run("duplicate caught by index", func(t *testing.T) {
		t.Parallel()
		repo := noopFeedbackRepo()
		repo.createFn = func(context.Context, *models.Feedback) error {
			return models.NewConflictError("dup", nil)
		}
		svc := newTestFeedbackService(repo, participantRepo(swapInState(models.SwapCompleted)), noopUserRepo())
		_, err := svc.Create(context.Background(), 1, CreateFeedbackInput{SwapRequestID: 5, Rating: 5})
		assertAppError(t, err, models.CodeBusinessRule)
	})
}

func givenFeedback(createdAt time.Time) *feedbackRepoStub {
	repo := noopFeedbackRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Feedback, error) {
		return &models.Feedback{ID: id, SwapRequestID: 5, GiverID: 1, ReceiverID: 2, Rating: 3, Comment: "ok", CreatedAt: createdAt}, nil
	}
	return repo
}

func TestFeedbackServiceUpdateWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		age     time.Duration
		actor   uint
		code    string
		message string
	}{
		{"fresh", time.Hour, 1, "", ""},
		{"exactly at the window", 24 * time.Hour, 1, "", ""},
		{"just past the window", 24*time.Hour + time.Second, 1, models.CodeBusinessRule, "Feedback can only be updated within 24 hours of creation"},
		{"not the giver", time.Hour, 2, models.CodeForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := givenFeedback(fixedNow.Add(-tt.age))
			updated := false
			repo.updateFn = func(context.Context, *models.Feedback) error {
				updated = true
				return nil
			}
			svc := newTestFeedbackService(repo, noopSwapRepo(), noopUserRepo())
			rating := 5

			fb, err := svc.Update(context.Background(), 8, tt.actor, UpdateFeedbackInput{Rating: &rating})
			if tt.code != "" {
				appErr := assertAppError(t, err, tt.code)
				if tt.message != "" {
					assert.Equal(t, tt.message, appErr.Message)
				}
				assert.False(t, updated)
				return
			}
			require.NoError(t, err)
			assert.True(t, updated)
			assert.Equal(t, 5, fb.Rating)
			assert.Equal(t, "ok", fb.Comment)
		})
	}
}

func TestFeedbackServiceUpdateValidation(t *testing.T) {
	t.Parallel()
	svc := newTestFeedbackService(givenFeedback(fixedNow), noopSwapRepo(), noopUserRepo())
	bad := 9
	_, err := svc.Update(context.Background(), 8, 1, UpdateFeedbackInput{Rating: &bad})
	assertValidationError(t, err)

	long := strings.Repeat("x", 501)
	_, err = svc.Update(context.Background(), 8, 1, UpdateFeedbackInput{Comment: &long})
	assertValidationError(t, err)
}

func TestFeedbackServiceDelete(t *testing.T) {
	t.Parallel()

	t.Run("within window", func(t *testing.T) {
		t.Parallel()
		repo := givenFeedback(fixedNow.Add(-2 * time.Hour))
		var deleted uint
		repo.deleteFn = func(_ context.Context, id uint) error {
			deleted = id
			return nil
		}
		svc := newTestFeedbackService(repo, noopSwapRepo(), noopUserRepo())
		require.NoError(t, svc.Delete(context.Background(), 8, 1))
		assert.Equal(t, uint(8), deleted)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		svc := newTestFeedbackService(givenFeedback(fixedNow.Add(-48*time.Hour)), noopSwapRepo(), noopUserRepo())
		appErr := assertAppError(t, svc.Delete(context.Background(), 8, 1), models.CodeBusinessRule)
		assert.Equal(t, "Feedback can only be deleted within 24 hours of creation", appErr.Message)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		svc := newTestFeedbackService(noopFeedbackRepo(), noopSwapRepo(), noopUserRepo())
		assertAppError(t, svc.Delete(context.Background(), 8, 1), models.CodeNotFound)
	})
}

func TestFeedbackServiceListForUser(t *testing.T) {
	t.Parallel()

	privateUsers := noopUserRepo()
	privateUsers.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		u := publicUser(id)
		u.ProfileVisibility = models.VisibilityPrivate
		return u, nil
	}

	t.Run("private profile hidden from others", func(t *testing.T) {
		t.Parallel()
		svc := newTestFeedbackService(noopFeedbackRepo(), noopSwapRepo(), privateUsers)
		_, err := svc.ListForUser(context.Background(), 1, 2, 0, 0)
		appErr := assertAppError(t, err, models.CodeForbidden)
		assert.Equal(t, "This profile is private", appErr.Message)
	})

	t.Run("owner sees own private reviews with stats", func(t *testing.T) {
		t.Parallel()
		repo := noopFeedbackRepo()
		var page repository.Page
		repo.listReceivedFn = func(_ context.Context, _ uint, p repository.Page) ([]models.Feedback, int64, error) {
			page = p
			return []models.Feedback{{ID: 1, Rating: 4}, {ID: 2, Rating: 5}}, 2, nil
		}
		repo.statsFn = func(context.Context, uint) (models.FeedbackStats, error) {
			return models.FeedbackStats{AverageRating: 4.5, TotalReviews: 2}, nil
		}
		svc := newTestFeedbackService(repo, noopSwapRepo(), privateUsers)

		out, err := svc.ListForUser(context.Background(), 2, 2, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, repository.Page{Limit: 10}, page)
		assert.Len(t, out.Feedback, 2)
		require.NotNil(t, out.Stats)
		assert.Equal(t, 4.5, out.Stats.AverageRating)
		assert.False(t, out.Pagination.HasMore)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByIDFn = func(context.Context, uint) (*models.User, error) {
			return nil, models.NewNotFoundMessage("User not found")
		}
		svc := newTestFeedbackService(noopFeedbackRepo(), noopSwapRepo(), users)
		_, err := svc.ListForUser(context.Background(), 1, 42, 0, 0)
		assertAppError(t, err, models.CodeNotFound)
	})
}

func TestFeedbackServiceListForSwapAndMine(t *testing.T) {
	t.Parallel()
	repo := noopFeedbackRepo()
	var gotType repository.FeedbackListType
	repo.listByUserFn = func(_ context.Context, _ uint, lt repository.FeedbackListType, _ repository.Page) ([]models.Feedback, int64, error) {
		gotType = lt
		return nil, 0, nil
	}
	svc := newTestFeedbackService(repo, participantRepo(swapInState(models.SwapCompleted)), noopUserRepo())

	items, err := svc.ListForSwap(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.NotNil(t, items)

	_, err = svc.ListForSwap(context.Background(), 5, 9)
	assertAppError(t, err, models.CodeNotFound)

	out, err := svc.ListMine(context.Background(), 1, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, repository.FeedbackAll, gotType)
	assert.NotNil(t, out.Feedback)

	_, err = svc.ListMine(context.Background(), 1, "GIVEN", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, repository.FeedbackGiven, gotType)

	_, err = svc.ListMine(context.Background(), 1, "written", 0, 0)
	assertValidationError(t, err)
}

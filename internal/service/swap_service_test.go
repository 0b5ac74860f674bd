package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"skillswap/internal/cache"
	"skillswap/internal/models"
	"skillswap/internal/notifications"
	"skillswap/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestSwapService(swaps *swapRepoStub, users *userRepoStub, skills *userSkillRepoStub) (*SwapService, *recordingPublisher) {
	pub := &recordingPublisher{}
	svc := NewSwapService(swaps, users, skills, pub)
	svc.now = func() time.Time { return fixedNow }
	return svc, pub
}

func validCreateInput() CreateSwapInput {
	return CreateSwapInput{ReceiverID: 2, OfferedSkillID: 10, RequestedSkillID: 20, Message: "Let's trade"}
}

func TestSwapServiceCreateRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   CreateSwapInput
		setup   func(*swapRepoStub, *userRepoStub, *userSkillRepoStub)
		code    string
		message string
	}{
		{
			name:  "missing ids",
			input: CreateSwapInput{},
			code:  models.CodeValidation,
		},
		{
			name:  "message too long",
			input: CreateSwapInput{ReceiverID: 2, OfferedSkillID: 10, RequestedSkillID: 20, Message: strings.Repeat("m", 501)},
			code:  models.CodeValidation,
		},
		{
			name:    "self request",
			input:   CreateSwapInput{ReceiverID: 1, OfferedSkillID: 10, RequestedSkillID: 20},
			code:    models.CodeBusinessRule,
			message: "You cannot send a swap request to yourself",
		},
		{
			name:  "receiver missing",
			input: validCreateInput(),
			setup: func(_ *swapRepoStub, u *userRepoStub, _ *userSkillRepoStub) {
				u.getByIDFn = func(context.Context, uint) (*models.User, error) {
					return nil, models.NewNotFoundMessage("User not found")
				}
			},
			code:    models.CodeNotFound,
			message: "Receiver not found",
		},
		{
			name:  "receiver unavailable",
			input: validCreateInput(),
			setup: func(_ *swapRepoStub, u *userRepoStub, _ *userSkillRepoStub) {
				u.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
					user := publicUser(id)
					user.IsAvailable = false
					return user, nil
				}
			},
			code:    models.CodeBusinessRule,
			message: "This user is not available for swaps",
		},
		{
			name:  "receiver private",
			input: validCreateInput(),
			setup: func(_ *swapRepoStub, u *userRepoStub, _ *userSkillRepoStub) {
				u.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
					user := publicUser(id)
					user.ProfileVisibility = models.VisibilityPrivate
					return user, nil
				}
			},
			code:    models.CodeBusinessRule,
			message: "Cannot send request to private profile",
		},
		{
			name:  "sender does not offer",
			input: validCreateInput(),
			setup: func(_ *swapRepoStub, _ *userRepoStub, us *userSkillRepoStub) {
				us.existsFn = func(_ context.Context, userID, _ uint, _ models.SkillType) (bool, error) {
					return userID != 1, nil
				}
			},
			code:    models.CodeBusinessRule,
			message: "You do not have this skill to offer",
		},
		{
			name:  "receiver does not offer",
			input: validCreateInput(),
			setup: func(_ *swapRepoStub, _ *userRepoStub, us *userSkillRepoStub) {
				us.existsFn = func(_ context.Context, userID, _ uint, _ models.SkillType) (bool, error) {
					return userID == 1, nil
				}
			},
			code:    models.CodeBusinessRule,
			message: "Receiver does not offer this skill",
		},
		{
			name:  "pending already exists",
			input: validCreateInput(),
			setup: func(s *swapRepoStub, _ *userRepoStub, _ *userSkillRepoStub) {
				s.hasPendingFn = func(context.Context, uint, uint) (bool, error) { return true, nil }
			},
			code:    models.CodeBusinessRule,
			message: "There is already a pending swap request between you and this user",
		},
		{
			name:  "concurrent duplicate caught by index",
			input: validCreateInput(),
			setup: func(s *swapRepoStub, _ *userRepoStub, _ *userSkillRepoStub) {
				s.createFn = func(context.Context, *models.SwapRequest) error {
					return models.NewConflictError("duplicate", nil)
				}
			},
			code:    models.CodeBusinessRule,
			message: "There is already a pending swap request between you and this user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			swaps, users, skills := noopSwapRepo(), noopUserRepo(), noopUserSkillRepo()
			if tt.setup != nil {
				tt.setup(swaps, users, skills)
			}
			svc, pub := newTestSwapService(swaps, users, skills)

			_, err := svc.Create(context.Background(), 1, tt.input)
			appErr := assertAppError(t, err, tt.code)
			if tt.message != "" {
				assert.Equal(t, tt.message, appErr.Message)
			}
			assert.Empty(t, pub.all())
		})
	}
}

// The future-date rule applies when a request is accepted, not when it is proposed.
func TestSwapServiceCreateStoresPastScheduledDate(t *testing.T) {
	t.Parallel()
	swaps := noopSwapRepo()
	var stored *models.SwapRequest
	swaps.createFn = func(_ context.Context, s *models.SwapRequest) error {
		s.ID = 8
		stored = s
		return nil
	}
	swaps.getForParticipantFn = func(context.Context, uint, uint) (*models.SwapRequest, error) {
		out := *stored
		return &out, nil
	}
	svc, pub := newTestSwapService(swaps, noopUserRepo(), noopUserSkillRepo())

	past := fixedNow.Add(-time.Hour)
	in := validCreateInput()
	in.ScheduledDate = &past

	swap, err := svc.Create(context.Background(), 1, in)
	require.NoError(t, err)
	assert.Equal(t, models.SwapPending, swap.Status)
	require.NotNil(t, swap.ScheduledDate)
	assert.True(t, past.Equal(*swap.ScheduledDate))
	assert.Len(t, pub.all(), 1)
}

func TestSwapServiceCreateNotifiesReceiver(t *testing.T) {
	t.Parallel()
	swaps := noopSwapRepo()
	var stored *models.SwapRequest
	swaps.createFn = func(_ context.Context, s *models.SwapRequest) error {
		s.ID = 7
		stored = s
		return nil
	}
	swaps.getForParticipantFn = func(_ context.Context, id, userID uint) (*models.SwapRequest, error) {
		out := *stored
		out.Sender = publicUser(1)
		out.OfferedSkill = &models.Skill{ID: 10, Name: "JavaScript"}
		out.RequestedSkill = &models.Skill{ID: 20, Name: "Photography"}
		return &out, nil
	}
	svc, pub := newTestSwapService(swaps, noopUserRepo(), noopUserSkillRepo())

	future := fixedNow.Add(48 * time.Hour)
	in := validCreateInput()
	in.Message = "  Let's trade  "
	in.ScheduledDate = &future

	swap, err := svc.Create(context.Background(), 1, in)
	require.NoError(t, err)
	assert.Equal(t, models.SwapPending, swap.Status)
	assert.Equal(t, "Let's trade", swap.Message)
	assert.Equal(t, &future, swap.ScheduledDate)

	events := pub.all()
	require.Len(t, events, 1)
	assert.Equal(t, uint(2), events[0].userID)
	assert.Equal(t, notifications.TypeNewSwapRequest, events[0].event.Type())
	assert.Equal(t, "New swap request received", events[0].event.Message)
	summary, ok := events[0].event.Data["swapRequest"].(swapSummary)
	require.True(t, ok)
	assert.Equal(t, uint(7), summary.ID)
	require.NotNil(t, summary.Sender)
	assert.Equal(t, "User1", summary.Sender.FirstName)
	assert.Equal(t, "Photography", summary.RequestedSkill.Name)
}

func TestSwapServiceList(t *testing.T) {
	t.Parallel()

	t.Run("defaults and filters", func(t *testing.T) {
		t.Parallel()
		swaps := noopSwapRepo()
		var got repository.SwapFilter
		swaps.listFn = func(_ context.Context, f repository.SwapFilter) ([]models.SwapRequest, int64, error) {
			got = f
			return []models.SwapRequest{{ID: 1}}, 21, nil
		}
		svc, _ := newTestSwapService(swaps, noopUserRepo(), noopUserSkillRepo())

		out, err := svc.List(context.Background(), 3, SwapListInput{Type: "Sent", Status: "pending"})
		require.NoError(t, err)
		assert.Equal(t, repository.SwapFilter{
			UserID: 3,
			Type:   repository.SwapListSent,
			Status: models.SwapPending,
			Page:   repository.Page{Limit: 20},
		}, got)
		assert.Equal(t, Pagination{Total: 21, Limit: 20, HasMore: true}, out.Pagination)
	})

	t.Run("empty list is not nil", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestSwapService(noopSwapRepo(), noopUserRepo(), noopUserSkillRepo())
		out, err := svc.List(context.Background(), 3, SwapListInput{Limit: 500})
		require.NoError(t, err)
		assert.NotNil(t, out.SwapRequests)
		assert.Equal(t, maxPageSize, out.Pagination.Limit)
	})

	t.Run("bad type or status", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestSwapService(noopSwapRepo(), noopUserRepo(), noopUserSkillRepo())
		_, err := svc.List(context.Background(), 3, SwapListInput{Type: "outgoing"})
		assertValidationError(t, err)
		_, err = svc.List(context.Background(), 3, SwapListInput{Status: "DONE"})
		assertValidationError(t, err)
	})
}

func swapInState(status models.SwapStatus) *models.SwapRequest {
	return &models.SwapRequest{ID: 5, SenderID: 1, ReceiverID: 2, OfferedSkillID: 10, RequestedSkillID: 20, Status: status}
}

// participantRepo serves swap to its participants and tracks applied updates.
func participantRepo(swap *models.SwapRequest) *swapRepoStub {
	repo := noopSwapRepo()
	repo.getForParticipantFn = func(_ context.Context, id, userID uint) (*models.SwapRequest, error) {
		if id != swap.ID || !swap.IsParticipant(userID) {
			return nil, models.NewNotFoundMessage("Swap request not found")
		}
		out := *swap
		return &out, nil
	}
	repo.updateStatusFn = func(_ context.Context, id uint, from models.SwapStatus, u repository.SwapUpdate) (bool, error) {
		if id != swap.ID || swap.Status != from {
			return false, nil
		}
		swap.Status = u.Status
		if u.ScheduledDate != nil {
			swap.ScheduledDate = u.ScheduledDate
		}
		if u.CancelReason != nil {
			swap.CancelReason = *u.CancelReason
		}
		return true, nil
	}
	return repo
}

func TestSwapServiceTransitionMatrix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		from      models.SwapStatus
		to        models.SwapStatus
		actor     uint
		code      string
		recipient uint
		eventType string
	}{
		{"receiver accepts", models.SwapPending, models.SwapAccepted, 2, "", 1, notifications.TypeSwapAccepted},
		{"receiver rejects", models.SwapPending, models.SwapRejected, 2, "", 1, notifications.TypeSwapRejected},
		{"sender cancels pending", models.SwapPending, models.SwapCancelled, 1, "", 2, notifications.TypeSwapCancelled},
		{"sender cancels accepted", models.SwapAccepted, models.SwapCancelled, 1, "", 2, notifications.TypeSwapCancelled},
		{"sender completes", models.SwapAccepted, models.SwapCompleted, 1, "", 2, notifications.TypeSwapCompleted},
		{"receiver completes", models.SwapAccepted, models.SwapCompleted, 2, "", 1, notifications.TypeSwapCompleted},

		{"sender cannot accept", models.SwapPending, models.SwapAccepted, 1, models.CodeForbidden, 0, ""},
		{"sender cannot reject", models.SwapPending, models.SwapRejected, 1, models.CodeForbidden, 0, ""},
		{"receiver cannot cancel", models.SwapPending, models.SwapCancelled, 2, models.CodeForbidden, 0, ""},
		{"stranger sees nothing", models.SwapPending, models.SwapAccepted, 9, models.CodeNotFound, 0, ""},

		{"cannot accept twice", models.SwapAccepted, models.SwapAccepted, 2, models.CodeBusinessRule, 0, ""},
		{"cannot complete pending", models.SwapPending, models.SwapCompleted, 1, models.CodeBusinessRule, 0, ""},
		{"rejected is terminal", models.SwapRejected, models.SwapCancelled, 1, models.CodeBusinessRule, 0, ""},
		{"completed is terminal", models.SwapCompleted, models.SwapCancelled, 1, models.CodeBusinessRule, 0, ""},
		{"cancelled is terminal", models.SwapCancelled, models.SwapCompleted, 2, models.CodeBusinessRule, 0, ""},
		{"pending is not a target", models.SwapAccepted, models.SwapPending, 2, models.CodeValidation, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			swap := swapInState(tt.from)
			svc, pub := newTestSwapService(participantRepo(swap), noopUserRepo(), noopUserSkillRepo())

			updated, err := svc.Transition(context.Background(), 5, tt.actor, TransitionInput{Status: tt.to})
			if tt.code != "" {
				assertAppError(t, err, tt.code)
				assert.Equal(t, tt.from, swap.Status, "status must not change on failure")
				assert.Empty(t, pub.all())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, updated.Status)

			events := pub.all()
			require.Len(t, events, 1)
			assert.Equal(t, tt.recipient, events[0].userID)
			assert.Equal(t, tt.eventType, events[0].event.Type())
		})
	}
}

func TestSwapServiceTransitionDetails(t *testing.T) {
	t.Parallel()

	t.Run("bad from-state message", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestSwapService(participantRepo(swapInState(models.SwapCompleted)), noopUserRepo(), noopUserSkillRepo())
		_, err := svc.Transition(context.Background(), 5, 1, TransitionInput{Status: models.SwapCancelled})
		appErr := assertAppError(t, err, models.CodeBusinessRule)
		assert.Equal(t, "Cannot change status from COMPLETED to CANCELLED", appErr.Message)
	})

	t.Run("accept with past date stays pending", func(t *testing.T) {
		t.Parallel()
		swap := swapInState(models.SwapPending)
		svc, pub := newTestSwapService(participantRepo(swap), noopUserRepo(), noopUserSkillRepo())
		past := fixedNow.Add(-time.Minute)
		_, err := svc.Transition(context.Background(), 5, 2, TransitionInput{Status: models.SwapAccepted, ScheduledDate: &past})
		appErr := assertAppError(t, err, models.CodeBusinessRule)
		assert.Equal(t, "Scheduled date must be in the future", appErr.Message)
		assert.Equal(t, models.SwapPending, swap.Status)
		assert.Empty(t, pub.all())
	})

	t.Run("accept records scheduled date", func(t *testing.T) {
		t.Parallel()
		swap := swapInState(models.SwapPending)
		svc, pub := newTestSwapService(participantRepo(swap), noopUserRepo(), noopUserSkillRepo())
		future := fixedNow.Add(72 * time.Hour)
		updated, err := svc.Transition(context.Background(), 5, 2, TransitionInput{Status: "accepted", ScheduledDate: &future})
		require.NoError(t, err)
		require.NotNil(t, updated.ScheduledDate)
		assert.True(t, future.Equal(*updated.ScheduledDate))
		assert.Equal(t, "Your swap request was accepted!", pub.all()[0].event.Message)
	})

	t.Run("cancel stores reason", func(t *testing.T) {
		t.Parallel()
		swap := swapInState(models.SwapAccepted)
		svc, _ := newTestSwapService(participantRepo(swap), noopUserRepo(), noopUserSkillRepo())
		reason := "  Schedule conflict "
		updated, err := svc.Transition(context.Background(), 5, 1, TransitionInput{Status: models.SwapCancelled, CancelReason: &reason})
		require.NoError(t, err)
		assert.Equal(t, "Schedule conflict", updated.CancelReason)
	})

	t.Run("stale write is a conflict", func(t *testing.T) {
		t.Parallel()
		swap := swapInState(models.SwapPending)
		repo := participantRepo(swap)
		repo.updateStatusFn = func(context.Context, uint, models.SwapStatus, repository.SwapUpdate) (bool, error) {
			return false, nil
		}
		svc, pub := newTestSwapService(repo, noopUserRepo(), noopUserSkillRepo())
		_, err := svc.Transition(context.Background(), 5, 2, TransitionInput{Status: models.SwapAccepted})
		assertAppError(t, err, models.CodeConflict)
		assert.Empty(t, pub.all())
	})

	t.Run("cancel reason too long", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestSwapService(participantRepo(swapInState(models.SwapPending)), noopUserRepo(), noopUserSkillRepo())
		reason := strings.Repeat("r", 501)
		_, err := svc.Transition(context.Background(), 5, 1, TransitionInput{Status: models.SwapCancelled, CancelReason: &reason})
		assertValidationError(t, err)
	})
}

func TestSwapServiceCancel(t *testing.T) {
	t.Parallel()
	const msg = "Swap request not found or cannot be cancelled"

	t.Run("sender cancels", func(t *testing.T) {
		t.Parallel()
		swap := swapInState(models.SwapPending)
		svc, pub := newTestSwapService(participantRepo(swap), noopUserRepo(), noopUserSkillRepo())
		updated, err := svc.Cancel(context.Background(), 5, 1, nil)
		require.NoError(t, err)
		assert.Equal(t, models.SwapCancelled, updated.Status)
		require.Len(t, pub.all(), 1)
		assert.Equal(t, uint(2), pub.all()[0].userID)
	})

	for name, tc := range map[string]struct {
		status models.SwapStatus
		actor  uint
	}{
		"receiver":  {models.SwapPending, 2},
		"stranger":  {models.SwapPending, 9},
		"completed": {models.SwapCompleted, 1},
		"rejected":  {models.SwapRejected, 1},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			svc, _ := newTestSwapService(participantRepo(swapInState(tc.status)), noopUserRepo(), noopUserSkillRepo())
			_, err := svc.Cancel(context.Background(), 5, tc.actor, nil)
			appErr := assertAppError(t, err, models.CodeNotFound)
			assert.Equal(t, msg, appErr.Message)
		})
	}
}

func TestSwapServiceDelete(t *testing.T) {
	t.Parallel()
	repo := noopSwapRepo()
	calls := 0
	repo.deleteTerminalFn = func(_ context.Context, id, _ uint) (*models.SwapRequest, error) {
		calls++
		if calls > 1 {
			return nil, nil
		}
		return &models.SwapRequest{ID: id, SenderID: 1, ReceiverID: 2, Status: models.SwapCompleted}, nil
	}
	svc, _ := newTestSwapService(repo, noopUserRepo(), noopUserSkillRepo())

	require.NoError(t, svc.Delete(context.Background(), 5, 1))
	err := svc.Delete(context.Background(), 5, 1)
	appErr := assertAppError(t, err, models.CodeNotFound)
	assert.Equal(t, "Swap request not found or cannot be deleted", appErr.Message)
}

func TestSwapLifecycleEndToEnd(t *testing.T) {
	db := setupServiceDB(t)
	ctx := context.Background()

	alice := models.User{Email: "alice@example.com", Password: "x", FirstName: "Alice", LastName: "Doe", IsAvailable: true}
	bob := models.User{Email: "bob@example.com", Password: "x", FirstName: "Bob", LastName: "Smith", IsAvailable: true}
	require.NoError(t, db.Create(&alice).Error)
	require.NoError(t, db.Create(&bob).Error)
	js := models.Skill{Name: "JavaScript", Category: "Programming"}
	photo := models.Skill{Name: "Photography", Category: "Creative"}
	require.NoError(t, db.Create(&js).Error)
	require.NoError(t, db.Create(&photo).Error)
	require.NoError(t, db.Create(&models.UserSkill{UserID: alice.ID, SkillID: js.ID, SkillType: models.SkillOffered, Level: 4}).Error)
	require.NoError(t, db.Create(&models.UserSkill{UserID: bob.ID, SkillID: photo.ID, SkillType: models.SkillOffered, Level: 3}).Error)

	swaps := repository.NewSwapRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	users := repository.NewUserRepository(db)
	pub := &recordingPublisher{}
	svc := NewSwapService(swaps, users, repository.NewUserSkillRepository(db), pub)
	feedback := NewFeedbackService(feedbackRepo, swaps, users)

	created, err := svc.Create(ctx, alice.ID, CreateSwapInput{
		ReceiverID:       bob.ID,
		OfferedSkillID:   js.ID,
		RequestedSkillID: photo.ID,
		Message:          "JS for photos?",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SwapPending, created.Status)
	require.NotNil(t, created.OfferedSkill)
	assert.Equal(t, "JavaScript", created.OfferedSkill.Name)

	_, err = svc.Create(ctx, bob.ID, CreateSwapInput{ReceiverID: alice.ID, OfferedSkillID: photo.ID, RequestedSkillID: js.ID})
	assertAppError(t, err, models.CodeBusinessRule)

	_, err = svc.Transition(ctx, created.ID, alice.ID, TransitionInput{Status: models.SwapAccepted})
	assertAppError(t, err, models.CodeForbidden)

	accepted, err := svc.Transition(ctx, created.ID, bob.ID, TransitionInput{Status: models.SwapAccepted})
	require.NoError(t, err)
	assert.Equal(t, models.SwapAccepted, accepted.Status)

	err = svc.Delete(ctx, created.ID, alice.ID)
	assertAppError(t, err, models.CodeNotFound)

	completed, err := svc.Transition(ctx, created.ID, alice.ID, TransitionInput{Status: models.SwapCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.SwapCompleted, completed.Status)

	fb, err := feedback.Create(ctx, alice.ID, CreateFeedbackInput{SwapRequestID: created.ID, Rating: 5, Comment: "Patient and clear"})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, fb.ReceiverID)

	stats, err := feedback.Aggregate(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackStats{AverageRating: 5, TotalReviews: 1}, stats)

	var types []string
	for _, e := range pub.all() {
		types = append(types, e.event.Type())
	}
	assert.Equal(t, []string{
		notifications.TypeNewSwapRequest,
		notifications.TypeSwapAccepted,
		notifications.TypeSwapCompleted,
	}, types)

	require.NoError(t, svc.Delete(ctx, created.ID, bob.ID))
	assertAppError(t, svc.Delete(ctx, created.ID, bob.ID), models.CodeNotFound)
	_, err = svc.Get(ctx, created.ID, alice.ID)
	assertAppError(t, err, models.CodeNotFound)

	var remaining int64
	require.NoError(t, db.Model(&models.Feedback{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestSwapDeleteRefreshesFeedbackStats(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	db := setupServiceDB(t)
	ctx := context.Background()
	alice := models.User{Email: "ana@example.com", Password: "x", FirstName: "Ana", LastName: "Ruiz", IsAvailable: true}
	bob := models.User{Email: "ben@example.com", Password: "x", FirstName: "Ben", LastName: "Ode", IsAvailable: true}
	require.NoError(t, db.Create(&alice).Error)
	require.NoError(t, db.Create(&bob).Error)
	cooking := models.Skill{Name: "Cooking", Category: "Life Skills"}
	piano := models.Skill{Name: "Piano", Category: "Creative"}
	require.NoError(t, db.Create(&cooking).Error)
	require.NoError(t, db.Create(&piano).Error)
	require.NoError(t, db.Create(&models.UserSkill{UserID: alice.ID, SkillID: cooking.ID, SkillType: models.SkillOffered, Level: 3}).Error)
	require.NoError(t, db.Create(&models.UserSkill{UserID: bob.ID, SkillID: piano.ID, SkillType: models.SkillOffered, Level: 5}).Error)

	swaps := repository.NewSwapRepository(db)
	users := repository.NewUserRepository(db)
	svc := NewSwapService(swaps, users, repository.NewUserSkillRepository(db), &recordingPublisher{})
	feedback := NewFeedbackService(repository.NewFeedbackRepository(db), swaps, users)

	created, err := svc.Create(ctx, alice.ID, CreateSwapInput{ReceiverID: bob.ID, OfferedSkillID: cooking.ID, RequestedSkillID: piano.ID})
	require.NoError(t, err)
	_, err = svc.Transition(ctx, created.ID, bob.ID, TransitionInput{Status: models.SwapAccepted})
	require.NoError(t, err)
	_, err = svc.Transition(ctx, created.ID, bob.ID, TransitionInput{Status: models.SwapCompleted})
	require.NoError(t, err)
	_, err = feedback.Create(ctx, alice.ID, CreateFeedbackInput{SwapRequestID: created.ID, Rating: 5})
	require.NoError(t, err)
	_, err = feedback.Create(ctx, bob.ID, CreateFeedbackInput{SwapRequestID: created.ID, Rating: 4})
	require.NoError(t, err)

	// Warm both cached aggregates.
	stats, err := feedback.Aggregate(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackStats{AverageRating: 5, TotalReviews: 1}, stats)
	_, err = feedback.Aggregate(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.FeedbackStatsKey(bob.ID)))

	require.NoError(t, svc.Delete(ctx, created.ID, alice.ID))
	assert.False(t, mr.Exists(cache.FeedbackStatsKey(bob.ID)))
	assert.False(t, mr.Exists(cache.FeedbackStatsKey(alice.ID)))

	for _, id := range []uint{alice.ID, bob.ID} {
		stats, err = feedback.Aggregate(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.FeedbackStats{}, stats)
	}
}

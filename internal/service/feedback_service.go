package service

import (
	"context"
	"strings"
	"time"

	"skillswap/internal/cache"
	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/validation"
)

const maxFeedbackCommentLen = 500

// CreateFeedbackInput rates the other participant of a completed swap.
type CreateFeedbackInput struct {
	SwapRequestID uint   `json:"swapRequestId"`
	Rating        int    `json:"rating"`
	Comment       string `json:"comment"`
}

// UpdateFeedbackInput changes rating and/or comment.
type UpdateFeedbackInput struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

// FeedbackList is one page of feedback, with stats when listing a user's reviews.
type FeedbackList struct {
	Feedback   []models.Feedback     `json:"feedback"`
	Pagination Pagination            `json:"pagination"`
	Stats      *models.FeedbackStats `json:"stats,omitempty"`
}

// FeedbackService manages ratings exchanged after completed swaps.
type FeedbackService struct {
	feedback repository.FeedbackRepository
	swaps    repository.SwapRepository
	users    repository.UserRepository
	now      func() time.Time
}

func NewFeedbackService(
	feedback repository.FeedbackRepository,
	swaps repository.SwapRepository,
	users repository.UserRepository,
) *FeedbackService {
	return &FeedbackService{feedback: feedback, swaps: swaps, users: users, now: time.Now}
}

func (s *FeedbackService) Create(ctx context.Context, giverID uint, in CreateFeedbackInput) (*models.Feedback, error) {
	var errs validation.Errors
	errs.Check(in.SwapRequestID > 0, "swapRequestId", "swapRequestId is required")
	errs.Range("rating", in.Rating, 1, 5)
	errs.Length("comment", in.Comment, 0, maxFeedbackCommentLen)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	notEligible := models.NewNotFoundMessage("Swap request not found or not completed")
	swap, err := s.swaps.GetForParticipant(ctx, in.SwapRequestID, giverID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, notEligible
		}
		return nil, err
	}
	if swap.Status != models.SwapCompleted {
		return nil, notEligible
	}

	exists, err := s.feedback.Exists(ctx, swap.ID, giverID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errDuplicateFeedback()
	}

	fb := &models.Feedback{
		SwapRequestID: swap.ID,
		GiverID:       giverID,
		ReceiverID:    swap.Counterpart(giverID),
		Rating:        in.Rating,
		Comment:       strings.TrimSpace(in.Comment),
	}
	if err := s.feedback.Create(ctx, fb); err != nil {
		if models.ErrorCode(err) == models.CodeConflict {
			return nil, errDuplicateFeedback()
		}
		return nil, err
	}
	cache.InvalidateFeedbackStats(ctx, fb.ReceiverID)
	return fb, nil
}

func errDuplicateFeedback() error {
	return models.NewBusinessRuleError("You have already provided feedback for this swap")
}

// editable loads feedback the actor gave and checks the edit window.
func (s *FeedbackService) editable(ctx context.Context, id, actorID uint, verb string) (*models.Feedback, error) {
	fb, err := s.feedback.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if fb.GiverID != actorID {
		return nil, models.NewForbiddenError("You can only " + verb + " feedback you gave")
	}
	if !fb.Editable(s.now()) {
		return nil, models.NewBusinessRuleError("Feedback can only be " + verb + "d within 24 hours of creation")
	}
	return fb, nil
}

func (s *FeedbackService) Update(ctx context.Context, id, actorID uint, in UpdateFeedbackInput) (*models.Feedback, error) {
	var errs validation.Errors
	if in.Rating != nil {
		errs.Range("rating", *in.Rating, 1, 5)
	}
	errs.OptionalLength("comment", in.Comment, 0, maxFeedbackCommentLen)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	fb, err := s.editable(ctx, id, actorID, "update")
	if err != nil {
		return nil, err
	}
	if in.Rating != nil {
		fb.Rating = *in.Rating
	}
	if in.Comment != nil {
		fb.Comment = strings.TrimSpace(*in.Comment)
	}
	fb.UpdatedAt = s.now()
	if err := s.feedback.Update(ctx, fb); err != nil {
		return nil, err
	}
	cache.InvalidateFeedbackStats(ctx, fb.ReceiverID)
	return fb, nil
}

func (s *FeedbackService) Delete(ctx context.Context, id, actorID uint) error {
	fb, err := s.editable(ctx, id, actorID, "delete")
	if err != nil {
		return err
	}
	if err := s.feedback.Delete(ctx, fb.ID); err != nil {
		return err
	}
	cache.InvalidateFeedbackStats(ctx, fb.ReceiverID)
	return nil
}

// ListForUser returns the feedback userID received. PRIVATE profiles are
// visible only to their owner.
func (s *FeedbackService) ListForUser(ctx context.Context, viewerID, userID uint, limit, offset int) (*FeedbackList, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsPublic() && viewerID != userID {
		return nil, models.NewForbiddenError("This profile is private")
	}

	page := normalizePage(limit, offset, 10)
	items, total, err := s.feedback.ListReceived(ctx, userID, page)
	if err != nil {
		return nil, err
	}
	stats, err := s.Aggregate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &FeedbackList{Feedback: nonNilFeedback(items), Pagination: newPagination(total, page), Stats: &stats}, nil
}

// ListForSwap returns both sides' feedback for a swap the user took part in.
func (s *FeedbackService) ListForSwap(ctx context.Context, swapID, userID uint) ([]models.Feedback, error) {
	if _, err := s.swaps.GetForParticipant(ctx, swapID, userID); err != nil {
		return nil, err
	}
	items, err := s.feedback.ListForSwap(ctx, swapID)
	if err != nil {
		return nil, err
	}
	return nonNilFeedback(items), nil
}

// ListMine pages the caller's given, received or all feedback.
func (s *FeedbackService) ListMine(ctx context.Context, userID uint, listType string, limit, offset int) (*FeedbackList, error) {
	t := repository.FeedbackListType(strings.ToLower(strings.TrimSpace(listType)))
	switch t {
	case "":
		t = repository.FeedbackAll
	case repository.FeedbackGiven, repository.FeedbackReceived, repository.FeedbackAll:
	default:
		return nil, models.NewValidationError("Validation error",
			models.FieldError{Field: "type", Message: "type must be one of [given, received, all]"})
	}

	page := normalizePage(limit, offset, 10)
	items, total, err := s.feedback.ListByUser(ctx, userID, t, page)
	if err != nil {
		return nil, err
	}
	return &FeedbackList{Feedback: nonNilFeedback(items), Pagination: newPagination(total, page)}, nil
}

// Aggregate returns the user's rating stats, cached briefly in Redis.
func (s *FeedbackService) Aggregate(ctx context.Context, userID uint) (models.FeedbackStats, error) {
	var stats models.FeedbackStats
	err := cache.Aside(ctx, cache.FeedbackStatsKey(userID), &stats, cache.FeedbackStatsTTL, func() error {
		var err error
		stats, err = s.feedback.Stats(ctx, userID)
		return err
	})
	return stats, err
}

func nonNilFeedback(items []models.Feedback) []models.Feedback {
	if items == nil {
		return []models.Feedback{}
	}
	return items
}

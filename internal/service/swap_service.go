package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"skillswap/internal/cache"
	"skillswap/internal/models"
	"skillswap/internal/notifications"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
	"skillswap/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const maxSwapMessageLen = 500

type swapActor int

const (
	actorSender swapActor = iota
	actorReceiver
	actorParticipant
)

type transitionRule struct {
	from      []models.SwapStatus
	actor     swapActor
	forbidden string
	notify    func(swap *models.SwapRequest, actorID uint) uint
	message   string
	eventType string
}

func (r transitionRule) allowsFrom(status models.SwapStatus) bool {
	for _, s := range r.from {
		if s == status {
			return true
		}
	}
	return false
}

func (r transitionRule) allowsActor(swap *models.SwapRequest, actorID uint) bool {
	switch r.actor {
	case actorSender:
		return swap.SenderID == actorID
	case actorReceiver:
		return swap.ReceiverID == actorID
	default:
		return swap.IsParticipant(actorID)
	}
}

// transitions is keyed by target status. PENDING is only ever entered by Create.
var transitions = map[models.SwapStatus]transitionRule{
	models.SwapAccepted: {
		from:      []models.SwapStatus{models.SwapPending},
		actor:     actorReceiver,
		forbidden: "Only the receiver can accept or reject a swap request",
		notify:    func(s *models.SwapRequest, _ uint) uint { return s.SenderID },
		message:   "Your swap request was accepted!",
		eventType: notifications.TypeSwapAccepted,
	},
	models.SwapRejected: {
		from:      []models.SwapStatus{models.SwapPending},
		actor:     actorReceiver,
		forbidden: "Only the receiver can accept or reject a swap request",
		notify:    func(s *models.SwapRequest, _ uint) uint { return s.SenderID },
		message:   "Your swap request was rejected",
		eventType: notifications.TypeSwapRejected,
	},
	models.SwapCancelled: {
		from:      []models.SwapStatus{models.SwapPending, models.SwapAccepted},
		actor:     actorSender,
		forbidden: "Only the sender can cancel a swap request",
		notify:    func(s *models.SwapRequest, _ uint) uint { return s.ReceiverID },
		message:   "A swap request was cancelled",
		eventType: notifications.TypeSwapCancelled,
	},
	models.SwapCompleted: {
		from:      []models.SwapStatus{models.SwapAccepted},
		actor:     actorParticipant,
		forbidden: "Only participants can mark a swap as completed",
		notify:    func(s *models.SwapRequest, actorID uint) uint { return s.Counterpart(actorID) },
		message:   "A swap has been marked as completed",
		eventType: notifications.TypeSwapCompleted,
	},
}

// CreateSwapInput is the body of a new swap request.
type CreateSwapInput struct {
	ReceiverID       uint       `json:"receiverId"`
	OfferedSkillID   uint       `json:"offeredSkillId"`
	RequestedSkillID uint       `json:"requestedSkillId"`
	Message          string     `json:"message"`
	ScheduledDate    *time.Time `json:"scheduledDate"`
}

// TransitionInput moves a request to Status.
type TransitionInput struct {
	Status        models.SwapStatus `json:"status"`
	ScheduledDate *time.Time        `json:"scheduledDate"`
	CancelReason  *string           `json:"cancelReason"`
}

// SwapListInput selects and pages a user's requests.
type SwapListInput struct {
	Type   string
	Status string
	Limit  int
	Offset int
}

// SwapList is one page of swap requests.
type SwapList struct {
	SwapRequests []models.SwapRequest `json:"swapRequests"`
	Pagination   Pagination           `json:"pagination"`
}

// SwapService runs the swap request lifecycle.
type SwapService struct {
	swaps      repository.SwapRepository
	users      repository.UserRepository
	userSkills repository.UserSkillRepository
	publisher  notifications.Publisher
	now        func() time.Time
}

// NewSwapService wires the lifecycle engine. A nil publisher discards notifications.
func NewSwapService(
	swaps repository.SwapRepository,
	users repository.UserRepository,
	userSkills repository.UserSkillRepository,
	publisher notifications.Publisher,
) *SwapService {
	if publisher == nil {
		publisher = notifications.NopPublisher{}
	}
	return &SwapService{
		swaps:      swaps,
		users:      users,
		userSkills: userSkills,
		publisher:  publisher,
		now:        time.Now,
	}
}

// Create validates and stores a PENDING request, then notifies the receiver.
func (s *SwapService) Create(ctx context.Context, senderID uint, in CreateSwapInput) (swap *models.SwapRequest, err error) {
	ctx, span := observability.StartSpan(ctx, "swap", "create",
		attribute.Int64("sender_id", int64(senderID)),
		attribute.Int64("receiver_id", int64(in.ReceiverID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	var errs validation.Errors
	errs.Check(in.ReceiverID > 0, "receiverId", "receiverId is required")
	errs.Check(in.OfferedSkillID > 0, "offeredSkillId", "offeredSkillId is required")
	errs.Check(in.RequestedSkillID > 0, "requestedSkillId", "requestedSkillId is required")
	errs.Length("message", in.Message, 0, maxSwapMessageLen)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if in.ReceiverID == senderID {
		return nil, models.NewBusinessRuleError("You cannot send a swap request to yourself")
	}

	receiver, err := s.users.GetByID(ctx, in.ReceiverID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, models.NewNotFoundMessage("Receiver not found")
		}
		return nil, err
	}
	if !receiver.IsAvailable {
		return nil, models.NewBusinessRuleError("This user is not available for swaps")
	}
	if !receiver.IsPublic() {
		return nil, models.NewBusinessRuleError("Cannot send request to private profile")
	}

	offers, err := s.userSkills.Exists(ctx, senderID, in.OfferedSkillID, models.SkillOffered)
	if err != nil {
		return nil, err
	}
	if !offers {
		return nil, models.NewBusinessRuleError("You do not have this skill to offer")
	}
	offers, err = s.userSkills.Exists(ctx, in.ReceiverID, in.RequestedSkillID, models.SkillOffered)
	if err != nil {
		return nil, err
	}
	if !offers {
		return nil, models.NewBusinessRuleError("Receiver does not offer this skill")
	}

	pending, err := s.swaps.HasPendingBetween(ctx, senderID, in.ReceiverID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, errDuplicatePending()
	}

	swap = &models.SwapRequest{
		SenderID:         senderID,
		ReceiverID:       in.ReceiverID,
		OfferedSkillID:   in.OfferedSkillID,
		RequestedSkillID: in.RequestedSkillID,
		Message:          strings.TrimSpace(in.Message),
		ScheduledDate:    in.ScheduledDate,
		Status:           models.SwapPending,
	}
	if err := s.swaps.Create(ctx, swap); err != nil {
		// The pending-pair index caught a concurrent request.
		if models.ErrorCode(err) == models.CodeConflict {
			return nil, errDuplicatePending()
		}
		return nil, err
	}
	observability.SwapTransitions.WithLabelValues("NONE", string(models.SwapPending)).Inc()

	created, err := s.swaps.GetForParticipant(ctx, swap.ID, senderID)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(created.ReceiverID, notifications.NewEvent(
		"New swap request received",
		notifications.TypeNewSwapRequest,
		map[string]interface{}{"swapRequest": newSwapSummary(created)},
	))
	return created, nil
}

func errDuplicatePending() error {
	return models.NewBusinessRuleError("There is already a pending swap request between you and this user")
}

// swapSummary is the NEW_SWAP_REQUEST notification body.
type swapSummary struct {
	ID             uint                `json:"id"`
	Sender         *models.UserSummary `json:"sender,omitempty"`
	OfferedSkill   *models.Skill       `json:"offeredSkill,omitempty"`
	RequestedSkill *models.Skill       `json:"requestedSkill,omitempty"`
	Message        string              `json:"message,omitempty"`
}

func newSwapSummary(swap *models.SwapRequest) swapSummary {
	out := swapSummary{
		ID:             swap.ID,
		OfferedSkill:   swap.OfferedSkill,
		RequestedSkill: swap.RequestedSkill,
		Message:        swap.Message,
	}
	if swap.Sender != nil {
		sender := swap.Sender.Summary()
		out.Sender = &sender
	}
	return out
}

// List returns the user's requests, newest first.
func (s *SwapService) List(ctx context.Context, userID uint, in SwapListInput) (*SwapList, error) {
	listType := repository.SwapListType(strings.ToLower(strings.TrimSpace(in.Type)))
	switch listType {
	case "":
		listType = repository.SwapListAll
	case repository.SwapListSent, repository.SwapListReceived, repository.SwapListAll:
	default:
		return nil, models.NewValidationError("Validation error",
			models.FieldError{Field: "type", Message: "type must be one of [sent, received, all]"})
	}

	status := models.SwapStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if status != "" && !status.Valid() {
		return nil, models.NewValidationError("Validation error",
			models.FieldError{Field: "status", Message: fmt.Sprintf("unknown status %q", in.Status)})
	}

	page := normalizePage(in.Limit, in.Offset, 20)
	swaps, total, err := s.swaps.List(ctx, repository.SwapFilter{
		UserID: userID,
		Type:   listType,
		Status: status,
		Page:   page,
	})
	if err != nil {
		return nil, err
	}
	if swaps == nil {
		swaps = []models.SwapRequest{}
	}
	return &SwapList{SwapRequests: swaps, Pagination: newPagination(total, page)}, nil
}

// Get returns a request the user participates in, with its feedback.
func (s *SwapService) Get(ctx context.Context, id, userID uint) (*models.SwapRequest, error) {
	return s.swaps.GetForParticipant(ctx, id, userID)
}

// Transition moves a request along the lifecycle on behalf of actorID.
func (s *SwapService) Transition(ctx context.Context, id, actorID uint, in TransitionInput) (updated *models.SwapRequest, err error) {
	ctx, span := observability.StartSpan(ctx, "swap", "transition",
		attribute.Int64("swap_id", int64(id)),
		attribute.String("to", string(in.Status)),
	)
	defer func() { observability.EndSpan(span, err) }()

	to := models.SwapStatus(strings.ToUpper(string(in.Status)))
	rule, ok := transitions[to]
	if !ok {
		return nil, models.NewValidationError("Validation error", models.FieldError{
			Field:   "status",
			Message: "status must be one of [ACCEPTED, REJECTED, CANCELLED, COMPLETED]",
		})
	}
	var errs validation.Errors
	errs.OptionalLength("cancelReason", in.CancelReason, 0, maxSwapMessageLen)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	swap, err := s.swaps.GetForParticipant(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if !rule.allowsActor(swap, actorID) {
		return nil, models.NewForbiddenError(rule.forbidden)
	}
	if !rule.allowsFrom(swap.Status) {
		return nil, models.NewBusinessRuleError(fmt.Sprintf("Cannot change status from %s to %s", swap.Status, to))
	}

	update := repository.SwapUpdate{Status: to}
	switch to {
	case models.SwapAccepted:
		if in.ScheduledDate != nil {
			if !in.ScheduledDate.After(s.now()) {
				return nil, models.NewBusinessRuleError("Scheduled date must be in the future")
			}
			update.ScheduledDate = in.ScheduledDate
		}
	case models.SwapCancelled:
		if in.CancelReason != nil {
			reason := strings.TrimSpace(*in.CancelReason)
			update.CancelReason = &reason
		}
	}

	return s.apply(ctx, swap, actorID, rule, update)
}

// apply performs the guarded write and publishes the notification.
func (s *SwapService) apply(
	ctx context.Context,
	swap *models.SwapRequest,
	actorID uint,
	rule transitionRule,
	update repository.SwapUpdate,
) (*models.SwapRequest, error) {
	from := swap.Status
	ok, err := s.swaps.UpdateStatus(ctx, swap.ID, from, update)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewConflictError("Swap request was modified by another request; reload and try again", nil)
	}
	observability.SwapTransitions.WithLabelValues(string(from), string(update.Status)).Inc()

	updated, err := s.swaps.GetForParticipant(ctx, swap.ID, actorID)
	if err != nil {
		return nil, err
	}

	recipient := rule.notify(updated, actorID)
	s.publisher.Publish(recipient, notifications.NewEvent(rule.message, rule.eventType,
		map[string]interface{}{"swapRequest": updated}))
	slog.InfoContext(ctx, "swap request transitioned",
		slog.Uint64("swap_id", uint64(swap.ID)),
		slog.String("from", string(from)),
		slog.String("to", string(update.Status)),
	)
	return updated, nil
}

// Cancel is the sender-only shortcut for a CANCELLED transition. Requests the
// caller did not send, or that can no longer be cancelled, read as missing.
func (s *SwapService) Cancel(ctx context.Context, id, senderID uint, reason *string) (*models.SwapRequest, error) {
	notCancellable := models.NewNotFoundMessage("Swap request not found or cannot be cancelled")
	rule := transitions[models.SwapCancelled]

	swap, err := s.swaps.GetForParticipant(ctx, id, senderID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, notCancellable
		}
		return nil, err
	}
	if !rule.allowsActor(swap, senderID) || !rule.allowsFrom(swap.Status) {
		return nil, notCancellable
	}

	var errs validation.Errors
	errs.OptionalLength("cancelReason", reason, 0, maxSwapMessageLen)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	update := repository.SwapUpdate{Status: models.SwapCancelled}
	if reason != nil {
		trimmed := strings.TrimSpace(*reason)
		update.CancelReason = &trimmed
	}
	return s.apply(ctx, swap, senderID, rule, update)
}

// Delete hard-deletes a finished request the user participated in.
func (s *SwapService) Delete(ctx context.Context, id, userID uint) error {
	deleted, err := s.swaps.DeleteTerminal(ctx, id, userID)
	if err != nil {
		return err
	}
	if deleted == nil {
		return models.NewNotFoundMessage("Swap request not found or cannot be deleted")
	}
	// Feedback on the request went with it; either participant may have received some.
	cache.InvalidateFeedbackStats(ctx, deleted.SenderID)
	cache.InvalidateFeedbackStats(ctx, deleted.ReceiverID)
	return nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/observability"

	"gorm.io/gorm"
)

// SwapListType selects which side of a swap the listing user is on.
type SwapListType string

const (
	SwapListSent     SwapListType = "sent"
	SwapListReceived SwapListType = "received"
	SwapListAll      SwapListType = "all"
)

// SwapFilter narrows a user's swap listing.
type SwapFilter struct {
	UserID uint
	Type   SwapListType
	Status models.SwapStatus
	Page   Page
}

// SwapUpdate holds the columns written by a status transition.
type SwapUpdate struct {
	Status        models.SwapStatus
	ScheduledDate *time.Time
	CancelReason  *string
}

// SwapRepository persists swap requests.
type SwapRepository interface {
	Create(ctx context.Context, swap *models.SwapRequest) error
	GetForParticipant(ctx context.Context, id, userID uint) (*models.SwapRequest, error)
	HasPendingBetween(ctx context.Context, userA, userB uint) (bool, error)
	List(ctx context.Context, filter SwapFilter) ([]models.SwapRequest, int64, error)
	UpdateStatus(ctx context.Context, id uint, from models.SwapStatus, update SwapUpdate) (bool, error)
	DeleteTerminal(ctx context.Context, id, userID uint) (*models.SwapRequest, error)
}

type swapRepository struct {
	db *gorm.DB
}

// NewSwapRepository creates a new swap repository
func NewSwapRepository(db *gorm.DB) SwapRepository {
	return &swapRepository{db: db}
}

var terminalStatuses = []models.SwapStatus{models.SwapCompleted, models.SwapCancelled, models.SwapRejected}

// participantColumns limits preloaded users to their public summary.
func participantColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id", "first_name", "last_name", "profile_photo")
}

func withSwapDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Sender", participantColumns).
		Preload("Receiver", participantColumns).
		Preload("OfferedSkill").
		Preload("RequestedSkill")
}

// Create inserts a PENDING request. A duplicate pending pair surfaces as Conflict.
func (r *swapRepository) Create(ctx context.Context, swap *models.SwapRequest) error {
	defer observability.TrackQuery("create", "swap_requests")()
	if err := r.db.WithContext(ctx).Create(swap).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("There is already a pending swap request between you and this user", err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// GetForParticipant loads a request only if userID is its sender or receiver.
func (r *swapRepository) GetForParticipant(ctx context.Context, id, userID uint) (*models.SwapRequest, error) {
	defer observability.TrackQuery("get", "swap_requests")()
	var swap models.SwapRequest
	err := withSwapDetails(r.db.WithContext(ctx)).
		Preload("Feedback").
		Where("id = ? AND (sender_id = ? OR receiver_id = ?)", id, userID, userID).
		First(&swap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("Swap request not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &swap, nil
}

// HasPendingBetween checks both directions between two users.
func (r *swapRepository) HasPendingBetween(ctx context.Context, userA, userB uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SwapRequest{}).
		Where("status = ?", models.SwapPending).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *swapRepository) List(ctx context.Context, filter SwapFilter) ([]models.SwapRequest, int64, error) {
	defer observability.TrackQuery("list", "swap_requests")()
	query := readDB(r.db).WithContext(ctx).Model(&models.SwapRequest{})

	switch filter.Type {
	case SwapListSent:
		query = query.Where("sender_id = ?", filter.UserID)
	case SwapListReceived:
		query = query.Where("receiver_id = ?", filter.UserID)
	default:
		query = query.Where("(sender_id = ? OR receiver_id = ?)", filter.UserID, filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var swaps []models.SwapRequest
	if err := filter.Page.apply(withSwapDetails(query)).
		Order("created_at DESC").
		Find(&swaps).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return swaps, total, nil
}

// UpdateStatus applies update only while the row is still in status from.
// It reports false when another writer moved the row first.
func (r *swapRepository) UpdateStatus(ctx context.Context, id uint, from models.SwapStatus, update SwapUpdate) (bool, error) {
	defer observability.TrackQuery("update_status", "swap_requests")()
	values := map[string]interface{}{
		"status":     update.Status,
		"updated_at": time.Now(),
	}
	if update.ScheduledDate != nil {
		values["scheduled_date"] = *update.ScheduledDate
	}
	if update.CancelReason != nil {
		values["cancel_reason"] = *update.CancelReason
	}

	result := r.db.WithContext(ctx).
		Model(&models.SwapRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return false, models.NewConflictError("There is already a pending swap request between you and this user", result.Error)
		}
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// DeleteTerminal hard-deletes a finished request and its feedback when userID
// is a participant. It returns the deleted request, or nil when nothing matched.
func (r *swapRepository) DeleteTerminal(ctx context.Context, id, userID uint) (*models.SwapRequest, error) {
	defer observability.TrackQuery("delete", "swap_requests")()
	var deleted *models.SwapRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var swap models.SwapRequest
		err := tx.Select("id", "sender_id", "receiver_id", "status").
			Where("id = ? AND (sender_id = ? OR receiver_id = ?) AND status IN ?", id, userID, userID, terminalStatuses).
			First(&swap).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Where("swap_request_id = ?", id).Delete(&models.Feedback{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.SwapRequest{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 1 {
			deleted = &swap
		}
		return nil
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return deleted, nil
}

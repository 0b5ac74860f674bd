package repository

import (
	"context"
	"errors"

	"skillswap/internal/models"
	"skillswap/internal/observability"

	"gorm.io/gorm"
)

// FeedbackListType selects given, received or both directions.
type FeedbackListType string

const (
	FeedbackGiven    FeedbackListType = "given"
	FeedbackReceived FeedbackListType = "received"
	FeedbackAll      FeedbackListType = "all"
)

// FeedbackRepository persists swap feedback.
type FeedbackRepository interface {
	Create(ctx context.Context, fb *models.Feedback) error
	GetByID(ctx context.Context, id uint) (*models.Feedback, error)
	Exists(ctx context.Context, swapID, giverID uint) (bool, error)
	ListReceived(ctx context.Context, userID uint, page Page) ([]models.Feedback, int64, error)
	ListForSwap(ctx context.Context, swapID uint) ([]models.Feedback, error)
	ListByUser(ctx context.Context, userID uint, listType FeedbackListType, page Page) ([]models.Feedback, int64, error)
	Update(ctx context.Context, fb *models.Feedback) error
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context, userID uint) (models.FeedbackStats, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, fb *models.Feedback) error {
	defer observability.TrackQuery("create", "feedback")()
	if err := r.db.WithContext(ctx).Create(fb).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("You have already provided feedback for this swap", err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *feedbackRepository) GetByID(ctx context.Context, id uint) (*models.Feedback, error) {
	var fb models.Feedback
	if err := r.db.WithContext(ctx).First(&fb, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("Feedback not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &fb, nil
}

func (r *feedbackRepository) Exists(ctx context.Context, swapID, giverID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Feedback{}).
		Where("swap_request_id = ? AND giver_id = ?", swapID, giverID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *feedbackRepository) ListReceived(ctx context.Context, userID uint, page Page) ([]models.Feedback, int64, error) {
	return r.ListByUser(ctx, userID, FeedbackReceived, page)
}

func (r *feedbackRepository) ListForSwap(ctx context.Context, swapID uint) ([]models.Feedback, error) {
	var items []models.Feedback
	if err := readDB(r.db).WithContext(ctx).
		Preload("Giver", participantColumns).
		Preload("Receiver", participantColumns).
		Where("swap_request_id = ?", swapID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}

func (r *feedbackRepository) ListByUser(ctx context.Context, userID uint, listType FeedbackListType, page Page) ([]models.Feedback, int64, error) {
	defer observability.TrackQuery("list", "feedback")()
	query := readDB(r.db).WithContext(ctx).Model(&models.Feedback{})
	switch listType {
	case FeedbackGiven:
		query = query.Where("giver_id = ?", userID)
	case FeedbackReceived:
		query = query.Where("receiver_id = ?", userID)
	default:
		query = query.Where("(giver_id = ? OR receiver_id = ?)", userID, userID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var items []models.Feedback
	if err := page.apply(query).
		Preload("Giver", participantColumns).
		Preload("Receiver", participantColumns).
		Preload("SwapRequest.OfferedSkill").
		Preload("SwapRequest.RequestedSkill").
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return items, total, nil
}

func (r *feedbackRepository) Update(ctx context.Context, fb *models.Feedback) error {
	if err := r.db.WithContext(ctx).
		Model(fb).
		Select("rating", "comment", "updated_at").
		Updates(fb).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *feedbackRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Feedback{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Stats averages every rating received by userID; the average is 0 with no reviews.
func (r *feedbackRepository) Stats(ctx context.Context, userID uint) (models.FeedbackStats, error) {
	var row struct {
		Avg   *float64
		Total int64
	}
	if err := readDB(r.db).WithContext(ctx).
		Model(&models.Feedback{}).
		Select("AVG(rating) AS avg, COUNT(*) AS total").
		Where("receiver_id = ?", userID).
		Scan(&row).Error; err != nil {
		return models.FeedbackStats{}, models.NewInternalError(err)
	}

	stats := models.FeedbackStats{TotalReviews: row.Total}
	if row.Total > 0 && row.Avg != nil {
		stats.AverageRating = *row.Avg
	}
	return stats, nil
}

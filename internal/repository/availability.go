package repository

import (
	"context"
	"errors"

	"skillswap/internal/models"

	"gorm.io/gorm"
)

// AvailabilityRepository stores a user's availability windows.
type AvailabilityRepository interface {
	Create(ctx context.Context, a *models.UserAvailability) error
	GetForUser(ctx context.Context, id, userID uint) (*models.UserAvailability, error)
	Delete(ctx context.Context, id uint) error
}

type availabilityRepository struct {
	db *gorm.DB
}

// NewAvailabilityRepository creates a new availability repository
func NewAvailabilityRepository(db *gorm.DB) AvailabilityRepository {
	return &availabilityRepository{db: db}
}

func (r *availabilityRepository) Create(ctx context.Context, a *models.UserAvailability) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *availabilityRepository) GetForUser(ctx context.Context, id, userID uint) (*models.UserAvailability, error) {
	var a models.UserAvailability
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("Availability not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &a, nil
}

func (r *availabilityRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.UserAvailability{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

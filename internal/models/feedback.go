package models

import "time"

// FeedbackEditWindow is how long after creation a giver may edit or delete feedback.
const FeedbackEditWindow = 24 * time.Hour

// Feedback is a rating one swap participant leaves for the other.
type Feedback struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SwapRequestID uint      `gorm:"not null;uniqueIndex:idx_feedback_swap_giver" json:"swapRequestId"`
	GiverID       uint      `gorm:"not null;uniqueIndex:idx_feedback_swap_giver" json:"giverId"`
	ReceiverID    uint      `gorm:"not null;index" json:"receiverId"`
	Rating        int       `gorm:"not null" json:"rating"`
	Comment       string    `gorm:"size:500" json:"comment,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	Giver       *User        `gorm:"foreignKey:GiverID;constraint:OnDelete:CASCADE" json:"giver,omitempty"`
	Receiver    *User        `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE" json:"receiver,omitempty"`
	SwapRequest *SwapRequest `gorm:"foreignKey:SwapRequestID" json:"swapRequest,omitempty"`
}

// TableName specifies the table name for GORM
func (Feedback) TableName() string {
	return "feedback"
}

// Editable reports whether the edit window is still open at now.
// Exactly FeedbackEditWindow after creation is still editable.
func (f *Feedback) Editable(now time.Time) bool {
	return now.Sub(f.CreatedAt) <= FeedbackEditWindow
}

// FeedbackStats aggregates the ratings a user has received.
type FeedbackStats struct {
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int64   `json:"totalReviews"`
}

package models

import "time"

// SwapStatus represents the lifecycle state of a swap request.
type SwapStatus string

const (
	// SwapPending is the initial state of every request.
	SwapPending SwapStatus = "PENDING"
	// SwapAccepted means the receiver agreed to the swap.
	SwapAccepted SwapStatus = "ACCEPTED"
	// SwapRejected means the receiver declined the swap.
	SwapRejected SwapStatus = "REJECTED"
	// SwapCancelled means the sender withdrew the request.
	SwapCancelled SwapStatus = "CANCELLED"
	// SwapCompleted means the swap took place.
	SwapCompleted SwapStatus = "COMPLETED"
)

// Valid reports whether s is a known status.
func (s SwapStatus) Valid() bool {
	switch s {
	case SwapPending, SwapAccepted, SwapRejected, SwapCancelled, SwapCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further status transition is possible.
func (s SwapStatus) IsTerminal() bool {
	return s == SwapRejected || s == SwapCancelled || s == SwapCompleted
}

// SwapRequest is a proposal to exchange the sender's offered skill for the receiver's.
type SwapRequest struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	SenderID         uint       `gorm:"not null;index:idx_swap_sender_status" json:"senderId"`
	ReceiverID       uint       `gorm:"not null;index:idx_swap_receiver_status" json:"receiverId"`
	OfferedSkillID   uint       `gorm:"not null" json:"offeredSkillId"`
	RequestedSkillID uint       `gorm:"not null" json:"requestedSkillId"`
	Message          string     `gorm:"size:500" json:"message,omitempty"`
	ScheduledDate    *time.Time `json:"scheduledDate"`
	CancelReason     string     `gorm:"size:500" json:"cancelReason,omitempty"`
	Status           SwapStatus `gorm:"type:varchar(10);not null;default:'PENDING';index:idx_swap_sender_status;index:idx_swap_receiver_status" json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`

	Sender         *User      `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sender,omitempty"`
	Receiver       *User      `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE" json:"receiver,omitempty"`
	OfferedSkill   *Skill     `gorm:"foreignKey:OfferedSkillID" json:"offeredSkill,omitempty"`
	RequestedSkill *Skill     `gorm:"foreignKey:RequestedSkillID" json:"requestedSkill,omitempty"`
	Feedback       []Feedback `gorm:"foreignKey:SwapRequestID;constraint:OnDelete:CASCADE" json:"feedback,omitempty"`
}

// TableName specifies the table name for GORM
func (SwapRequest) TableName() string {
	return "swap_requests"
}

// IsParticipant reports whether userID is the sender or receiver.
func (s *SwapRequest) IsParticipant(userID uint) bool {
	return s.SenderID == userID || s.ReceiverID == userID
}

// Counterpart returns the other participant's ID.
func (s *SwapRequest) Counterpart(userID uint) uint {
	if s.SenderID == userID {
		return s.ReceiverID
	}
	return s.SenderID
}

package stubapi

import (
	"time"

	"github.com/frahmantamala/gatepass/internal/gatepass"
	"github.com/frahmantamala/gatepass/internal/session"
)

type User struct {
	ID           int64        `gorm:"primaryKey"`
	Username     string       `gorm:"uniqueIndex;size:150;not null"`
	PasswordHash string       `gorm:"not null"`
	UserType     session.Role `gorm:"size:16;not null"`
	CreatedAt    time.Time
}

type GatePassRecord struct {
	ID              int64           `gorm:"primaryKey"`
	WorkmanID       int64           `gorm:"index;not null"`
	Workman         User
	TimeOut         string          `gorm:"size:8"`
	TimeIn          string          `gorm:"size:8;not null"`
	Purpose         string          `gorm:"size:500;not null"`
	ApprovalStatus  gatepass.Status `gorm:"size:16;index;not null"`
	RejectionReason *string
	ApprovedByID    *int64
	ApprovedBy      *User
	ApprovedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (GatePassRecord) TableName() string {
	return "gatepasses"
}

// RevokedToken is a logged-out refresh token, keyed by its jti.
type RevokedToken struct {
	ID        string `gorm:"primaryKey;size:64"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (r GatePassRecord) toGatePass() gatepass.GatePass {
	gp := gatepass.GatePass{
		ID:              r.ID,
		Workman:         r.WorkmanID,
		WorkmanUsername: r.Workman.Username,
		TimeOut:         r.TimeOut,
		TimeIn:          r.TimeIn,
		Purpose:         r.Purpose,
		ApprovalStatus:  r.ApprovalStatus,
		RejectionReason: r.RejectionReason,
		ApprovedBy:      r.ApprovedByID,
		ApprovedAt:      r.ApprovedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.ApprovedBy != nil {
		gp.ApprovedByUsername = r.ApprovedBy.Username
	}
	return gp
}

package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

type RequestStatus string

const (
	RequestStatusNew       RequestStatus = "new"
	RequestStatusInReview  RequestStatus = "in_review"
	RequestStatusQuoted    RequestStatus = "quoted"
	RequestStatusAccepted  RequestStatus = "accepted"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCompleted RequestStatus = "completed"
)

func ParseRequestStatus(s string) (RequestStatus, bool) {
	switch r := RequestStatus(strings.ToLower(strings.TrimSpace(s))); r {
	case RequestStatusNew, RequestStatusInReview, RequestStatusQuoted,
		RequestStatusAccepted, RequestStatusRejected, RequestStatusCompleted:
		return r, true
	}
	return "", false
}

// CustomRequest is a bespoke furniture enquiry, optionally tied to an account.
type CustomRequest struct {
	Base
	UserID      *string             `gorm:"size:36;index" json:"userId"`
	User        *User               `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Name        string              `gorm:"size:255;not null" json:"name"`
	Email       string              `gorm:"size:255;not null;index" json:"email"`
	Phone       string              `gorm:"size:50" json:"phone"`
	Subject     string              `gorm:"size:255" json:"subject"`
	Description string              `gorm:"type:text;not null" json:"description"`
	Budget      decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"budget"`
	Status      RequestStatus       `gorm:"size:20;not null;index" json:"status"`
	AdminNotes  string              `gorm:"type:text" json:"adminNotes"`
}

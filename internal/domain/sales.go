package domain

import "math"

// TotalTolerance is the allowed drift between a stored total and its derivation.
const TotalTolerance = 0.01

// PaymentStatus enumerates payment states of a deal.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusOverdue PaymentStatus = "overdue"
)

// Valid reports whether the value is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusPartial, PaymentStatusPaid, PaymentStatusOverdue:
		return true
	}
	return false
}

// Priority enumerates follow-up urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether the value is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// DealStage enumerates pipeline stages.
type DealStage string

const (
	DealStageLead        DealStage = "lead"
	DealStageQualified   DealStage = "qualified"
	DealStageProposal    DealStage = "proposal"
	DealStageNegotiation DealStage = "negotiation"
	DealStageClosedWon   DealStage = "closed-won"
	DealStageClosedLost  DealStage = "closed-lost"
)

// Valid reports whether the value is a known deal stage.
func (d DealStage) Valid() bool {
	switch d {
	case DealStageLead, DealStageQualified, DealStageProposal, DealStageNegotiation, DealStageClosedWon, DealStageClosedLost:
		return true
	}
	return false
}

// SalesRecord is a single sale entered by, or on behalf of, a user.
type SalesRecord struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Date        string  `json:"date"`
	ProductName string  `json:"productName"`
	Customer    string  `json:"customer"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Discount    float64 `json:"discount"`
	TotalAmount float64 `json:"totalAmount"`

	CustomerEmail string        `json:"customerEmail,omitempty"`
	CustomerPhone string        `json:"customerPhone,omitempty"`
	Company       string        `json:"company,omitempty"`
	Address       string        `json:"address,omitempty"`
	PaymentMethod string        `json:"paymentMethod,omitempty"`
	PaymentStatus PaymentStatus `json:"paymentStatus,omitempty"`
	LeadSource    string        `json:"leadSource,omitempty"`
	Priority      Priority      `json:"priority,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	FollowUp      string        `json:"followUp,omitempty"`
	Commission    float64       `json:"commission,omitempty"`
	Territory     string        `json:"territory,omitempty"`
	DealStage     DealStage     `json:"dealStage,omitempty"`
	CreatedAt     string        `json:"createdAt,omitempty"`
	UpdatedAt     string        `json:"updatedAt,omitempty"`
}

// ExpectedTotal derives the total from quantity, unit price and discount.
func (s SalesRecord) ExpectedTotal() float64 {
	return s.Quantity*s.UnitPrice - s.Discount
}

// TotalConsistent reports whether TotalAmount is within tolerance of ExpectedTotal.
func (s SalesRecord) TotalConsistent() bool {
	return math.Abs(s.TotalAmount-s.ExpectedTotal()) <= TotalTolerance
}

// HasContact reports whether an email or phone is recorded for the customer.
func (s SalesRecord) HasContact() bool {
	return s.CustomerEmail != "" || s.CustomerPhone != ""
}

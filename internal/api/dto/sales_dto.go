package dto

import (
	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/service"
)

// SaleRequest payload for creating or editing a sale. totalAmount is derived
// server side and ignored if sent.
type SaleRequest struct {
	UserID        string  `json:"userId"`
	Date          string  `json:"date"`
	ProductName   string  `json:"productName"`
	Customer      string  `json:"customer"`
	Quantity      float64 `json:"quantity"`
	UnitPrice     float64 `json:"unitPrice"`
	Discount      float64 `json:"discount"`
	CustomerEmail string  `json:"customerEmail"`
	CustomerPhone string  `json:"customerPhone"`
	Company       string  `json:"company"`
	Address       string  `json:"address"`
	PaymentMethod string  `json:"paymentMethod"`
	PaymentStatus string  `json:"paymentStatus"`
	LeadSource    string  `json:"leadSource"`
	Priority      string  `json:"priority"`
	Notes         string  `json:"notes"`
	FollowUp      string  `json:"followUp"`
	Commission    float64 `json:"commission"`
	Territory     string  `json:"territory"`
	DealStage     string  `json:"dealStage"`
}

// ToInput converts the request to a service input.
func (r SaleRequest) ToInput() service.SaleInput {
	return service.SaleInput{
		UserID:        r.UserID,
		Date:          r.Date,
		ProductName:   r.ProductName,
		Customer:      r.Customer,
		Quantity:      r.Quantity,
		UnitPrice:     r.UnitPrice,
		Discount:      r.Discount,
		CustomerEmail: r.CustomerEmail,
		CustomerPhone: r.CustomerPhone,
		Company:       r.Company,
		Address:       r.Address,
		PaymentMethod: r.PaymentMethod,
		PaymentStatus: domain.PaymentStatus(r.PaymentStatus),
		LeadSource:    r.LeadSource,
		Priority:      domain.Priority(r.Priority),
		Notes:         r.Notes,
		FollowUp:      r.FollowUp,
		Commission:    r.Commission,
		Territory:     r.Territory,
		DealStage:     domain.DealStage(r.DealStage),
	}
}

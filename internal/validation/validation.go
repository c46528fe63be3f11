// Package validation holds single-field and input-record validators.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/spec-kit/sales-crm/internal/domain"
)

var (
	phonePattern      = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
	employeeIDPattern = regexp.MustCompile(`^[A-Z0-9]{3,10}$`)
	phoneStripper     = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	tagStripper       = strings.NewReplacer("<", "", ">", "")
)

// Result collects every violation found by a validator.
type Result struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

func newResult(errs []string) Result {
	if errs == nil {
		errs = []string{}
	}
	return Result{IsValid: len(errs) == 0, Errors: errs}
}

// IsValidEmail checks for a single @, no whitespace and a dotted domain.
func IsValidEmail(s string) bool {
	if strings.Count(s, "@") != 1 {
		return false
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	local, host, _ := strings.Cut(s, "@")
	if local == "" {
		return false
	}
	dot := strings.LastIndex(host, ".")
	return dot > 0 && dot < len(host)-1
}

// IsValidPhone accepts an optional leading + and up to 16 digits, first digit non-zero,
// after removing spaces, hyphens and parentheses.
func IsValidPhone(s string) bool {
	return phonePattern.MatchString(phoneStripper.Replace(s))
}

// IsValidEmployeeID accepts 3-10 uppercase letters or digits.
func IsValidEmployeeID(s string) bool {
	return employeeIDPattern.MatchString(s)
}

// CheckPasswordStrength reports every rule the password breaks.
func CheckPasswordStrength(s string) Result {
	var errs []string
	if len(s) < 6 {
		errs = append(errs, "Password must be at least 6 characters long")
	}
	if strings.IndexFunc(s, unicode.IsLetter) < 0 {
		errs = append(errs, "Password must contain at least one letter")
	}
	if strings.IndexFunc(s, unicode.IsDigit) < 0 {
		errs = append(errs, "Password must contain at least one number")
	}
	return newResult(errs)
}

// Sanitize trims whitespace and removes angle brackets. It is not an HTML sanitizer.
func Sanitize(s string) string {
	return tagStripper.Replace(strings.TrimSpace(s))
}

// SalesInput is the user-supplied part of a sales record.
type SalesInput struct {
	ProductName   string
	Customer      string
	Quantity      float64
	UnitPrice     float64
	Discount      float64
	CustomerEmail string
	CustomerPhone string
	PaymentStatus domain.PaymentStatus
	Priority      domain.Priority
	DealStage     domain.DealStage
}

// ValidateSalesRecordInput checks a sales entry before it is stored.
func ValidateSalesRecordInput(in SalesInput) Result {
	var errs []string
	if strings.TrimSpace(in.ProductName) == "" {
		errs = append(errs, "Product name is required")
	}
	if strings.TrimSpace(in.Customer) == "" {
		errs = append(errs, "Customer name is required")
	}
	if in.Quantity <= 0 {
		errs = append(errs, "Quantity must be greater than 0")
	}
	if in.UnitPrice <= 0 {
		errs = append(errs, "Unit price must be greater than 0")
	}
	if in.Discount < 0 {
		errs = append(errs, "Discount cannot be negative")
	}
	// Stored totals are rounded to cents and must stay positive.
	if in.Quantity > 0 && in.UnitPrice > 0 && in.Discount >= 0 &&
		math.Round((in.Quantity*in.UnitPrice-in.Discount)*100) <= 0 {
		errs = append(errs, "Discount must be less than the sale amount")
	}
	if email := strings.TrimSpace(in.CustomerEmail); email != "" && !IsValidEmail(email) {
		errs = append(errs, "Invalid customer email format")
	}
	if phone := strings.TrimSpace(in.CustomerPhone); phone != "" && !IsValidPhone(phone) {
		errs = append(errs, "Invalid customer phone format")
	}
	if in.PaymentStatus != "" && !in.PaymentStatus.Valid() {
		errs = append(errs, fmt.Sprintf("Unknown payment status: %s", in.PaymentStatus))
	}
	if in.Priority != "" && !in.Priority.Valid() {
		errs = append(errs, fmt.Sprintf("Unknown priority: %s", in.Priority))
	}
	if in.DealStage != "" && !in.DealStage.Valid() {
		errs = append(errs, fmt.Sprintf("Unknown deal stage: %s", in.DealStage))
	}
	return newResult(errs)
}

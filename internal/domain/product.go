package domain

// Product is a catalog entry offered on the sales form.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price"`
}

// Target is a monthly sales goal assigned to a user.
type Target struct {
	UserID    string  `json:"userId"`
	Month     string  `json:"month"`
	Amount    float64 `json:"amount"`
	SetBy     string  `json:"setBy,omitempty"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

package transport

type SavePurchaseRequest struct {
	ProductID       string  `json:"productId"`
	ProductName     string  `json:"productName"`
	ProductPrice    float64 `json:"productPrice"`
	ProductImage    string  `json:"productImage"`
	PaymentIntentID string  `json:"paymentIntentId"`
	Amount          int64   `json:"amount"`
	Currency        string  `json:"currency"`
}

type CreateIntentRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
}

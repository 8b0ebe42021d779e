package transport

type CreateProductRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	ImageURL      string  `json:"imageURL"`
	StockQuantity int     `json:"stockQuantity"`
	Status        string  `json:"status"`
}

type PatchProductRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price"`
	ImageURL      *string  `json:"imageURL"`
	StockQuantity *int     `json:"stockQuantity"`
	Status        *string  `json:"status"`
}

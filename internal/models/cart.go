package models

// CartLine is one product/quantity pair in a shopper's personal cart.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

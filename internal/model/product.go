package model

import "time"

type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	ListPrice float64   `json:"list_price"`
	CreatedAt time.Time `json:"created_at"`
}

// MaterialLine ties a quantity of a product to a task. A quantity of zero
// means the line is tracked but not billed; lines are never deleted by sync.
type MaterialLine struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	ProductID int64     `json:"product_id"`
	Quantity  float64   `json:"quantity"`
	PriceUnit float64   `json:"price_unit"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

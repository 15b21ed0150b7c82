package model

import "time"

// Product は販売商品を表す。
type Product struct {
	ID        int64
	Name      string
	SKU       string
	Price     float64
	Stock     int
	CreatedAt time.Time
}

// Sale は1件の販売記録を表す。
type Sale struct {
	ID          int64
	ProductID   int64
	Quantity    int
	TotalAmount float64
	SoldAt      time.Time
}

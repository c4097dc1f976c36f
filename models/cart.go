package models

import (
	"time"

	"order-lifecycle-service/money"

	"github.com/shopspring/decimal"
)

// CartItem holds a product reference with the price captured when the item
// was added. Price stays a display string until order creation parses it.
type CartItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Name      string `json:"name"`
	Price     string `json:"price" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// Cart is the mutable per-user cart stored in Redis. Total is recomputed on
// every mutation from current line prices, unlike an Order which freezes.
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	Total     string     `json:"total"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RecomputeTotal refreshes the display total from the current items.
// Unparseable prices are skipped here; order creation fails closed on them.
func (c *Cart) RecomputeTotal() {
	total := decimal.Zero
	for _, item := range c.Items {
		price, err := money.ParseDisplay(item.Price)
		if err != nil {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	c.Total = total.StringFixed(2)
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

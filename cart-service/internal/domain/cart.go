package domain

import (
	"time"

	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound    = apperr.NotFound("item not found in cart")
	ErrInvalidQuantity = apperr.Invalid("invalid quantity", map[string]string{"quantity": "gte=1"})
	ErrInvalidPrice    = apperr.Invalid("invalid price", map[string]string{"price": "gte=0"})
)

// Cart is one document per user. TotalAfterDiscount is written by the pricing
// engine on every mutation and reused as-is at checkout.
type Cart struct {
	ID                 string          `bson:"_id,omitempty" json:"-"`
	UserName           string          `bson:"user_name" json:"userName"`
	Items              []CartItem      `bson:"items" json:"items"`
	TotalAfterDiscount decimal.Decimal `bson:"total_after_discount" json:"totalAfterDiscount"`
	CreatedAt          time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time       `bson:"updated_at" json:"updatedAt"`
}

type CartItem struct {
	ProductID   uuid.UUID       `bson:"product_id" json:"productId"`
	ProductName string          `bson:"product_name" json:"productName"`
	Price       decimal.Decimal `bson:"price" json:"price"`
	Quantity    int             `bson:"quantity" json:"quantity"`
	Color       string          `bson:"color" json:"color"`
}

func NewCart(userName string) *Cart {
	return &Cart{UserName: userName, Items: []CartItem{}}
}

// RawTotal is the undiscounted sum of price times quantity.
func (c *Cart) RawTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// AddItem merges quantities when the product is already in the cart.
func (c *Cart) AddItem(item CartItem) error {
	if err := item.validate(); err != nil {
		return err
	}
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			c.Items[i].Price = item.Price
			c.Items[i].ProductName = item.ProductName
			if item.Color != "" {
				c.Items[i].Color = item.Color
			}
			return nil
		}
	}
	c.Items = append(c.Items, item)
	return nil
}

func (c *Cart) UpdateQuantity(productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	return ErrItemNotFound
}

func (c *Cart) RemoveItem(productID uuid.UUID) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

func (i CartItem) validate() error {
	if i.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if i.Price.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

package models

import (
	"github.com/google/uuid"
)

// ProductTypes enumerates the accepted product categories.
var ProductTypes = []string{"Foods", "Electronics", "Clothes", "Beauty Products", "Others"}

// IsValidProductType reports whether value is one of the enumerated categories.
func IsValidProductType(value string) bool {
	for _, t := range ProductTypes {
		if t == value {
			return true
		}
	}
	return false
}

// Product is a listing owned by exactly one user. UserID is bound from the
// session at creation and never changes. Every query against products must
// filter by both id and user_id.
type Product struct {
	BaseModel
	UserID           uuid.UUID      `gorm:"type:uuid;index" json:"userId"`
	ProductName      string         `json:"productName"`
	ProductType      string         `json:"productType"`
	QuantityStock    int            `json:"quantityStock"`
	MRP              float64        `json:"mrp"`
	SellingPrice     float64        `json:"sellingPrice"`
	BrandName        string         `json:"brandName"`
	ExchangeOrReturn bool           `json:"exchangeOrReturn"`
	PublishedStatus  bool           `json:"publishedStatus"`
	Images           []ProductImage `json:"productImages"`
}

// ProductImage is one stored image file of a product. The set is replaced
// wholesale on update; DisplayOrder preserves the upload order.
type ProductImage struct {
	BaseModel
	ProductID    uuid.UUID `gorm:"type:uuid;index" json:"productId"`
	FileName     string    `json:"fileName"`
	DisplayOrder int       `json:"displayOrder"`
}

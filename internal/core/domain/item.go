package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryBooks       Category = "books"
	CategoryFurniture   Category = "furniture"
	CategoryClothing    Category = "clothing"
	CategorySports      Category = "sports"
	CategoryStationery  Category = "stationery"
	CategoryOthers      Category = "others"
)

var SupportedCategories = []Category{
	CategoryElectronics,
	CategoryBooks,
	CategoryFurniture,
	CategoryClothing,
	CategorySports,
	CategoryStationery,
	CategoryOthers,
}

func (c Category) Valid() bool {
	for _, s := range SupportedCategories {
		if c == s {
			return true
		}
	}
	return false
}

type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category"`
	Description string          `json:"description"`
	SellerID    string          `json:"sellerId"`
	CreatedAt   time.Time       `json:"createdAt"`
}

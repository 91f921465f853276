// Package authz holds the role predicates for orders and listings. There are
// exactly two roles on an order, the buyer and the seller of its item.
package authz

import "github.com/rl1809/campus-market/internal/core/domain"

func IsBuyer(order domain.Order, userID string) bool {
	return userID != "" && order.BuyerID == userID
}

// IsSeller reports whether userID sells the item the order references.
// item must be the order's item; a nil item (deleted listing) has no seller.
func IsSeller(order domain.Order, item *domain.Item, userID string) bool {
	if item == nil || userID == "" {
		return false
	}
	return item.ID == order.ItemID && item.SellerID == userID
}

func CanCancel(order domain.Order, item *domain.Item, userID string) bool {
	return IsBuyer(order, userID) || IsSeller(order, item, userID)
}

func CanViewReceipt(order domain.Order, item *domain.Item, userID string) bool {
	return CanCancel(order, item, userID)
}

func OwnsItem(item domain.Item, userID string) bool {
	return userID != "" && item.SellerID == userID
}

package domain

import "time"

type Review struct {
	ID         string    `json:"id"`
	SellerID   string    `json:"sellerId"`
	ReviewerID string    `json:"reviewerId"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ReviewView struct {
	Review
	Reviewer *Contact `json:"reviewer"`
}

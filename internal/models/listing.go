package models

import (
	"math"
	"strings"
	"time"
)

// SaleType tags whether a listing is offered for sale, for rental, or both.
type SaleType string

const (
	SaleTypeSale   SaleType = "sale"
	SaleTypeRental SaleType = "rental"
	SaleTypeBoth   SaleType = "both"
)

// RentalPriceRatio is the share of the sale price suggested as rental price.
const RentalPriceRatio = 0.15

func (t SaleType) Valid() bool {
	switch t {
	case SaleTypeSale, SaleTypeRental, SaleTypeBoth:
		return true
	}
	return false
}

// Rentable reports whether listings of this type can be rented.
func (t SaleType) Rentable() bool {
	return t == SaleTypeRental || t == SaleTypeBoth
}

// Listing is a bike as exposed to callers. Nullable columns are pointers and serialise as null.
type Listing struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	SalePrice    *float64  `json:"sale_price"`
	RentalPrice  *float64  `json:"rental_price"`
	SaleType     SaleType  `json:"sale_type"`
	Model        *string   `json:"model"`
	Description  *string   `json:"description"`
	Condition    *string   `json:"condition"`
	CreatedAt    time.Time `json:"created_at"`
	OwnerID      *int64    `json:"owner_id"`
	OwnerName    *string   `json:"owner_name"`
	ImageURL     *string   `json:"image_url"`
	LocationName *string   `json:"location_name"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
}

// ListingInput is the caller-supplied payload for creating or updating a listing.
type ListingInput struct {
	Title        string   `json:"title"`
	Model        *string  `json:"model"`
	Description  *string  `json:"description"`
	Condition    *string  `json:"condition"`
	ImageURL     *string  `json:"image_url"`
	SaleType     SaleType `json:"sale_type"`
	SalePrice    *float64 `json:"sale_price"`
	RentalPrice  *float64 `json:"rental_price"`
	LocationName *string  `json:"location_name"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

// Normalized returns a copy with the title trimmed, the sale type defaulted to sale and the
// rental price derived from the sale price when needed.
func (in ListingInput) Normalized() ListingInput {
	in.Title = strings.TrimSpace(in.Title)
	if in.SaleType == "" {
		in.SaleType = SaleTypeSale
	}
	in.RentalPrice = DeriveRentalPrice(in.SaleType, in.SalePrice, in.RentalPrice)
	return in
}

// DeriveRentalPrice applies the default rental price policy: a rentable listing with a sale
// price and no rental price gets 15% of the sale price, rounded to cents. In every other case
// rentalPrice is returned unchanged. An explicit zero counts as present.
func DeriveRentalPrice(saleType SaleType, salePrice, rentalPrice *float64) *float64 {
	if !saleType.Rentable() || salePrice == nil || rentalPrice != nil {
		return rentalPrice
	}
	derived := math.Round(*salePrice*RentalPriceRatio*100) / 100
	return &derived
}

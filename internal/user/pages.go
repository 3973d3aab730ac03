package user

import (
	"context"

	"github.com/sudo-init-do/carhub/internal/listing"
	"github.com/sudo-init-do/carhub/internal/marketplace"
	"github.com/sudo-init-do/carhub/internal/models"
)

// SellerPage is the public seller view: profile, cars on sale and the deals
// the seller took part in, each with its rating.
type SellerPage struct {
	PublicProfile
	Listings []listing.Summary           `json:"listings"`
	Sold     []models.TransactionSummary `json:"sold"`
	Bought   []models.TransactionSummary `json:"bought"`
}

// BuyerPage is the public buyer view.
type BuyerPage struct {
	PublicProfile
	Purchases []models.TransactionSummary `json:"purchases"`
	Sales     []models.TransactionSummary `json:"sales"`
}

// Pages assembles the public seller and buyer pages.
type Pages struct {
	users    *Service
	listings *listing.Service
	market   *marketplace.Service
}

func NewPages(users *Service, listings *listing.Service, market *marketplace.Service) *Pages {
	return &Pages{users: users, listings: listings, market: market}
}

func (p *Pages) Seller(ctx context.Context, id int64) (SellerPage, error) {
	prof, err := p.users.Profile(ctx, id)
	if err != nil {
		return SellerPage{}, err
	}
	ls, err := p.listings.ListByOwner(ctx, id, models.ListingActive)
	if err != nil {
		return SellerPage{}, err
	}
	h, err := p.market.History(ctx, id)
	if err != nil {
		return SellerPage{}, err
	}
	return SellerPage{PublicProfile: prof, Listings: ls, Sold: h.Sold, Bought: h.Bought}, nil
}

func (p *Pages) Buyer(ctx context.Context, id int64) (BuyerPage, error) {
	prof, err := p.users.Profile(ctx, id)
	if err != nil {
		return BuyerPage{}, err
	}
	h, err := p.market.History(ctx, id)
	if err != nil {
		return BuyerPage{}, err
	}
	return BuyerPage{PublicProfile: prof, Purchases: h.Bought, Sales: h.Sold}, nil
}

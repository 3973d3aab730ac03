package models

import "time"

type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingCompleted ListingStatus = "completed"
)

// DefaultImage is shown when a listing has no readable image.
const DefaultImage = "uploads/default-car.jpg"

// DefaultGallerySize is how many default images fill an empty gallery.
const DefaultGallerySize = 4

// MaxImages caps the photos attached to one listing.
const MaxImages = 15

// Spec holds the seller-provided fields of a car listing
type Spec struct {
	Make         string `json:"make" validate:"required"`
	Model        string `json:"model" validate:"required"`
	Year         int    `json:"year" validate:"required,min=1985,max=2026"`
	Mileage      int    `json:"mileage" validate:"gte=0"`
	Price        int64  `json:"price" validate:"gte=0"`
	Color        string `json:"color" validate:"required,oneof=Black White Gray Silver Blue Red Green Yellow Brown Orange"`
	Fuel         string `json:"fuel" validate:"required,oneof=Gasoline Diesel Hybrid Electric LPG"`
	Transmission string `json:"transmission" validate:"required,oneof=Automatic Manual Semi-automatic"`
	BodyStyle    string `json:"body_style" validate:"required,oneof=Sedan SUV Hatchback Coupe Convertible Wagon Pickup Van"`
	Description  string `json:"description" validate:"required,max=5000"`
	City         string `json:"city,omitempty"`
	Country      string `json:"country,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// Listing represents a car put up for sale by a seller
type Listing struct {
	ID      int64 `json:"id"`
	OwnerID int64 `json:"owner_id"`
	Spec
	Status     ListingStatus `json:"status"`
	CoverImage string        `json:"cover_image"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Badges returns the highlight labels shown on listing cards.
func (l Listing) Badges() []string {
	var badges []string
	if l.Mileage <= 60000 {
		badges = append(badges, "Low km")
	}
	if l.Year >= 2021 {
		badges = append(badges, "Newer model")
	}
	if l.Price <= 10000 {
		badges = append(badges, "Budget")
	}
	return badges
}

// Image is a stored photo of a listing
type Image struct {
	ID        int64  `json:"id"`
	ListingID int64  `json:"listing_id"`
	FilePath  string `json:"file_path"`
}

// ListingFilter selects listings for the fixed list views.
type ListingFilter struct {
	OwnerID   int64
	Status    ListingStatus
	Make      string
	Model     string
	ExcludeID int64
	Limit     int
}

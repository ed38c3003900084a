package product

import (
	"github.com/kailas-cloud/catalog/internal/domain/facet"
)

// Availability is the stock status of a product.
type Availability string

// Availability values.
const (
	InStock    Availability = "In Stock"
	LowStock   Availability = "Low Stock"
	OutOfStock Availability = "Out of Stock"
)

// Availabilities lists every valid availability in display order.
func Availabilities() []Availability {
	return []Availability{InStock, LowStock, OutOfStock}
}

// IsValid reports whether a is one of the enumerated statuses.
func (a Availability) IsValid() bool {
	switch a {
	case InStock, LowStock, OutOfStock:
		return true
	}
	return false
}

// Logical field names shared by the query builder and the stores.
const (
	FieldID           = "id"
	FieldTitle        = "title"
	FieldBrand        = "brand"
	FieldCategory     = "category"
	FieldRating       = "rating"
	FieldPrice        = "price"
	FieldDiscount     = "discountPercentage"
	FieldAvailability = "availabilityStatus"
	FieldDescription  = "description"
	FieldThumbnail    = "thumbnail"
	FieldTags         = "tags"
)

// Product is a catalog record. Price and rating are guaranteed in range once stored.
type Product struct {
	ID                 string       `json:"id"`
	Title              string       `json:"title" validate:"min=3"`
	Brand              string       `json:"brand" validate:"min=3"`
	Category           string       `json:"category" validate:"min=3"`
	Rating             float64      `json:"rating" validate:"gte=0,lte=5"`
	Price              float64      `json:"price" validate:"gt=0"`
	DiscountPercentage float64      `json:"discountPercentage" validate:"gte=0,lte=100"`
	AvailabilityStatus Availability `json:"availabilityStatus" validate:"availability"`
	Description        string       `json:"description" validate:"min=10"`
	Thumbnail          string       `json:"thumbnail" validate:"url"`
	Tags               []string     `json:"tags,omitempty"`
}

// FacetValues exposes the facet-bearing fields of the product.
func (p Product) FacetValues() facet.Values {
	return facet.Values{Category: p.Category, Brand: p.Brand, Tags: p.Tags}
}

// Text returns the value of a text or tag field by logical name.
func (p Product) Text(field string) (string, bool) {
	switch field {
	case FieldID:
		return p.ID, true
	case FieldTitle:
		return p.Title, true
	case FieldBrand:
		return p.Brand, true
	case FieldCategory:
		return p.Category, true
	case FieldAvailability:
		return string(p.AvailabilityStatus), true
	case FieldDescription:
		return p.Description, true
	case FieldThumbnail:
		return p.Thumbnail, true
	}
	return "", false
}

// Number returns the value of a numeric field by logical name.
func (p Product) Number(field string) (float64, bool) {
	switch field {
	case FieldRating:
		return p.Rating, true
	case FieldPrice:
		return p.Price, true
	case FieldDiscount:
		return p.DiscountPercentage, true
	}
	return 0, false
}

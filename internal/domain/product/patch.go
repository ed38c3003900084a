package product

// Patch is a partial product update. Nil fields are left unchanged.
type Patch struct {
	Title              *string       `json:"title"`
	Brand              *string       `json:"brand"`
	Category           *string       `json:"category"`
	Rating             *float64      `json:"rating"`
	Price              *float64      `json:"price"`
	DiscountPercentage *float64      `json:"discountPercentage"`
	AvailabilityStatus *Availability `json:"availabilityStatus"`
	Description        *string       `json:"description"`
	Thumbnail          *string       `json:"thumbnail"`
	Tags               *[]string     `json:"tags"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Brand == nil && p.Category == nil &&
		p.Rating == nil && p.Price == nil && p.DiscountPercentage == nil &&
		p.AvailabilityStatus == nil && p.Description == nil &&
		p.Thumbnail == nil && p.Tags == nil
}

// Apply returns a copy of cur with the patch merged in. The identifier never changes.
// The result must pass Validate before it is stored.
func (p Patch) Apply(cur Product) Product {
	next := cur
	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.Brand != nil {
		next.Brand = *p.Brand
	}
	if p.Category != nil {
		next.Category = *p.Category
	}
	if p.Rating != nil {
		next.Rating = *p.Rating
	}
	if p.Price != nil {
		next.Price = *p.Price
	}
	if p.DiscountPercentage != nil {
		next.DiscountPercentage = *p.DiscountPercentage
	}
	if p.AvailabilityStatus != nil {
		next.AvailabilityStatus = *p.AvailabilityStatus
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Thumbnail != nil {
		next.Thumbnail = *p.Thumbnail
	}
	if p.Tags != nil {
		next.Tags = append([]string(nil), (*p.Tags)...)
	}
	return next
}

package product

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/catalog/internal/domain"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("availability", func(fl validator.FieldLevel) bool {
			return Availability(fl.Field().String()).IsValid()
		})
		validate = v
	})
	return validate
}

// Validate checks every documented field constraint and reports all violations at once.
func (p Product) Validate() error {
	err := validatorInstance().Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate product: %w", err)
	}

	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, domain.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return domain.NewValidationError(fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case FieldThumbnail:
		return "Thumbnail must be a valid URL"
	case FieldTitle:
		return "Title must be at least 3 characters"
	case FieldBrand:
		return "Brand must be at least 3 characters"
	case FieldCategory:
		return "Category must be at least 3 characters"
	case FieldDescription:
		return "Description must be at least 10 characters"
	case FieldRating:
		return "Rating must be between 0 and 5"
	case FieldPrice:
		return "Price must be greater than 0"
	case FieldDiscount:
		return "Discount percentage must be between 0 and 100"
	case FieldAvailability:
		return fmt.Sprintf("Availability status must be one of %q, %q, %q", InStock, LowStock, OutOfStock)
	}
	return fmt.Sprintf("failed on %q", fe.Tag())
}

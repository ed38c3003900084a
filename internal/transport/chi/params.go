package chi

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/schema"
	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/catalog/internal/domain/search/criteria"
)

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.ZeroEmpty(true)
	return d
}

// browseParams are the raw browse query parameters. Repeated parameters and
// comma-separated lists are equivalent. Page and limit stay strings so that
// malformed values fall back to defaults instead of failing the request.
type browseParams struct {
	Q            string   `schema:"q"`
	Categories   []string `schema:"categories"`
	Brands       []string `schema:"brands"`
	Availability []string `schema:"availability"`
	Ratings      []string `schema:"ratings"`
	PriceRange   []string `schema:"priceRange"`
	Page         string   `schema:"page"`
	Limit        string   `schema:"limit"`
}

func decodeBrowseParams(values url.Values) (browseParams, error) {
	var p browseParams
	if err := queryDecoder.Decode(&p, values); err != nil {
		return browseParams{}, err //nolint:wrapcheck // reported to the client as-is
	}
	return p, nil
}

func (p browseParams) raw() criteria.Raw {
	return criteria.Raw{
		Q:            p.Q,
		Categories:   strings.Join(p.Categories, ","),
		Brands:       strings.Join(p.Brands, ","),
		Availability: strings.Join(p.Availability, ","),
		Ratings:      strings.Join(p.Ratings, ","),
		PriceRange:   strings.Join(p.PriceRange, ","),
	}
}

// pageAndLimit returns the requested page and limit. Absent or malformed
// values fall back to page 1 and the default limit; the paginator clamps the rest.
func (p browseParams) pageAndLimit(defaultLimit int) (int, int) {
	pageNum, err := strconv.Atoi(strings.TrimSpace(p.Page))
	if err != nil {
		pageNum = 1
	}
	limit, err := strconv.Atoi(strings.TrimSpace(p.Limit))
	if err != nil {
		limit = defaultLimit
	}
	return pageNum, limit
}

// productID binds the {id} path segment.
func productID(raw string) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", raw, &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", err //nolint:wrapcheck // reported to the client as-is
	}
	return id, nil
}

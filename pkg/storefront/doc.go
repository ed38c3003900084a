// Package storefront is the client side of the catalog: an HTTP client for
// the catalog API, an explicit application state with a pure reducer, and
// the debounced search suggestion controller.
//
// # Browsing
//
//	client, _ := storefront.New("http://localhost:8080", storefront.WithAPIKey(key))
//	page, _ := client.Browse(ctx, storefront.Query{
//	    Categories:  []string{"laptops"},
//	    PriceRanges: []string{"500-1000", "1000+"},
//	    Page:        2,
//	})
//	st = storefront.Reduce(st, storefront.PageFetched{Page: page})
//
// # Suggestions
//
//	ctrl := client.Suggestions(storefront.OnSuggestions(func(ps []storefront.Product) {
//	    render(ps)
//	}))
//	ctrl.Input("lap")
//	ctrl.Input("lapt")
//	query := ctrl.ExecuteSearch()
package storefront

// Package picker selects a random product from the crawled restaurants.
package picker

import (
	"math/rand/v2"

	"github.com/edgard/what2eat/internal/menu"
)

// DefaultMaxAttempts bounds the rejection sampling in PickRandom. Ids are
// drawn with replacement, so with a fraction p of unusable files the chance
// of returning nothing is (1-p)^attempts; five keeps that negligible for the
// small share of corrupt or emptied files a crawl leaves behind while
// bounding the file reads a single command can trigger.
const DefaultMaxAttempts = 5

// Loader resolves a restaurant id. It returns an error when the restaurant
// is missing or unreadable.
type Loader func(id string) (*menu.Restaurant, error)

// Pick is a drawn restaurant and one of its products.
type Pick struct {
	Restaurant *menu.Restaurant
	Product    menu.Product
}

// PickRandom draws a uniformly random id, loads it and draws a uniformly
// random product, retrying at most maxAttempts times when the load fails or
// the restaurant has no products. The boolean is false when every attempt
// was exhausted; that is a normal outcome, not an error.
func PickRandom(ids []string, load Loader, maxAttempts int, rng *rand.Rand) (Pick, bool) {
	if len(ids) == 0 {
		return Pick{}, false
	}
	for range maxAttempts {
		id := ids[rng.IntN(len(ids))]

		r, err := load(id)
		if err != nil || r == nil || len(r.Products) == 0 {
			continue
		}
		return Pick{
			Restaurant: r,
			Product:    r.Products[rng.IntN(len(r.Products))],
		}, true
	}
	return Pick{}, false
}

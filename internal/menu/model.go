// Package menu holds the restaurant and product records shared by the
// crawler and the bot, together with the name filter and the normalizer
// that turns platform payloads into those records.
package menu

import "fmt"

// Platform identifies the delivery platform a restaurant was crawled from.
type Platform string

const (
	PlatformFoodPanda Platform = "foodPanda"
	PlatformUberEats  Platform = "uberEats"
)

// ParsePlatform accepts either the stored tag or its lower-case CLI form.
func ParsePlatform(s string) (Platform, error) {
	switch s {
	case string(PlatformFoodPanda), "foodpanda":
		return PlatformFoodPanda, nil
	case string(PlatformUberEats), "ubereats":
		return PlatformUberEats, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Product is a single menu item. It only exists inside a Restaurant.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Restaurant is the persisted unit: one file per restaurant id.
type Restaurant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Address  string    `json:"address,omitempty"`
	URL      string    `json:"url,omitempty"`
	Type     Platform  `json:"type"`
	Products []Product `json:"products"`
}

// RawProduct is one menu entry as a platform adapter extracted it, before
// any filtering.
type RawProduct struct {
	ID          string
	Name        string
	Description string
	Image       string
}

// RawRestaurant is the platform-neutral shape a source decodes its payload
// into. Products keep the source menu order.
type RawRestaurant struct {
	ID       string
	Name     string
	Address  string
	URL      string
	Products []RawProduct
}

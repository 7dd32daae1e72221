package menu

// Normalizer maps a decoded platform payload into a Restaurant.
type Normalizer struct {
	filter   *NameFilter
	denyList *DenyList
}

// NewNormalizer builds a normalizer backed by the given deny-list.
func NewNormalizer(dl *DenyList) *Normalizer {
	return &Normalizer{filter: NewNameFilter(dl), denyList: dl}
}

// Filter exposes the name filter the normalizer applies.
func (n *Normalizer) Filter() *NameFilter {
	return n.filter
}

// Normalize builds the Restaurant for raw. The second return value is true
// when the restaurant name matched an exclusion keyword; in that case the
// returned restaurant carries no products.
func (n *Normalizer) Normalize(p Platform, raw RawRestaurant) (Restaurant, bool) {
	r := Restaurant{
		ID:       raw.ID,
		Name:     raw.Name,
		Address:  raw.Address,
		URL:      raw.URL,
		Type:     p,
		Products: []Product{},
	}

	if n.denyList.Excluded(p, raw.Name) {
		return r, true
	}

	for _, rp := range raw.Products {
		name, ok := n.filter.Filter(rp.Name)
		if !ok {
			continue
		}
		r.Products = append(r.Products, Product{
			ID:          rp.ID,
			Name:        name,
			Description: rp.Description,
			Image:       rp.Image,
		})
	}
	return r, false
}

// Qualifies reports whether r has strictly more than minProducts products
// and may therefore be persisted.
func Qualifies(r Restaurant, minProducts int) bool {
	return len(r.Products) > minProducts
}

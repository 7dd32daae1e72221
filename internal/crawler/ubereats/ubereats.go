// Package ubereats is the crawler source for Uber Eats Taiwan. Every call is
// a JSON POST against the site's web API.
package ubereats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/edgard/what2eat/internal/crawler"
	"github.com/edgard/what2eat/internal/menu"
)

const cityStoresElement = "cityStores"

// Options configure a Source.
type Options struct {
	Locale string
	// Cities skips city discovery when set.
	Cities []string
}

// Source implements crawler.Source for Uber Eats.
type Source struct {
	client *resty.Client
	locale string
	cities []string
}

// New creates an Uber Eats source. The client's base URL must point at the
// site root.
func New(client *resty.Client, opts Options) *Source {
	client.SetHeader("x-csrf-token", "x")
	client.SetHeader("content-type", "application/json")
	return &Source{client: client, locale: opts.Locale, cities: opts.Cities}
}

func (s *Source) Platform() menu.Platform {
	return menu.PlatformUberEats
}

func (s *Source) post(ctx context.Context, path string, body any, out any) error {
	res, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("localeCode", s.locale).
		SetBody(body).
		Post(path)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("%s: unexpected status %s", path, res.Status())
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(res.Body(), out); err != nil {
		return fmt.Errorf("%w: %s: %v", crawler.ErrMalformedPayload, path, err)
	}
	return nil
}

type citiesResponse struct {
	Data struct {
		RegionCityLinks struct {
			Links []struct {
				Links []struct {
					Href string `json:"href"`
				} `json:"links"`
			} `json:"links"`
		} `json:"regionCityLinks"`
	} `json:"data"`
}

func (s *Source) Regions(ctx context.Context) ([]string, error) {
	if len(s.cities) > 0 {
		return s.cities, nil
	}

	var body citiesResponse
	if err := s.post(ctx, "/api/getCountriesWithCitiesV1", map[string]any{}, &body); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var cities []string
	for _, region := range body.Data.RegionCityLinks.Links {
		for _, link := range region.Links {
			_, city, ok := strings.Cut(link.Href, "/city/")
			city = strings.Trim(city, "/")
			if !ok || city == "" || seen[city] {
				continue
			}
			seen[city] = true
			cities = append(cities, city)
		}
	}
	return cities, nil
}

type feedResponse struct {
	Data struct {
		Elements []struct {
			ID        string `json:"id"`
			FeedItems []struct {
				Carousel *struct {
					Stores []struct {
						StoreUUID string `json:"storeUuid"`
					} `json:"stores"`
				} `json:"carousel"`
				Store *struct {
					StoreUUID string `json:"storeUuid"`
				} `json:"store"`
			} `json:"feedItems"`
		} `json:"elements"`
	} `json:"data"`
}

func (s *Source) ListRestaurants(ctx context.Context, city string) ([]string, error) {
	var body feedResponse
	req := map[string]string{"pathname": "/" + s.locale + "/city/" + city}
	if err := s.post(ctx, "/api/getSeoFeedV1", req, &body); err != nil {
		return nil, err
	}

	var ids []string
	for _, el := range body.Data.Elements {
		if el.ID != cityStoresElement {
			continue
		}
		for _, item := range el.FeedItems {
			if item.Carousel != nil {
				for _, st := range item.Carousel.Stores {
					ids = append(ids, st.StoreUUID)
				}
			}
			if item.Store != nil {
				ids = append(ids, item.Store.StoreUUID)
			}
		}
	}
	return ids, nil
}

func (s *Source) FetchRestaurant(ctx context.Context, storeUUID string) ([]byte, error) {
	res, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("localeCode", s.locale).
		SetBody(map[string]string{"storeUuid": storeUUID}).
		Post("/api/getStoreV1")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("store %s: unexpected status %s", storeUUID, res.Status())
	}
	return res.Body(), nil
}

type catalogItem struct {
	UUID            string `json:"uuid"`
	Title           string `json:"title"`
	ItemDescription string `json:"itemDescription"`
	ImageURL        string `json:"imageUrl"`
}

type sectionEntity struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

type storeResponse struct {
	Status string `json:"status"`
	Data   *struct {
		UUID     string `json:"uuid"`
		Title    string `json:"title"`
		Location struct {
			Address string `json:"address"`
		} `json:"location"`
		MetaJSON           string                                `json:"metaJson"`
		CatalogSectionsMap orderedMap[[]catalogSection]          `json:"catalogSectionsMap"`
		SectionEntitiesMap orderedMap[orderedMap[sectionEntity]] `json:"sectionEntitiesMap"`
	} `json:"data"`
}

type catalogSection struct {
	Payload struct {
		StandardItemsPayload *struct {
			CatalogItems []catalogItem `json:"catalogItems"`
		} `json:"standardItemsPayload"`
	} `json:"payload"`
}

// Decode reads a getStoreV1 payload. Products come from catalogSectionsMap
// and, for older payloads, sectionEntitiesMap, in menu order.
func (s *Source) Decode(storeUUID string, raw []byte) (menu.RawRestaurant, error) {
	var body storeResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return menu.RawRestaurant{}, fmt.Errorf("%w: %v", crawler.ErrMalformedPayload, err)
	}
	if body.Status != "success" || body.Data == nil || body.Data.Title == "" {
		return menu.RawRestaurant{}, fmt.Errorf("%w: store %s status %q", crawler.ErrMalformedPayload, storeUUID, body.Status)
	}
	data := body.Data

	r := menu.RawRestaurant{
		ID:      storeUUID,
		Name:    data.Title,
		Address: data.Location.Address,
		URL:     metaURL(data.MetaJSON),
	}

	seen := make(map[string]bool)
	for _, sectionID := range data.CatalogSectionsMap.keys {
		for _, section := range data.CatalogSectionsMap.values[sectionID] {
			if section.Payload.StandardItemsPayload == nil {
				continue
			}
			for _, item := range section.Payload.StandardItemsPayload.CatalogItems {
				// The same item is listed under every section it appears in.
				if item.UUID != "" && seen[item.UUID] {
					continue
				}
				seen[item.UUID] = true
				r.Products = append(r.Products, menu.RawProduct{
					ID:          item.UUID,
					Name:        item.Title,
					Description: item.ItemDescription,
					Image:       item.ImageURL,
				})
			}
		}
	}

	for _, sectionID := range data.SectionEntitiesMap.keys {
		entities := data.SectionEntitiesMap.values[sectionID]
		for _, productID := range entities.keys {
			if seen[productID] {
				continue
			}
			seen[productID] = true
			e := entities.values[productID]
			r.Products = append(r.Products, menu.RawProduct{
				ID:          productID,
				Name:        e.Title,
				Description: e.Description,
				Image:       e.ImageURL,
			})
		}
	}
	return r, nil
}

// metaURL returns the "@id" of the URL-encoded JSON-LD metadata, or "".
func metaURL(metaJSON string) string {
	if metaJSON == "" {
		return ""
	}
	decoded, err := url.PathUnescape(metaJSON)
	if err != nil {
		decoded = metaJSON
	}
	var meta struct {
		ID string `json:"@id"`
	}
	if err := json.Unmarshal([]byte(decoded), &meta); err != nil {
		return ""
	}
	return meta.ID
}

// orderedMap is a JSON object decoded with its keys in document order.
type orderedMap[V any] struct {
	keys   []string
	values map[string]V
}

func (m *orderedMap[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	m.keys = nil
	m.values = make(map[string]V)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("value of %q: %w", key, err)
		}
		if _, dup := m.values[key]; !dup {
			m.keys = append(m.keys, key)
		}
		m.values[key] = v
	}
	_, err = dec.Token()
	return err
}

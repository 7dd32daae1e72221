// Package foodpanda is the crawler source for foodPanda Taiwan: restaurant
// codes come from the public city listing pages and menus from the vendor
// API.
package foodpanda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/edgard/what2eat/internal/crawler"
	"github.com/edgard/what2eat/internal/menu"
)

const (
	vendorListSelector  = ".vendor-list > li > a"
	restaurantPath      = "/restaurant/"
	languageTraditional = "6"
)

// Options configure a Source.
type Options struct {
	WebURL string
	APIURL string
	APIKey string
	Cities []string
}

// Source implements crawler.Source for foodPanda.
type Source struct {
	web    *resty.Client
	api    *resty.Client
	webURL string
	apiKey string
	cities []string
}

// New creates a foodPanda source. The clients must have their base URL set
// to the site and the API host respectively.
func New(web, api *resty.Client, opts Options) *Source {
	return &Source{
		web:    web,
		api:    api,
		webURL: strings.TrimRight(opts.WebURL, "/"),
		apiKey: opts.APIKey,
		cities: opts.Cities,
	}
}

func (s *Source) Platform() menu.Platform {
	return menu.PlatformFoodPanda
}

func (s *Source) Regions(context.Context) ([]string, error) {
	return s.cities, nil
}

func (s *Source) ListRestaurants(ctx context.Context, city string) ([]string, error) {
	res, err := s.web.R().
		SetContext(ctx).
		SetPathParam("city", city).
		Get("/city/{city}")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("city %s: unexpected status %s", city, res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse city page %s: %w", city, err)
	}
	return restaurantCodes(doc), nil
}

// restaurantCodes extracts "/restaurant/{code}/..." links in page order.
func restaurantCodes(doc *goquery.Document) []string {
	var codes []string
	doc.Find(vendorListSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !strings.HasPrefix(href, restaurantPath) {
			return
		}
		code, _, _ := strings.Cut(strings.TrimPrefix(href, restaurantPath), "/")
		if code != "" {
			codes = append(codes, code)
		}
	})
	return codes
}

func (s *Source) FetchRestaurant(ctx context.Context, code string) ([]byte, error) {
	res, err := s.api.R().
		SetContext(ctx).
		SetHeader("accept", "application/json").
		SetHeader("x-fp-api-key", s.apiKey).
		SetPathParam("code", code).
		SetQueryParams(map[string]string{
			"include":         "menus,bundles,multiple_discounts",
			"language_id":     languageTraditional,
			"opening_type":    "delivery",
			"basket_currency": "TWD",
		}).
		Get("/api/v5/vendors/{code}")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("vendor %s: unexpected status %s", code, res.Status())
	}
	return res.Body(), nil
}

type vendorEnvelope struct {
	Data *vendor `json:"data"`
}

type vendor struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Address string `json:"address"`
	WebPath string `json:"web_path"`
	Menus   []struct {
		MenuCategories []struct {
			Products []struct {
				ID          json.Number `json:"id"`
				Name        string      `json:"name"`
				Description string      `json:"description"`
				Images      []struct {
					ImageURL string `json:"image_url"`
				} `json:"images"`
			} `json:"products"`
		} `json:"menu_categories"`
	} `json:"menus"`
}

// Decode accepts the v5 payload ({"data": vendor}) and the older v1 payload
// where the vendor is the top-level object.
func (s *Source) Decode(code string, raw []byte) (menu.RawRestaurant, error) {
	var env vendorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return menu.RawRestaurant{}, fmt.Errorf("%w: %v", crawler.ErrMalformedPayload, err)
	}
	v := env.Data
	if v == nil {
		v = &vendor{}
		if err := json.Unmarshal(raw, v); err != nil {
			return menu.RawRestaurant{}, fmt.Errorf("%w: %v", crawler.ErrMalformedPayload, err)
		}
	}
	if v.Name == "" {
		return menu.RawRestaurant{}, fmt.Errorf("%w: vendor %s has no name", crawler.ErrMalformedPayload, code)
	}

	r := menu.RawRestaurant{
		ID:      code,
		Name:    v.Name,
		Address: strings.TrimSpace(v.Address),
		URL:     s.webURL + restaurantPath + code,
	}
	if strings.HasPrefix(v.WebPath, "http") {
		r.URL = v.WebPath
	}

	for _, m := range v.Menus {
		for _, c := range m.MenuCategories {
			for _, p := range c.Products {
				rp := menu.RawProduct{
					ID:          p.ID.String(),
					Name:        p.Name,
					Description: strings.TrimSpace(p.Description),
				}
				if len(p.Images) > 0 {
					rp.Image = p.Images[0].ImageURL
				}
				r.Products = append(r.Products, rp)
			}
		}
	}
	return r, nil
}

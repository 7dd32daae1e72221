package ubereats_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/what2eat/internal/crawler"
	"github.com/edgard/what2eat/internal/crawler/ubereats"
	"github.com/edgard/what2eat/internal/menu"
)

const citiesBody = `{"data":{"regionCityLinks":{"links":[
  {"links":[{"href":"/tw/city/taipei-tpe"},{"href":"/tw/city/new-taipei-tpe"}]},
  {"links":[{"href":"/tw/city/taipei-tpe"},{"href":"/tw/near-me"}]}
]}}}`

const feedBody = `{"data":{"elements":[
  {"id":"header","feedItems":[{"store":{"storeUuid":"ignored"}}]},
  {"id":"cityStores","feedItems":[
    {"carousel":{"stores":[{"storeUuid":"s1"},{"storeUuid":"s2"}]}},
    {"store":{"storeUuid":"s3"}}
  ]}
]}}`

func storeBody(t *testing.T) string {
	t.Helper()
	meta := url.PathEscape(`{"@type":"Restaurant","@id":"https://www.ubereats.com/tw/store/lao-wang/s1"}`)
	body := map[string]any{
		"status": "success",
		"data": map[string]any{
			"uuid":     "s1",
			"title":    "老王牛肉麵",
			"location": map[string]any{"address": "台北市中正區"},
			"metaJson": meta,
			"catalogSectionsMap": map[string]any{
				"sec-b": []any{
					map[string]any{"payload": map[string]any{"standardItemsPayload": map[string]any{"catalogItems": []any{
						map[string]any{"uuid": "i2", "title": "滷肉飯"},
					}}}},
				},
				"sec-a": []any{
					map[string]any{"payload": map[string]any{"standardItemsPayload": map[string]any{"catalogItems": []any{
						map[string]any{"uuid": "i1", "title": "招牌牛肉麵", "itemDescription": "湯頭濃郁", "imageUrl": "https://img.example/i1.jpg"},
						map[string]any{"uuid": "i2", "title": "滷肉飯"},
					}}}},
					map[string]any{"payload": map[string]any{}},
				},
			},
			"sectionEntitiesMap": map[string]any{
				"old": map[string]any{
					"i1": map[string]any{"title": "招牌牛肉麵"},
					"i3": map[string]any{"title": "燙青菜", "description": "季節時蔬"},
				},
			},
		},
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return string(b)
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := storeBody(t)
	mux := http.NewServeMux()
	check := func(w http.ResponseWriter, r *http.Request) (map[string]string, bool) {
		if r.Method != http.MethodPost || r.Header.Get("x-csrf-token") != "x" || r.URL.Query().Get("localeCode") != "tw" {
			w.WriteHeader(http.StatusBadRequest)
			return nil, false
		}
		var req map[string]string
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &req)
		return req, true
	}
	mux.HandleFunc("/api/getCountriesWithCitiesV1", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := check(w, r); ok {
			_, _ = w.Write([]byte(citiesBody))
		}
	})
	mux.HandleFunc("/api/getSeoFeedV1", func(w http.ResponseWriter, r *http.Request) {
		req, ok := check(w, r)
		if !ok {
			return
		}
		if req["pathname"] != "/tw/city/taipei-tpe" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(feedBody))
	})
	mux.HandleFunc("/api/getStoreV1", func(w http.ResponseWriter, r *http.Request) {
		req, ok := check(w, r)
		if !ok {
			return
		}
		if req["storeUuid"] != "s1" {
			_, _ = w.Write([]byte(`{"status":"failure","data":{"code":"404"}}`))
			return
		}
		_, _ = w.Write([]byte(store))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newSource(srv *httptest.Server, cities ...string) *ubereats.Source {
	client := crawler.NewClient(crawler.ClientOptions{BaseURL: srv.URL, UserAgent: "test", Timeout: 5 * time.Second})
	return ubereats.New(client, ubereats.Options{Locale: "tw", Cities: cities})
}

func TestRegions(t *testing.T) {
	t.Parallel()
	srv := newServer(t)

	cities, err := newSource(srv).Regions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"taipei-tpe", "new-taipei-tpe"}, cities)

	cities, err = newSource(srv, "hsinchu-hsz").Regions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"hsinchu-hsz"}, cities)
}

func TestListRestaurants(t *testing.T) {
	t.Parallel()
	s := newSource(newServer(t))

	ids, err := s.ListRestaurants(context.Background(), "taipei-tpe")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2", "s3"}, ids)

	_, err = s.ListRestaurants(context.Background(), "nowhere")
	assert.Error(t, err)
}

func TestFetchAndDecode(t *testing.T) {
	t.Parallel()
	s := newSource(newServer(t))

	raw, err := s.FetchRestaurant(context.Background(), "s1")
	require.NoError(t, err)

	r, err := s.Decode("s1", raw)
	require.NoError(t, err)
	assert.Equal(t, "老王牛肉麵", r.Name)
	assert.Equal(t, "台北市中正區", r.Address)
	assert.Equal(t, "https://www.ubereats.com/tw/store/lao-wang/s1", r.URL)
	assert.Equal(t, []menu.RawProduct{
		{ID: "i1", Name: "招牌牛肉麵", Description: "湯頭濃郁", Image: "https://img.example/i1.jpg"},
		{ID: "i2", Name: "滷肉飯"},
		{ID: "i3", Name: "燙青菜", Description: "季節時蔬"},
	}, r.Products)

	raw, err = s.FetchRestaurant(context.Background(), "gone")
	require.NoError(t, err)
	_, err = s.Decode("gone", raw)
	assert.True(t, errors.Is(err, crawler.ErrMalformedPayload))
}

func TestDecodeWithoutMeta(t *testing.T) {
	t.Parallel()
	s := newSource(newServer(t))

	r, err := s.Decode("s9", []byte(`{"status":"success","data":{"title":"小店","metaJson":"%7Bbroken"}}`))
	require.NoError(t, err)
	assert.Empty(t, r.URL)
	assert.Empty(t, r.Products)
}

func TestDecodeKeepsMenuOrder(t *testing.T) {
	t.Parallel()
	s := newSource(newServer(t))

	raw := `{"status":"success","data":{"title":"巷口麵店","catalogSectionsMap":{
  "sec-z":[{"payload":{"standardItemsPayload":{"catalogItems":[{"uuid":"u9","title":"陽春麵"},{"uuid":"u1","title":"餛飩湯"}]}}}],
  "sec-a":[{"payload":{"standardItemsPayload":{"catalogItems":[{"uuid":"u5","title":"乾麵"}]}}}]
},"sectionEntitiesMap":{
  "old-z":{"u8":{"title":"燙青菜"},"u2":{"title":"滷蛋"}},
  "old-a":{"u7":{"title":"豆干"}}
}}}`

	r, err := s.Decode("s7", []byte(raw))
	require.NoError(t, err)

	ids := make([]string, 0, len(r.Products))
	for _, p := range r.Products {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"u9", "u1", "u5", "u8", "u2", "u7"}, ids)
}

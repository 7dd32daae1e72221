package menu_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/what2eat/internal/menu"
)

func newNormalizer(t *testing.T) *menu.Normalizer {
	t.Helper()
	dl, err := menu.DefaultDenyList()
	require.NoError(t, err)
	return menu.NewNormalizer(dl)
}

func TestNormalize_DropsRejectedProducts(t *testing.T) {
	t.Parallel()
	n := newNormalizer(t)

	raw := menu.RawRestaurant{
		ID:   "a1b2",
		Name: "阿宗麵線",
		URL:  "https://example.com/a1b2",
		Products: []menu.RawProduct{
			{ID: "1", Name: "大腸麵線", Description: "招牌", Image: "https://img/1.jpg"},
			{ID: "2", Name: "套餐加大兩顆"},
			{ID: "3", Name: "Coke"},
		},
	}

	r, excluded := n.Normalize(menu.PlatformFoodPanda, raw)
	require.False(t, excluded)
	require.Len(t, r.Products, 1)
	assert.Equal(t, menu.Product{ID: "1", Name: "大腸麵線", Description: "招牌", Image: "https://img/1.jpg"}, r.Products[0])
	assert.Equal(t, menu.PlatformFoodPanda, r.Type)
	assert.True(t, menu.Qualifies(r, 0))
	assert.False(t, menu.Qualifies(r, 1))
}

func TestNormalize_ExcludedNameShortCircuits(t *testing.T) {
	t.Parallel()
	n := newNormalizer(t)

	raw := menu.RawRestaurant{
		ID:   "store",
		Name: "家樂福 桂林店",
		Products: []menu.RawProduct{
			{ID: "1", Name: "牛肉麵"},
			{ID: "2", Name: "雞肉飯"},
		},
	}

	r, excluded := n.Normalize(menu.PlatformUberEats, raw)
	assert.True(t, excluded)
	assert.Empty(t, r.Products)
	assert.False(t, menu.Qualifies(r, 0))
}

func TestNormalize_OmitsEmptyOptionalFields(t *testing.T) {
	t.Parallel()
	n := newNormalizer(t)

	r, _ := n.Normalize(menu.PlatformUberEats, menu.RawRestaurant{
		ID:       "x",
		Name:     "小吃店",
		Products: []menu.RawProduct{{ID: "p1", Name: "肉圓"}},
	})

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"x","name":"小吃店","type":"uberEats","products":[{"id":"p1","name":"肉圓"}]}`, string(data))
}

func TestParsePlatform(t *testing.T) {
	t.Parallel()

	p, err := menu.ParsePlatform("foodpanda")
	require.NoError(t, err)
	assert.Equal(t, menu.PlatformFoodPanda, p)

	p, err = menu.ParsePlatform("uberEats")
	require.NoError(t, err)
	assert.Equal(t, menu.PlatformUberEats, p)

	_, err = menu.ParsePlatform("deliveroo")
	require.Error(t, err)
}

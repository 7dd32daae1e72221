package menu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/what2eat/internal/menu"
)

func newFilter(t *testing.T) *menu.NameFilter {
	t.Helper()
	dl, err := menu.DefaultDenyList()
	require.NoError(t, err)
	return menu.NewNameFilter(dl)
}

func TestNameFilter(t *testing.T) {
	t.Parallel()
	f := newFilter(t)

	tests := []struct {
		name     string
		input    string
		expected string
		accepted bool
	}{
		{name: "Empty string", input: "", accepted: false},
		{name: "Only ASCII", input: "Beef Noodle 123 !!", accepted: false},
		{name: "Single rune left", input: "A麵", accepted: false},
		{name: "Exactly two runes", input: "滷肉", expected: "滷肉", accepted: true},
		{name: "Mixed latin and digits", input: "No.1 牛肉麵 (L)", expected: "牛肉麵", accepted: true},
		{name: "Surrounding ideographic spaces trimmed", input: "　雞排　", expected: "雞排", accepted: true},
		{name: "Denied token mid string", input: "套餐加大兩顆", accepted: false},
		{name: "Denied single rune", input: "請勿催單", accepted: false},
		{name: "Full-width asterisk is denied", input: "＊招牌＊", accepted: false},
		{name: "ASCII asterisk is stripped", input: "*招牌*飯", expected: "招牌飯", accepted: true},
		{name: "Full-width punctuation", input: "雞腿飯（大）", accepted: false},
		{name: "Plain dish", input: "招牌牛肉麵 - 大碗", expected: "招牌牛肉麵大碗", accepted: true},
		{name: "Limited marker is denied", input: "招牌牛肉麵 - 大碗 *限量*", accepted: false},
		{name: "Denied word from item filter variant", input: "加蛋", accepted: false},
		{name: "Denied word from vendor variant", input: "紅茶還是綠茶", accepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := f.Filter(tt.input)
			assert.Equal(t, tt.accepted, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNameFilter_Idempotent(t *testing.T) {
	t.Parallel()
	f := newFilter(t)

	inputs := []string{
		"招牌牛肉麵 - 大碗",
		"Spicy 麻辣 鍋 x2",
		"\t珍珠奶茶 700ml ",
		"蔥油餅",
	}
	for _, in := range inputs {
		first, ok := f.Filter(in)
		require.True(t, ok, in)
		second, ok := f.Filter(first)
		require.True(t, ok, first)
		assert.Equal(t, first, second)
	}
}

func TestNameFilter_EveryDeniedWordRejects(t *testing.T) {
	t.Parallel()
	dl, err := menu.DefaultDenyList()
	require.NoError(t, err)
	f := menu.NewNameFilter(dl)

	for _, word := range dl.Words() {
		// pad so the two-rune minimum never decides the outcome
		_, ok := f.Filter("滷肉" + word + "飯")
		assert.False(t, ok, "expected %q to be rejected", word)
	}
}

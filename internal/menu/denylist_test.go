package menu_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/what2eat/internal/menu"
)

func TestDefaultDenyList(t *testing.T) {
	t.Parallel()

	dl, err := menu.DefaultDenyList()
	require.NoError(t, err)

	words := dl.Words()
	assert.Contains(t, words, "套餐")
	assert.Contains(t, words, "＊")
	assert.Contains(t, words, "肉品來源")
	assert.NotEmpty(t, dl.Exclusions[menu.PlatformFoodPanda])
	assert.NotEmpty(t, dl.Exclusions[menu.PlatformUberEats])
}

func TestLoadDenyList_Override(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	extend := filepath.Join(dir, "extend.json5")
	require.NoError(t, os.WriteFile(extend, []byte(`{
		// extra entries
		denied: { notes: ["試吃", "套餐"] },
		exclusions: { uberEats: ["便利商店"] },
	}`), 0o600))

	dl, err := menu.LoadDenyList(extend)
	require.NoError(t, err)
	assert.Contains(t, dl.Words(), "試吃")
	assert.Contains(t, dl.Words(), "出前")
	assert.True(t, dl.Excluded(menu.PlatformUberEats, "7-11 便利商店"))
	assert.True(t, dl.Excluded(menu.PlatformUberEats, "全聯福利中心"))

	count := 0
	for _, w := range dl.Words() {
		if w == "套餐" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	replace := filepath.Join(dir, "replace.json5")
	require.NoError(t, os.WriteFile(replace, []byte(`{replace: true, denied: {other: ["試吃"]}}`), 0o600))

	dl, err = menu.LoadDenyList(replace)
	require.NoError(t, err)
	assert.Equal(t, []string{"試吃"}, dl.Words())
	assert.False(t, dl.Excluded(menu.PlatformUberEats, "全聯福利中心"))
}

func TestLoadDenyList_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := menu.LoadDenyList(filepath.Join(t.TempDir(), "missing.json5"))
	require.Error(t, err)
}

func TestDenyList_ExcludedIgnoresCase(t *testing.T) {
	t.Parallel()

	dl, err := menu.DefaultDenyList()
	require.NoError(t, err)
	assert.True(t, dl.Excluded(menu.PlatformFoodPanda, "Innisfree 信義店"))
	assert.True(t, dl.Excluded(menu.PlatformFoodPanda, "TEST vendor"))
	assert.False(t, dl.Excluded(menu.PlatformFoodPanda, "阿宗麵線"))
}

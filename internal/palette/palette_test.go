package palette

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	tbl := Default()
	require.Len(t, tbl.Categories(), 5)

	assert.Equal(t, "#0ea5e9", tbl.Color("安心"))
	assert.Equal(t, "#f97316", tbl.Color("挑戦"))
	assert.Equal(t, 0, tbl.Rank("安心"))
	assert.Equal(t, 4, tbl.Rank("静観"))
}

func TestUnknownCategory(t *testing.T) {
	tbl := Default()
	assert.Equal(t, FallbackColor, tbl.Color("不明"))
	assert.Equal(t, FallbackColor, tbl.Color(""))
	assert.Equal(t, 5, tbl.Rank("不明"))
	assert.False(t, tbl.Known("不明"))
}

func TestLabelsAreTrimmed(t *testing.T) {
	tbl := Default()
	assert.True(t, tbl.Known(" 確信 "))
	assert.Equal(t, 2, tbl.Rank("確信\t"))
}

func TestNewRejectsBadTables(t *testing.T) {
	_, err := New([]Category{{Label: "A", Color: "#fff"}, {Label: "A", Color: "#000"}}, "")
	assert.Error(t, err)

	_, err = New([]Category{{Label: "", Color: "#fff"}}, "")
	assert.Error(t, err)

	_, err = New([]Category{{Label: "A", Color: "blue"}}, "")
	assert.Error(t, err)
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#0ea5e9")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x0e, G: 0xa5, B: 0xe9, A: 0xff}, c)

	c, err = ParseHex("#fff")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, c)

	_, err = ParseHex("#12345")
	assert.Error(t, err)
}

package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePalette = `# Color Palette

Approved colors for architecture diagrams.

| Name    | Hex       | Usage                    |
|---------|-----------|--------------------------|
| Ink     | ` + "`#1F2430`" + ` | Text and node borders    |
| Surface | ` + "`#F7F8FA`" + ` | Node fills               |
| Accent  | ` + "`#3B82F6`" + ` | Primary flows, emphasis  |
`

func TestParsePalette(t *testing.T) {
	palette, err := ParsePalette([]byte(samplePalette))
	require.NoError(t, err)
	require.Len(t, palette, 3)

	assert.Equal(t, "Ink", palette[0].Name)
	assert.Equal(t, "#1F2430", palette[0].Hex)
	assert.Equal(t, "Text and node borders", palette[0].Usage)
}

func TestParsePalette_Lookup(t *testing.T) {
	palette, err := ParsePalette([]byte(samplePalette))
	require.NoError(t, err)

	c, ok := palette.Lookup("accent")
	require.True(t, ok, "lookup should be case-insensitive")
	assert.Equal(t, "#3B82F6", c.Hex)

	_, ok = palette.Lookup("magenta")
	assert.False(t, ok)
}

func TestParsePalette_InvalidHex(t *testing.T) {
	bad := `| Name | Hex | Usage |
|------|-----|-------|
| Ink  | red | Text  |
`
	_, err := ParsePalette([]byte(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid hex color")
}

func TestParsePalette_NoTable(t *testing.T) {
	_, err := ParsePalette([]byte("# Palette\n\nJust prose, no table.\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no palette table")
}

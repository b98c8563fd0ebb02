package diagram

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var hexRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// PaletteColor is one row of the color reference table.
type PaletteColor struct {
	Name  string `json:"name"`
	Hex   string `json:"hex"`
	Usage string `json:"usage,omitempty"`
}

// Palette is the approved diagram color set.
type Palette []PaletteColor

// ParsePalette extracts the color table from a palette reference document.
// The first markdown table is read as name | hex | usage rows.
func ParsePalette(source []byte) (Palette, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(source))

	var palette Palette
	var tableSeen bool

	err := gast.Walk(doc, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *east.Table:
			if tableSeen {
				return gast.WalkSkipChildren, nil
			}
			tableSeen = true
			return gast.WalkContinue, nil

		case *east.TableRow:
			cells := cellTexts(node, source)
			if len(cells) < 2 {
				return gast.WalkSkipChildren, nil
			}

			hex := strings.Trim(cells[1], "` ")
			if !hexRe.MatchString(hex) {
				return gast.WalkStop, fmt.Errorf("invalid hex color %q for %q", hex, cells[0])
			}

			color := PaletteColor{Name: cells[0], Hex: hex}
			if len(cells) > 2 {
				color.Usage = cells[2]
			}
			palette = append(palette, color)
			return gast.WalkSkipChildren, nil
		}

		return gast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	if !tableSeen {
		return nil, fmt.Errorf("no palette table found")
	}
	if len(palette) == 0 {
		return nil, fmt.Errorf("palette table has no rows")
	}

	return palette, nil
}

// Lookup finds a color by name, case-insensitively.
func (p Palette) Lookup(name string) (PaletteColor, bool) {
	for _, c := range p {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return PaletteColor{}, false
}

func cellTexts(row *east.TableRow, source []byte) []string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		cells = append(cells, strings.TrimSpace(string(cell.Text(source))))
	}
	return cells
}

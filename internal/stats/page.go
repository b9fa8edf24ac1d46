package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/guarzo/poe2gradegap/internal/model"
)

// modClasses maps the trade site's modifier CSS classes to origin groups.
var modClasses = []struct {
	class string
	group string
}{
	{"implicitMod", model.GroupImplicit},
	{"explicitMod", model.GroupExplicit},
	{"fracturedMod", model.GroupFractured},
	{"runeMod", model.GroupRune},
	{"desecratedMod", model.GroupDesecrated},
}

// ParseTradePage extracts items from a saved trade search results page.
// Saved pages carry display lines only, so explicit lines are not split
// into prefixes and suffixes.
func ParseTradePage(r io.Reader) ([]Item, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	var items []Item
	doc.Find("div.row[data-id]").Each(func(_ int, row *goquery.Selection) {
		item := Item{
			ID:       row.AttrOr("data-id", ""),
			BaseType: strings.TrimSpace(row.Find(".itemHeader .typeLine").First().Text()),
			Lines:    make(map[string][]string),
		}
		if item.BaseType == "" {
			item.BaseType = strings.TrimSpace(row.Find(".typeLine").First().Text())
		}

		for _, mc := range modClasses {
			row.Find("." + mc.class).Each(func(_ int, mod *goquery.Selection) {
				text := mod.Find(".lc").First().Text()
				if strings.TrimSpace(text) == "" {
					text = mod.Text()
				}
				if text = strings.Join(strings.Fields(text), " "); text != "" {
					item.Lines[mc.group] = append(item.Lines[mc.group], text)
				}
			})
		}
		items = append(items, item)
	})
	return items, nil
}

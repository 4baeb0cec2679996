package extension

import (
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

var iconPalette = []string{
	"#0088ce", "#00659c", "#39a5dc", "#3f9c35", "#6ca100",
	"#ec7a08", "#b35c00", "#cc0000", "#703fec", "#007a87",
}

const iconTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="64" height="64" viewBox="0 0 64 64">` +
	`<circle cx="32" cy="32" r="32" fill="%s"/>` +
	`<text x="32" y="43" font-family="sans-serif" font-size="32" fill="#ffffff" text-anchor="middle">%s</text>` +
	`</svg>`

// GenerateIcon renders a data URI icon holding the first letter of name. The color is
// derived from the name so repeated uploads keep the same icon.
func GenerateIcon(name string) string {
	letter := "?"
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			letter = string(unicode.ToUpper(r))
			break
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	color := iconPalette[h.Sum32()%uint32(len(iconPalette))]
	svg := fmt.Sprintf(iconTemplate, color, letter)
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

package display

import (
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// FontWeight selects one of the embedded faces.
type FontWeight int

const (
	FontRegular FontWeight = iota
	FontBold
)

var (
	fontsOnce sync.Once
	regular   *truetype.Font
	bold      *truetype.Font
)

func loadFonts() {
	regular, _ = truetype.Parse(goregular.TTF)
	bold, _ = truetype.Parse(gobold.TTF)
}

// fontFor returns the parsed face, nil only if the embedded font failed to parse.
func fontFor(weight FontWeight) *truetype.Font {
	fontsOnce.Do(loadFonts)
	if weight == FontBold && bold != nil {
		return bold
	}
	return regular
}

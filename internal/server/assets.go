package server

import (
	"bytes"
	_ "embed"
	"fmt"
	"hash/crc32"
	"image"

	"github.com/chai2010/webp"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

//go:embed web/index.html
var indexHTML []byte

// minifiedIndex minifies the embedded page together with its inline CSS and JS.
func minifiedIndex() ([]byte, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)

	out, err := m.Bytes("text/html", indexHTML)
	if err != nil {
		return nil, fmt.Errorf("minify index: %w", err)
	}
	return out, nil
}

// transparentTile encodes an empty tile served for uncached areas.
func transparentTile(size int) ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
		return nil, fmt.Errorf("encode transparent tile: %w", err)
	}
	return buf.Bytes(), nil
}

func etagFor(data []byte) string {
	return fmt.Sprintf(`"%08x-%x"`, crc32.ChecksumIEEE(data), len(data))
}

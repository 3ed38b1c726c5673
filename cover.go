// Cover image generation for merged epubs. Produces a deterministic
// geometric pattern seeded from the book title, with the title and
// article count overlaid in a clear central band.
package main

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	coverWidth  = 1200
	coverHeight = 1800
)

// generateCover renders a PNG cover derived from the title, so the
// same book always gets the same cover.
func generateCover(title string, articleCount int) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, coverWidth, coverHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{0xFF}), image.Point{}, draw.Src)

	seed := sha256.Sum256([]byte(title))
	drawCoverPattern(img, seed)

	titleFace, err := loadFace(gobold.TTF, 64)
	if err != nil {
		return nil, fmt.Errorf("loading bold font: %w", err)
	}
	metaFace, err := loadFace(goregular.TTF, 32)
	if err != nil {
		return nil, fmt.Errorf("loading regular font: %w", err)
	}

	drawTitleBand(img, title, articleCount, titleFace, metaFace)

	// Small wordmark in the bottom-right corner.
	label := "paperoni"
	labelW := font.MeasureString(metaFace, label).Ceil()
	drawString(img, label, metaFace, coverWidth-40-labelW, coverHeight-40)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding cover PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// drawCoverPattern fills the cover with a grid of circles whose shade
// and radius come from the seed bytes. The central rows stay clear for
// the title band.
func drawCoverPattern(img *image.Gray, seed [32]byte) {
	const (
		cols          = 12
		rows          = 18
		cellW         = coverWidth / cols
		cellH         = coverHeight / rows
		titleRowStart = 7
		titleRowEnd   = 11
	)

	for row := 0; row < rows; row++ {
		if row >= titleRowStart && row <= titleRowEnd {
			continue
		}
		for col := 0; col < cols; col++ {
			idx := (row*cols + col) % len(seed)
			b := seed[idx] ^ byte(row*17+col*31)

			// Shades in a range that reads well on e-ink.
			shade := uint8(0x30 + int(b)*(0xD0-0x30)/255)

			b2 := seed[(idx+7)%len(seed)] ^ byte(row*13+col*41)
			maxR := float64(cellW) / 2.2
			minR := maxR * 0.25
			radius := minR + (maxR-minR)*float64(b2)/255.0

			fillCircle(img, col*cellW+cellW/2, row*cellH+cellH/2, radius, color.Gray{Y: shade})
		}
	}
}

func fillCircle(img *image.Gray, cx, cy int, radius float64, c color.Gray) {
	r := int(math.Ceil(radius))
	r2 := radius * radius
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if float64(dx*dx+dy*dy) <= r2 {
				x, y := cx+dx, cy+dy
				if x >= 0 && x < coverWidth && y >= 0 && y < coverHeight {
					img.SetGray(x, y, c)
				}
			}
		}
	}
}

// drawTitleBand clears a horizontal band in the middle of the cover
// and renders the word-wrapped title with the article count below it.
func drawTitleBand(img *image.Gray, title string, articleCount int, titleFace, metaFace font.Face) {
	const (
		bandTop    = 650
		bandBottom = 1150
		padX       = 80
		maxWidth   = coverWidth - padX*2
	)

	draw.Draw(img,
		image.Rect(0, bandTop, coverWidth, bandBottom),
		image.NewUniform(color.Gray{0xFF}),
		image.Point{},
		draw.Src,
	)
	for x := padX; x < coverWidth-padX; x++ {
		img.SetGray(x, bandTop+20, color.Gray{0x99})
		img.SetGray(x, bandBottom-20, color.Gray{0x99})
	}

	lines := wrapText(title, titleFace, maxWidth)
	lineHeight := titleFace.Metrics().Height.Ceil() + 8
	metaHeight := metaFace.Metrics().Height.Ceil() + 16
	totalHeight := len(lines)*lineHeight + metaHeight
	y := bandTop + (bandBottom-bandTop-totalHeight)/2 + titleFace.Metrics().Ascent.Ceil()

	for _, line := range lines {
		lineW := font.MeasureString(titleFace, line).Ceil()
		drawString(img, line, titleFace, (coverWidth-lineW)/2, y)
		y += lineHeight
	}

	y += 16
	meta := fmt.Sprintf("%d articles", articleCount)
	if articleCount == 1 {
		meta = "1 article"
	}
	metaW := font.MeasureString(metaFace, meta).Ceil()
	drawString(img, meta, metaFace, (coverWidth-metaW)/2, y)
}

func drawString(img *image.Gray, s string, face font.Face, x, y int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Gray{0x00}),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// wrapText splits text into lines that fit within maxWidth pixels.
func wrapText(text string, face font.Face, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		trial := current + " " + word
		if font.MeasureString(face, trial).Ceil() <= maxWidth {
			current = trial
		} else {
			lines = append(lines, current)
			current = word
		}
	}
	return append(lines, current)
}

// loadFace parses an OpenType font at the given size in points.
func loadFace(ttf []byte, sizePt float64) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePt,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

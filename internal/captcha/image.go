package captcha

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Renderer turns an answer into an image reference suitable for JSON
// transport (a data URI for the PNG renderer).
type Renderer interface {
	Render(answer string) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(answer string) (string, error)

func (f RendererFunc) Render(answer string) (string, error) { return f(answer) }

// PNGRenderer draws the answer with a bitmap face, upscales it and adds
// line and speckle noise.
type PNGRenderer struct {
	Scale      int
	NoiseLines int
	NoiseDots  int
}

// DefaultRenderer is the renderer used when none is configured.
var DefaultRenderer = PNGRenderer{Scale: 3, NoiseLines: 6, NoiseDots: 350}

const (
	glyphAdvance = 10
	glyphMargin  = 6
	baseHeight   = 22
)

var background = color.RGBA{R: 245, G: 243, B: 236, A: 255}

func (p PNGRenderer) Render(answer string) (string, error) {
	scale := p.Scale
	if scale <= 0 {
		scale = 1
	}
	w := glyphMargin*2 + glyphAdvance*len(answer)
	small := image.NewRGBA(image.Rect(0, 0, w, baseHeight))
	draw.Draw(small, small.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	for i, r := range answer {
		d := &font.Drawer{
			Dst:  small,
			Src:  image.NewUniform(inkColor()),
			Face: face,
			Dot:  fixed.P(glyphMargin+i*glyphAdvance+rand.IntN(3), 15+rand.IntN(5)-2),
		}
		d.DrawString(string(r))
	}

	big := image.NewRGBA(image.Rect(0, 0, w*scale, baseHeight*scale))
	draw.NearestNeighbor.Scale(big, big.Bounds(), small, small.Bounds(), draw.Src, nil)

	b := big.Bounds()
	for i := 0; i < p.NoiseLines; i++ {
		line(big,
			rand.IntN(b.Dx()), rand.IntN(b.Dy()),
			rand.IntN(b.Dx()), rand.IntN(b.Dy()),
			inkColor())
	}
	for i := 0; i < p.NoiseDots; i++ {
		big.Set(rand.IntN(b.Dx()), rand.IntN(b.Dy()), inkColor())
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, big); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func inkColor() color.RGBA {
	return color.RGBA{
		R: uint8(20 + rand.IntN(110)),
		G: uint8(20 + rand.IntN(110)),
		B: uint8(20 + rand.IntN(110)),
		A: 255,
	}
}

// line draws a Bresenham segment.
func line(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ABOUTME: ANSI half-block rendering of a composed surface for terminals without image protocols
// ABOUTME: Fits the frame into a cell box and only re-emits colour escapes when a colour changes

package surface

import (
	"fmt"
	goimage "image"
	"strings"

	"golang.org/x/image/draw"
)

// RenderHalfBlock draws img into at most cols x rows terminal cells using the
// lower half block (▄): background is the top pixel, foreground the bottom one.
// Aspect ratio is preserved; fully transparent pixels render black.
func RenderHalfBlock(img goimage.Image, cols, rows int) []string {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || cols <= 0 || rows <= 0 {
		return nil
	}

	tw, th := fitBox(b.Dx(), b.Dy(), cols, rows*2)
	src := img
	if tw != b.Dx() || th != b.Dy() {
		dst := goimage.NewRGBA(goimage.Rect(0, 0, tw, th))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		src = dst
	}
	sb := src.Bounds()

	lines := make([]string, 0, (th+1)/2)
	for y := 0; y < th; y += 2 {
		var sbuf strings.Builder
		var lastBG, lastFG [3]uint8
		first := true
		for x := range tw {
			bg := rgbAt(src, sb.Min.X+x, sb.Min.Y+y)
			var fg [3]uint8
			if y+1 < th {
				fg = rgbAt(src, sb.Min.X+x, sb.Min.Y+y+1)
			}
			if first || bg != lastBG {
				fmt.Fprintf(&sbuf, "\x1b[48;2;%d;%d;%dm", bg[0], bg[1], bg[2])
			}
			if first || fg != lastFG {
				fmt.Fprintf(&sbuf, "\x1b[38;2;%d;%d;%dm", fg[0], fg[1], fg[2])
			}
			sbuf.WriteString("▄")
			lastBG, lastFG, first = bg, fg, false
		}
		sbuf.WriteString("\x1b[0m")
		lines = append(lines, sbuf.String())
	}
	return lines
}

// fitBox scales w x h down to fit maxW x maxH, preserving aspect ratio.
func fitBox(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	tw, th := maxW, h*maxW/w
	if th > maxH {
		tw, th = w*maxH/h, maxH
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}

func rgbAt(img goimage.Image, x, y int) [3]uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	return [3]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
}

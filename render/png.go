// Package render draws a diagram to a PNG. It is a pure consumer of the
// engine's query surface: node geometry from the store, connection geometry
// from the path engine. The core never depends on it.
package render

import (
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"tangle/engine"
	"tangle/geom"
	"tangle/graph"
	"tangle/route"
)

// Options tune the output image.
type Options struct {
	// Scale converts graph units to pixels. Zero means 1.
	Scale float64
	// Padding is the margin around the content, in graph units.
	Padding float64
	// FontSize is the label size in points. Zero means 12.
	FontSize float64
}

var (
	nodeFill     = color.RGBA{R: 0xee, G: 0xf1, B: 0xf5, A: 0xff}
	nodeStroke   = color.RGBA{R: 0x3a, G: 0x3f, B: 0x4b, A: 0xff}
	selectedLine = color.RGBA{R: 0x2b, G: 0x6c, B: 0xb0, A: 0xff}
	groupFill    = color.RGBA{R: 0xf2, G: 0xf7, B: 0xee, A: 0xff}
	commentFill  = color.RGBA{R: 0xfd, G: 0xf6, B: 0xdd, A: 0xff}
	portFill     = color.RGBA{R: 0x5a, G: 0x5f, B: 0x6b, A: 0xff}
)

// PNG renders the engine's current graph and writes the encoded image.
func PNG(e *engine.Engine, w io.Writer, opts Options) error {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.Padding <= 0 {
		opts.Padding = 20
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 12
	}

	bounds, ok := contentBounds(e)
	if !ok {
		return errors.New("nothing to render")
	}
	bounds = bounds.Expand(opts.Padding)

	width := int(bounds.Width() * opts.Scale)
	height := int(bounds.Height() * opts.Scale)
	if width < 1 || height < 1 {
		return errors.New("degenerate render bounds")
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	face, err := monoFace(opts.FontSize)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)

	// Graph space to image space.
	dc.Scale(opts.Scale, opts.Scale)
	dc.Translate(-bounds.Min.X, -bounds.Min.Y)

	// Annotations sit at the very back, then connections, then nodes by
	// stacking order, mirroring how the interactive surface layers them.
	for _, a := range e.Graph().Annotations() {
		drawAnnotation(dc, a)
	}
	for _, c := range e.Graph().Connections() {
		drawConnection(dc, e, c)
	}
	for _, n := range e.Graph().NodesByZ() {
		if n.Visible {
			drawNode(dc, n)
		}
	}

	return errors.Wrap(dc.EncodePNG(w), "encoding png")
}

func contentBounds(e *engine.Engine) (geom.Rect, bool) {
	bounds, ok := e.Graph().ContentBounds()
	for _, c := range e.Graph().Connections() {
		if p, hit := e.Routes().PathFor(c.ID); hit {
			if !ok {
				bounds = p.Bounds
				ok = true
				continue
			}
			bounds = bounds.Union(p.Bounds)
		}
	}
	for _, a := range e.Graph().Annotations() {
		if !ok {
			bounds = a.Bounds
			ok = true
			continue
		}
		bounds = bounds.Union(a.Bounds)
	}
	return bounds, ok
}

func drawAnnotation(dc *gg.Context, a *graph.Annotation) {
	fill := commentFill
	if a.Kind == graph.AnnotationGroup {
		fill = groupFill
	}
	dc.SetColor(fill)
	dc.DrawRoundedRectangle(a.Bounds.Min.X, a.Bounds.Min.Y, a.Bounds.Width(), a.Bounds.Height(), 6)
	dc.Fill()
	dc.SetColor(nodeStroke)
	dc.SetLineWidth(1)
	dc.SetDash(4, 3)
	dc.DrawRoundedRectangle(a.Bounds.Min.X, a.Bounds.Min.Y, a.Bounds.Width(), a.Bounds.Height(), 6)
	dc.Stroke()
	dc.SetDash()
	if a.Label != "" {
		dc.DrawString(a.Label, a.Bounds.Min.X+6, a.Bounds.Min.Y+14)
	}
}

func drawConnection(dc *gg.Context, e *engine.Engine, c *graph.Connection) {
	p, ok := e.Routes().PathFor(c.ID)
	if !ok || len(p.Points) < 2 {
		return
	}
	if c.Selected {
		dc.SetColor(selectedLine)
		dc.SetLineWidth(2.5)
	} else {
		dc.SetColor(nodeStroke)
		dc.SetLineWidth(1.5)
	}
	dc.MoveTo(p.Points[0].X, p.Points[0].Y)
	for _, pt := range p.Points[1:] {
		dc.LineTo(pt.X, pt.Y)
	}
	dc.Stroke()

	drawArrowHead(dc, p)
	if c.Label != "" {
		mid := p.Points[len(p.Points)/2]
		dc.DrawStringAnchored(c.Label, mid.X, mid.Y-6, 0.5, 0)
	}
}

// drawArrowHead puts a small triangle on the last segment, pointing at the
// target port.
func drawArrowHead(dc *gg.Context, p *route.Path) {
	tip := p.Points[len(p.Points)-1]
	prev := p.Points[len(p.Points)-2]
	dir := tip.Sub(prev)
	l := dir.Len()
	if l == 0 {
		return
	}
	dir = dir.Scale(1 / l)
	size := 7.0
	left := geom.Point{X: -dir.Y, Y: dir.X}
	base := tip.Sub(dir.Scale(size))
	a := base.Add(left.Scale(size / 2))
	b := base.Sub(left.Scale(size / 2))
	dc.MoveTo(tip.X, tip.Y)
	dc.LineTo(a.X, a.Y)
	dc.LineTo(b.X, b.Y)
	dc.ClosePath()
	dc.Fill()
}

func drawNode(dc *gg.Context, n *graph.Node) {
	b := n.Bounds()
	dc.SetColor(nodeFill)
	dc.DrawRoundedRectangle(b.Min.X, b.Min.Y, b.Width(), b.Height(), 4)
	dc.Fill()
	if n.Selected {
		dc.SetColor(selectedLine)
		dc.SetLineWidth(2)
	} else {
		dc.SetColor(nodeStroke)
		dc.SetLineWidth(1)
	}
	dc.DrawRoundedRectangle(b.Min.X, b.Min.Y, b.Width(), b.Height(), 4)
	dc.Stroke()

	dc.SetColor(portFill)
	for _, p := range n.Inputs {
		pos := n.PortAnchor(p)
		dc.DrawCircle(pos.X, pos.Y, 3)
		dc.Fill()
	}
	for _, p := range n.Outputs {
		pos := n.PortAnchor(p)
		dc.DrawCircle(pos.X, pos.Y, 3)
		dc.Fill()
	}

	label := n.Type
	if v, ok := n.Payload["label"].(string); ok && v != "" {
		label = v
	}
	if label != "" {
		dc.SetColor(nodeStroke)
		center := b.Center()
		dc.DrawStringAnchored(label, center.X, center.Y, 0.5, 0.35)
	}
}

func monoFace(size float64) (font.Face, error) {
	ttf, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "parsing font")
	}
	return truetype.NewFace(ttf, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

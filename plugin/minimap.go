package plugin

import (
	"github.com/pkg/errors"

	"tangle/engine"
	"tangle/event"
	"tangle/geom"
)

// MinimapBox is one node's scaled footprint in minimap space.
type MinimapBox struct {
	NodeID   string
	Rect     geom.Rect
	Selected bool
}

// MinimapModel is what a front-end draws: scaled node boxes plus the
// viewport's visible window projected into the same space.
type MinimapModel struct {
	Boxes    []MinimapBox
	Viewport geom.Rect
	Content  geom.Rect
}

// Minimap keeps a scaled summary of the diagram up to date. It recomputes
// lazily: events mark it dirty, Model rebuilds on demand.
type Minimap struct {
	// Size is the minimap surface in pixels.
	Size geom.Size

	eng   *engine.Engine
	sub   int
	dirty bool
	model MinimapModel
}

// NewMinimap returns a minimap of the given surface size.
func NewMinimap(size geom.Size) *Minimap {
	return &Minimap{Size: size, dirty: true}
}

func (m *Minimap) Name() string { return "minimap" }

func (m *Minimap) Attach(e *engine.Engine) error {
	if m.eng != nil {
		return errors.New("minimap already attached")
	}
	m.eng = e
	m.dirty = true
	m.sub = e.Bus().Subscribe(func(event.Event) { m.dirty = true })
	return nil
}

func (m *Minimap) Detach() {
	if m.eng == nil {
		return
	}
	m.eng.Bus().Unsubscribe(m.sub)
	m.eng = nil
}

// Model returns the current minimap, rebuilding it if anything changed
// since the last call.
func (m *Minimap) Model() MinimapModel {
	if m.eng == nil {
		return MinimapModel{}
	}
	if m.dirty {
		m.rebuild()
		m.dirty = false
	}
	return m.model
}

func (m *Minimap) rebuild() {
	content, ok := m.eng.Graph().ContentBounds()
	if !ok {
		m.model = MinimapModel{}
		return
	}
	content = content.Expand(10)
	sx := m.Size.Width / content.Width()
	sy := m.Size.Height / content.Height()
	scale := sx
	if sy < sx {
		scale = sy
	}
	project := func(r geom.Rect) geom.Rect {
		return geom.Rect{
			Min: r.Min.Sub(content.Min).Scale(scale),
			Max: r.Max.Sub(content.Min).Scale(scale),
		}
	}
	model := MinimapModel{
		Content:  project(content),
		Viewport: project(m.eng.Viewport().VisibleRect()),
	}
	for _, n := range m.eng.Graph().NodesByZ() {
		if !n.Visible {
			continue
		}
		model.Boxes = append(model.Boxes, MinimapBox{
			NodeID:   n.ID,
			Rect:     project(n.Bounds()),
			Selected: n.Selected,
		})
	}
	m.model = model
}

package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointArithmetic(t *testing.T) {
	p := Pt(3, 4)
	assert.Equal(t, Pt(5, 6), p.Add(Pt(2, 2)))
	assert.Equal(t, Pt(1, 2), p.Sub(Pt(2, 2)))
	assert.Equal(t, Pt(6, 8), p.Scale(2))
	assert.Equal(t, 5.0, p.Len())
	assert.Equal(t, 5.0, Pt(0, 0).Dist(p))
}

func TestRectFromPoints_NormalizesCorners(t *testing.T) {
	r := RectFromPoints(Pt(10, 20), Pt(-5, 2))
	assert.Equal(t, Pt(-5, 2), r.Min)
	assert.Equal(t, Pt(10, 20), r.Max)
}

func TestRectContains(t *testing.T) {
	r := RectFromPosSize(Pt(0, 0), Size{Width: 100, Height: 50})
	assert.True(t, r.Contains(Pt(50, 25)))
	assert.True(t, r.Contains(Pt(0, 0)), "edges are inclusive")
	assert.True(t, r.Contains(Pt(100, 50)))
	assert.False(t, r.Contains(Pt(101, 25)))
	assert.False(t, r.Contains(Pt(50, -1)))
}

func TestRectIntersects(t *testing.T) {
	a := RectFromPosSize(Pt(0, 0), Size{Width: 10, Height: 10})
	b := RectFromPosSize(Pt(5, 5), Size{Width: 10, Height: 10})
	c := RectFromPosSize(Pt(20, 20), Size{Width: 10, Height: 10})
	assert.True(t, a.Intersects(b))
	assert.True(t, b.Intersects(a))
	assert.False(t, a.Intersects(c))
	// Shared edge counts as overlap.
	d := RectFromPosSize(Pt(10, 0), Size{Width: 10, Height: 10})
	assert.True(t, a.Intersects(d))
}

func TestRectUnionAndExpand(t *testing.T) {
	a := RectFromPosSize(Pt(0, 0), Size{Width: 10, Height: 10})
	b := RectFromPosSize(Pt(20, -5), Size{Width: 10, Height: 10})
	u := a.Union(b)
	assert.Equal(t, Pt(0, -5), u.Min)
	assert.Equal(t, Pt(30, 10), u.Max)

	e := a.Expand(5)
	assert.Equal(t, Pt(-5, -5), e.Min)
	assert.Equal(t, Pt(15, 15), e.Max)
}

func TestRectContainsRect(t *testing.T) {
	outer := RectFromPosSize(Pt(0, 0), Size{Width: 100, Height: 100})
	inner := RectFromPosSize(Pt(10, 10), Size{Width: 20, Height: 20})
	assert.True(t, outer.ContainsRect(inner))
	assert.False(t, inner.ContainsRect(outer))
	assert.True(t, outer.ContainsRect(outer))
}

func TestDistToSegment(t *testing.T) {
	a, b := Pt(0, 0), Pt(10, 0)
	assert.Equal(t, 5.0, DistToSegment(Pt(5, 5), a, b))
	assert.Equal(t, 0.0, DistToSegment(Pt(5, 0), a, b))
	// Beyond the endpoints the distance is to the nearest endpoint.
	assert.Equal(t, 5.0, DistToSegment(Pt(15, 0), a, b))
	assert.Equal(t, 5.0, DistToSegment(Pt(-3, 4), a, b))
}

func TestDistToSegment_DegeneratePoint(t *testing.T) {
	p := Pt(3, 4)
	assert.Equal(t, 5.0, DistToSegment(Pt(0, 0), p, p))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5.0, Clamp(5, 0, 10))
	assert.Equal(t, 0.0, Clamp(-1, 0, 10))
	assert.Equal(t, 10.0, Clamp(11, 0, 10))
}

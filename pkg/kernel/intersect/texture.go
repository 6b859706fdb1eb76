package intersect

import (
	"fmt"
	"image"
	"math"

	"github.com/chazu/bicubic/pkg/kernel"
)

const (
	// Kept marks texels kept on the surface.
	Kept uint8 = 255
	// Trimmed marks texels cut away.
	Trimmed uint8 = 0
)

// Mask is a square trimming texture over a surface's parameter domain.
// Texel (x, y) covers u along x and v along y.
type Mask struct {
	Size         int
	Pix          []uint8
	uLo, uHi     float64
	vLo, vHi     float64
	wrapU, wrapV bool
	curve        []bool
}

func newMask(s kernel.Sampleable, size int) *Mask {
	m := &Mask{
		Size:  size,
		Pix:   make([]uint8, size*size),
		wrapU: s.WrapU(),
		wrapV: s.WrapV(),
		curve: make([]bool, size*size),
	}
	m.uLo, m.uHi = s.RangeU()
	m.vLo, m.vHi = s.RangeV()
	return m
}

// texel maps parameters to continuous texel coordinates.
func (m *Mask) texel(u, v float64) (float64, float64) {
	return (u - m.uLo) / (m.uHi - m.uLo) * float64(m.Size),
		(v - m.vLo) / (m.vHi - m.vLo) * float64(m.Size)
}

func (m *Mask) index(x, y int) (int, bool) {
	if m.wrapU {
		x = ((x % m.Size) + m.Size) % m.Size
	}
	if m.wrapV {
		y = ((y % m.Size) + m.Size) % m.Size
	}
	if x < 0 || y < 0 || x >= m.Size || y >= m.Size {
		return 0, false
	}
	return y*m.Size + x, true
}

// Visible reports whether the surface is kept at (u, v).
func (m *Mask) Visible(u, v float64) bool {
	fx, fy := m.texel(u, v)
	x := min(int(math.Floor(fx)), m.Size-1)
	y := min(int(math.Floor(fy)), m.Size-1)
	if !m.wrapU {
		x = max(x, 0)
	}
	if !m.wrapV {
		y = max(y, 0)
	}
	i, ok := m.index(x, y)
	return ok && m.Pix[i] == Kept
}

// Invert swaps the kept and trimmed sides. Curve texels stay visible.
func (m *Mask) Invert() {
	for i, c := range m.curve {
		if !c {
			m.Pix[i] = Kept - m.Pix[i]
		}
	}
}

// Image returns the mask as a greyscale image for upload.
func (m *Mask) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Size, m.Size))
	copy(img.Pix, m.Pix)
	return img
}

// OnCurve reports whether texel (x, y) lies on the intersection curve.
func (m *Mask) OnCurve(x, y int) bool {
	i, ok := m.index(x, y)
	return ok && m.curve[i]
}

func (m *Mask) mark(x, y int) {
	if !m.wrapU {
		x = min(max(x, 0), m.Size-1)
	}
	if !m.wrapV {
		y = min(max(y, 0), m.Size-1)
	}
	if i, ok := m.index(x, y); ok {
		m.curve[i] = true
	}
}

// unwrap shifts b by whole periods so the segment a-b takes the short way
// around a closed direction.
func unwrap(a, b float64, closed bool, period float64) float64 {
	if !closed {
		return b
	}
	for b-a > period/2 {
		b -= period
	}
	for a-b > period/2 {
		b += period
	}
	return b
}

// segment marks every texel the segment crosses, 4-connected so a flood fill
// cannot leak diagonally.
func (m *Mask) segment(ax, ay, bx, by float64) {
	size := float64(m.Size)
	bx = unwrap(ax, bx, m.wrapU, size)
	by = unwrap(ay, by, m.wrapV, size)
	n := int(math.Ceil(2*math.Max(math.Abs(bx-ax), math.Abs(by-ay)))) + 1
	px, py := int(math.Floor(ax)), int(math.Floor(ay))
	m.mark(px, py)
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		x := int(math.Floor(ax + (bx-ax)*t))
		y := int(math.Floor(ay + (by-ay)*t))
		if x != px && y != py {
			m.mark(x, py)
		}
		m.mark(x, y)
		px, py = x, y
	}
}

// fill floods the region containing texel start with Trimmed, stopping at
// curve texels.
func (m *Mask) fill(start int) {
	stack := []int{start}
	m.Pix[start] = Trimmed
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%m.Size, i/m.Size
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			j, ok := m.index(x+d[0], y+d[1])
			if !ok || m.curve[j] || m.Pix[j] == Trimmed {
				continue
			}
			m.Pix[j] = Trimmed
			stack = append(stack, j)
		}
	}
}

// Mask rasterises the curve in the parameter domain of surface 0 (A) or 1
// (B) and trims the side containing the first free texel.
func (c *Curve) Mask(surface, size int) (*Mask, error) {
	if surface != 0 && surface != 1 {
		return nil, fmt.Errorf("intersect: surface index %d: %w", surface, kernel.ErrInvalidOperation)
	}
	if size < 2 {
		return nil, fmt.Errorf("intersect: mask size %d: %w", size, kernel.ErrInvalidOperation)
	}
	s := c.A
	if surface == 1 {
		s = c.B
	}
	m := newMask(s, size)

	pts := make([][2]float64, len(c.Solutions))
	for i, sol := range c.Solutions {
		u, v := sol.Params(surface)
		pts[i][0], pts[i][1] = m.texel(u, v)
	}
	for i := 0; i+1 < len(pts); i++ {
		m.segment(pts[i][0], pts[i][1], pts[i+1][0], pts[i+1][1])
	}
	if c.Closed && len(pts) > 2 {
		last := pts[len(pts)-1]
		m.segment(last[0], last[1], pts[0][0], pts[0][1])
	}
	if len(pts) == 1 {
		m.mark(int(math.Floor(pts[0][0])), int(math.Floor(pts[0][1])))
	}

	for i := range m.Pix {
		m.Pix[i] = Kept
	}
	for i, onCurve := range m.curve {
		if !onCurve {
			m.fill(i)
			break
		}
	}
	return m, nil
}

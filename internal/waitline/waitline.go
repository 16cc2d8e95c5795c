// Package waitline implements the 1-D arc-length coordinate system a queue
// follows, parametrized over a geographic polyline.
//
// The real polyline loader (file I/O, projection fixes, simplification) is
// an external collaborator per spec.md §1; this package only owns the
// interpolation math once points are in hand, plus a straight-line
// generator for tests and for configs that don't supply a path.
package waitline

import "math"

// Point is a single polyline vertex.
type Point struct {
	Lat, Lon float64
}

// Waitline is immutable after construction: a polyline plus its cumulative
// arc-length table, so PointAt/CurvatureAt are pure lookups.
type Waitline struct {
	points []Point
	cum    []float64 // cum[i] = arc length from points[0] to points[i]
	length float64
}

// metersPerDegreeLat is a flat-earth approximation adequate for the short
// polylines (hundreds of meters to a few km) a queue spans; the real
// geodesy lives in the out-of-scope path loader.
const metersPerDegreeLat = 111320.0

func metersPerDegreeLon(lat float64) float64 {
	return metersPerDegreeLat * math.Cos(lat*math.Pi/180)
}

func haversineApprox(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * metersPerDegreeLat
	dLon := (b.Lon - a.Lon) * metersPerDegreeLon((a.Lat+b.Lat)/2)
	return math.Hypot(dLat, dLon)
}

// NewFromPoints builds a Waitline from an externally-supplied polyline
// (the constructor the real geographic loader would call). Requires at
// least 2 points.
func NewFromPoints(points []Point) *Waitline {
	if len(points) < 2 {
		panic("waitline: need at least 2 points")
	}
	cum := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		cum[i] = cum[i-1] + haversineApprox(points[i-1], points[i])
	}
	return &Waitline{points: points, cum: cum, length: cum[len(cum)-1]}
}

// NewStraightLine builds a fallback Waitline: a straight segment starting at
// origin, heading headingDeg (degrees clockwise from north), lengthMeters
// long. Used when no external polyline is configured.
func NewStraightLine(origin Point, headingDeg, lengthMeters float64) *Waitline {
	rad := headingDeg * math.Pi / 180
	dLat := math.Cos(rad) * lengthMeters / metersPerDegreeLat
	dLon := math.Sin(rad) * lengthMeters / metersPerDegreeLon(origin.Lat)
	end := Point{Lat: origin.Lat + dLat, Lon: origin.Lon + dLon}
	return NewFromPoints([]Point{origin, end})
}

// Length returns the total arc length in meters.
func (w *Waitline) Length() float64 {
	return w.length
}

// PointAt interpolates the (lat, lon, headingDeg) at arc-length s, clamped
// to [0, Length()].
func (w *Waitline) PointAt(s float64) (lat, lon, headingDeg float64) {
	idx, frac := w.bracket(s)
	a, b := w.points[idx], w.points[idx+1]
	lat = a.Lat + (b.Lat-a.Lat)*frac
	lon = a.Lon + (b.Lon-a.Lon)*frac
	headingDeg = bearing(a, b)
	return
}

// CurvatureAt estimates path curvature (1/radius, 1/meters) at arc-length s
// via the heading change across a small symmetric window. Straight
// segments (the common case absent a real polyline loader) yield 0.
func (w *Waitline) CurvatureAt(s float64) float64 {
	const window = 2.0 // meters
	lo := math.Max(0, s-window)
	hi := math.Min(w.length, s+window)
	if hi-lo < 1e-6 {
		return 0
	}
	_, _, h1 := w.PointAt(lo)
	_, _, h2 := w.PointAt(hi)
	dTheta := normalizeAngleDelta(h2 - h1)
	return (dTheta * math.Pi / 180) / (hi - lo)
}

// bracket returns the segment index containing s and the fractional
// position within that segment.
func (w *Waitline) bracket(s float64) (idx int, frac float64) {
	if s <= 0 {
		return 0, 0
	}
	if s >= w.length {
		return len(w.points) - 2, 1
	}
	for i := 1; i < len(w.cum); i++ {
		if s <= w.cum[i] {
			segLen := w.cum[i] - w.cum[i-1]
			if segLen <= 0 {
				return i - 1, 0
			}
			return i - 1, (s - w.cum[i-1]) / segLen
		}
	}
	return len(w.points) - 2, 1
}

func bearing(a, b Point) float64 {
	dLat := b.Lat - a.Lat
	dLon := b.Lon - a.Lon
	deg := math.Atan2(dLon, dLat) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

func normalizeAngleDelta(d float64) float64 {
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	return d
}

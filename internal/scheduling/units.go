package scheduling

import "math"

// Pixels is a vertical distance on the rendered timeline. It is kept apart
// from minutes so the two can only meet through an explicit ratio.
type Pixels float64

// MinutesToPixels converts a duration to timeline distance
func MinutesToPixels(minutes int, pixelsPerMinute float64) Pixels {
	return Pixels(float64(minutes) * pixelsPerMinute)
}

// maxShiftMinutes bounds a converted distance to one day either way, which is
// enough to reach both ends of the day from any start
const maxShiftMinutes = 24 * 60

// PixelsToMinutes converts timeline distance to whole minutes, rounding to
// the nearest minute. The result is limited to one day in either direction.
func PixelsToMinutes(p Pixels, pixelsPerMinute float64) int {
	if pixelsPerMinute <= 0 {
		pixelsPerMinute = DefaultPixelsPerMinute
	}
	m := math.Round(float64(p) / pixelsPerMinute)
	if math.IsNaN(m) {
		return 0
	}
	return int(max(min(m, maxShiftMinutes), -maxShiftMinutes))
}

package capture

import (
	"image"
	"math"
)

// FindTemplate searches haystack for needle using normalized mean absolute
// difference of luma. score is 1 for an exact match and 0 for maximal
// difference. found is score >= threshold. The returned point is relative to
// the haystack bounds.
func FindTemplate(haystack, needle image.Image, threshold float64) (at image.Point, score float64, found bool) {
	hs, hw, hh := grayscale(haystack)
	ns, nw, nh := grayscale(needle)
	if nw == 0 || nh == 0 || nw > hw || nh > hh {
		return image.Point{}, 0, false
	}

	n := float64(nw * nh)
	// Any candidate whose summed difference crosses limit can be abandoned.
	limit := math.Inf(1)
	best := math.Inf(1)
	for y := 0; y+nh <= hh; y++ {
		for x := 0; x+nw <= hw; x++ {
			sum := 0.0
		rows:
			for j := 0; j < nh; j++ {
				hrow := hs[(y+j)*hw+x:]
				nrow := ns[j*nw:]
				for i := 0; i < nw; i++ {
					sum += math.Abs(hrow[i] - nrow[i])
				}
				if sum >= limit {
					break rows
				}
			}
			if sum < best {
				best = sum
				limit = sum
				at = image.Point{X: x, Y: y}
				if sum == 0 {
					return at, 1, true
				}
			}
		}
	}

	score = 1 - best/(255*n)
	return at, score, score >= threshold
}

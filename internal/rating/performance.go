// Package rating estimates tournament performance ratings.
package rating

import "math"

// performanceOffsets holds the standard conversion from score to rating
// difference for common event lengths. Index is points*2.
var performanceOffsets = map[int][]int{
	8: {-800, -444, -322, -251, -193, -141, -95, -43, 0,
		43, 95, 141, 193, 251, 322, 444, 800},
	9: {-800, -444, -351, -273, -220, -166, -125, -80, -43, 0,
		43, 80, 125, 166, 220, 273, 351, 444, 800},
	10: {-800, -470, -366, -296, -240, -193, -149, -110, -72, -36, 0,
		36, 72, 110, 149, 193, 240, 296, 366, 470, 800},
	11: {-800, -470, -383, -309, -262, -211, -175, -133, -102, -65, -36, 0,
		36, 65, 102, 133, 175, 211, 262, 309, 383, 470, 800},
}

// EstimatePerformance returns the performance rating for an event.
//
// Events of 8 to 11 games use the lookup table against the opponents'
// average; every other length, and any score the table does not cover,
// uses (sum + 400 * (wins - losses)) / games.
func EstimatePerformance(games int, points float64, opponentsAvg, ratingSum, wins, losses int) int {
	if offsets, ok := performanceOffsets[games]; ok {
		halves := points * 2
		idx := int(math.Round(halves))
		if float64(idx) == halves && idx >= 0 && idx < len(offsets) {
			return opponentsAvg + offsets[idx]
		}
	}
	if games <= 0 {
		return 0
	}
	return int(math.Round(float64(ratingSum+400*(wins-losses)) / float64(games)))
}

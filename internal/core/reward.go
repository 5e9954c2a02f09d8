package core

import "math"

// Miles returns the miles earned by a transaction: full spending blocks times
// the per-block rate. Fractional blocks earn nothing.
//
//	Miles(42.50, 5.0, 10.0) == 80.0
//	Miles(3.0, 5.0, 10.0) == 0.0
func Miles(amount, blockSize, milesPerDollar float64) float64 {
	return math.Floor(amount/blockSize) * milesPerDollar
}

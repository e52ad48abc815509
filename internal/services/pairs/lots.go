package pairs

import "math"

// DefaultLotSize is the standard round lot.
const DefaultLotSize int64 = 100

// Balance returns the quantity of the other leg whose notional matches refQty*refPrice,
// rounded half-to-even to a whole number of lots. It returns 0 when the other price is
// not positive or the inputs cannot produce a representable quantity.
func Balance(refQty int64, refPrice, otherPrice float64, lotSize int64) int64 {
	if lotSize <= 0 {
		lotSize = DefaultLotSize
	}
	if !(otherPrice > 0) || !defined(refPrice) || refPrice < 0 || refQty <= 0 {
		return 0
	}
	lots := math.RoundToEven(float64(refQty) * refPrice / otherPrice / float64(lotSize))
	if !defined(lots) || lots <= 0 || lots >= float64(math.MaxInt64/lotSize) {
		return 0
	}
	return int64(lots) * lotSize
}

package group

// feeGenerator is computed once: the Mimblewimble value generator H,
// used so that a commitment g·blind + H·value hides the value under a
// generator with no known discrete log relative to g.
var feeGenerator = HashToPoint("beamwallet/negotiator: fee generator H")

// FeeGenerator returns H, the generator against which transaction
// values (and fees) are committed, distinct from the base point g used
// for blinding factors and kernel excesses.
func FeeGenerator() *Point {
	return feeGenerator.Clone()
}

package group

// Commit computes a Pedersen commitment value*H + blinding*G, the
// building block every coin and kernel in this module is expressed
// in terms of. The same generator H backs both coin values and the
// transaction fee, so "sum of inputs equals sum of outputs plus fee"
// is a single homomorphic equation over one curve.
func Commit(value uint64, blinding *Scalar) *Point {
	return ScalarFromUint64(value).Act(FeeGenerator()).Add(blinding.ActOnBase())
}

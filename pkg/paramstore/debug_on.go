//go:build debug

package paramstore

import "fmt"

// assertNoOverwrite turns a parameter rewrite attempt into an
// immediate panic in debug builds, per the "programmer error... must
// be detected in debug builds" requirement: production code gets
// ErrAlreadySet back and can decide how to log it, debug builds crash
// at the call site instead of limping on with a stale error return.
func assertNoOverwrite(txID TxID, id ParamID) {
	panic(fmt.Sprintf("paramstore: attempted to overwrite %s/%s", txID, id))
}

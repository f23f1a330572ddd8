package negotiate

import (
	"context"
	"fmt"

	"github.com/beamwallet/negotiator/pkg/gateway"
	"github.com/beamwallet/negotiator/pkg/group"
	"github.com/beamwallet/negotiator/pkg/ledger"
	"github.com/beamwallet/negotiator/pkg/paramstore"
	"github.com/fxamacker/cbor/v2"
)

// ledgerParamStore adapts a ledger.Ledger's GetTxParameter/
// SetTxParameter pair to paramstore.Store, letting the Param[T]
// generic helpers address per-transaction parameters through the
// same object that also gates coin state, per the single-ledger
// contract pkg/ledger documents.
type ledgerParamStore struct {
	ctx context.Context
	l   ledger.Ledger
}

func (s ledgerParamStore) Get(txID paramstore.TxID, id paramstore.ParamID) ([]byte, bool) {
	return s.l.GetTxParameter(s.ctx, txID, id)
}

func (s ledgerParamStore) Put(txID paramstore.TxID, id paramstore.ParamID, value []byte) error {
	return s.l.SetTxParameter(s.ctx, txID, id, value)
}

var scalarCodec = paramstore.Codec[*group.Scalar]{
	Encode: func(s *group.Scalar) []byte { return s.Bytes() },
	Decode: func(b []byte) (*group.Scalar, error) { return group.ScalarFromBytes(b) },
}

var pointCodec = paramstore.Codec[*group.Point]{
	Encode: func(p *group.Point) []byte { return p.Bytes() },
	Decode: func(b []byte) (*group.Point, error) { return group.PointFromBytes(b) },
}

var pointSliceCodec = paramstore.Slice(paramstore.Codec[*group.Point]{
	Encode: pointCodec.Encode,
	Decode: pointCodec.Decode,
})

var kernelProofCodec = paramstore.Codec[gateway.KernelProof]{
	Encode: func(p gateway.KernelProof) []byte {
		b, err := cbor.Marshal(p)
		if err != nil {
			panic(fmt.Sprintf("negotiate: marshal kernel proof: %v", err))
		}
		return b
	},
	Decode: func(b []byte) (gateway.KernelProof, error) {
		var p gateway.KernelProof
		if err := cbor.Unmarshal(b, &p); err != nil {
			return p, fmt.Errorf("negotiate: unmarshal kernel proof: %w", err)
		}
		return p, nil
	},
}

// The closed set of typed parameter handles the negotiation core
// persists across Update() calls. Every ParamID from pkg/paramstore
// has exactly one handle here, fixing its wire type once and for all.
var (
	amountParam    = paramstore.Param[uint64]{ID: paramstore.Amount, Codec: paramstore.Uint64}
	feeParam       = paramstore.Param[uint64]{ID: paramstore.Fee, Codec: paramstore.Uint64}
	minHeightParam = paramstore.Param[uint64]{ID: paramstore.MinHeight, Codec: paramstore.Uint64}
	offsetParam    = paramstore.Param[*group.Scalar]{ID: paramstore.Offset, Codec: scalarCodec}

	inputsParam  = paramstore.Param[[]*group.Point]{ID: paramstore.Inputs, Codec: pointSliceCodec}
	outputsParam = paramstore.Param[[]*group.Point]{ID: paramstore.Outputs, Codec: pointSliceCodec}

	blindingExcessParam   = paramstore.Param[*group.Scalar]{ID: paramstore.BlindingExcess, Codec: scalarCodec}
	peerSignatureParam    = paramstore.Param[*group.Scalar]{ID: paramstore.PeerSignature, Codec: scalarCodec}
	publicPeerNonceParam  = paramstore.Param[*group.Point]{ID: paramstore.PublicPeerNonce, Codec: pointCodec}
	publicPeerExcessParam = paramstore.Param[*group.Point]{ID: paramstore.PublicPeerExcess, Codec: pointCodec}
	peerOffsetParam       = paramstore.Param[*group.Scalar]{ID: paramstore.PeerOffset, Codec: scalarCodec}
	peerInputsParam       = paramstore.Param[[]*group.Point]{ID: paramstore.PeerInputs, Codec: pointSliceCodec}
	peerOutputsParam      = paramstore.Param[[]*group.Point]{ID: paramstore.PeerOutputs, Codec: pointSliceCodec}

	transactionRegisteredParam = paramstore.Param[bool]{ID: paramstore.TransactionRegistered, Codec: paramstore.Bool}
	kernelProofParam           = paramstore.Param[gateway.KernelProof]{ID: paramstore.KernelProof, Codec: kernelProofCodec}
	failureReasonParam         = paramstore.Param[string]{ID: paramstore.FailureReason, Codec: paramstore.String}
)

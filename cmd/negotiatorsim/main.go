// Command negotiatorsim drives a two-wallet negotiation over an
// in-memory loopback network, for manual experimentation with the
// scenarios pkg/negotiate and internal/txtest are tested against.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/beamwallet/negotiator/internal/txtest"
	"github.com/beamwallet/negotiator/internal/walletlog"
	"github.com/beamwallet/negotiator/pkg/gateway"
	"github.com/beamwallet/negotiator/pkg/ledger"
	"github.com/beamwallet/negotiator/pkg/negotiate"
	"github.com/beamwallet/negotiator/pkg/paramstore"
	"github.com/google/uuid"
	flags "github.com/jessevdk/go-flags"
)

type options struct {
	Amount    uint64 `long:"amount" default:"500" description:"amount to send, in the wallet's smallest unit"`
	Fee       uint64 `long:"fee" default:"10" description:"transaction fee"`
	Funds     uint64 `long:"funds" default:"1000" description:"value of the single coin seeded into the sender's wallet"`
	MinHeight uint64 `long:"min-height" default:"0" description:"kernel lock height"`
	Height    uint64 `long:"height" default:"100" description:"simulated chain tip height"`
	Rounds    int    `long:"rounds" default:"8" description:"max Update rounds to drive before giving up"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "negotiatorsim:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	ctx := context.Background()
	log := walletlog.New("negotiatorsim", os.Stdout)

	network := txtest.NewNetwork()
	network.Height = opts.Height

	senderLedger := ledger.NewMemLedger([32]byte{1})
	receiverLedger := ledger.NewMemLedger([32]byte{2})
	senderLedger.SetHeight(opts.Height)
	receiverLedger.SetHeight(opts.Height)
	senderLedger.SeedCoin(opts.Funds)

	senderPeer := network.NewPeer("alice")
	receiverPeer := network.NewPeer("bob")

	txID := newTxID()

	sender, err := negotiate.NewSendRole(ctx, txID, "alice", "bob", opts.Amount, opts.Fee, opts.MinHeight, senderLedger, senderPeer, log)
	if err != nil {
		return fmt.Errorf("start send role: %w", err)
	}
	receiver := negotiate.NewReceiveRole(ctx, txID, "bob", "alice", receiverLedger, receiverPeer, log)

	senderPeer.Bind(func(ctx context.Context, msg gateway.Message) error { return sender.Update(ctx, msg) })
	receiverPeer.Bind(func(ctx context.Context, msg gateway.Message) error { return receiver.Update(ctx, msg) })

	if err := txtest.Drive(ctx, opts.Rounds, sender, receiver); err != nil {
		return fmt.Errorf("drive negotiation: %w", err)
	}

	log.Info().
		Str("sender_status", sender.Status(ctx).String()).
		Str("receiver_status", receiver.Status(ctx).String()).
		Msg("negotiation finished")
	return nil
}

func newTxID() paramstore.TxID {
	var id paramstore.TxID
	u := uuid.New()
	copy(id[:], u[:])
	return id
}

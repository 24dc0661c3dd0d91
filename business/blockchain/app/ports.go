// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/fd1az/dex-arbitrage-engine/business/blockchain/domain"
)

// BlockSubscriber streams new chain heads.
type BlockSubscriber interface {
	// Subscribe starts listening for new blocks and returns a channel of blocks.
	// The channel is closed when ctx ends or the subscriber is closed.
	Subscribe(ctx context.Context) (<-chan domain.Block, error)

	// State returns the current connection state.
	State() domain.ConnectionState
}

// GasOracle reports live gas prices per chain.
type GasOracle interface {
	GasPrice(ctx context.Context, chainID uint64) (domain.GasPrice, error)
}

package app

import (
	"context"

	"github.com/fd1az/dex-arbitrage-engine/business/blockchain/domain"
	"github.com/shopspring/decimal"
)

// BlockchainService is the blockchain context's public face: the block feed
// for scan triggers and live gas prices for cost estimates.
type BlockchainService struct {
	subscriber BlockSubscriber
	gasOracle  GasOracle
}

// NewBlockchainService creates a new BlockchainService. subscriber may be nil
// when no node is configured.
func NewBlockchainService(subscriber BlockSubscriber, gasOracle GasOracle) *BlockchainService {
	return &BlockchainService{
		subscriber: subscriber,
		gasOracle:  gasOracle,
	}
}

// HasBlockFeed reports whether a block subscriber is configured.
func (s *BlockchainService) HasBlockFeed() bool {
	return s.subscriber != nil
}

// SubscribeBlocks starts the block subscription and returns the channel.
func (s *BlockchainService) SubscribeBlocks(ctx context.Context) (<-chan domain.Block, error) {
	return s.subscriber.Subscribe(ctx)
}

// GasPriceGwei returns the live gas price for chainID in gwei.
func (s *BlockchainService) GasPriceGwei(ctx context.Context, chainID uint64) (decimal.Decimal, error) {
	p, err := s.gasOracle.GasPrice(ctx, chainID)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Gwei(), nil
}

// ConnectionState returns the block feed's connection state.
func (s *BlockchainService) ConnectionState() domain.ConnectionState {
	if s.subscriber == nil {
		return domain.StateDisconnected
	}
	return s.subscriber.State()
}

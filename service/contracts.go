package service

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/nebula-fhevm/types"
	"github.com/vocdoni/nebula-fhevm/web3"
)

var (
	_ ContractsService = (*web3.Contracts)(nil)
	_ ContractsService = (*MockContracts)(nil)
)

// ContractsService defines the interface for the NebulaVoteHub operations.
// web3.Contracts implements it against a chain and MockContracts in memory.
type ContractsService interface {
	NetworkChainID() uint64
	HubAddress() common.Address
	AccountAddress() common.Address

	MotionsCount(ctx context.Context) (uint64, error)
	ReadMotion(ctx context.Context, motionID uint64) (*types.Motion, error)
	MotionPhase(ctx context.Context, motionID uint64) (types.MotionPhase, error)
	QuotaMaxPerAddress(ctx context.Context, motionID uint64) (uint32, error)
	QuotaUsedBy(ctx context.Context, user common.Address, motionID uint64) (uint32, error)
	EncryptedAggregationOf(ctx context.Context, motionID uint64) ([]types.Handle, error)
	SnapshotOf(ctx context.Context, motionID uint64) (*types.Snapshot, error)

	CreateMotion(ctx context.Context, m *types.Motion, quota uint32) (uint64, error)
	SubmitShieldIndex(ctx context.Context, motionID uint64, input types.Handle, proof []byte) (common.Hash, error)
	SubmitShieldOneHot(ctx context.Context, motionID uint64, onehot []types.Handle, proof []byte) (common.Hash, error)
	FinalizeSnapshot(ctx context.Context, motionID uint64, counts []uint32, proof string) (common.Hash, error)
	WaitTx(hash common.Hash, timeout time.Duration) error

	MonitorMotionCreation(ctx context.Context, interval time.Duration) (<-chan *types.Motion, error)
}

package web3

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/vocdoni/nebula-fhevm/log"
	"github.com/vocdoni/nebula-fhevm/types"
)

// createMotionTimeout bounds the wait for the createMotion receipt, which
// carries the new motion id.
const createMotionTimeout = 2 * time.Minute

// MotionsCount returns the number of motions in the hub.
func (c *Contracts) MotionsCount(ctx context.Context) (uint64, error) {
	opts, cancel := callOpts(ctx)
	defer cancel()
	count, err := c.hub.MotionsCount(opts)
	if err != nil {
		return 0, fmt.Errorf("failed to get motions count: %w", err)
	}
	return count.Uint64(), nil
}

// ReadMotion returns the motion with the given id.
func (c *Contracts) ReadMotion(ctx context.Context, motionID uint64) (*types.Motion, error) {
	opts, cancel := callOpts(ctx)
	defer cancel()
	m, err := c.hub.ReadMotion(opts, new(big.Int).SetUint64(motionID))
	if err != nil {
		return nil, fmt.Errorf("failed to read motion %d: %w", motionID, err)
	}
	return hubMotion2Motion(motionID, m), nil
}

// MotionPhase returns the phase the hub reports for the motion.
func (c *Contracts) MotionPhase(ctx context.Context, motionID uint64) (types.MotionPhase, error) {
	opts, cancel := callOpts(ctx)
	defer cancel()
	phase, err := c.hub.MotionPhase(opts, new(big.Int).SetUint64(motionID))
	if err != nil {
		return 0, fmt.Errorf("failed to get phase of motion %d: %w", motionID, err)
	}
	return types.MotionPhase(phase), nil
}

// EncryptedAggregationOf returns the tally handles of the motion, one per
// choice.
func (c *Contracts) EncryptedAggregationOf(ctx context.Context, motionID uint64) ([]types.Handle, error) {
	opts, cancel := callOpts(ctx)
	defer cancel()
	raw, err := c.hub.EncryptedAggregationOf(opts, new(big.Int).SetUint64(motionID))
	if err != nil {
		return nil, fmt.Errorf("failed to get aggregation of motion %d: %w", motionID, err)
	}
	handles := make([]types.Handle, len(raw))
	for i, h := range raw {
		handles[i] = types.Handle(h)
	}
	return handles, nil
}

// QuotaMaxPerAddress returns how many ballots one address may cast.
func (c *Contracts) QuotaMaxPerAddress(ctx context.Context, motionID uint64) (uint32, error) {
	opts, cancel := callOpts(ctx)
	defer cancel()
	q, err := c.hub.QuotaMaxPerAddress(opts, new(big.Int).SetUint64(motionID))
	if err != nil {
		return 0, fmt.Errorf("failed to get quota of motion %d: %w", motionID, err)
	}
	return q, nil
}

// QuotaUsedBy returns how many ballots user already cast.
func (c *Contracts) QuotaUsedBy(ctx context.Context, user common.Address, motionID uint64) (uint32, error) {
	opts, cancel := callOpts(ctx)
	defer cancel()
	q, err := c.hub.QuotaUsedBy(opts, user, new(big.Int).SetUint64(motionID))
	if err != nil {
		return 0, fmt.Errorf("failed to get used quota of motion %d: %w", motionID, err)
	}
	return q, nil
}

// SnapshotOf returns the published result of the motion.
func (c *Contracts) SnapshotOf(ctx context.Context, motionID uint64) (*types.Snapshot, error) {
	opts, cancel := callOpts(ctx)
	defer cancel()
	s, err := c.hub.SnapshotOf(opts, new(big.Int).SetUint64(motionID))
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot of motion %d: %w", motionID, err)
	}
	snap := &types.Snapshot{
		Counts: s.Counts,
		Proof:  s.Proof,
	}
	if s.MotionId != nil {
		snap.MotionID = s.MotionId.Uint64()
	}
	if s.Ts != 0 {
		snap.Timestamp = time.Unix(int64(s.Ts), 0)
	}
	return snap, nil
}

// CreateMotion creates a motion and waits for it to be mined. It returns
// the id assigned by the hub.
func (c *Contracts) CreateMotion(ctx context.Context, m *types.Motion, quota uint32) (uint64, error) {
	if len(m.Choices) == 0 {
		return 0, fmt.Errorf("a motion needs at least one choice")
	}
	hash, err := c.transact(ctx, "create motion", func(opts *bind.TransactOpts) (*gethtypes.Transaction, error) {
		return c.hub.CreateMotion(opts, m.Title, m.Description, m.Choices,
			uint64(m.OpenAt.Unix()), uint64(m.CloseAt.Unix()), quota)
	})
	if err != nil {
		return 0, err
	}
	receipt, err := c.waitReceipt(ctx, hash, createMotionTimeout)
	if err != nil {
		return 0, err
	}
	for _, l := range receipt.Logs {
		if l.Address != c.hub.Address() {
			continue
		}
		event, err := c.hub.ParseMotionCreated(*l)
		if err != nil {
			continue
		}
		log.Infow("motion created", "motionId", event.MotionId.String(), "title", event.Title,
			"txHash", hash.Hex())
		return event.MotionId.Uint64(), nil
	}
	return 0, fmt.Errorf("no MotionCreated event in transaction %s", hash.Hex())
}

// SubmitShieldIndex casts a ballot made of one encrypted choice index.
func (c *Contracts) SubmitShieldIndex(ctx context.Context, motionID uint64, input types.Handle,
	proof []byte,
) (common.Hash, error) {
	return c.transact(ctx, "submit index ballot", func(opts *bind.TransactOpts) (*gethtypes.Transaction, error) {
		return c.hub.SubmitShieldIndex(opts, new(big.Int).SetUint64(motionID), input, proof)
	})
}

// SubmitShieldOneHot casts a ballot made of one encrypted value per choice.
func (c *Contracts) SubmitShieldOneHot(ctx context.Context, motionID uint64, onehot []types.Handle,
	proof []byte,
) (common.Hash, error) {
	raw := make([][32]byte, len(onehot))
	for i, h := range onehot {
		raw[i] = h
	}
	return c.transact(ctx, "submit one-hot ballot", func(opts *bind.TransactOpts) (*gethtypes.Transaction, error) {
		return c.hub.SubmitShieldOneHot(opts, new(big.Int).SetUint64(motionID), raw, proof)
	})
}

// FinalizeSnapshot publishes the decrypted counts of the motion.
func (c *Contracts) FinalizeSnapshot(ctx context.Context, motionID uint64, counts []uint32,
	proof string,
) (common.Hash, error) {
	return c.transact(ctx, "finalize snapshot", func(opts *bind.TransactOpts) (*gethtypes.Transaction, error) {
		return c.hub.FinalizeSnapshot(opts, new(big.Int).SetUint64(motionID), counts, proof)
	})
}

// MonitorMotionCreation monitors the creation of new motions by polling the
// MotionCreated logs of the hub every interval.
func (c *Contracts) MonitorMotionCreation(ctx context.Context, interval time.Duration) (<-chan *types.Motion, error) {
	ch := make(chan *types.Motion)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Warnw("exiting monitor motion creation")
				return
			case <-ticker.C:
				for _, m := range c.pollMotions(ctx) {
					select {
					case ch <- m:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return ch, nil
}

// pollMotions returns the motions created since the last poll.
func (c *Contracts) pollMotions(ctx context.Context) []*types.Motion {
	c.monitorMu.Lock()
	defer c.monitorMu.Unlock()
	ctxQuery, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	events, err := c.hub.FilterMotionCreated(&bind.FilterOpts{Start: c.lastWatchBlock, Context: ctxQuery})
	cancel()
	if err != nil {
		log.Warnw("failed to filter motion created, retrying", "err", err)
		return nil
	}
	var motions []*types.Motion
	for _, event := range events {
		id := event.MotionId.Uint64()
		if _, exists := c.knownMotions[id]; exists {
			continue
		}
		m, err := c.ReadMotion(ctx, id)
		if err != nil {
			log.Errorw(err, "failed to read motion while monitoring motion creation")
			continue
		}
		c.knownMotions[id] = struct{}{}
		c.lastWatchBlock = event.Raw.BlockNumber
		motions = append(motions, m)
	}
	return motions
}

func hubMotion2Motion(id uint64, m *HubMotion) *types.Motion {
	return &types.Motion{
		ID:          id,
		Title:       m.Title,
		Description: m.Description,
		Choices:     m.Choices,
		OpenAt:      time.Unix(int64(m.OpenAt), 0),
		CloseAt:     time.Unix(int64(m.CloseAt), 0),
		Finalized:   m.Finalized,
		Curator:     m.Curator,
	}
}

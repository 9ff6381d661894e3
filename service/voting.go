package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/nebula-fhevm/fhevm"
	"github.com/vocdoni/nebula-fhevm/log"
	"github.com/vocdoni/nebula-fhevm/types"
)

// DefaultTxTimeout is how long the voting workflow waits for a transaction.
const DefaultTxTimeout = 2 * time.Minute

var (
	// ErrInvalidChoice is returned for a choice outside the motion choices.
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrMotionNotOpen is returned when casting a ballot outside the voting
	// period.
	ErrMotionNotOpen = errors.New("motion not open")
	// ErrQuotaExceeded is returned when the account used all its ballots.
	ErrQuotaExceeded = errors.New("ballot quota exceeded")
	// ErrNoBallots is returned when asking for the results of a motion
	// without ballots.
	ErrNoBallots = errors.New("no ballots cast")
)

// OneHot returns a vector of n values, all zero but a one at choice.
func OneHot(n, choice int) ([]uint64, error) {
	if n <= 0 || choice < 0 || choice >= n {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidChoice, choice, n)
	}
	v := make([]uint64, n)
	v[choice] = 1
	return v, nil
}

// Voting runs the confidential voting workflow: ballots are encrypted with
// the adapter and submitted to the hub, tallies are read from the hub and
// decrypted by an authorized user.
type Voting struct {
	adapter   *fhevm.Adapter
	contracts ContractsService
	now       func() time.Time
	txTimeout time.Duration
}

// NewVoting returns a Voting workflow over the given adapter and hub.
func NewVoting(adapter *fhevm.Adapter, contracts ContractsService) *Voting {
	return &Voting{
		adapter:   adapter,
		contracts: contracts,
		now:       time.Now,
		txTimeout: DefaultTxTimeout,
	}
}

// SetClock replaces the clock used to check the voting period.
func (v *Voting) SetClock(now func() time.Time) {
	v.now = now
}

// Motions returns every motion of the hub, oldest first.
func (v *Voting) Motions(ctx context.Context) ([]*types.Motion, error) {
	count, err := v.contracts.MotionsCount(ctx)
	if err != nil {
		return nil, err
	}
	motions := make([]*types.Motion, 0, count)
	for id := uint64(1); id <= count; id++ {
		m, err := v.contracts.ReadMotion(ctx, id)
		if err != nil {
			return nil, err
		}
		motions = append(motions, m)
	}
	return motions, nil
}

// checkBallot reads the motion and checks the account can vote choice.
func (v *Voting) checkBallot(ctx context.Context, motionID uint64, choice int) (*types.Motion, error) {
	m, err := v.contracts.ReadMotion(ctx, motionID)
	if err != nil {
		return nil, err
	}
	if choice < 0 || choice >= len(m.Choices) {
		return nil, fmt.Errorf("%w: %d, motion %d has %d choices", ErrInvalidChoice, choice, motionID, len(m.Choices))
	}
	if phase := m.PhaseAt(v.now()); phase != types.MotionOpen {
		return nil, fmt.Errorf("%w: motion %d is %s", ErrMotionNotOpen, motionID, phase)
	}
	quota, err := v.contracts.QuotaMaxPerAddress(ctx, motionID)
	if err != nil {
		return nil, err
	}
	used, err := v.contracts.QuotaUsedBy(ctx, v.contracts.AccountAddress(), motionID)
	if err != nil {
		return nil, err
	}
	if quota > 0 && used >= quota {
		return nil, fmt.Errorf("%w: %d of %d used", ErrQuotaExceeded, used, quota)
	}
	return m, nil
}

// CastVote encrypts a one-hot ballot for choice and submits it. It returns
// once the transaction is mined.
func (v *Voting) CastVote(ctx context.Context, motionID uint64, choice int) (common.Hash, error) {
	m, err := v.checkBallot(ctx, motionID, choice)
	if err != nil {
		return common.Hash{}, err
	}
	values, err := OneHot(len(m.Choices), choice)
	if err != nil {
		return common.Hash{}, err
	}
	enc, err := v.adapter.Encrypt(ctx, v.contracts.HubAddress(), v.contracts.AccountAddress(), values,
		v.contracts.NetworkChainID())
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := v.contracts.SubmitShieldOneHot(ctx, motionID, enc.Handles, enc.InputProof)
	if err != nil {
		return common.Hash{}, err
	}
	if err := v.contracts.WaitTx(hash, v.txTimeout); err != nil {
		return hash, err
	}
	log.Infow("ballot cast", "motionId", motionID, "kind", "onehot", "txHash", hash.Hex())
	return hash, nil
}

// CastIndexVote encrypts the choice index as a single value and submits it.
func (v *Voting) CastIndexVote(ctx context.Context, motionID uint64, choice int) (common.Hash, error) {
	if _, err := v.checkBallot(ctx, motionID, choice); err != nil {
		return common.Hash{}, err
	}
	enc, err := v.adapter.Encrypt(ctx, v.contracts.HubAddress(), v.contracts.AccountAddress(),
		[]uint64{uint64(choice)}, v.contracts.NetworkChainID())
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := v.contracts.SubmitShieldIndex(ctx, motionID, enc.Handles[0], enc.InputProof)
	if err != nil {
		return common.Hash{}, err
	}
	if err := v.contracts.WaitTx(hash, v.txTimeout); err != nil {
		return hash, err
	}
	log.Infow("ballot cast", "motionId", motionID, "kind", "index", "txHash", hash.Hex())
	return hash, nil
}

// Results decrypts the tally of every choice of the motion, in choice
// order. The signer authorizes the decryption.
func (v *Voting) Results(ctx context.Context, motionID uint64, signer fhevm.Signer) ([]uint64, error) {
	if signer == nil {
		return nil, fhevm.ErrUserRejectedSignature.With("no signer")
	}
	handles, err := v.contracts.EncryptedAggregationOf(ctx, motionID)
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, fmt.Errorf("%w: motion %d", ErrNoBallots, motionID)
	}
	res, err := v.adapter.Decrypt(ctx, v.contracts.HubAddress(), handles, signer.Address(),
		v.contracts.NetworkChainID(), signer)
	if err != nil {
		return nil, err
	}
	return res.Project(handles), nil
}

// Finalize decrypts the tally and publishes it as the motion snapshot. The
// snapshot proof lists the aggregated handles the counts come from.
func (v *Voting) Finalize(ctx context.Context, motionID uint64, signer fhevm.Signer) (*types.Snapshot, error) {
	handles, err := v.contracts.EncryptedAggregationOf(ctx, motionID)
	if err != nil {
		return nil, err
	}
	results, err := v.Results(ctx, motionID, signer)
	if err != nil {
		return nil, err
	}
	counts := make([]uint32, len(results))
	for i, r := range results {
		if r > math.MaxUint32 {
			return nil, fmt.Errorf("count %d of choice %d overflows", r, i)
		}
		counts[i] = uint32(r)
	}
	hs := make([]string, len(handles))
	for i, h := range handles {
		hs[i] = h.Hex()
	}
	proof := strings.Join(hs, ",")
	hash, err := v.contracts.FinalizeSnapshot(ctx, motionID, counts, proof)
	if err != nil {
		return nil, err
	}
	if err := v.contracts.WaitTx(hash, v.txTimeout); err != nil {
		return nil, err
	}
	log.Infow("motion finalized", "motionId", motionID, "counts", counts, "txHash", hash.Hex())
	return v.contracts.SnapshotOf(ctx, motionID)
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/nebula-fhevm/api/client"
	"github.com/vocdoni/nebula-fhevm/api/wire"
	"github.com/vocdoni/nebula-fhevm/config"
	"github.com/vocdoni/nebula-fhevm/protocol"
	"github.com/vocdoni/nebula-fhevm/types"
)

// mockHubAddress is used when the network bundle has no hub deployment.
var mockHubAddress = common.HexToAddress("0x000000000000000000000000000000000000c0de")

type mockMotion struct {
	motion       types.Motion
	quota        uint32
	used         map[common.Address]uint32
	aggregate    []types.Handle
	indexBallots []types.Handle
	snapshot     *types.Snapshot
}

type mockHub struct {
	mu      sync.Mutex
	motions []*mockMotion
	created []*types.Motion
	network *config.Network
	signers []common.Address
	relayer *client.HTTPclient
	now     func() time.Time
}

// MockContracts implements ContractsService in memory, backed by the
// development relayer. Ballots are accepted only with an input proof signed
// by the relayer coprocessors for the hub and the sending account, like the
// contract does, and one-hot ballots are added up through the relayer.
type MockContracts struct {
	hub     *mockHub
	address common.Address
	account common.Address
}

// NewMockContracts returns a mock hub on network, sending as account. The
// coprocessor addresses are read from the development relayer of network.
func NewMockContracts(ctx context.Context, network *config.Network, account common.Address) (*MockContracts, error) {
	cli, err := client.New(network.RelayerURL)
	if err != nil {
		return nil, err
	}
	data, status, err := cli.Request(ctx, client.HTTPGET, nil, nil, wire.DevSignersEndpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("could not get relayer signers: status %d: %s", status, data)
	}
	signers := &wire.SignersResponse{}
	if err := json.Unmarshal(data, signers); err != nil {
		return nil, err
	}
	address := network.VoteHub
	if address == (common.Address{}) {
		address = mockHubAddress
	}
	return &MockContracts{
		hub: &mockHub{
			network: network.Copy(),
			signers: signers.Coprocessors,
			relayer: cli,
			now:     time.Now,
		},
		address: address,
		account: account,
	}, nil
}

// WithAccount returns a view of the same hub sending as account.
func (m *MockContracts) WithAccount(account common.Address) *MockContracts {
	return &MockContracts{hub: m.hub, address: m.address, account: account}
}

// SetClock replaces the clock used for motion phases.
func (m *MockContracts) SetClock(now func() time.Time) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	m.hub.now = now
}

func (m *MockContracts) NetworkChainID() uint64 { return m.hub.network.ChainID }

func (m *MockContracts) HubAddress() common.Address { return m.address }

func (m *MockContracts) AccountAddress() common.Address { return m.account }

// motion returns the motion with id. The hub lock must be held.
func (m *MockContracts) motion(id uint64) (*mockMotion, error) {
	if id == 0 || id > uint64(len(m.hub.motions)) {
		return nil, fmt.Errorf("execution reverted: unknown motion %d", id)
	}
	return m.hub.motions[id-1], nil
}

func (m *MockContracts) MotionsCount(context.Context) (uint64, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	return uint64(len(m.hub.motions)), nil
}

func (m *MockContracts) ReadMotion(_ context.Context, motionID uint64) (*types.Motion, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	mm, err := m.motion(motionID)
	if err != nil {
		return nil, err
	}
	cp := mm.motion
	cp.Choices = slices.Clone(mm.motion.Choices)
	return &cp, nil
}

func (m *MockContracts) MotionPhase(_ context.Context, motionID uint64) (types.MotionPhase, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	mm, err := m.motion(motionID)
	if err != nil {
		return 0, err
	}
	return mm.motion.PhaseAt(m.hub.now()), nil
}

func (m *MockContracts) QuotaMaxPerAddress(_ context.Context, motionID uint64) (uint32, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	mm, err := m.motion(motionID)
	if err != nil {
		return 0, err
	}
	return mm.quota, nil
}

func (m *MockContracts) QuotaUsedBy(_ context.Context, user common.Address, motionID uint64) (uint32, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	mm, err := m.motion(motionID)
	if err != nil {
		return 0, err
	}
	return mm.used[user], nil
}

func (m *MockContracts) EncryptedAggregationOf(_ context.Context, motionID uint64) ([]types.Handle, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	mm, err := m.motion(motionID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(mm.aggregate), nil
}

// IndexBallots returns the handles of the index ballots of a motion. The
// development relayer cannot compare ciphertexts, so they are kept apart
// from the one-hot tally.
func (m *MockContracts) IndexBallots(motionID uint64) ([]types.Handle, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	mm, err := m.motion(motionID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(mm.indexBallots), nil
}

func (m *MockContracts) SnapshotOf(_ context.Context, motionID uint64) (*types.Snapshot, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	mm, err := m.motion(motionID)
	if err != nil {
		return nil, err
	}
	if mm.snapshot == nil {
		return &types.Snapshot{}, nil
	}
	snap := *mm.snapshot
	snap.Counts = slices.Clone(mm.snapshot.Counts)
	return &snap, nil
}

func (m *MockContracts) CreateMotion(_ context.Context, motion *types.Motion, quota uint32) (uint64, error) {
	if len(motion.Choices) == 0 {
		return 0, fmt.Errorf("a motion needs at least one choice")
	}
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	mm := &mockMotion{
		motion: *motion,
		quota:  quota,
		used:   make(map[common.Address]uint32),
	}
	mm.motion.ID = uint64(len(m.hub.motions) + 1)
	mm.motion.Choices = slices.Clone(motion.Choices)
	mm.motion.Curator = m.account
	mm.motion.Finalized = false
	m.hub.motions = append(m.hub.motions, mm)
	created := mm.motion
	m.hub.created = append(m.hub.created, &created)
	return mm.motion.ID, nil
}

// acceptBallot checks the motion accepts a ballot from the account and that
// proof attests handles for the hub and the account. The hub lock must be
// held.
func (m *MockContracts) acceptBallot(motionID uint64, handles []types.Handle, proof []byte) (*mockMotion, error) {
	mm, err := m.motion(motionID)
	if err != nil {
		return nil, err
	}
	if phase := mm.motion.PhaseAt(m.hub.now()); phase != types.MotionOpen {
		return nil, fmt.Errorf("execution reverted: motion %d is %s", motionID, phase)
	}
	if mm.quota > 0 && mm.used[m.account] >= mm.quota {
		return nil, fmt.Errorf("execution reverted: quota exceeded")
	}
	attested, err := protocol.VerifyInputProof(m.hub.network, proof, m.address, m.account,
		m.hub.network.ChainID, m.hub.signers)
	if err != nil {
		return nil, fmt.Errorf("execution reverted: %w", err)
	}
	if !slices.Equal(attested, handles) {
		return nil, fmt.Errorf("execution reverted: handles not attested by the proof")
	}
	return mm, nil
}

func (m *MockContracts) SubmitShieldIndex(_ context.Context, motionID uint64, input types.Handle,
	proof []byte,
) (common.Hash, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	mm, err := m.acceptBallot(motionID, []types.Handle{input}, proof)
	if err != nil {
		return common.Hash{}, err
	}
	mm.indexBallots = append(mm.indexBallots, input)
	mm.used[m.account]++
	return crypto.Keccak256Hash(proof), nil
}

func (m *MockContracts) SubmitShieldOneHot(ctx context.Context, motionID uint64, onehot []types.Handle,
	proof []byte,
) (common.Hash, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	mm, err := m.acceptBallot(motionID, onehot, proof)
	if err != nil {
		return common.Hash{}, err
	}
	if len(onehot) != len(mm.motion.Choices) {
		return common.Hash{}, fmt.Errorf("execution reverted: got %d values for %d choices",
			len(onehot), len(mm.motion.Choices))
	}
	aggregate := slices.Clone(mm.aggregate)
	if aggregate == nil {
		aggregate = slices.Clone(onehot)
	} else {
		for i := range aggregate {
			if aggregate[i], err = m.add(ctx, aggregate[i], onehot[i]); err != nil {
				return common.Hash{}, err
			}
		}
	}
	mm.aggregate = aggregate
	mm.used[m.account]++
	return crypto.Keccak256Hash(proof), nil
}

// add asks the development relayer for the encrypted sum of a and b.
func (m *MockContracts) add(ctx context.Context, a, b types.Handle) (types.Handle, error) {
	data, status, err := m.hub.relayer.Request(ctx, client.HTTPPOST, &wire.AggregateRequest{
		ContractAddress: m.address,
		Handles:         []types.Handle{a, b},
	}, nil, wire.DevAggregateEndpoint)
	if err != nil {
		return types.Handle{}, err
	}
	if status != http.StatusOK {
		return types.Handle{}, fmt.Errorf("aggregate: status %d: %s", status, data)
	}
	resp := &wire.AggregateResponse{}
	if err := json.Unmarshal(data, resp); err != nil {
		return types.Handle{}, err
	}
	return resp.Handle, nil
}

func (m *MockContracts) FinalizeSnapshot(_ context.Context, motionID uint64, counts []uint32,
	proof string,
) (common.Hash, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	mm, err := m.motion(motionID)
	if err != nil {
		return common.Hash{}, err
	}
	if mm.motion.Finalized {
		return common.Hash{}, fmt.Errorf("execution reverted: motion %d already finalized", motionID)
	}
	if mm.motion.Curator != m.account {
		return common.Hash{}, fmt.Errorf("execution reverted: only the curator can finalize")
	}
	if len(counts) != len(mm.motion.Choices) {
		return common.Hash{}, fmt.Errorf("execution reverted: got %d counts for %d choices",
			len(counts), len(mm.motion.Choices))
	}
	mm.motion.Finalized = true
	mm.snapshot = &types.Snapshot{
		MotionID:  motionID,
		Counts:    slices.Clone(counts),
		Proof:     proof,
		Timestamp: m.hub.now(),
	}
	return crypto.Keccak256Hash([]byte(proof)), nil
}

// WaitTx returns immediately: mock transactions are final when sent.
func (m *MockContracts) WaitTx(common.Hash, time.Duration) error {
	return nil
}

// MonitorMotionCreation reports the motions created since the last tick.
func (m *MockContracts) MonitorMotionCreation(ctx context.Context, interval time.Duration) (<-chan *types.Motion, error) {
	ch := make(chan *types.Motion)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.hub.mu.Lock()
				created := m.hub.created
				m.hub.created = nil
				m.hub.mu.Unlock()
				for _, motion := range created {
					select {
					case ch <- motion:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return ch, nil
}

package web3

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

var hubABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(NebulaVoteHubABI))
	if err != nil {
		panic(fmt.Sprintf("invalid NebulaVoteHub ABI: %v", err))
	}
	return parsed
}()

// HubMotion is the readMotion output.
type HubMotion struct {
	Title       string
	Description string
	Choices     []string
	OpenAt      uint64
	CloseAt     uint64
	Finalized   bool
	Curator     common.Address
}

// HubSnapshot is the NebulaVoteHub.Snapshot struct.
type HubSnapshot struct {
	MotionId *big.Int
	Counts   []uint32
	Proof    string
	Ts       uint64
}

// HubMotionCreated is the MotionCreated event.
type HubMotionCreated struct {
	MotionId *big.Int
	Curator  common.Address
	Title    string
	OpenAt   uint64
	CloseAt  uint64
	Raw      gethtypes.Log
}

// NebulaVoteHub is a binding to a deployed NebulaVoteHub contract.
type NebulaVoteHub struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewNebulaVoteHub binds the contract at address through backend.
func NewNebulaVoteHub(address common.Address, backend bind.ContractBackend) *NebulaVoteHub {
	return &NebulaVoteHub{
		address:  address,
		contract: bind.NewBoundContract(address, hubABI, backend, backend, backend),
	}
}

// Address returns the contract address.
func (h *NebulaVoteHub) Address() common.Address {
	return h.address
}

func (h *NebulaVoteHub) call(opts *bind.CallOpts, method string, params ...any) ([]any, error) {
	var out []any
	if err := h.contract.Call(opts, &out, method, params...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

// MotionsCount returns the number of motions created so far. Motion ids go
// from 1 to the count.
func (h *NebulaVoteHub) MotionsCount(opts *bind.CallOpts) (*big.Int, error) {
	out, err := h.call(opts, "motionsCount")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// ProtocolID returns the FHE protocol id the contract was compiled for.
func (h *NebulaVoteHub) ProtocolID(opts *bind.CallOpts) (*big.Int, error) {
	out, err := h.call(opts, "protocolId")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// ReadMotion returns the public fields of a motion.
func (h *NebulaVoteHub) ReadMotion(opts *bind.CallOpts, motionID *big.Int) (*HubMotion, error) {
	out, err := h.call(opts, "readMotion", motionID)
	if err != nil {
		return nil, err
	}
	return &HubMotion{
		Title:       *abi.ConvertType(out[0], new(string)).(*string),
		Description: *abi.ConvertType(out[1], new(string)).(*string),
		Choices:     *abi.ConvertType(out[2], new([]string)).(*[]string),
		OpenAt:      *abi.ConvertType(out[3], new(uint64)).(*uint64),
		CloseAt:     *abi.ConvertType(out[4], new(uint64)).(*uint64),
		Finalized:   *abi.ConvertType(out[5], new(bool)).(*bool),
		Curator:     *abi.ConvertType(out[6], new(common.Address)).(*common.Address),
	}, nil
}

// MotionPhase returns the phase stored by the contract.
func (h *NebulaVoteHub) MotionPhase(opts *bind.CallOpts, motionID *big.Int) (uint8, error) {
	out, err := h.call(opts, "motionPhase", motionID)
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

// EncryptedAggregationOf returns the handles of the encrypted tally of each
// choice.
func (h *NebulaVoteHub) EncryptedAggregationOf(opts *bind.CallOpts, motionID *big.Int) ([][32]byte, error) {
	out, err := h.call(opts, "encryptedAggregationOf", motionID)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([][32]byte)).(*[][32]byte), nil
}

// QuotaMaxPerAddress returns how many ballots an address may submit.
func (h *NebulaVoteHub) QuotaMaxPerAddress(opts *bind.CallOpts, motionID *big.Int) (uint32, error) {
	out, err := h.call(opts, "quotaMaxPerAddress", motionID)
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint32)).(*uint32), nil
}

// QuotaUsedBy returns how many ballots user already submitted.
func (h *NebulaVoteHub) QuotaUsedBy(opts *bind.CallOpts, user common.Address, motionID *big.Int) (uint32, error) {
	out, err := h.call(opts, "quotaUsedBy", user, motionID)
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint32)).(*uint32), nil
}

// SnapshotOf returns the published snapshot of a motion.
func (h *NebulaVoteHub) SnapshotOf(opts *bind.CallOpts, motionID *big.Int) (*HubSnapshot, error) {
	out, err := h.call(opts, "snapshotOf", motionID)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(HubSnapshot)).(*HubSnapshot), nil
}

// CreateMotion sends a createMotion transaction.
func (h *NebulaVoteHub) CreateMotion(opts *bind.TransactOpts, title, description string, choices []string,
	openAt, closeAt uint64, quota uint32,
) (*gethtypes.Transaction, error) {
	return h.contract.Transact(opts, "createMotion", title, description, choices, openAt, closeAt, quota)
}

// SubmitShieldIndex sends an encrypted choice index.
func (h *NebulaVoteHub) SubmitShieldIndex(opts *bind.TransactOpts, motionID *big.Int, input [32]byte,
	proof []byte,
) (*gethtypes.Transaction, error) {
	return h.contract.Transact(opts, "submitShieldIndex", motionID, input, proof)
}

// SubmitShieldOneHot sends an encrypted one-hot ballot.
func (h *NebulaVoteHub) SubmitShieldOneHot(opts *bind.TransactOpts, motionID *big.Int, onehot [][32]byte,
	proof []byte,
) (*gethtypes.Transaction, error) {
	return h.contract.Transact(opts, "submitShieldOneHot", motionID, onehot, proof)
}

// FinalizeSnapshot publishes the decrypted counts of a motion.
func (h *NebulaVoteHub) FinalizeSnapshot(opts *bind.TransactOpts, motionID *big.Int, counts []uint32,
	proof string,
) (*gethtypes.Transaction, error) {
	return h.contract.Transact(opts, "finalizeSnapshot", motionID, counts, proof)
}

// ParseMotionCreated decodes a MotionCreated log.
func (h *NebulaVoteHub) ParseMotionCreated(log gethtypes.Log) (*HubMotionCreated, error) {
	event := &HubMotionCreated{}
	if err := h.contract.UnpackLog(event, "MotionCreated", log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}

// FilterMotionCreated returns the MotionCreated events in the range of opts.
func (h *NebulaVoteHub) FilterMotionCreated(opts *bind.FilterOpts) ([]*HubMotionCreated, error) {
	logs, sub, err := h.contract.FilterLogs(opts, "MotionCreated")
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()
	var events []*HubMotionCreated
	parse := func(l gethtypes.Log) error {
		event, err := h.ParseMotionCreated(l)
		if err != nil {
			return err
		}
		events = append(events, event)
		return nil
	}
	for {
		select {
		case l := <-logs:
			if err := parse(l); err != nil {
				return nil, err
			}
		case err := <-sub.Err():
			if err != nil {
				return nil, err
			}
			// every log is buffered before the subscription ends
			for {
				select {
				case l := <-logs:
					if err := parse(l); err != nil {
						return nil, err
					}
				default:
					return events, nil
				}
			}
		}
	}
}

package fhevm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/nebula-fhevm/api/wire"
	"github.com/vocdoni/nebula-fhevm/config"
	"github.com/vocdoni/nebula-fhevm/protocol"
	"github.com/vocdoni/nebula-fhevm/types"
)

func TestEncryptHandlesAndProof(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, config.Localhost)
	user := newWallet(c, env.network.ChainID)

	values := []uint64{0, 1, 0}
	enc, err := env.adapter.Encrypt(context.Background(), contractA, user.Address(), values, env.network.ChainID)
	c.Assert(err, qt.IsNil)
	c.Assert(enc.Handles, qt.HasLen, len(values))
	for i, h := range enc.Handles {
		c.Assert(protocol.HandleIndex(h), qt.Equals, i)
		c.Assert(protocol.HandleType(h), qt.Equals, protocol.FheTypeUint32)
		c.Assert(protocol.HandleChainID(h), qt.Equals, env.network.ChainID)
	}

	// the proof is accepted for the contract and the user it was made for
	signers := env.relayer.CoprocessorAddresses()
	got, err := protocol.VerifyInputProof(env.network, enc.InputProof, contractA, user.Address(),
		env.network.ChainID, signers)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, enc.Handles)

	// and rejected for any other contract or user
	_, err = protocol.VerifyInputProof(env.network, enc.InputProof, contractB, user.Address(),
		env.network.ChainID, signers)
	c.Assert(err, qt.ErrorIs, protocol.ErrInputProofRejected)
	_, err = protocol.VerifyInputProof(env.network, enc.InputProof, contractA, userB,
		env.network.ChainID, signers)
	c.Assert(err, qt.ErrorIs, protocol.ErrInputProofRejected)
}

func TestEncryptInvalidValues(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, config.Localhost)

	_, err := env.adapter.Encrypt(context.Background(), contractA, userB, nil, env.network.ChainID)
	c.Assert(err, qt.ErrorIs, ErrInvalidPlaintextValue)
	_, err = env.adapter.Encrypt(context.Background(), contractA, userB,
		[]uint64{1, math.MaxUint32 + 1}, env.network.ChainID)
	c.Assert(err, qt.ErrorIs, ErrInvalidPlaintextValue)

	// validation happens before any network traffic
	c.Assert(env.rec.count("/"), qt.Equals, 0)

	// the largest 32 bit value is fine
	enc, err := env.adapter.Encrypt(context.Background(), contractA, userB,
		[]uint64{math.MaxUint32}, env.network.ChainID)
	c.Assert(err, qt.IsNil)
	c.Assert(enc.Handles, qt.HasLen, 1)
}

func TestChainWithoutBundle(t *testing.T) {
	c := qt.New(t)

	// the default bundle is used and its relayer is contacted
	var hosts []string
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		hosts = append(hosts, r.URL.Host)
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader("down")),
			Header:     make(http.Header),
			Request:    r,
		}, nil
	})}
	_, err := New(WithHTTPClient(hc)).Encrypt(context.Background(), contractA, userB, []uint64{1}, 5)
	c.Assert(err, qt.ErrorIs, ErrKeyMaterialUnavailable)
	c.Assert(hosts, qt.DeepEquals, []string{strings.TrimPrefix(config.LocalRelayerURL, "http://")})

	// a resolver that cannot produce a bundle fails the session init
	failing := WithNetworkResolver(func(chainID uint64) (*config.Network, error) {
		return nil, fmt.Errorf("no bundle for %d", chainID)
	})
	_, err = New(failing).Encrypt(context.Background(), contractA, userB, []uint64{1}, 5)
	c.Assert(err, qt.ErrorIs, ErrKeyMaterialUnavailable)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	for _, base := range []config.Network{config.Localhost, config.Sepolia} {
		t.Run(base.Name, func(t *testing.T) {
			c := qt.New(t)
			env := newTestEnv(c, base)
			user := newWallet(c, env.network.ChainID)
			ctx := context.Background()

			values := []uint64{3, 0, 4000000000, 1}
			enc, err := env.adapter.Encrypt(ctx, contractA, user.Address(), values, env.network.ChainID)
			c.Assert(err, qt.IsNil)

			res, err := env.adapter.Decrypt(ctx, contractA, enc.Handles, user.Address(),
				env.network.ChainID, user)
			c.Assert(err, qt.IsNil)
			c.Assert(res.Project(enc.Handles), qt.DeepEquals, values)
			strict, err := res.ProjectStrict(enc.Handles)
			c.Assert(err, qt.IsNil)
			c.Assert(strict, qt.DeepEquals, values)
		})
	}
}

func TestDecryptUsesFreshKeypairs(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, config.Localhost)
	user := newWallet(c, env.network.ChainID)
	ctx := context.Background()

	enc, err := env.adapter.Encrypt(ctx, contractA, user.Address(), []uint64{9}, env.network.ChainID)
	c.Assert(err, qt.IsNil)
	for i := 0; i < 2; i++ {
		_, err := env.adapter.Decrypt(ctx, contractA, enc.Handles, user.Address(), env.network.ChainID, user)
		c.Assert(err, qt.IsNil)
	}
	c.Assert(env.rec.decryptKeys, qt.HasLen, 2)
	c.Assert(env.rec.decryptKeys[0], qt.Not(qt.DeepEquals), env.rec.decryptKeys[1])
}

func TestDecryptSignatureRejected(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, config.Localhost)
	user := newWallet(c, env.network.ChainID)
	ctx := context.Background()

	enc, err := env.adapter.Encrypt(ctx, contractA, user.Address(), []uint64{1}, env.network.ChainID)
	c.Assert(err, qt.IsNil)

	_, err = env.adapter.Decrypt(ctx, contractA, enc.Handles, user.Address(), env.network.ChainID,
		&rejectingSigner{addr: user.Address()})
	c.Assert(err, qt.ErrorIs, ErrUserRejectedSignature)
	c.Assert(errors.Is(err, ErrDecryptionServiceError), qt.IsFalse)
	c.Assert(env.rec.count(wire.UserDecryptEndpoint), qt.Equals, 0)
}

func TestDecryptServiceError(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, config.Localhost)
	user := newWallet(c, env.network.ChainID)
	other := newWallet(c, env.network.ChainID)
	ctx := context.Background()

	enc, err := env.adapter.Encrypt(ctx, contractA, user.Address(), []uint64{1}, env.network.ChainID)
	c.Assert(err, qt.IsNil)

	// the request claims to come from user but is signed by another wallet
	_, err = env.adapter.Decrypt(ctx, contractA, enc.Handles, user.Address(), env.network.ChainID, other)
	c.Assert(err, qt.ErrorIs, ErrDecryptionServiceError)
	c.Assert(env.rec.count(wire.UserDecryptEndpoint), qt.Equals, 1)

	// unknown handle
	_, err = env.adapter.Decrypt(ctx, contractA, []types.Handle{{0x01}}, user.Address(),
		env.network.ChainID, user)
	c.Assert(err, qt.ErrorIs, ErrDecryptionServiceError)
}

func TestKeyServiceDown(t *testing.T) {
	c := qt.New(t)
	srv, rec := failingKeyServer(c)
	network := config.Localhost.Copy()
	network.RelayerURL = srv.URL
	adapter := New(WithNetworkResolver(func(uint64) (*config.Network, error) {
		return network.Copy(), nil
	}))
	user := newWallet(c, network.ChainID)
	ctx := context.Background()

	_, err := adapter.Encrypt(ctx, contractA, user.Address(), []uint64{1}, network.ChainID)
	c.Assert(err, qt.ErrorIs, ErrKeyMaterialUnavailable)

	_, err = adapter.Decrypt(ctx, contractA, []types.Handle{{0x01}}, user.Address(), network.ChainID, user)
	c.Assert(err, qt.ErrorIs, ErrKeyMaterialUnavailable)

	c.Assert(rec.count(wire.KeyURLEndpoint), qt.Equals, 2)
	c.Assert(rec.count(wire.KeysEndpoint+"/"), qt.Equals, 0)
	c.Assert(rec.count(wire.InputProofEndpoint), qt.Equals, 0)
	c.Assert(rec.count(wire.UserDecryptEndpoint), qt.Equals, 0)
}

func TestDecryptContextCanceled(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, config.Localhost)
	user := newWallet(c, env.network.ChainID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := env.adapter.Decrypt(ctx, contractA, []types.Handle{{0x01}}, user.Address(),
		env.network.ChainID, user)
	c.Assert(err, qt.ErrorIs, ErrKeyMaterialUnavailable)
	c.Assert(err, qt.ErrorIs, context.Canceled)
}

func TestDecryptInvalidArguments(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, config.Localhost)
	ctx := context.Background()

	res, err := env.adapter.Decrypt(ctx, contractA, nil, userB, env.network.ChainID, &rejectingSigner{})
	c.Assert(err, qt.ErrorIs, ErrDecryptionServiceError)
	c.Assert(res, qt.IsNil)

	handles := []types.Handle{{0x01}}
	_, err = env.adapter.Decrypt(ctx, contractA, handles, userB, env.network.ChainID, nil)
	c.Assert(err, qt.ErrorIs, ErrUserRejectedSignature)

	c.Assert(env.rec.count("/"), qt.Equals, 0)
}

func TestValidityWindowStartsNow(t *testing.T) {
	c := qt.New(t)
	now := time.Now().Truncate(time.Second)
	env := newTestEnv(c, config.Localhost, WithClock(func() time.Time { return now }))
	user := newWallet(c, env.network.ChainID)
	ctx := context.Background()

	enc, err := env.adapter.Encrypt(ctx, contractA, user.Address(), []uint64{5}, env.network.ChainID)
	c.Assert(err, qt.IsNil)
	signer := &recordingSigner{inner: user}
	_, err = env.adapter.Decrypt(ctx, contractA, enc.Handles, user.Address(), env.network.ChainID, signer)
	c.Assert(err, qt.IsNil)
	c.Assert(signer.messages, qt.HasLen, 1)
	msg := signer.messages[0]
	c.Assert(msg["startTimestamp"], qt.Equals, fmt.Sprint(now.Unix()))
	c.Assert(msg["durationDays"], qt.Equals, fmt.Sprint(protocol.DefaultDurationDays))
	c.Assert(msg["contractAddresses"], qt.DeepEquals, []interface{}{contractA.Hex()})
}

var _ Signer = (*recordingSigner)(nil)

type recordingSigner struct {
	inner    Signer
	messages []map[string]interface{}
}

func (s *recordingSigner) SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error) {
	s.messages = append(s.messages, data.Message)
	return s.inner.SignTypedData(ctx, data)
}

func (s *recordingSigner) Address() common.Address { return s.inner.Address() }

func (s *recordingSigner) ChainID() uint64 { return s.inner.ChainID() }

package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/nebula-fhevm/api"
	"github.com/vocdoni/nebula-fhevm/api/wire"
	"github.com/vocdoni/nebula-fhevm/config"
	"github.com/vocdoni/nebula-fhevm/crypto/ethereum"
	"github.com/vocdoni/nebula-fhevm/fhevm"
	"github.com/vocdoni/nebula-fhevm/storage"
	"github.com/vocdoni/nebula-fhevm/types"
	"go.vocdoni.io/dvote/db/metadb"
)

// votingEnv is a development relayer, a mock hub on top of it and an
// adapter reaching both.
type votingEnv struct {
	network     *config.Network
	adapter     *fhevm.Adapter
	hub         *MockContracts
	curator     *ethereum.SignKeys
	inputProofs atomic.Int64
}

func newVotingEnv(c *qt.C) *votingEnv {
	env := &votingEnv{network: config.Localhost.Copy()}
	relayer, err := api.New(&api.APIConfig{
		Storage:      storage.New(metadb.NewTest(c.TB)),
		Network:      env.network,
		Coprocessors: 2,
	})
	c.Assert(err, qt.IsNil)
	router := relayer.Router()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, wire.InputProofEndpoint) {
			env.inputProofs.Add(1)
		}
		router.ServeHTTP(w, r)
	}))
	c.Cleanup(srv.Close)
	env.network.RelayerURL = srv.URL

	env.adapter = fhevm.New(fhevm.WithNetworkResolver(func(chainID uint64) (*config.Network, error) {
		if chainID != env.network.ChainID {
			return nil, errors.New("unknown chain")
		}
		return env.network.Copy(), nil
	}))
	env.curator = newWallet(c)
	env.hub, err = NewMockContracts(context.Background(), env.network, env.curator.Address())
	c.Assert(err, qt.IsNil)
	return env
}

func newWallet(c *qt.C) *ethereum.SignKeys {
	s := ethereum.NewSignKeys()
	c.Assert(s.Generate(), qt.IsNil)
	s.SetChainID(config.LocalChainID)
	return s
}

// openMotion creates a motion open for the next hour.
func (env *votingEnv) openMotion(c *qt.C, quota uint32, choices ...string) uint64 {
	now := time.Now()
	id, err := env.hub.CreateMotion(context.Background(), &types.Motion{
		Title:   "motion",
		Choices: choices,
		OpenAt:  now.Add(-time.Minute),
		CloseAt: now.Add(time.Hour),
	}, quota)
	c.Assert(err, qt.IsNil)
	return id
}

// voter returns a wallet and a voting workflow sending from it.
func (env *votingEnv) voter(c *qt.C) (*ethereum.SignKeys, *Voting) {
	w := newWallet(c)
	return w, NewVoting(env.adapter, env.hub.WithAccount(w.Address()))
}

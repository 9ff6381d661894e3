package fhevm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/nebula-fhevm/api"
	"github.com/vocdoni/nebula-fhevm/api/wire"
	"github.com/vocdoni/nebula-fhevm/config"
	"github.com/vocdoni/nebula-fhevm/crypto/ethereum"
	"github.com/vocdoni/nebula-fhevm/storage"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	contractA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	contractB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	userB     = common.HexToAddress("0x000000000000000000000000000000000000b0b0")
)

// recorder counts the requests reaching the relayer and keeps the public
// keys sent in user decryption requests.
type recorder struct {
	mu          sync.Mutex
	paths       []string
	decryptKeys [][]byte
}

func (r *recorder) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.paths = append(r.paths, req.URL.Path)
		r.mu.Unlock()
		if req.URL.Path == wire.UserDecryptEndpoint {
			body, _ := io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewReader(body))
			var ud wire.UserDecryptRequest
			if err := json.Unmarshal(body, &ud); err == nil {
				r.mu.Lock()
				r.decryptKeys = append(r.decryptKeys, ud.PublicKey)
				r.mu.Unlock()
			}
		}
		next.ServeHTTP(w, req)
	})
}

func (r *recorder) count(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.paths {
		if strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

// testEnv is a development relayer serving one network plus an adapter
// configured to reach it.
type testEnv struct {
	relayer *api.API
	network *config.Network
	rec     *recorder
	adapter *Adapter
}

// newTestEnv starts a relayer for a copy of base, served on base.ChainID.
func newTestEnv(c *qt.C, base config.Network, opts ...Option) *testEnv {
	network := base.Copy()
	relayer, err := api.New(&api.APIConfig{
		Storage: storage.New(metadb.NewTest(c.TB)),
		Network: network,
	})
	c.Assert(err, qt.IsNil)
	rec := &recorder{}
	srv := httptest.NewServer(rec.wrap(relayer.Router()))
	c.Cleanup(srv.Close)
	network.RelayerURL = srv.URL

	resolver := func(chainID uint64) (*config.Network, error) {
		if chainID != network.ChainID {
			return nil, errors.New("unknown chain")
		}
		return network.Copy(), nil
	}
	opts = append([]Option{WithNetworkResolver(resolver)}, opts...)
	return &testEnv{
		relayer: relayer,
		network: network,
		rec:     rec,
		adapter: New(opts...),
	}
}

func newWallet(c *qt.C, chainID uint64) *ethereum.SignKeys {
	s := ethereum.NewSignKeys()
	c.Assert(s.Generate(), qt.IsNil)
	s.SetChainID(chainID)
	return s
}

// rejectingSigner is a wallet whose user declines every request.
type rejectingSigner struct {
	addr common.Address
}

func (s *rejectingSigner) SignTypedData(context.Context, apitypes.TypedData) ([]byte, error) {
	return nil, errors.New("user denied message signature")
}

func (s *rejectingSigner) Address() common.Address { return s.addr }

func (s *rejectingSigner) ChainID() uint64 { return config.LocalChainID }

// failingKeyServer answers every key metadata request with a 500 and counts
// blob downloads.
func failingKeyServer(c *qt.C) (*httptest.Server, *recorder) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == wire.KeyURLEndpoint {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("blob"))
	})))
	c.Cleanup(srv.Close)
	return srv, rec
}

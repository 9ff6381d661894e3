// Package api implements the development relayer: an HTTP service that holds
// the FHE keys, verifies encrypted inputs on behalf of the coprocessors and
// serves authenticated user decryptions. It speaks the same protocol as the
// hosted relayer, so the adapter can run against it locally and in tests.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/vocdoni/nebula-fhevm/api/wire"
	"github.com/vocdoni/nebula-fhevm/config"
	"github.com/vocdoni/nebula-fhevm/crypto/ethereum"
	"github.com/vocdoni/nebula-fhevm/crypto/fhe"
	"github.com/vocdoni/nebula-fhevm/log"
	stg "github.com/vocdoni/nebula-fhevm/storage"
)

const (
	kmsSignerName         = "kms"
	coprocessorSignerName = "coprocessor-%d"

	// DefaultCoprocessors is the number of coprocessor signers used when the
	// configuration does not set one.
	DefaultCoprocessors = 1
)

// APIConfig type represents the configuration for the API HTTP server.
// If Port is 0 the server is not started and the router is expected to be
// mounted by the caller (e.g. httptest).
type APIConfig struct {
	Host    string
	Port    int
	Storage *stg.Storage
	// Network is the deployment the relayer serves. Its chain id, ACL and
	// EIP-712 verifying contracts are used to derive handles and to check
	// signatures.
	Network *config.Network
	// Coprocessors is the number of input verification signers.
	Coprocessors int
	// Now overrides the clock used to check validity windows.
	Now func() time.Time
}

// API type represents the development relayer HTTP server.
type API struct {
	router  *chi.Mux
	storage *stg.Storage
	network *config.Network
	now     func() time.Time

	keys      *fhe.KeySet
	keyRecord *stg.KeySet
	decryptor *fhe.Decryptor
	evaluator *fhe.Evaluator

	kms          *ethereum.SignKeys
	coprocessors []*ethereum.SignKeys
}

// New creates a new API instance with the given configuration. It loads the
// key set and the signers from the storage, creating them on first run, and
// starts the HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	if conf.Network == nil {
		return nil, fmt.Errorf("missing network configuration")
	}
	a := &API{
		storage: conf.Storage,
		network: conf.Network.Copy(),
		now:     conf.Now,
	}
	if a.now == nil {
		a.now = time.Now
	}
	if err := a.loadKeySet(); err != nil {
		return nil, err
	}
	ncop := conf.Coprocessors
	if ncop <= 0 {
		ncop = DefaultCoprocessors
	}
	if err := a.loadSigners(ncop); err != nil {
		return nil, err
	}

	// Initialize router
	a.initRouter()
	if conf.Port == 0 {
		return a, nil
	}
	go func() {
		log.Infow("Starting API server", "host", conf.Host, "port", conf.Port,
			"chainId", a.network.ChainID, "keySet", a.keyRecord.ID)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// KMSAddress returns the address that signs user decryption responses.
func (a *API) KMSAddress() common.Address {
	return a.kms.Address()
}

// CoprocessorAddresses returns the addresses that sign input proofs.
func (a *API) CoprocessorAddresses() []common.Address {
	addrs := make([]common.Address, len(a.coprocessors))
	for i, s := range a.coprocessors {
		addrs[i] = s.Address()
	}
	return addrs
}

// loadKeySet reads the active FHE key set or generates and stores a new one.
func (a *API) loadKeySet() error {
	rec, err := a.storage.ActiveKeySet()
	switch {
	case err == nil:
	case errors.Is(err, stg.ErrNotFound):
		if rec, err = a.generateKeySet(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("could not read key set: %w", err)
	}
	keys, err := fhe.LoadKeySet(rec.Params, rec.SecretKey, rec.PublicKey)
	if err != nil {
		return fmt.Errorf("could not load key set %s: %w", rec.ID, err)
	}
	a.keys = keys
	a.keyRecord = rec
	a.decryptor = fhe.NewDecryptor(keys)
	a.evaluator = fhe.NewEvaluator(keys.Params)
	return nil
}

func (a *API) generateKeySet() (*stg.KeySet, error) {
	keys, err := fhe.GenerateKeys(fhe.ParamsClass2048)
	if err != nil {
		return nil, fmt.Errorf("could not generate key set: %w", err)
	}
	rec := &stg.KeySet{
		ID:          uuid.NewString(),
		Class:       fhe.ParamsClass2048,
		PublicKeyID: uuid.NewString(),
		ParamsID:    uuid.NewString(),
		CreatedAt:   a.now().Unix(),
	}
	if rec.Params, err = keys.PublicParamsBytes(); err != nil {
		return nil, err
	}
	if rec.PublicKey, err = keys.PublicKeyBytes(); err != nil {
		return nil, err
	}
	if rec.SecretKey, err = keys.SecretKeyBytes(); err != nil {
		return nil, err
	}
	if err := a.storage.StoreKeySet(rec); err != nil {
		return nil, err
	}
	log.Infow("generated new key set", "id", rec.ID, "class", rec.Class)
	return rec, nil
}

// loadSigners reads the KMS and coprocessor keys, creating missing ones.
func (a *API) loadSigners(coprocessors int) error {
	var err error
	if a.kms, err = a.signer(kmsSignerName); err != nil {
		return err
	}
	a.coprocessors = make([]*ethereum.SignKeys, coprocessors)
	for i := range a.coprocessors {
		if a.coprocessors[i], err = a.signer(fmt.Sprintf(coprocessorSignerName, i)); err != nil {
			return err
		}
	}
	return nil
}

func (a *API) signer(name string) (*ethereum.SignKeys, error) {
	s := ethereum.NewSignKeys()
	priv, err := a.storage.SignerKey(name)
	switch {
	case err == nil:
		if err := s.AddHexKey(priv); err != nil {
			return nil, fmt.Errorf("invalid %s key: %w", name, err)
		}
	case errors.Is(err, stg.ErrNotFound):
		if err := s.Generate(); err != nil {
			return nil, err
		}
		_, priv = s.HexString()
		if err := a.storage.SetSignerKey(name, priv); err != nil {
			return nil, fmt.Errorf("could not store %s key: %w", name, err)
		}
		log.Infow("generated relayer signer", "name", name, "address", s.AddressString())
	default:
		return nil, fmt.Errorf("could not read %s key: %w", name, err)
	}
	s.SetChainID(a.network.GatewayChainID)
	return s, nil
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", wire.PingEndpoint, "method", "GET")
	a.router.Get(wire.PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", wire.KeyURLEndpoint, "method", "GET")
	a.router.Get(wire.KeyURLEndpoint, a.keyURL)
	log.Infow("register handler", "endpoint", wire.KeyEndpoint, "method", "GET")
	a.router.Get(wire.KeyEndpoint, a.keyBlob)
	log.Infow("register handler", "endpoint", wire.InputProofEndpoint, "method", "POST")
	a.router.Post(wire.InputProofEndpoint, a.inputProof)
	log.Infow("register handler", "endpoint", wire.UserDecryptEndpoint, "method", "POST")
	a.router.Post(wire.UserDecryptEndpoint, a.userDecrypt)
	log.Infow("register handler", "endpoint", wire.DevAggregateEndpoint, "method", "POST")
	a.router.Post(wire.DevAggregateEndpoint, a.aggregate)
	log.Infow("register handler", "endpoint", wire.DevSignersEndpoint, "method", "GET")
	a.router.Get(wire.DevSignersEndpoint, a.signers)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}

package fhevm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/nebula-fhevm/api/wire"
	"github.com/vocdoni/nebula-fhevm/config"
)

// mapFetcher serves canned responses by URL.
type mapFetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	status    map[string]int
	calls     []string
}

func (f *mapFetcher) Fetch(_ context.Context, url string) ([]byte, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if s, ok := f.status[url]; ok {
		return nil, s, nil
	}
	data, ok := f.responses[url]
	if !ok {
		return nil, 0, fmt.Errorf("connection refused")
	}
	return data, http.StatusOK, nil
}

const testRelayer = "http://relayer.test"

func keyURLDocument(c *qt.C, info wire.KeyURLInfo) []byte {
	data, err := json.Marshal(&wire.KeyURLResponse{Response: info})
	c.Assert(err, qt.IsNil)
	return data
}

func completeInfo() wire.KeyURLInfo {
	return wire.KeyURLInfo{
		FheKeyInfo: []wire.FheKeyInfo{{FhePublicKey: wire.KeyBlobRef{
			DataID: "pk-1",
			URLs:   []string{testRelayer + "/v1/keys/pk-1"},
		}}},
		CRS: map[string]wire.KeyBlobRef{config.PublicParamsClass: {
			DataID: "crs-1",
			URLs:   []string{testRelayer + "/v1/keys/crs-1"},
		}},
	}
}

func testNetwork() *config.Network {
	n := config.Localhost.Copy()
	n.RelayerURL = testRelayer
	return n
}

func TestFetchKeyMaterial(t *testing.T) {
	c := qt.New(t)
	f := &mapFetcher{responses: map[string][]byte{
		testRelayer + wire.KeyURLEndpoint:  keyURLDocument(c, completeInfo()),
		testRelayer + "/v1/keys/pk-1":      []byte("public key"),
		testRelayer + "/v1/keys/crs-1":     []byte("public params"),
	}}
	kf := &KeyFetcher{Fetcher: f, Network: testNetwork()}
	for _, mode := range []TransportMode{TransportDefault, TransportRelayer} {
		km, err := kf.FetchKeyMaterial(context.Background(), mode)
		c.Assert(err, qt.IsNil)
		c.Assert(km.PublicKeyID, qt.Equals, "pk-1")
		c.Assert(km.PublicParamsID, qt.Equals, "crs-1")
		c.Assert(string(km.PublicKey), qt.Equals, "public key")
		c.Assert(string(km.PublicParams), qt.Equals, "public params")
	}
	// metadata first, then both blobs, for every call
	c.Assert(f.calls, qt.HasLen, 6)
	c.Assert(f.calls[0], qt.Equals, testRelayer+wire.KeyURLEndpoint)
	c.Assert(f.calls[3], qt.Equals, testRelayer+wire.KeyURLEndpoint)
}

func TestFetchKeyMaterialIncomplete(t *testing.T) {
	c := qt.New(t)

	noKey := completeInfo()
	noKey.FheKeyInfo = nil
	noCRS := completeInfo()
	delete(noCRS.CRS, config.PublicParamsClass)
	noURL := completeInfo()
	noURL.FheKeyInfo[0].FhePublicKey.URLs = nil
	noID := completeInfo()
	noID.CRS[config.PublicParamsClass] = wire.KeyBlobRef{URLs: []string{testRelayer + "/v1/keys/crs-1"}}

	for name, info := range map[string]wire.KeyURLInfo{
		"no public key": noKey,
		"no params":     noCRS,
		"no urls":       noURL,
		"no data id":    noID,
	} {
		c.Run(name, func(c *qt.C) {
			f := &mapFetcher{responses: map[string][]byte{
				testRelayer + wire.KeyURLEndpoint: keyURLDocument(c, info),
			}}
			kf := &KeyFetcher{Fetcher: f, Network: testNetwork()}
			_, err := kf.FetchKeyMaterial(context.Background(), TransportRelayer)
			c.Assert(err, qt.ErrorIs, ErrKeyMaterialUnavailable)
			c.Assert(f.calls, qt.HasLen, 1)
		})
	}

	c.Run("malformed metadata", func(c *qt.C) {
		f := &mapFetcher{responses: map[string][]byte{
			testRelayer + wire.KeyURLEndpoint: []byte("<html>"),
		}}
		kf := &KeyFetcher{Fetcher: f, Network: testNetwork()}
		_, err := kf.FetchKeyMaterial(context.Background(), TransportRelayer)
		c.Assert(err, qt.ErrorIs, ErrKeyMaterialUnavailable)
	})
}

func TestFetchKeyMaterialBlobFailure(t *testing.T) {
	c := qt.New(t)

	c.Run("status", func(c *qt.C) {
		f := &mapFetcher{
			responses: map[string][]byte{
				testRelayer + wire.KeyURLEndpoint: keyURLDocument(c, completeInfo()),
				testRelayer + "/v1/keys/pk-1":     []byte("public key"),
			},
			status: map[string]int{testRelayer + "/v1/keys/crs-1": http.StatusNotFound},
		}
		kf := &KeyFetcher{Fetcher: f, Network: testNetwork()}
		km, err := kf.FetchKeyMaterial(context.Background(), TransportRelayer)
		c.Assert(err, qt.ErrorIs, ErrKeyMaterialUnavailable)
		c.Assert(km, qt.IsNil)
	})

	c.Run("empty", func(c *qt.C) {
		f := &mapFetcher{responses: map[string][]byte{
			testRelayer + wire.KeyURLEndpoint: keyURLDocument(c, completeInfo()),
			testRelayer + "/v1/keys/pk-1":     {},
			testRelayer + "/v1/keys/crs-1":    []byte("public params"),
		}}
		kf := &KeyFetcher{Fetcher: f, Network: testNetwork()}
		_, err := kf.FetchKeyMaterial(context.Background(), TransportRelayer)
		c.Assert(err, qt.ErrorIs, ErrKeyMaterialUnavailable)
	})

	c.Run("unreachable", func(c *qt.C) {
		kf := &KeyFetcher{Fetcher: &mapFetcher{}, Network: testNetwork()}
		_, err := kf.FetchKeyMaterial(context.Background(), TransportRelayer)
		c.Assert(err, qt.ErrorIs, ErrKeyMaterialUnavailable)
		c.Assert(err, qt.ErrorMatches, ".*connection refused")
	})
}

func writeStatic(c *qt.C, dir, name string, content []byte) *config.StaticKey {
	path := filepath.Join(dir, name)
	c.Assert(os.WriteFile(path, content, 0o600), qt.IsNil)
	sum := sha256.Sum256(content)
	return &config.StaticKey{ID: name, Path: path, Hash: hex.EncodeToString(sum[:])}
}

func TestStaticKeyMaterial(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	network := testNetwork()
	network.PublicKey = writeStatic(c, dir, "pk", []byte("pinned key"))
	network.PublicParams = writeStatic(c, dir, "params", []byte("pinned params"))

	f := &mapFetcher{responses: map[string][]byte{
		testRelayer + wire.KeyURLEndpoint: keyURLDocument(c, completeInfo()),
		testRelayer + "/v1/keys/pk-1":     []byte("public key"),
		testRelayer + "/v1/keys/crs-1":    []byte("public params"),
	}}
	kf := &KeyFetcher{Fetcher: f, Network: network}

	// the library default uses the pinned keys without any request
	km, err := kf.FetchKeyMaterial(context.Background(), TransportDefault)
	c.Assert(err, qt.IsNil)
	c.Assert(string(km.PublicKey), qt.Equals, "pinned key")
	c.Assert(km.PublicKeyID, qt.Equals, "pk")
	c.Assert(f.calls, qt.HasLen, 0)

	// the relayer always serves its own keys
	km, err = kf.FetchKeyMaterial(context.Background(), TransportRelayer)
	c.Assert(err, qt.IsNil)
	c.Assert(string(km.PublicKey), qt.Equals, "public key")

	// content not matching the pinned hash is rejected
	c.Assert(os.WriteFile(network.PublicParams.Path, []byte("tampered"), 0o600), qt.IsNil)
	_, err = kf.FetchKeyMaterial(context.Background(), TransportDefault)
	c.Assert(err, qt.ErrorIs, ErrKeyMaterialUnavailable)
	c.Assert(err, qt.ErrorMatches, ".*hash mismatch.*")

	// without a hash the id is derived from the content
	network.PublicParams.Hash = ""
	network.PublicParams.ID = ""
	km, err = kf.FetchKeyMaterial(context.Background(), TransportDefault)
	c.Assert(err, qt.IsNil)
	sum := sha256.Sum256([]byte("tampered"))
	c.Assert(km.PublicParamsID, qt.Equals, hex.EncodeToString(sum[:]))
}

func TestKeyMaterialValidate(t *testing.T) {
	c := qt.New(t)
	var km *KeyMaterial
	c.Assert(km.Validate(), qt.ErrorMatches, "no key material")
	km = &KeyMaterial{PublicKeyID: "a", PublicKey: []byte{1}, PublicParamsID: "b"}
	c.Assert(km.Validate(), qt.ErrorMatches, "empty public params")
	km.PublicParams = []byte{2}
	c.Assert(km.Validate(), qt.IsNil)
}

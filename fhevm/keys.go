package fhevm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/vocdoni/nebula-fhevm/api/wire"
	"github.com/vocdoni/nebula-fhevm/config"
	"github.com/vocdoni/nebula-fhevm/log"
	"golang.org/x/sync/errgroup"
)

// KeyMaterial is the public key and the public parameters the library needs
// to encrypt. It is fetched for every operation and owned by it.
type KeyMaterial struct {
	PublicKeyID    string
	PublicKey      []byte
	PublicParamsID string
	PublicParams   []byte
}

// Validate checks that every part of the key material is present.
func (km *KeyMaterial) Validate() error {
	switch {
	case km == nil:
		return fmt.Errorf("no key material")
	case km.PublicKeyID == "":
		return fmt.Errorf("missing public key id")
	case len(km.PublicKey) == 0:
		return fmt.Errorf("empty public key")
	case km.PublicParamsID == "":
		return fmt.Errorf("missing public params id")
	case len(km.PublicParams) == 0:
		return fmt.Errorf("empty public params")
	}
	return nil
}

// BlobFetcher downloads a resource and returns its body and status code. The
// api/client HTTPclient implements it.
type BlobFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, int, error)
}

// KeyFetcher obtains the key material of a network.
type KeyFetcher struct {
	Fetcher BlobFetcher
	Network *config.Network
}

// FetchKeyMaterial returns the key material for the transport mode. The
// library default mode reads the keys pinned by the network bundle when
// there are any; otherwise, and always in relayer mode, the keys are
// downloaded from the key custody service in two rounds: the metadata
// document and then both blobs concurrently. Any failure fails the whole
// call with ErrKeyMaterialUnavailable.
func (f *KeyFetcher) FetchKeyMaterial(ctx context.Context, mode TransportMode) (*KeyMaterial, error) {
	if f.Network == nil {
		return nil, ErrKeyMaterialUnavailable.With("no network configuration")
	}
	if mode == TransportDefault && f.Network.HasStaticKeys() {
		return loadStaticKeys(f.Network)
	}
	if f.Fetcher == nil {
		return nil, ErrKeyMaterialUnavailable.With("no blob fetcher")
	}
	if f.Network.RelayerURL == "" {
		return nil, ErrKeyMaterialUnavailable.Withf("no key service configured for %s", f.Network.Name)
	}

	metaURL := strings.TrimSuffix(f.Network.RelayerURL, "/") + wire.KeyURLEndpoint
	data, status, err := f.Fetcher.Fetch(ctx, metaURL)
	if err != nil {
		return nil, ErrKeyMaterialUnavailable.WithErr(err)
	}
	if status != http.StatusOK {
		return nil, ErrKeyMaterialUnavailable.Withf("key metadata: status %d", status)
	}
	meta := &wire.KeyURLResponse{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, ErrKeyMaterialUnavailable.Withf("malformed key metadata: %v", err)
	}
	if len(meta.Response.FheKeyInfo) == 0 {
		return nil, ErrKeyMaterialUnavailable.With("no public key in metadata")
	}
	pkRef := meta.Response.FheKeyInfo[0].FhePublicKey
	crsRef, ok := meta.Response.CRS[config.PublicParamsClass]
	if !ok {
		return nil, ErrKeyMaterialUnavailable.Withf("no public params of class %s", config.PublicParamsClass)
	}
	if pkRef.DataID == "" || len(pkRef.URLs) == 0 || crsRef.DataID == "" || len(crsRef.URLs) == 0 {
		return nil, ErrKeyMaterialUnavailable.With("incomplete key metadata")
	}

	km := &KeyMaterial{PublicKeyID: pkRef.DataID, PublicParamsID: crsRef.DataID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var kerr error
		km.PublicKey, kerr = f.fetchBlob(gctx, "public key", pkRef.URLs[0])
		return kerr
	})
	g.Go(func() error {
		var perr error
		km.PublicParams, perr = f.fetchBlob(gctx, "public params", crsRef.URLs[0])
		return perr
	})
	if err := g.Wait(); err != nil {
		return nil, ErrKeyMaterialUnavailable.WithErr(err)
	}
	if err := km.Validate(); err != nil {
		return nil, ErrKeyMaterialUnavailable.WithErr(err)
	}
	log.Debugw("key material fetched", "network", f.Network.Name, "publicKeyId", km.PublicKeyID,
		"publicParamsId", km.PublicParamsID, "publicKeySize", len(km.PublicKey),
		"publicParamsSize", len(km.PublicParams))
	return km, nil
}

func (f *KeyFetcher) fetchBlob(ctx context.Context, name, url string) ([]byte, error) {
	data, status, err := f.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d", name, status)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: empty blob", name)
	}
	return data, nil
}

// loadStaticKeys reads the key material pinned by the network bundle and
// checks its hashes when they are set.
func loadStaticKeys(network *config.Network) (*KeyMaterial, error) {
	pk, pkID, err := loadStaticKey(network.PublicKey)
	if err != nil {
		return nil, ErrKeyMaterialUnavailable.Withf("public key: %v", err)
	}
	params, paramsID, err := loadStaticKey(network.PublicParams)
	if err != nil {
		return nil, ErrKeyMaterialUnavailable.Withf("public params: %v", err)
	}
	km := &KeyMaterial{
		PublicKeyID:    pkID,
		PublicKey:      pk,
		PublicParamsID: paramsID,
		PublicParams:   params,
	}
	if err := km.Validate(); err != nil {
		return nil, ErrKeyMaterialUnavailable.WithErr(err)
	}
	return km, nil
}

func loadStaticKey(k *config.StaticKey) ([]byte, string, error) {
	content, err := os.ReadFile(k.Path)
	if err != nil {
		return nil, "", err
	}
	hash := sha256.Sum256(content)
	if k.Hash != "" {
		expected, err := hex.DecodeString(strings.TrimPrefix(k.Hash, "0x"))
		if err != nil {
			return nil, "", fmt.Errorf("invalid hash: %w", err)
		}
		if !bytes.Equal(hash[:], expected) {
			return nil, "", fmt.Errorf("hash mismatch for %s", k.Path)
		}
	}
	id := k.ID
	if id == "" {
		id = hex.EncodeToString(hash[:])
	}
	return content, id, nil
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/nebula-fhevm/api"
	"github.com/vocdoni/nebula-fhevm/config"
	"github.com/vocdoni/nebula-fhevm/log"
	"github.com/vocdoni/nebula-fhevm/service"
	"github.com/vocdoni/nebula-fhevm/storage"
	"github.com/vocdoni/nebula-fhevm/web3"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func main() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	host := flag.String("host", "0.0.0.0", "host to listen on")
	port := flag.Int("port", 3311, "port to listen on")
	datadir := flag.String("datadir", filepath.Join(home, ".nebula-relayer"), "directory for the relayer database")
	chainID := flag.Uint64("chainid", config.LocalChainID, "chain id of the network served")
	coprocessors := flag.Int("coprocessors", api.DefaultCoprocessors, "number of input verification signers")
	logLevel := flag.String("loglevel", log.LogLevelInfo, "log level (debug, info, warn, error)")
	w3rpc := flag.String("w3rpc", "", "web3 rpc endpoint, enables the motion monitor")
	hub := flag.String("contract", "", "NebulaVoteHub address watched by the motion monitor")
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	network, err := config.NetworkByChainID(*chainID)
	if err != nil {
		log.Fatal(err)
	}
	database, err := metadb.New(db.TypePebble, filepath.Join(*datadir, "db"))
	if err != nil {
		log.Fatal(err)
	}
	stg := storage.New(database)
	defer stg.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	relayer := service.NewRelayer(stg, network, *host, *port, *coprocessors)
	if err := relayer.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer relayer.Stop()
	log.Infow("relayer ready", "url", relayer.URL(), "kms", relayer.API().KMSAddress().Hex(),
		"coprocessors", len(relayer.API().CoprocessorAddresses()))

	if *w3rpc != "" {
		addr := network.VoteHub
		if *hub != "" {
			addr = common.HexToAddress(*hub)
		}
		contracts, err := web3.NewContracts(addr, *w3rpc)
		if err != nil {
			log.Fatal(err)
		}
		monitor := service.NewMotionMonitor(contracts, stg, 10*time.Second)
		if err := monitor.Start(ctx); err != nil {
			log.Fatal(err)
		}
		defer monitor.Stop()
		log.Infow("watching motions", "hub", addr.Hex(), "chainId", contracts.ChainID)
	}

	<-ctx.Done()
	log.Info("shutting down")
}

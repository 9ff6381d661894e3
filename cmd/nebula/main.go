package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/nebula-fhevm/config"
	"github.com/vocdoni/nebula-fhevm/crypto/ethereum"
	"github.com/vocdoni/nebula-fhevm/fhevm"
	"github.com/vocdoni/nebula-fhevm/log"
	"github.com/vocdoni/nebula-fhevm/service"
	"github.com/vocdoni/nebula-fhevm/types"
	"github.com/vocdoni/nebula-fhevm/web3"
)

const actions = "motions, create, vote, vote-index, results, finalize"

func main() {
	action := flag.String("action", "motions", "action to run: "+actions)
	chainID := flag.Uint64("chainid", config.SepoliaChainID, "chain id of the network bundle")
	w3rpc := flag.String("w3rpc", "", "web3 rpc endpoints, comma separated (default: the network ones)")
	relayerURL := flag.String("relayer", "", "relayer URL (default: the network one)")
	privKey := flag.String("privkey", "", "private key of the Ethereum account")
	hub := flag.String("contract", "", "NebulaVoteHub address (default: the network one)")
	motionID := flag.Uint64("motion", 0, "motion id")
	choice := flag.Int("choice", 0, "choice index to vote for")
	title := flag.String("title", "", "title of the new motion")
	description := flag.String("description", "", "description of the new motion")
	choices := flag.String("choices", "yes,no,abstain", "choices of the new motion, comma separated")
	duration := flag.Duration("duration", 24*time.Hour, "voting period of the new motion")
	quota := flag.Uint("quota", 1, "ballots per address for the new motion (0 is unlimited)")
	logLevel := flag.String("loglevel", log.LogLevelInfo, "log level (debug, info, warn, error)")
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	network, err := config.NetworkByChainID(*chainID)
	if err != nil {
		log.Fatal(err)
	}
	if *relayerURL != "" {
		network.RelayerURL = *relayerURL
	}
	if *hub != "" {
		network.VoteHub = common.HexToAddress(*hub)
	}
	if network.VoteHub == (common.Address{}) {
		log.Fatal("no NebulaVoteHub address for this network, use -contract")
	}
	rpcs := network.Web3RPCs
	if *w3rpc != "" {
		rpcs = strings.Split(*w3rpc, ",")
	}
	if len(rpcs) == 0 {
		log.Fatal("no web3 rpc endpoints, use -w3rpc")
	}

	contracts, err := web3.NewContracts(network.VoteHub, rpcs[0])
	if err != nil {
		log.Fatal(err)
	}
	if contracts.ChainID != network.ChainID {
		log.Fatalf("rpc serves chain %d, expected %d", contracts.ChainID, network.ChainID)
	}
	for _, rpc := range rpcs[1:] {
		if err := contracts.AddWeb3Endpoint(rpc); err != nil {
			log.Warnw("failed to add endpoint", "rpc", rpc, "error", err.Error())
		}
	}

	var wallet *ethereum.SignKeys
	if *privKey != "" {
		if err := contracts.SetAccountPrivateKey(*privKey); err != nil {
			log.Fatal(err)
		}
		wallet = ethereum.NewSignKeys()
		if err := wallet.AddHexKey(*privKey); err != nil {
			log.Fatal(err)
		}
		wallet.SetChainID(network.ChainID)
	}
	needsWallet := func() {
		if wallet == nil {
			log.Fatalf("action %q needs -privkey", *action)
		}
	}

	adapter := fhevm.New(fhevm.WithNetworkResolver(func(id uint64) (*config.Network, error) {
		if id != network.ChainID {
			return nil, fmt.Errorf("no network bundle configured for chain %d", id)
		}
		return network.Copy(), nil
	}))
	voting := service.NewVoting(adapter, contracts)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch *action {
	case "motions":
		motions, err := voting.Motions(ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, m := range motions {
			fmt.Println(m.String())
		}
	case "create":
		needsWallet()
		now := time.Now()
		id, err := contracts.CreateMotion(ctx, &types.Motion{
			Title:       *title,
			Description: *description,
			Choices:     strings.Split(*choices, ","),
			OpenAt:      now,
			CloseAt:     now.Add(*duration),
		}, uint32(*quota))
		if err != nil {
			log.Fatal(err)
		}
		log.Infow("motion created", "motionId", id)
	case "vote":
		needsWallet()
		hash, err := voting.CastVote(ctx, *motionID, *choice)
		if err != nil {
			log.Fatal(err)
		}
		log.Infow("vote cast", "motionId", *motionID, "txHash", hash.Hex())
	case "vote-index":
		needsWallet()
		hash, err := voting.CastIndexVote(ctx, *motionID, *choice)
		if err != nil {
			log.Fatal(err)
		}
		log.Infow("vote cast", "motionId", *motionID, "txHash", hash.Hex())
	case "results":
		needsWallet()
		m, err := contracts.ReadMotion(ctx, *motionID)
		if err != nil {
			log.Fatal(err)
		}
		results, err := voting.Results(ctx, *motionID, wallet)
		if err != nil {
			log.Fatal(err)
		}
		for i, r := range results {
			name := fmt.Sprintf("choice %d", i)
			if i < len(m.Choices) {
				name = m.Choices[i]
			}
			fmt.Printf("%s: %d\n", name, r)
		}
	case "finalize":
		needsWallet()
		snap, err := voting.Finalize(ctx, *motionID, wallet)
		if err != nil {
			log.Fatal(err)
		}
		log.Infow("motion finalized", "motionId", snap.MotionID, "counts", snap.Counts)
	default:
		log.Fatalf("unknown action %q, expected one of: %s", *action, actions)
	}
}

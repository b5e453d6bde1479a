package main

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/nildb-agentkit/cmd/flags"
	"github.com/ruteri/nildb-agentkit/cryptoutils"
	"github.com/ruteri/nildb-agentkit/httpserver"
	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/ruteri/nildb-agentkit/storage"
	"github.com/urfave/cli/v2"
)

var flagNodes = &cli.IntFlag{
	Name:  "nodes",
	Value: 3,
	Usage: "number of simulated nodes",
}

var flagHost = &cli.StringFlag{
	Name:  "host",
	Value: "127.0.0.1",
	Usage: "host to listen on",
}

var flagBasePort = &cli.IntFlag{
	Name:  "base-port",
	Value: 8081,
	Usage: "port of the first node, node i listens on base-port+i",
}

var flagRegistrationAddr = &cli.StringFlag{
	Name:  "registration-addr",
	Value: "127.0.0.1:8080",
	Usage: "address of the registration service (POST /api/config)",
}

var flagOrgDID = &cli.StringSliceFlag{
	Name:     "org-did",
	Required: true,
	Usage:    "organization DID allowed to use the nodes, repeat for several",
}

var flagOrgPubkey = &cli.StringSliceFlag{
	Name:     "org-pubkey",
	Required: true,
	Usage:    "hex secp256k1 public key of each --org-did, in the same order",
}

var flagStore = &cli.StringSliceFlag{
	Name:  "store",
	Value: cli.NewStringSlice("memory://"),
	Usage: "shard store URI, e.g. memory:// or sqlite:///var/lib/nodesim/node-{node}.db; repeat to mirror",
}

func main() {
	app := &cli.App{
		Name:  "nodesim",
		Usage: "Run simulated nildb storage nodes and a registration service",
		Flags: append([]cli.Flag{
			flagNodes,
			flagHost,
			flagBasePort,
			flagRegistrationAddr,
			flagOrgDID,
			flagOrgPubkey,
			flagStore,
			flags.LogServiceFlagFn("nodesim"),
		}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			orgDIDs := cCtx.StringSlice(flagOrgDID.Name)
			orgKeys := cCtx.StringSlice(flagOrgPubkey.Name)
			if len(orgDIDs) != len(orgKeys) {
				return errors.New("every --org-did needs exactly one --org-pubkey")
			}
			n := cCtx.Int(flagNodes.Name)
			if n < 1 {
				return errors.New("--nodes must be at least 1")
			}

			storeFactory := storage.NewStoreFactory(logger)
			host := cCtx.String(flagHost.Name)
			basePort := cCtx.Int(flagBasePort.Name)

			var servers []*httpserver.Server
			var configs []interfaces.NodeConfig
			for i := 0; i < n; i++ {
				nodeKey, err := crypto.GenerateKey()
				if err != nil {
					return err
				}
				did := cryptoutils.NilDID(&nodeKey.PublicKey)

				store, err := storeFactory.CreateMultiStore(cCtx.StringSlice(flagStore.Name), i)
				if err != nil {
					return fmt.Errorf("node %d: %w", i, err)
				}
				defer store.Close()

				nodeLog := logger.With("node", i)
				handler, err := httpserver.NewNodeHandler(httpserver.NodeHandlerConfig{
					DID:   did,
					Store: store,
					Log:   nodeLog,
				})
				if err != nil {
					return err
				}
				for j, org := range orgDIDs {
					pub, err := cryptoutils.ParsePublicKeyHex(orgKeys[j])
					if err != nil {
						return fmt.Errorf("--org-pubkey for %s: %w", org, err)
					}
					handler.RegisterOrg(org, pub)
				}

				addr := net.JoinHostPort(host, strconv.Itoa(basePort+i))
				cfg := flags.ConfigureServer(cCtx, nodeLog, addr)
				if i > 0 {
					// one metrics server serves every node
					cfg.MetricsAddr = ""
				}
				srv, err := httpserver.New(cfg, handler)
				if err != nil {
					return err
				}
				servers = append(servers, srv)
				configs = append(configs, interfaces.NodeConfig{URL: "http://" + addr, DID: did})

				nodeLog.Info("Simulated node configured",
					"did", did,
					"listenAddress", addr,
					"store", store.Name())
			}

			regCfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flagRegistrationAddr.Name))
			regCfg.MetricsAddr = ""
			regSrv, err := httpserver.New(regCfg, httpserver.NewRegistrationHandler(configs, logger))
			if err != nil {
				return err
			}
			servers = append(servers, regSrv)

			for _, srv := range servers {
				srv.RunInBackground()
			}

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Simulator is running, press Ctrl+C to stop",
				"registrationURL", "http://"+cCtx.String(flagRegistrationAddr.Name)+"/api/config")
			<-exit
			logger.Info("Shutdown signal received")

			for _, srv := range servers {
				srv.Shutdown()
			}
			logger.Info("Simulator shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

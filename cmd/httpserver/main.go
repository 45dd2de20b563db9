package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/evidence-seal/cmd/flags"
	"github.com/ruteri/evidence-seal/cmd/kmscommon"
	"github.com/ruteri/evidence-seal/common"
	"github.com/ruteri/evidence-seal/config"
	"github.com/ruteri/evidence-seal/httpserver"
	"github.com/ruteri/evidence-seal/ledger"
	"github.com/ruteri/evidence-seal/seal"
	"github.com/ruteri/evidence-seal/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	allFlags := append([]cli.Flag{flags.ListenAddrFlag, flags.LogServiceFlagFn("evidence-seal")}, flags.CommonFlags...)
	allFlags = append(allFlags, kmscommon.KmsFlags...)

	app := &cli.App{
		Name:  "seal-server",
		Usage: "Serve evidence sealing and vote audit API",
		Flags: allFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			cfg, err := config.Load()
			if err != nil {
				logger.Error("Failed to load configuration", "err", err)
				return err
			}

			keyring, err := kmscommon.SetupKeyring(cCtx, cfg, logger)
			if err != nil {
				logger.Error("Failed to set up seal keys", "err", err)
				return err
			}
			engine := seal.NewEngine(seal.Config{Keyring: keyring})

			var packs *storage.PackStore
			locations, err := cfg.StorageLocations()
			if err != nil {
				logger.Error("Invalid storage configuration", "err", err)
				return err
			}
			if len(locations) > 0 {
				storageFactory := storage.NewStorageBackendFactory(logger)
				backend, err := storageFactory.CreateMultiBackend(locations)
				if err != nil {
					logger.Error("Failed to create storage backends", "err", err)
					return err
				}
				packs = storage.NewPackStore(backend, logger)
				logger.Info("Pack storage configured", "backends", backend.LocationURI())
			} else {
				logger.Warn("No pack storage configured, sealed packs will not be persisted")
			}

			if cfg.LedgerDir == "" {
				logger.Warn("Audit ledger is in memory, votes will not survive a restart")
			}
			auditLedger, err := ledger.OpenBadgerLedger(cfg.LedgerDir, logger)
			if err != nil {
				logger.Error("Failed to open audit ledger", "err", err)
				return err
			}
			defer auditLedger.Close()

			handler := httpserver.NewHandler(engine, packs, ledger.NewRecorder(auditLedger, logger), logger)

			serverCfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))
			server, err := httpserver.New(serverCfg, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server", "version", common.Version)
			server.RunInBackground()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

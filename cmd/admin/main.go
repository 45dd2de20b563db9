package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/ruteri/evidence-seal/api"
	"github.com/ruteri/evidence-seal/api/clients"
	"github.com/ruteri/evidence-seal/cmd/flags"
	"github.com/ruteri/evidence-seal/cmd/kmscommon"
	"github.com/ruteri/evidence-seal/common"
	"github.com/ruteri/evidence-seal/config"
	"github.com/ruteri/evidence-seal/cryptoutils"
	"github.com/ruteri/evidence-seal/interfaces"
	"github.com/ruteri/evidence-seal/kms"
	"github.com/ruteri/evidence-seal/merkle"
	"github.com/ruteri/evidence-seal/seal"
	"github.com/ruteri/evidence-seal/vote"
	"github.com/urfave/cli/v2"
)

var flagInput *cli.StringFlag = &cli.StringFlag{
	Name:    "in",
	Aliases: []string{"i"},
	Value:   "-",
	Usage:   "input JSON file, '-' for stdin",
}

var flagRemote *cli.BoolFlag = &cli.BoolFlag{
	Name:  "remote",
	Usage: "use the sealing service at --server-addr instead of local keys",
}

var flagStore *cli.BoolFlag = &cli.BoolFlag{
	Name:  "store",
	Usage: "persist the sealed pack on the server (needs --remote)",
}

var flagSession *cli.StringFlag = &cli.StringFlag{
	Name:     "session",
	Required: true,
	Usage:    "voting session ID",
}

var flagShares *cli.IntFlag = &cli.IntFlag{
	Name:  "shares",
	Value: 3,
	Usage: "number of key shares to create",
}

var flagThreshold *cli.IntFlag = &cli.IntFlag{
	Name:  "threshold",
	Value: 2,
	Usage: "number of key shares needed to reconstruct the key",
}

var flagKeyBytes *cli.IntFlag = &cli.IntFlag{
	Name:  "bytes",
	Value: 32,
	Usage: "random bytes in the generated key",
}

func sealProvider(cCtx *cli.Context) (api.SealProvider, error) {
	if cCtx.Bool(flagRemote.Name) {
		return clients.NewSealClient(cCtx.String(flags.ServerAddrFlag.Name)), nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   cCtx.Bool(flags.LogDebugFlag.Name),
		Service: "seal-admin",
		Output:  os.Stderr,
	})
	keyring, err := kmscommon.SetupKeyring(cCtx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &localProvider{engine: seal.NewEngine(seal.Config{Keyring: keyring})}, nil
}

func electionClient(cCtx *cli.Context) api.ElectionProvider {
	return clients.NewSealClient(cCtx.String(flags.ServerAddrFlag.Name))
}

func main() {
	providerFlags := append([]cli.Flag{flagInput, flagRemote, flags.ServerAddrFlag, flags.LogDebugFlag}, kmscommon.KmsFlags...)

	app := &cli.App{
		Name:    "seal-admin",
		Usage:   "Seal and verify evidence packs, audit vote chains and manage seal keys",
		Version: common.Version,
		Commands: []*cli.Command{
			{
				Name:      "seal",
				Usage:     "seal a pack index and print the sealed pack",
				ArgsUsage: " ",
				Flags:     append(providerFlags, flagStore),
				Action: func(cCtx *cli.Context) error {
					provider, err := sealProvider(cCtx)
					if err != nil {
						return err
					}
					in, err := openInput(cCtx.String(flagInput.Name))
					if err != nil {
						return err
					}
					defer in.Close()
					return runSeal(provider, in, os.Stdout, cCtx.Bool(flagStore.Name))
				},
			},
			{
				Name:  "verify",
				Usage: "verify a sealed pack and print the diagnostic",
				Flags: providerFlags,
				Action: func(cCtx *cli.Context) error {
					provider, err := sealProvider(cCtx)
					if err != nil {
						return err
					}
					in, err := openInput(cCtx.String(flagInput.Name))
					if err != nil {
						return err
					}
					defer in.Close()
					return runVerify(provider, in, os.Stdout)
				},
			},
			{
				Name:  "fetch",
				Usage: "fetch a stored sealed pack by content ID",
				Flags: []cli.Flag{flags.ServerAddrFlag},
				Action: func(cCtx *cli.Context) error {
					id, err := interfaces.NewContentIDFromHex(cCtx.Args().First())
					if err != nil {
						return err
					}
					resp, err := clients.NewSealClient(cCtx.String(flags.ServerAddrFlag.Name)).GetPack(id)
					if err != nil {
						return err
					}
					return writeJSON(os.Stdout, resp)
				},
			},
			{
				Name:      "merkle-root",
				Usage:     "print the Merkle root of the given hex SHA-256 hashes",
				ArgsUsage: "<hash>...",
				Action: func(cCtx *cli.Context) error {
					root, err := merkle.ComputeRoot(cCtx.Args().Slice())
					if err != nil {
						return err
					}
					fmt.Println(root)
					return nil
				},
			},
			{
				Name:  "election",
				Usage: "cast and audit ballots on the sealing service",
				Subcommands: []*cli.Command{
					{
						Name:      "cast",
						ArgsUsage: "<option-id> <voter-id>",
						Flags:     []cli.Flag{flagSession, flags.ServerAddrFlag},
						Action: func(cCtx *cli.Context) error {
							if cCtx.NArg() != 2 {
								return fmt.Errorf("expected <option-id> <voter-id>")
							}
							resp, err := electionClient(cCtx).CastVote(cCtx.String(flagSession.Name), api.CastVoteRequest{
								OptionID: cCtx.Args().Get(0),
								VoterID:  cCtx.Args().Get(1),
							})
							if err != nil {
								return err
							}
							return writeJSON(os.Stdout, resp)
						},
					},
					{
						Name:  "audit",
						Flags: []cli.Flag{flagSession, flags.ServerAddrFlag},
						Action: func(cCtx *cli.Context) error {
							return runAudit(electionClient(cCtx), cCtx.String(flagSession.Name), os.Stdout)
						},
					},
					{
						Name:      "confirm",
						ArgsUsage: "<receipt-id> <code>",
						Flags:     []cli.Flag{flagSession, flags.ServerAddrFlag},
						Action: func(cCtx *cli.Context) error {
							ok, err := electionClient(cCtx).ConfirmReceipt(cCtx.String(flagSession.Name), cCtx.Args().Get(0), cCtx.Args().Get(1))
							if err != nil {
								return err
							}
							if !ok {
								return fmt.Errorf("verification code does not match receipt")
							}
							fmt.Println("confirmed")
							return nil
						},
					},
					{
						Name:  "snapshot",
						Flags: []cli.Flag{flagSession, flags.ServerAddrFlag},
						Action: func(cCtx *cli.Context) error {
							resp, err := electionClient(cCtx).Snapshot(cCtx.String(flagSession.Name))
							if err != nil {
								return err
							}
							return writeJSON(os.Stdout, resp)
						},
					},
					{
						Name:  "verify-chain",
						Usage: "verify an exported audit chain (JSON array of entries) offline",
						Flags: []cli.Flag{flagInput},
						Action: func(cCtx *cli.Context) error {
							in, err := openInput(cCtx.String(flagInput.Name))
							if err != nil {
								return err
							}
							defer in.Close()

							var entries []interfaces.ChainEntry
							if err := json.NewDecoder(in).Decode(&entries); err != nil {
								return fmt.Errorf("could not parse chain entries: %w", err)
							}
							report := vote.VerifyChain(entries)
							if err := writeJSON(os.Stdout, report); err != nil {
								return err
							}
							if !report.Valid {
								return fmt.Errorf("audit chain broken at entry %d: %s", report.BrokenAt, report.Reason)
							}
							return nil
						},
					},
					{
						Name:  "salt",
						Usage: "print a fresh session salt",
						Action: func(cCtx *cli.Context) error {
							salt, err := vote.GenerateSessionSalt()
							if err != nil {
								return err
							}
							fmt.Println(salt)
							return nil
						},
					},
				},
			},
			{
				Name:  "key",
				Usage: "manage HMAC seal keys",
				Subcommands: []*cli.Command{
					{
						Name:  "generate",
						Usage: "print a random seal key (hex) and its key ID",
						Flags: []cli.Flag{flagKeyBytes},
						Action: func(cCtx *cli.Context) error {
							key, err := cryptoutils.RandomHex(cCtx.Int(flagKeyBytes.Name))
							if err != nil {
								return err
							}
							fmt.Println(key)
							fmt.Fprintf(os.Stderr, "key id: %s\n", cryptoutils.KeyID([]byte(key)))
							return nil
						},
					},
					{
						Name:  "derive",
						Usage: "derive a seal key from a passphrase and print its key ID",
						Flags: []cli.Flag{kmscommon.KeyContextFlag},
						Action: func(cCtx *cli.Context) error {
							passphrase, err := kmscommon.NewTerminalPrompt(os.Stdin, os.Stderr).Secret("passphrase: ")
							if err != nil {
								return err
							}
							key, err := cryptoutils.DeriveSealKey(passphrase, cCtx.String(kmscommon.KeyContextFlag.Name))
							if err != nil {
								return err
							}
							fmt.Println(cryptoutils.KeyID(key))
							return nil
						},
					},
					{
						Name:  "split",
						Usage: "split a seal key into Shamir shares, one hex share per line",
						Flags: []cli.Flag{flagShares, flagThreshold},
						Action: func(cCtx *cli.Context) error {
							key, err := kmscommon.NewTerminalPrompt(os.Stdin, os.Stderr).Secret("seal key: ")
							if err != nil {
								return err
							}
							shares, err := kms.SplitKey(key, cCtx.Int(flagShares.Name), cCtx.Int(flagThreshold.Name))
							if err != nil {
								return err
							}
							for _, share := range shares {
								fmt.Println(hex.EncodeToString(share))
							}
							fmt.Fprintf(os.Stderr, "key id: %s\n", cryptoutils.KeyID(key))
							return nil
						},
					},
					{
						Name:  "combine",
						Usage: "check that key shares reconstruct the expected key",
						Flags: []cli.Flag{flagThreshold, kmscommon.UnsealKeyIDFlag},
						Action: func(cCtx *cli.Context) error {
							threshold := cCtx.Int(flagThreshold.Name)
							collector := kms.NewShareCollector(threshold, cCtx.String(kmscommon.UnsealKeyIDFlag.Name))
							if err := kmscommon.CollectShares(collector, kmscommon.NewTerminalPrompt(os.Stdin, os.Stderr), threshold); err != nil {
								return err
							}
							ring, err := collector.Keyring()
							if err != nil {
								return err
							}
							_, keyID, _ := ring.Active()
							fmt.Println(keyID)
							return nil
						},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

package kmscommon

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ruteri/evidence-seal/config"
	"github.com/ruteri/evidence-seal/cryptoutils"
	"github.com/ruteri/evidence-seal/kms"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

var KeySourceFlag = &cli.StringFlag{
	Name:  "key-source",
	Value: "env",
	Usage: "where the active seal key comes from: 'env' (EVIDENCE_SEAL_KEY), 'shares' or 'passphrase'",
}

var UnsealThresholdFlag = &cli.IntFlag{
	Name:  "unseal-threshold",
	Value: 2,
	Usage: "number of key shares needed to reconstruct the seal key (key-source 'shares')",
}

var UnsealKeyIDFlag = &cli.StringFlag{
	Name:  "unseal-key-id",
	Usage: "expected key id of the reconstructed or derived seal key",
}

var KeyContextFlag = &cli.StringFlag{
	Name:  "key-context",
	Usage: "deployment label mixed into passphrase key derivation (key-source 'passphrase')",
}

var KmsFlags = []cli.Flag{
	KeySourceFlag,
	UnsealThresholdFlag,
	UnsealKeyIDFlag,
	KeyContextFlag,
}

// SetupKeyring builds the seal keyring. Retired keys always come from the
// environment; the active key comes from the configured key source. Note that
// for 'shares' and 'passphrase' this call blocks on terminal input.
func SetupKeyring(cCtx *cli.Context, cfg *config.Config, logger *slog.Logger) (*kms.Keyring, error) {
	keySource := cCtx.String(KeySourceFlag.Name)
	expectedKeyID := cCtx.String(UnsealKeyIDFlag.Name)

	retired := make([][]byte, 0, len(cfg.RetiredKeys))
	for _, k := range cfg.RetiredKeys {
		retired = append(retired, []byte(k))
	}

	var ring *kms.Keyring
	switch keySource {
	case "env":
		ring = cfg.Keyring()

	case "shares":
		threshold := cCtx.Int(UnsealThresholdFlag.Name)
		logger.Info("Waiting for seal key shares", "threshold", threshold)

		collector := kms.NewShareCollector(threshold, expectedKeyID)
		if err := CollectShares(collector, NewTerminalPrompt(os.Stdin, os.Stderr), threshold); err != nil {
			return nil, err
		}

		var err error
		ring, err = collector.Keyring(retired...)
		if err != nil {
			return nil, err
		}

	case "passphrase":
		keyContext := cCtx.String(KeyContextFlag.Name)
		passphrase, err := NewTerminalPrompt(os.Stdin, os.Stderr).Secret("seal key passphrase: ")
		if err != nil {
			return nil, err
		}

		key, err := cryptoutils.DeriveSealKey(passphrase, keyContext)
		if err != nil {
			return nil, err
		}
		if expectedKeyID != "" && cryptoutils.KeyID(key) != expectedKeyID {
			return nil, errors.New("derived key does not match the expected key ID")
		}
		ring = kms.NewKeyring(key, retired...)

	default:
		return nil, fmt.Errorf("invalid key-source: %s", keySource)
	}

	if _, keyID, ok := ring.Active(); ok {
		logger.Info("Seal key loaded", "keyId", keyID, "source", keySource, "keys", len(ring.KeyIDs()))
	} else {
		logger.Warn("No active seal key, seals will be unsigned", "verificationKeys", len(ring.KeyIDs()))
	}
	return ring, nil
}

// CollectShares reads hex-encoded key shares until the collector has
// reconstructed the key. Duplicate shares do not count, so it gives up after
// twice the threshold.
func CollectShares(collector *kms.ShareCollector, prompt *Prompt, threshold int) error {
	for i := 1; i <= 2*threshold; i++ {
		raw, err := prompt.Secret(fmt.Sprintf("key share %d: ", i))
		if err != nil {
			return err
		}

		share, err := hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return fmt.Errorf("key share %d is not valid hex: %w", i, err)
		}

		done, err := collector.Submit(share)
		if err != nil {
			return fmt.Errorf("could not reconstruct seal key: %w", err)
		}
		if done {
			return nil
		}
	}
	return kms.ErrNotEnoughShares
}

// Prompt reads secrets from a terminal without echo, or line by line when
// input is not a terminal.
type Prompt struct {
	in     io.Reader
	out    io.Writer
	fd     int
	isTerm bool
	lines  *bufio.Reader
}

func NewTerminalPrompt(in *os.File, out io.Writer) *Prompt {
	fd := int(in.Fd())
	return &Prompt{in: in, out: out, fd: fd, isTerm: term.IsTerminal(fd)}
}

// NewReaderPrompt reads one secret per line from in.
func NewReaderPrompt(in io.Reader) *Prompt {
	return &Prompt{in: in, out: io.Discard}
}

func (p *Prompt) Secret(label string) ([]byte, error) {
	if p.isTerm {
		fmt.Fprint(p.out, label)
		secret, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", strings.TrimSuffix(label, ": "), err)
		}
		return secret, nil
	}

	if p.lines == nil {
		p.lines = bufio.NewReader(p.in)
	}
	line, err := p.lines.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return nil, fmt.Errorf("could not read %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

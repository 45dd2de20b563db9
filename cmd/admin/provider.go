package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ruteri/evidence-seal/api"
	"github.com/ruteri/evidence-seal/interfaces"
	"github.com/ruteri/evidence-seal/seal"
)

// localProvider seals and verifies in-process, without a server.
type localProvider struct {
	engine *seal.Engine
}

func (p *localProvider) Seal(pack interfaces.PackIndex, store bool) (*api.SealResponse, error) {
	if store {
		return nil, errors.New("storing packs needs --server")
	}
	sealed, err := p.engine.SealPack(pack)
	if err != nil {
		return nil, err
	}
	return &api.SealResponse{Seal: sealed.Seal, Pack: sealed}, nil
}

func (p *localProvider) Verify(pack interfaces.SealedPack) (*api.VerifyResponse, error) {
	resp := api.NewVerifyResponse(p.engine.Verify(pack))
	return &resp, nil
}

func (p *localProvider) GetPack(id interfaces.ContentID) (*api.StoredPackResponse, error) {
	return nil, errors.New("fetching packs needs --server")
}

var _ api.SealProvider = (*localProvider)(nil)

// runSeal seals the pack read from in and writes the sealed pack to out.
func runSeal(provider api.SealProvider, in io.Reader, out io.Writer, store bool) error {
	var pack interfaces.PackIndex
	if err := json.NewDecoder(in).Decode(&pack); err != nil {
		return fmt.Errorf("could not parse pack index: %w", err)
	}

	resp, err := provider.Seal(pack, store)
	if err != nil {
		return err
	}
	if resp.ContentID != "" {
		fmt.Fprintf(os.Stderr, "stored as %s\n", resp.ContentID)
	}
	return writeJSON(out, resp.Pack)
}

// runVerify verifies the sealed pack read from in. It returns an error when
// the pack is not verified-valid, so the exit code reflects the outcome.
func runVerify(provider api.SealProvider, in io.Reader, out io.Writer) error {
	var pack interfaces.SealedPack
	if err := json.NewDecoder(in).Decode(&pack); err != nil {
		return fmt.Errorf("could not parse sealed pack: %w", err)
	}

	resp, err := provider.Verify(pack)
	if err != nil {
		return err
	}
	if err := writeJSON(out, resp); err != nil {
		return err
	}
	if !resp.Valid {
		return fmt.Errorf("pack is %s", resp.Outcome)
	}
	return nil
}

// runAudit prints the session's chain report and fails when the chain is broken.
func runAudit(provider api.ElectionProvider, sessionID string, out io.Writer) error {
	report, err := provider.Audit(sessionID)
	if err != nil {
		return err
	}
	if err := writeJSON(out, report); err != nil {
		return err
	}
	if !report.Valid {
		return fmt.Errorf("audit chain broken at entry %d: %s", report.BrokenAt, report.Reason)
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

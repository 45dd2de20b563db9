package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ruteri/evidence-seal/api"
	"github.com/ruteri/evidence-seal/interfaces"
)

// SealClient talks to the sealing service over HTTP.
type SealClient struct {
	// ServerAddr is the base URL of the service, e.g. http://127.0.0.1:8080
	ServerAddr string
	// HTTPClient defaults to a client with a 30 second timeout.
	HTTPClient *http.Client
}

func NewSealClient(serverAddr string) *SealClient {
	return &SealClient{
		ServerAddr: serverAddr,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *SealClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *SealClient) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.ServerAddr+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return fmt.Errorf("%s returned non-200 response: %d", path, resp.StatusCode)
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(bodyBytes))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse %s response: %w", path, err)
	}
	return nil
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned error %d: %s", e.StatusCode, e.Message)
}

func (c *SealClient) Seal(pack interfaces.PackIndex, store bool) (*api.SealResponse, error) {
	path := "/api/seal"
	if store {
		path += "?store=true"
	}
	var resp api.SealResponse
	if err := c.do(http.MethodPost, path, pack, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *SealClient) Verify(pack interfaces.SealedPack) (*api.VerifyResponse, error) {
	var resp api.VerifyResponse
	if err := c.do(http.MethodPost, "/api/verify", pack, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *SealClient) GetPack(id interfaces.ContentID) (*api.StoredPackResponse, error) {
	var resp api.StoredPackResponse
	if err := c.do(http.MethodGet, "/api/packs/"+id.String(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func electionPath(sessionID string, parts ...string) string {
	path := "/api/elections/" + url.PathEscape(sessionID)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

func (c *SealClient) CastVote(sessionID string, req api.CastVoteRequest) (*api.CastVoteResponse, error) {
	var resp api.CastVoteResponse
	if err := c.do(http.MethodPost, electionPath(sessionID, "votes"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *SealClient) Audit(sessionID string) (*interfaces.ChainReport, error) {
	var resp interfaces.ChainReport
	if err := c.do(http.MethodGet, electionPath(sessionID, "audit"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *SealClient) ConfirmReceipt(sessionID, receiptID, code string) (bool, error) {
	var resp api.ConfirmReceiptResponse
	err := c.do(http.MethodPost, electionPath(sessionID, "receipts", receiptID, "confirm"), api.ConfirmReceiptRequest{Code: code}, &resp)
	if err != nil {
		return false, err
	}
	return resp.Confirmed, nil
}

func (c *SealClient) Snapshot(sessionID string) (*api.SnapshotResponse, error) {
	var resp api.SnapshotResponse
	if err := c.do(http.MethodPost, electionPath(sessionID, "snapshot"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

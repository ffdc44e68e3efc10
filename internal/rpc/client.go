package rpc

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xbucks-network/diplomat-node/internal/errs"
	"github.com/xbucks-network/diplomat-node/internal/rpcauth"
)

// DefaultTimeout is the per-call timeout RPC clients use absent explicit
// configuration.
const DefaultTimeout = 5 * time.Second

// Client calls another node's RPC endpoint, signing every call with the
// shared-secret signer.
type Client struct {
	httpClient *http.Client
	signer     *rpcauth.Signer
}

// NewClient builds a Client with the given per-call timeout (DefaultTimeout
// if zero).
func NewClient(timeout time.Duration, signer *rpcauth.Signer) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}, signer: signer}
}

// Call signs and sends one RPC to baseURL, returning the decoded result.
func (c *Client) Call(ctx context.Context, baseURL, method, payload string) (Result, error) {
	creds, err := c.signer.Sign(payload)
	if err != nil {
		return Result{}, fmt.Errorf("sign rpc call: %w", err)
	}

	env := Envelope{Method: method, Timestamp: creds.Timestamp, Nonce: creds.Nonce, Signature: creds.Signature, Payload: payload}
	body, err := xml.Marshal(env)
	if err != nil {
		return Result{}, fmt.Errorf("marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", errs.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: read response: %v", errs.ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("%w: rpc %s returned %d: %s", errs.ErrTransport, method, resp.StatusCode, string(respBody))
	}

	var result Result
	if err := xml.Unmarshal(respBody, &result); err != nil {
		return Result{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}

// Ping calls ping and returns the server's reported time string.
func (c *Client) Ping(ctx context.Context, baseURL string) (Result, error) {
	return c.Call(ctx, baseURL, "ping", "")
}

// Announce calls announce(host, port).
func (c *Client) Announce(ctx context.Context, baseURL, selfHost string, selfPort int) (Result, error) {
	return c.Call(ctx, baseURL, "announce", fmt.Sprintf("%s:%d", selfHost, selfPort))
}

// GetLedger calls get_ledger and returns the raw (base64-decoded by the
// caller) ledger payload.
func (c *Client) GetLedger(ctx context.Context, baseURL string) (Result, error) {
	return c.Call(ctx, baseURL, "get_ledger", "")
}

// ReceiveBlock calls receive_block with blockJSON as the payload.
func (c *Client) ReceiveBlock(ctx context.Context, baseURL string, blockJSON []byte) (Result, error) {
	return c.Call(ctx, baseURL, "receive_block", string(blockJSON))
}

// Package rpc talks JSON-RPC to the chain node for the write and read paths.
// The node's transaction format and guarantees are out of this service's
// hands; this client only moves opaque payloads across the wire.
package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"issuer-agent/internal/ledger"
	"issuer-agent/pkg/sentinel"
)

const (
	methodSubmit = "chain_submitOperation"
	methodQuery  = "chain_queryState"
)

// Client is a minimal JSON-RPC 2.0 client for the chain node. Transport
// failures trip a circuit breaker; while it is open every call fails fast
// with sentinel.ErrUnavailable.
type Client struct {
	url     string
	http    *http.Client
	breaker *breaker
}

// New builds a node client for the given RPC endpoint.
func New(url string) *Client {
	return &Client{
		url:     url,
		http:    &http.Client{Timeout: 30 * time.Second},
		breaker: newBreaker(5, 10*time.Second),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// Submit hands a signed operation to the node's transaction pool.
func (c *Client) Submit(ctx context.Context, op ledger.SignedOperation) (ledger.TxHandle, error) {
	params := []any{
		string(op.Kind),
		hex.EncodeToString(op.Payload),
		op.Signer,
		hex.EncodeToString(op.Signature),
	}
	raw, err := c.call(ctx, methodSubmit, params)
	if err != nil {
		return "", fmt.Errorf("submit %s operation: %w", op.Kind, err)
	}
	var handle string
	if err := json.Unmarshal(raw, &handle); err != nil {
		return "", fmt.Errorf("decode tx handle: %w", err)
	}
	return ledger.TxHandle(handle), nil
}

// Query reads chain state at the given path. A null result maps to
// sentinel.ErrNotFound so callers can poll without parsing node errors.
func (c *Client) Query(ctx context.Context, path string, args ...string) ([]byte, error) {
	params := make([]any, 0, len(args)+1)
	params = append(params, path)
	for _, a := range args {
		params = append(params, a)
	}
	raw, err := c.call(ctx, methodQuery, params)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", path, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, sentinel.ErrNotFound
	}
	return raw, nil
}

func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if !c.breaker.allow() {
		return nil, fmt.Errorf("%w: node circuit open", sentinel.ErrUnavailable)
	}

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.recordFailure()
		return nil, fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	c.breaker.recordSuccess()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("node returned status %d", resp.StatusCode)
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", out.Error.Code, out.Error.Message)
	}
	return out.Result, nil
}

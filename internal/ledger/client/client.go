// Package client composes the node RPC paths and the Kafka event feed into
// the single ledger.Client the services consume.
package client

import (
	"context"

	"issuer-agent/internal/ledger"
	"issuer-agent/internal/ledger/rpc"
)

// Client implements ledger.Client by delegating the write and read paths to
// the node RPC client and subscriptions to the event feed.
type Client struct {
	node *rpc.Client
	feed ledger.Subscriber
}

var _ ledger.Client = (*Client)(nil)

// New wires the node client and the event feed together.
func New(node *rpc.Client, feed ledger.Subscriber) *Client {
	return &Client{node: node, feed: feed}
}

func (c *Client) Subscribe(ctx context.Context, onEvent func(ledger.Event)) (ledger.Unsubscribe, error) {
	return c.feed.Subscribe(ctx, onEvent)
}

func (c *Client) Submit(ctx context.Context, op ledger.SignedOperation) (ledger.TxHandle, error) {
	return c.node.Submit(ctx, op)
}

func (c *Client) Query(ctx context.Context, path string, args ...string) ([]byte, error) {
	return c.node.Query(ctx, path, args...)
}

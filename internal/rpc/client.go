package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tendermint/naivechain/types"
)

// Client talks to the HTTP control API of a node.
type Client struct {
	remote string
	client *http.Client
}

// NewClient returns a client for the node at remote, an http:// URL or a
// bare host:port.
func NewClient(remote string) *Client {
	if !strings.Contains(remote, "://") {
		remote = "http://" + remote
	}
	return &Client{
		remote: strings.TrimSuffix(remote, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Error is returned for a non-2xx response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error (status %d): %s", e.StatusCode, e.Message)
}

// Blocks returns the node's full chain.
func (c *Client) Blocks(ctx context.Context) ([]types.Block, error) {
	var blocks []types.Block
	return blocks, c.call(ctx, http.MethodGet, "/blocks", nil, &blocks)
}

// LatestBlock returns the node's latest block.
func (c *Client) LatestBlock(ctx context.Context) (types.Block, error) {
	var block types.Block
	return block, c.call(ctx, http.MethodGet, "/blocks/latest", nil, &block)
}

// MineBlock asks the node to mine and announce a block carrying data.
func (c *Client) MineBlock(ctx context.Context, data string) (types.Block, error) {
	var block types.Block
	return block, c.call(ctx, http.MethodPost, "/mineBlock", MineBlockRequest{Data: data}, &block)
}

// Peers lists the node's connected peers.
func (c *Client) Peers(ctx context.Context) ([]ResultPeer, error) {
	var peers []ResultPeer
	return peers, c.call(ctx, http.MethodGet, "/peers", nil, &peers)
}

// AddPeer asks the node to connect to the peer at address.
func (c *Client) AddPeer(ctx context.Context, address string) (ResultPeer, error) {
	var peer ResultPeer
	return peer, c.call(ctx, http.MethodPost, "/addPeer", AddPeerRequest{Peer: address}, &peer)
}

// Status returns the node's status.
func (c *Client) Status(ctx context.Context) (*ResultStatus, error) {
	status := new(ResultStatus)
	if err := c.call(ctx, http.MethodGet, "/status", nil, status); err != nil {
		return nil, err
	}
	return status, nil
}

func (c *Client) call(ctx context.Context, method, path string, params, result interface{}) error {
	var body io.Reader
	if params != nil {
		bz, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to encode params: %w", err)
		}
		body = bytes.NewReader(bz)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.remote+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	bz, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eres ErrorResponse
		if jerr := json.Unmarshal(bz, &eres); jerr != nil || eres.Error == "" {
			eres.Error = strings.TrimSpace(string(bz))
		}
		return &Error{StatusCode: resp.StatusCode, Message: eres.Error}
	}

	if err := json.Unmarshal(bz, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Package forge is the HTTP client for the Forge authority service: the
// source of truth for the current leader and the sink for heartbeat and
// consensus telemetry.
package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	requestTimeout = 10 * time.Second

	heartbeatPath = "/federation/heartbeat"
	consensusPath = "/federation/consensus"
	feedbackPath  = "/api/ledger/feedback"
	leaderPath    = "/federation/leader"

	// bridgeTag identifies this agent family on the ledger feedback channel.
	bridgeTag = "SR-AIBRIDGE"
)

// Client talks to a single Forge root.
type Client struct {
	root string
	http *http.Client
}

// NormalizeRoot rewrites a dominion:// root URI to its https form and strips
// any trailing slash. Roots already carrying an http scheme pass through.
func NormalizeRoot(root string) string {
	root = strings.TrimSpace(root)
	if after, ok := strings.CutPrefix(root, "dominion://"); ok {
		root = "https://" + after
	}
	return strings.TrimRight(root, "/")
}

// NewClient builds a client for the given forge root URI. The root may be in
// dominion:// or https:// form.
func NewClient(root string) (*Client, error) {
	normalized := NormalizeRoot(root)
	if normalized == "" {
		return nil, fmt.Errorf("forge: empty root URI")
	}
	return &Client{
		root: normalized,
		http: &http.Client{Timeout: requestTimeout},
	}, nil
}

// Root returns the normalized forge root.
func (c *Client) Root() string {
	return c.root
}

type heartbeatPayload struct {
	Epoch     int64  `json:"epoch"`
	ForgeRoot string `json:"forge_root"`
	Sig       string `json:"sig"`
	Node      string `json:"node"`
	Status    string `json:"status"`
}

// Heartbeat reports this node's liveness to the Forge.
func (c *Client) Heartbeat(ctx context.Context, node string, epoch int64, sig string) error {
	return c.post(ctx, heartbeatPath, heartbeatPayload{
		Epoch:     epoch,
		ForgeRoot: c.root,
		Sig:       sig,
		Node:      node,
		Status:    "alive",
	})
}

type consensusPayload struct {
	Epoch     int64    `json:"epoch"`
	ForgeRoot string   `json:"forge_root"`
	Leader    *string  `json:"leader"`
	Peers     []string `json:"peers"`
	Sig       string   `json:"sig"`
}

// PublishConsensus reports the locally computed election result. An empty
// leader is sent as null.
func (c *Client) PublishConsensus(ctx context.Context, epoch int64, leader string, peers []string, sig string) error {
	return c.post(ctx, consensusPath, consensusPayload{
		Epoch:     epoch,
		ForgeRoot: c.root,
		Leader:    nullable(leader),
		Peers:     nonNil(peers),
		Sig:       sig,
	})
}

type feedbackPayload struct {
	Epoch     int64    `json:"epoch"`
	Leader    *string  `json:"leader"`
	Peers     []string `json:"peers"`
	Status    string   `json:"status"`
	Signature string   `json:"signature"`
	Bridge    string   `json:"bridge"`
}

// LedgerFeedback posts the secondary consensus telemetry record. Callers
// treat failures as fire-and-forget.
func (c *Client) LedgerFeedback(ctx context.Context, epoch int64, leader string, peers []string, sig string) error {
	return c.post(ctx, feedbackPath, feedbackPayload{
		Epoch:     epoch,
		Leader:    nullable(leader),
		Peers:     nonNil(peers),
		Status:    "consensus-ok",
		Signature: sig,
		Bridge:    bridgeTag,
	})
}

// Designation is the Forge's authoritative leader answer.
type Designation struct {
	Leader string
	Lease  string
}

// CurrentLeader fetches the authoritative leader designation. A null leader
// or lease in the response maps to the empty string.
func (c *Client) CurrentLeader(ctx context.Context) (Designation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.root+leaderPath, nil)
	if err != nil {
		return Designation{}, fmt.Errorf("forge: build leader request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Designation{}, fmt.Errorf("forge: leader poll: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Designation{}, fmt.Errorf("forge: leader poll status %d", resp.StatusCode)
	}

	var body struct {
		Leader *string `json:"leader"`
		Lease  *string `json:"lease"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Designation{}, fmt.Errorf("forge: decode leader response: %w", err)
	}
	return Designation{Leader: deref(body.Leader), Lease: deref(body.Lease)}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("forge: encode %s payload: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.root+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("forge: build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("forge: %s: %w", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("forge: %s status %d", path, resp.StatusCode)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(peers []string) []string {
	if peers == nil {
		return []string{}
	}
	return peers
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

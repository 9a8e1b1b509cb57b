package quorumapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tos-network/gquorum/common"
)

// ErrNotFound is returned by the client when the queried record is absent.
var ErrNotFound = errors.New("quorumapi: not found")

// Client talks to a Server.
type Client struct {
	endpoint string
	secret   []byte
	http     *http.Client
}

// NewClient returns a client for endpoint. secret may be nil for read-only use.
func NewClient(endpoint string, secret []byte, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		secret:   secret,
		http:     &http.Client{Timeout: timeout},
	}
}

// Group fetches a group.
func (c *Client) Group(ctx context.Context, addr common.Address) (*GroupView, error) {
	var v GroupView
	if err := c.get(ctx, "/v1/groups/"+addr.Hex(), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Proposal fetches a proposal.
func (c *Client) Proposal(ctx context.Context, addr common.Address) (*ProposalView, error) {
	var v ProposalView
	if err := c.get(ctx, "/v1/proposals/"+addr.Hex(), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// IsMember reports whether owner belongs to group.
func (c *Client) IsMember(ctx context.Context, group, owner common.Address) (bool, error) {
	var v MemberView
	if err := c.get(ctx, "/v1/groups/"+group.Hex()+"/members/"+owner.Hex(), &v); err != nil {
		return false, err
	}
	return v.Member, nil
}

// Balance fetches the decimal deposit balance of addr.
func (c *Client) Balance(ctx context.Context, addr common.Address) (string, error) {
	var v BalanceView
	if err := c.get(ctx, "/v1/balances/"+addr.Hex(), &v); err != nil {
		return "", err
	}
	return v.Balance, nil
}

// Submit sends an encoded system action on behalf of from.
func (c *Client) Submit(ctx context.Context, from common.Address, data []byte) error {
	if c.secret == nil {
		return ErrMissingSecret
	}
	token, err := NewToken(c.secret, from)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/requests", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e errorResponse
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxRequestSize))
		if json.Unmarshal(body, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(body))
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, e.Error)
		}
		return fmt.Errorf("quorumapi: %s: %s", resp.Status, e.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const maxResponseBody = 1 << 16 // 64 KB

// Client is a thin HTTP client for the relay broker. It keeps the token from
// the last SignIn and sends it with every later call.
type Client struct {
	baseURL string
	http    *http.Client

	mu       sync.RWMutex
	playerID string
	token    string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// PlayerID is the id from the last successful SignIn.
func (c *Client) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Client) SignedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// SignIn creates an anonymous identity with the broker.
func (c *Client) SignIn(ctx context.Context) (string, error) {
	var resp SignInResponse
	if err := c.do(ctx, http.MethodPost, "/auth/anonymous", nil, &resp); err != nil {
		return "", fmt.Errorf("sign in: %w", err)
	}

	c.mu.Lock()
	c.playerID = resp.PlayerID
	c.token = resp.Token
	c.mu.Unlock()
	return resp.PlayerID, nil
}

// CreateAllocation reserves a session slot for up to maxConnections peers.
func (c *Client) CreateAllocation(ctx context.Context, maxConnections int) (Allocation, error) {
	var alloc Allocation
	req := CreateAllocationRequest{MaxConnections: maxConnections}
	if err := c.do(ctx, http.MethodPost, "/allocations", req, &alloc); err != nil {
		return Allocation{}, fmt.Errorf("create allocation: %w", err)
	}
	return alloc, nil
}

// JoinCode fetches the short code participants use to find the allocation.
func (c *Client) JoinCode(ctx context.Context, allocationID string) (string, error) {
	var resp JoinCodeResponse
	path := "/allocations/" + url.PathEscape(allocationID) + "/joincode"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", fmt.Errorf("get join code: %w", err)
	}
	return resp.JoinCode, nil
}

// Publish records the address participants should dial for the allocation.
func (c *Client) Publish(ctx context.Context, allocationID, address string) error {
	path := "/allocations/" + url.PathEscape(allocationID) + "/endpoint"
	if err := c.do(ctx, http.MethodPut, path, PublishRequest{Address: address}, nil); err != nil {
		return fmt.Errorf("publish endpoint: %w", err)
	}
	return nil
}

// Heartbeat keeps the allocation alive.
func (c *Client) Heartbeat(ctx context.Context, allocationID string, players int) error {
	path := "/allocations/" + url.PathEscape(allocationID) + "/heartbeat"
	if err := c.do(ctx, http.MethodPost, path, HeartbeatRequest{Players: players}, nil); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	return nil
}

// JoinAllocation resolves a join code to the host's address.
func (c *Client) JoinAllocation(ctx context.Context, joinCode string) (JoinAllocation, error) {
	var resp JoinAllocation
	req := JoinRequest{JoinCode: strings.ToUpper(strings.TrimSpace(joinCode))}
	if err := c.do(ctx, http.MethodPost, "/join", req, &resp); err != nil {
		return JoinAllocation{}, fmt.Errorf("join allocation: %w", err)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		svcErr := &ServiceError{Status: resp.StatusCode, Code: CodeInternal}
		var er ErrorResponse
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			svcErr.Code = er.Error
			svcErr.Message = er.Message
		}
		return svcErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

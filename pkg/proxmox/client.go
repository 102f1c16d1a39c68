// Package proxmox implements the remote-infrastructure capability the
// dispatch core plans against and executes through. The core only requires
// two operations — a read-only Lookup during planning and an Execute for
// authorized actions — plus distinguishable not-found, fault and timeout
// signals; everything else here is a convenience wrapper over the PVE
// HTTP API.
package proxmox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
)

// ResourceDescriptor describes a VM or container found by Lookup.
type ResourceDescriptor struct {
	ID     string `json:"id"`
	Node   string `json:"node"`
	Type   string `json:"type"` // "qemu" | "lxc"
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Service is the capability surface the dispatch core consumes.
type Service interface {
	// Lookup resolves a resource id to its descriptor; a miss is reported
	// as *contracts.TargetNotFoundError. Read-only, permitted during
	// planning.
	Lookup(ctx context.Context, target contracts.Target) (*ResourceDescriptor, error)

	// Execute performs an authorized action and returns the raw API
	// response. Faults are *contracts.RemoteFaultError; deadline overruns
	// are contracts.ErrRemoteTimeout.
	Execute(ctx context.Context, action contracts.Action) (map[string]any, error)
}

var (
	reScheme = regexp.MustCompile(`^https?://`)
	rePort   = regexp.MustCompile(`:\d+$`)
)

// Config holds connection settings for a PVE cluster.
type Config struct {
	Host        string // host name or address; scheme and port are stripped
	Port        int    // defaults to 8006
	TokenID     string // "user@realm!tokenname"
	TokenSecret string
	VerifySSL   bool
	Timeout     time.Duration
	RateLimit   rate.Limit // API calls per second; 0 means no limit
}

// Client is a token-authenticated JSON client for the PVE 8.x API.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config) *Client {
	host := rePort.ReplaceAllString(reScheme.ReplaceAllString(cfg.Host, ""), "")
	port := cfg.Port
	if port == 0 {
		port = 8006
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{}
	if !cfg.VerifySSL {
		// PVE clusters commonly run on self-signed certificates.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(cfg.RateLimit, int(cfg.RateLimit)+1)
	}

	return &Client{
		baseURL:    fmt.Sprintf("https://%s:%d/api2/json", host, port),
		authHeader: fmt.Sprintf("PVEAPIToken=%s=%s", cfg.TokenID, cfg.TokenSecret),
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		limiter:    limiter,
	}
}

// Lookup resolves a resource id against /cluster/resources, which covers
// qemu and lxc guests on every node in one call.
func (c *Client) Lookup(ctx context.Context, target contracts.Target) (*ResourceDescriptor, error) {
	if target.ResourceID == "" {
		return nil, &contracts.TargetNotFoundError{ResourceID: ""}
	}

	var resources []struct {
		VMID   json.Number `json:"vmid"`
		Node   string      `json:"node"`
		Type   string      `json:"type"`
		Name   string      `json:"name"`
		Status string      `json:"status"`
	}
	if err := c.call(ctx, http.MethodGet, "/cluster/resources?type=vm", nil, &resources); err != nil {
		return nil, err
	}

	for _, r := range resources {
		if r.VMID.String() == target.ResourceID {
			if target.Node != "" && target.Node != r.Node {
				continue
			}
			return &ResourceDescriptor{
				ID:     r.VMID.String(),
				Node:   r.Node,
				Type:   r.Type,
				Name:   r.Name,
				Status: r.Status,
			}, nil
		}
	}
	return nil, &contracts.TargetNotFoundError{ResourceID: target.ResourceID}
}

// call performs one rate-limited API request and decodes the "data" field
// of the JSON envelope into out.
func (c *Client) call(ctx context.Context, method, path string, form url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return mapCtxErr(err)
		}
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("proxmox: create request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapCtxErr(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &contracts.RemoteFaultError{
			Detail: fmt.Sprintf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg))),
		}
	}

	if out == nil {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &contracts.RemoteFaultError{Detail: fmt.Sprintf("decode response: %v", err)}
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &contracts.RemoteFaultError{Detail: fmt.Sprintf("decode data: %v", err)}
	}
	return nil
}

// mapCtxErr translates context expiry into the core's timeout and
// cancellation kinds; anything else is a remote fault.
func mapCtxErr(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return contracts.ErrRemoteTimeout
	case errors.Is(err, context.Canceled):
		return err
	default:
		return &contracts.RemoteFaultError{Detail: err.Error()}
	}
}

package ultimaker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/icholy/digest"
)

const (
	defaultTimeout   = 750 * time.Millisecond
	defaultUserAgent = "hotend/0.1"
	apiPrefix        = "/api/v1/"

	// The camera's MJPEG streamer listens on its own fixed port, independent
	// of the API port.
	cameraPort = 8080

	// Error bodies are diagnostic text; anything past this is noise.
	maxErrorBody = 4 << 10
)

// Ensure Client satisfies the auth engine's wire surface at compile time.
var _ authTransport = (*Client)(nil)

// Client issues requests against one printer's local HTTP API. It is not
// safe for concurrent use; a connection has a single owner at a time.
type Client struct {
	base      *url.URL
	camera    *url.URL
	plain     *http.Client
	userAgent string

	// auth supplies credentials for digest-protected endpoints. Wired by
	// NewPrinter; nil leaves only the unauthenticated endpoints usable.
	auth *AuthEngine

	// One digest client is kept per credential pair and rebuilt on change,
	// so the cached challenge survives across calls.
	digestHTTP  *http.Client
	digestCreds Credentials
}

// NewClient builds a client for the printer at address:port.
func NewClient(address string, port int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base: &url.URL{
			Scheme: "http",
			Host:   net.JoinHostPort(address, strconv.Itoa(port)),
			Path:   apiPrefix,
		},
		camera: &url.URL{
			Scheme: "http",
			Host:   net.JoinHostPort(address, strconv.Itoa(cameraPort)),
		},
		plain:     &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
	}
}

// do performs an unauthenticated API call and decodes a 2xx JSON response
// into dest.
func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	_, err := c.roundTrip(ctx, c.plain, method, path, body, dest)
	return err
}

// doAuthed performs a digest-authenticated API call. The credential is
// confirmed usable immediately before the request. A 401 answer means the
// printer dropped the credential mid-session: the client re-pairs once and
// replays the same call; a second 401 surfaces ErrAuthRejected.
func (c *Client) doAuthed(ctx context.Context, method, path string, body, dest any) error {
	if c.auth == nil {
		return fmt.Errorf("no credentials configured for %s %s", method, path)
	}
	creds, err := c.auth.ValidCredential(ctx)
	if err != nil {
		return err
	}
	status, err := c.roundTrip(ctx, c.digestFor(creds), method, path, body, dest)
	if status != http.StatusUnauthorized {
		return err
	}

	c.auth.Invalidate()
	creds, err = c.auth.ValidCredential(ctx)
	if err != nil {
		return err
	}
	status, err = c.roundTrip(ctx, c.digestFor(creds), method, path, body, dest)
	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s %s", ErrAuthRejected, method, path)
	}
	return err
}

// roundTrip performs one request. Transport failures come back wrapped as
// ErrUnreachable, non-2xx answers as *DeviceError; the status code is
// reported whenever a response arrived.
func (c *Client) roundTrip(ctx context.Context, httpClient *http.Client, method, path string, body, dest any) (int, error) {
	reqURL := c.base.ResolveReference(&url.URL{Path: path})

	var reader io.Reader
	contentType := ""
	switch payload := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(payload.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %v", ErrUnreachable, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &DeviceError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(detail)),
		}
	}
	if dest == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// digestFor returns an HTTP client that answers the printer's digest
// challenges with the given credential pair.
func (c *Client) digestFor(creds Credentials) *http.Client {
	if c.digestHTTP == nil || c.digestCreds != creds {
		c.digestHTTP = &http.Client{
			Timeout: c.plain.Timeout,
			Transport: &digest.Transport{
				Username: creds.ID,
				Password: creds.Key,
			},
		}
		c.digestCreds = creds
	}
	return c.digestHTTP
}

// requestCredentials asks the printer to issue a new credential pair. The
// printer then shows the approval prompt for this identity on its screen.
func (c *Client) requestCredentials(ctx context.Context, id Identity) (Credentials, error) {
	form := url.Values{}
	form.Set("application", id.Application)
	form.Set("user", id.User)
	var creds Credentials
	if err := c.do(ctx, http.MethodPost, "auth/request", form, &creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// checkAuthorized asks the printer once what the operator decided about the
// credential with the given id.
func (c *Client) checkAuthorized(ctx context.Context, id string) (ApprovalStatus, error) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, "auth/check/"+id, nil, &payload); err != nil {
		return UnknownApproval, err
	}
	switch payload.Message {
	case string(Authorized):
		return Authorized, nil
	case string(Unauthorized):
		return Unauthorized, nil
	default:
		return UnknownApproval, nil
	}
}

// verifyCredentials probes whether the printer still recognizes the
// credential pair. A definitive 401 reports (false, nil); transport and
// device failures report an error and no verdict.
func (c *Client) verifyCredentials(ctx context.Context, creds Credentials) (bool, error) {
	status, err := c.roundTrip(ctx, c.digestFor(creds), http.MethodGet, "auth/verify", nil, nil)
	if status == http.StatusUnauthorized {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// fetchCamera grabs one frame from the printer's camera streamer.
func (c *Client) fetchCamera(ctx context.Context) ([]byte, string, error) {
	reqURL := c.camera.ResolveReference(&url.URL{Path: "/", RawQuery: "action=snapshot"})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.plain.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: camera: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, "", &DeviceError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(detail)),
		}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: camera read: %v", ErrUnreachable, err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}

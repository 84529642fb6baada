// Package luxor is a client for the FXLuminaire Luxor lighting controller JSON API.
package luxor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Client talks to a single Luxor controller.
// Every call is a POST to http://<address>/<Method>.json with a JSON body.
type Client struct {
	address    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Luxor client.
// rateLimitRPS bounds outgoing requests; the controller handles one connection at a time.
func NewClient(address string, timeout time.Duration, rateLimitRPS float64) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if rateLimitRPS <= 0 {
		rateLimitRPS = 5.0
	}
	burst := int(rateLimitRPS)
	if burst < 1 {
		burst = 1
	}

	transport := &http.Transport{
		MaxConnsPerHost:     1,
		MaxIdleConnsPerHost: 1,
	}

	return &Client{
		address: address,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(rateLimitRPS), burst),
	}
}

// Address returns the controller address.
func (c *Client) Address() string {
	return c.address
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) url(method string) string {
	return fmt.Sprintf("http://%s/%s.json", c.address, method)
}

// call posts body to method and decodes the response into out.
// Transport and HTTP-level failures wrap ErrUnreachable.
func (c *Client) call(ctx context.Context, method string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w: %w", method, ErrUnreachable, err)
	}

	if body == nil {
		body = struct{}{}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(method), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", method, ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: %w: unexpected status code %d: %s", method, ErrUnreachable, resp.StatusCode, string(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: failed to decode response: %w", method, ErrUnreachable, err)
	}

	return nil
}

func checkStatus(op string, s statusResponse) error {
	if s.Status != 0 {
		return &StatusError{Op: op, Status: s.Status, StatusStr: s.StatusStr}
	}
	return nil
}

// ControllerName probes the controller and returns its display name.
func (c *Client) ControllerName(ctx context.Context) (string, error) {
	var resp controllerNameResponse
	if err := c.call(ctx, "ControllerName", nil, &resp); err != nil {
		return "", err
	}
	if err := checkStatus("ControllerName", resp.statusResponse); err != nil {
		return "", err
	}
	return resp.Controller, nil
}

// ListGroups returns all groups. A nil slice with a nil error means the
// controller omitted the list and the caller should keep what it has.
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	var resp groupListResponse
	if err := c.call(ctx, "GroupListGet", nil, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus("GroupListGet", resp.statusResponse); err != nil {
		return nil, err
	}

	list := groups(resp.GroupList)
	log.Debug().Str("controller", c.address).Int("groups", len(list)).Msg("Fetched groups")
	return list, nil
}

// ListThemes returns all themes, with the same nil convention as ListGroups.
func (c *Client) ListThemes(ctx context.Context) ([]Theme, error) {
	var resp themeListResponse
	if err := c.call(ctx, "ThemeListGet", nil, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus("ThemeListGet", resp.statusResponse); err != nil {
		return nil, err
	}

	list := themes(resp.ThemeList)
	log.Debug().Str("controller", c.address).Int("themes", len(list)).Msg("Fetched themes")
	return list, nil
}

// IlluminateGroup sets a group to intensity (0-100).
func (c *Client) IlluminateGroup(ctx context.Context, groupID, intensity int) error {
	var resp statusResponse
	req := illuminateGroupRequest{GroupNumber: groupID, Intensity: intensity}
	if err := c.call(ctx, "IlluminateGroup", req, &resp); err != nil {
		return err
	}
	if err := checkStatus("IlluminateGroup", resp); err != nil {
		return err
	}

	log.Debug().
		Str("controller", c.address).
		Int("group", groupID).
		Int("intensity", intensity).
		Msg("Group illuminated")
	return nil
}

// IlluminateTheme triggers a theme. onOff is 1 to activate.
func (c *Client) IlluminateTheme(ctx context.Context, themeID, onOff int) error {
	var resp statusResponse
	req := illuminateThemeRequest{ThemeIndex: themeID, OnOff: onOff}
	if err := c.call(ctx, "IlluminateTheme", req, &resp); err != nil {
		return err
	}
	if err := checkStatus("IlluminateTheme", resp); err != nil {
		return err
	}

	log.Debug().
		Str("controller", c.address).
		Int("theme", themeID).
		Int("on_off", onOff).
		Msg("Theme illuminated")
	return nil
}

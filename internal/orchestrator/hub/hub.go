// Package hub is the outbound REST client to the home-automation hub
// (spec.md §6 "Hub integration"): media_player.play_media,
// media_player.volume_set, assist_satellite.announce, plus generic
// tool-bound domain service calls. Grounded on a2a/client.go's
// bearer-authenticated HTTP request idiom.
package hub

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config configures a Client.
type Config struct {
	BaseURL            string
	BearerToken        string
	Timeout            time.Duration
	InsecureSkipVerify bool // SSL validation is configurable (spec.md §6)
}

// Client calls hub services over HTTP+JSON REST.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.BearerToken,
		http:    &http.Client{Timeout: timeout, Transport: transport},
	}
}

// PlayMedia calls media_player.play_media.
func (c *Client) PlayMedia(ctx context.Context, entityID, mediaContentID, mediaContentType string, announce bool) error {
	return c.callService(ctx, "media_player.play_media", map[string]any{
		"entity_id":          entityID,
		"media_content_id":   mediaContentID,
		"media_content_type": mediaContentType,
		"announce":           announce,
	})
}

// VolumeSet calls media_player.volume_set.
func (c *Client) VolumeSet(ctx context.Context, entityID string, volumeLevel float64) error {
	return c.callService(ctx, "media_player.volume_set", map[string]any{
		"entity_id":    entityID,
		"volume_level": volumeLevel,
	})
}

// Announce calls assist_satellite.announce.
func (c *Client) Announce(ctx context.Context, entityID, message string) error {
	return c.callService(ctx, "assist_satellite.announce", map[string]any{
		"entity_id": entityID,
		"message":   message,
	})
}

// CallService invokes an arbitrary hub service, for tool-bound domains the
// built-in helpers above don't cover.
func (c *Client) CallService(ctx context.Context, service string, payload map[string]any) error {
	return c.callService(ctx, service, payload)
}

func (c *Client) callService(ctx context.Context, service string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("hub: marshal payload: %w", err)
	}

	url := c.baseURL + "/api/services/" + serviceDomainPath(service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("hub: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("hub: call %s: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("hub: %s returned %s: %s", service, resp.Status, string(respBody))
	}
	return nil
}

// serviceDomainPath turns "media_player.play_media" into
// "media_player/play_media" as hub REST service paths expect.
func serviceDomainPath(service string) string {
	for i := 0; i < len(service); i++ {
		if service[i] == '.' {
			return service[:i] + "/" + service[i+1:]
		}
	}
	return service
}

// Package presence resolves the runtime "presence" target entity alias
// (spec.md §4.10.2 step 1): query occupied areas, pick the
// highest-confidence one, then ask the entity-location service for a
// media-player entity located there.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
)

// OccupiedArea is one reported occupancy observation.
type OccupiedArea struct {
	AreaID     string
	Confidence float64
}

// Resolver resolves "presence" to a concrete entity id.
type Resolver interface {
	OccupiedAreas(ctx context.Context) ([]OccupiedArea, error)
	MediaPlayerInArea(ctx context.Context, areaID string) (string, bool, error)
}

// HighestConfidenceArea returns the area with the largest confidence, or
// false if areas is empty.
func HighestConfidenceArea(areas []OccupiedArea) (OccupiedArea, bool) {
	if len(areas) == 0 {
		return OccupiedArea{}, false
	}
	sorted := append([]OccupiedArea(nil), areas...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Confidence > sorted[j].Confidence })
	return sorted[0], true
}

// ResolveMediaPlayer implements the full presence-resolution algorithm: the
// highest-confidence occupied area, then a media-player entity in it. A
// false result (no error) means resolution yielded nothing and the caller
// must abort without firing (spec.md §4.10.2 step 1).
func ResolveMediaPlayer(ctx context.Context, r Resolver) (string, bool, error) {
	areas, err := r.OccupiedAreas(ctx)
	if err != nil {
		return "", false, fmt.Errorf("presence: occupied areas: %w", err)
	}
	area, ok := HighestConfidenceArea(areas)
	if !ok {
		return "", false, nil
	}
	entityID, ok, err := r.MediaPlayerInArea(ctx, area.AreaID)
	if err != nil {
		return "", false, fmt.Errorf("presence: media player in area %q: %w", area.AreaID, err)
	}
	return entityID, ok, nil
}

// HTTPResolver implements Resolver against a REST presence/entity-location
// service.
type HTTPResolver struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPResolver(baseURL string, client *http.Client) *HTTPResolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPResolver{BaseURL: baseURL, Client: client}
}

func (h *HTTPResolver) OccupiedAreas(ctx context.Context) ([]OccupiedArea, error) {
	var out []OccupiedArea
	if err := h.getJSON(ctx, "/presence/occupied-areas", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *HTTPResolver) MediaPlayerInArea(ctx context.Context, areaID string) (string, bool, error) {
	var out struct {
		EntityID string `json:"entityId"`
		Found    bool   `json:"found"`
	}
	if err := h.getJSON(ctx, "/entity-location/media-player?area="+areaID, &out); err != nil {
		return "", false, err
	}
	return out.EntityID, out.Found, nil
}

func (h *HTTPResolver) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("presence: build request: %w", err)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return fmt.Errorf("presence: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("presence: %s returned %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("presence: decode %s: %w", path, err)
	}
	return nil
}

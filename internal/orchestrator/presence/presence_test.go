package presence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	areas    []OccupiedArea
	areaErr  error
	entityID string
	found    bool
}

func (s *stubResolver) OccupiedAreas(ctx context.Context) ([]OccupiedArea, error) {
	return s.areas, s.areaErr
}

func (s *stubResolver) MediaPlayerInArea(ctx context.Context, areaID string) (string, bool, error) {
	return s.entityID, s.found, nil
}

func TestHighestConfidenceArea_PicksMax(t *testing.T) {
	areas := []OccupiedArea{{AreaID: "kitchen", Confidence: 0.4}, {AreaID: "bedroom", Confidence: 0.9}}
	area, ok := HighestConfidenceArea(areas)
	require.True(t, ok)
	assert.Equal(t, "bedroom", area.AreaID)
}

func TestHighestConfidenceArea_EmptyReturnsFalse(t *testing.T) {
	_, ok := HighestConfidenceArea(nil)
	assert.False(t, ok)
}

func TestResolveMediaPlayer_HappyPath(t *testing.T) {
	r := &stubResolver{areas: []OccupiedArea{{AreaID: "bedroom", Confidence: 0.9}}, entityID: "media_player.bedroom", found: true}
	entityID, ok, err := ResolveMediaPlayer(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "media_player.bedroom", entityID)
}

func TestResolveMediaPlayer_NoOccupiedAreasAborts(t *testing.T) {
	r := &stubResolver{}
	_, ok, err := ResolveMediaPlayer(context.Background(), r)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHTTPResolver_OccupiedAreas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"AreaID":"bedroom","Confidence":0.9}]`))
	}))
	defer srv.Close()

	resolver := NewHTTPResolver(srv.URL, srv.Client())
	areas, err := resolver.OccupiedAreas(context.Background())
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, "bedroom", areas[0].AreaID)
}

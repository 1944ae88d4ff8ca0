package dataset

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProvider_Embedded(t *testing.T) {
	p := NewProvider("", "", time.Second, discardLogger())

	rooftops, err := p.Rooftops(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, rooftops)

	ids := make(map[string]bool, len(rooftops))
	for _, r := range rooftops {
		assert.NotEmpty(t, r.ID)
		assert.False(t, ids[r.ID], "duplicate id %s", r.ID)
		ids[r.ID] = true
		assert.GreaterOrEqual(t, r.SunHoursPerDay, 0.0)
		assert.LessOrEqual(t, r.SunHoursPerDay, 24.0)
		assert.GreaterOrEqual(t, r.AreaM2, 0.0)
	}

	partners, err := p.Partners(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, partners)
	assert.NotEmpty(t, partners[0].Languages)
}

func TestProvider_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rooftops.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id":"rt-x","address":"1 Test St","latitude":35.0,"longitude":139.0,"area_m2":100,
		 "estimated_panels":20,"annual_generation_mwh":12.5,"roof_type":"flat concrete",
		 "sun_hours_per_day":4.6,"contact_ready":true,"notes":""}
	]`), 0o600))

	p := NewProvider(path, "", time.Second, discardLogger())
	rooftops, err := p.Rooftops(context.Background())
	require.NoError(t, err)
	require.Len(t, rooftops, 1)
	assert.Equal(t, "rt-x", rooftops[0].ID)
	assert.Equal(t, 20, rooftops[0].EstimatedPanels)
	assert.True(t, rooftops[0].ContactReady)
}

func TestProvider_MissingFile(t *testing.T) {
	p := NewProvider(filepath.Join(t.TempDir(), "nope.json"), "", time.Second, discardLogger())

	_, err := p.Rooftops(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load rooftops")
}

func TestProvider_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"p-x","name":"Test Partner","languages":["Japanese"]}]`))
	}))
	defer srv.Close()

	p := NewProvider("", srv.URL+"/partners.json", time.Second, discardLogger())
	partners, err := p.Partners(context.Background())
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, "Test Partner", partners[0].Name)
}

func TestProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "", time.Second, discardLogger())
	_, err := p.Rooftops(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestProvider_HTTPTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "", 50*time.Millisecond, discardLogger())
	_, err := p.Rooftops(context.Background())
	require.Error(t, err)
}

func TestProvider_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"`), 0o600))

	p := NewProvider(path, "", time.Second, discardLogger())
	_, err := p.Rooftops(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestProvider_HTTPOversized(t *testing.T) {
	body := `[{"id":"p-x","name":"Test Partner","languages":["Japanese"]}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	p := NewProvider("", srv.URL, time.Second, discardLogger())
	p.maxBytes = int64(len(body)) - 1

	_, err := p.Partners(context.Background())
	require.ErrorIs(t, err, ErrDatasetTooLarge)
	assert.NotContains(t, err.Error(), "unexpected end of JSON input")
}

func TestProvider_FileSizeCap(t *testing.T) {
	body := []byte(`[]`)
	path := filepath.Join(t.TempDir(), "rooftops.json")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	p := NewProvider(path, "", time.Second, discardLogger())
	p.maxBytes = int64(len(body))
	_, err := p.Rooftops(context.Background())
	require.NoError(t, err, "a source exactly at the cap is accepted")

	p.maxBytes = int64(len(body)) - 1
	_, err = p.Rooftops(context.Background())
	require.ErrorIs(t, err, ErrDatasetTooLarge)
}

func TestProvider_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooftops.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProvider(path, "", time.Second, discardLogger())
	_, err := p.Rooftops(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-assignment/internal/seating"
)

func TestParseCatalog(t *testing.T) {
	cat, err := ParseCatalog([]byte("default_capacity: 50\ngroups:\n  A: 10\n  VIP: 4\n"), 90)
	require.NoError(t, err)
	assert.Equal(t, 10, cat.CapacityOf("A"))
	assert.Equal(t, 4, cat.CapacityOf("VIP"))
	assert.Equal(t, 50, cat.CapacityOf("Z"))
}

func TestParseCatalogFallbackCapacity(t *testing.T) {
	cat, err := ParseCatalog([]byte("groups:\n  A: 10\n"), 75)
	require.NoError(t, err)
	assert.Equal(t, 75, cat.CapacityOf("Q"))
}

func TestParseCatalogRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"empty":      "groups: {}\n",
		"zero":       "groups:\n  A: 0\n",
		"hyphenated": "groups:\n  A-1: 5\n",
		"not yaml":   "groups: [",
	} {
		_, err := ParseCatalog([]byte(doc), 90)
		assert.Error(t, err, name)
	}
	_, err := ParseCatalog([]byte("groups: {}\n"), 90)
	assert.ErrorIs(t, err, seating.ErrNoGroups)
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("groups:\n  R: 3\n"), 0o644))

	cat, err := Config{SeatCatalogFile: path, SeatDefaultCapacity: 12}.LoadCatalog()
	require.NoError(t, err)
	assert.Len(t, cat.Generate([]string{"R"}), 3)
	assert.Equal(t, 12, cat.CapacityOf("S"))
}

func TestLoadCatalogDefault(t *testing.T) {
	cat, err := Config{SeatDefaultCapacity: 70}.LoadCatalog()
	require.NoError(t, err)
	assert.Equal(t, 100, cat.CapacityOf("B"))
	assert.Equal(t, 70, cat.CapacityOf("ZZ"))
}

func TestEventDay(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	day, ok := Config{EventDate: "2025-12-14", EventLocation: loc}.EventDay()
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 12, 14, 0, 0, 0, 0, loc), day)

	_, ok = Config{}.EventDay()
	assert.False(t, ok)
	_, ok = Config{EventDate: "14/12/2025"}.EventDay()
	assert.False(t, ok)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "7")
	t.Setenv("X_BAD_INT", "seven")
	t.Setenv("X_DUR", "3s")
	t.Setenv("X_BOOL", "off")

	assert.Equal(t, 7, envInt("X_INT", 1))
	assert.Equal(t, 1, envInt("X_BAD_INT", 1))
	assert.Equal(t, 3*time.Second, envDur("X_DUR", time.Second))
	assert.False(t, envBool("X_BOOL", true))
	assert.Equal(t, "d", envStr("X_MISSING", "d"))
}

func TestCheckinRateLimitDefaults(t *testing.T) {
	cfg := LoadCheckinRateLimitConfig()
	assert.Equal(t, 120, cfg.Capacity)
	assert.Equal(t, "ip", cfg.KeyStrategy)
	assert.GreaterOrEqual(t, cfg.TTL, 5*cfg.RefillInterval)
}

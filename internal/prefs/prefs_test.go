package prefs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-hub/internal/model"
	"activity-hub/internal/prefs"
)

func open(t *testing.T) *prefs.Store {
	t.Helper()
	s, err := prefs.Open(filepath.Join(t.TempDir(), "nested", "prefs.yaml"))
	require.NoError(t, err)
	return s
}

func TestFirstReadCreatesDefaults(t *testing.T) {
	s := open(t)

	km, err := s.GetRadiusKm()
	require.NoError(t, err)
	assert.Equal(t, float64(prefs.DefaultRadiusKm), km)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRadiusRoundTrip(t *testing.T) {
	s := open(t)

	require.NoError(t, s.SetRadiusKm(37))
	km, err := s.GetRadiusKm()
	require.NoError(t, err)
	assert.Equal(t, 37.0, km)

	// a second store on the same file sees it
	other, err := prefs.Open(s.Path())
	require.NoError(t, err)
	km, err = other.GetRadiusKm()
	require.NoError(t, err)
	assert.Equal(t, 37.0, km)
}

func TestRadiusOutOfRangeRejected(t *testing.T) {
	s := open(t)
	require.NoError(t, s.SetRadiusKm(37))

	for _, km := range []float64{501, 0, 0.5, -3} {
		err := s.SetRadiusKm(km)
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr, "radius %v", km)
		assert.Equal(t, "radius_km", verr.Field)
	}

	km, err := s.GetRadiusKm()
	require.NoError(t, err)
	assert.Equal(t, 37.0, km)
}

func TestRadiusBounds(t *testing.T) {
	s := open(t)
	require.NoError(t, s.SetRadiusKm(1))
	require.NoError(t, s.SetRadiusKm(500))
}

func TestHandEditedFileFallsBack(t *testing.T) {
	s := open(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("radius_km: 9000\ntheme_mode: neon\n"), 0o600))

	p, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, prefs.Default(), p)
}

func TestCorruptFileIsAnError(t *testing.T) {
	s := open(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("radius_km: [\n"), 0o600))

	km, err := s.GetRadiusKm()
	assert.Error(t, err)
	assert.Equal(t, float64(prefs.DefaultRadiusKm), km)
}

func TestThemeMode(t *testing.T) {
	s := open(t)
	require.NoError(t, s.SetRadiusKm(12))
	require.NoError(t, s.SetThemeMode(prefs.ThemeDark))

	p, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, prefs.ThemeDark, p.ThemeMode)
	assert.Equal(t, 12.0, p.RadiusKm)

	assert.Error(t, s.SetThemeMode("neon"))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := prefs.Open("")
	assert.Error(t, err)
}

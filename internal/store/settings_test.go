package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	_, err := repo.Get(SettingConfidenceThreshold)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Set(SettingConfidenceThreshold, "0.9"))
	require.NoError(t, repo.Set(SettingConfidenceThreshold, "0.85"))
	require.NoError(t, repo.Set(SettingSignalFloor, "12"))

	v, err := repo.Get(SettingConfidenceThreshold)
	require.NoError(t, err)
	assert.Equal(t, "0.85", v)

	all, err := repo.All()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		SettingConfidenceThreshold: "0.85",
		SettingSignalFloor:         "12",
	}, all)
}

func TestSettingsRepository_Typed(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	_, ok := repo.Float(SettingConfidenceThreshold)
	assert.False(t, ok)

	require.NoError(t, repo.Set(SettingConfidenceThreshold, "0.9"))
	f, ok := repo.Float(SettingConfidenceThreshold)
	assert.True(t, ok)
	assert.Equal(t, 0.9, f)

	require.NoError(t, repo.Set(SettingSignalFloor, "ten"))
	_, ok = repo.Int(SettingSignalFloor)
	assert.False(t, ok)

	require.NoError(t, repo.Set(SettingSignalFloor, "10"))
	n, ok := repo.Int(SettingSignalFloor)
	assert.True(t, ok)
	assert.Equal(t, 10, n)
}

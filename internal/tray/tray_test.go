package tray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/signify/internal/recognizer"
)

func TestTray_Toggle(t *testing.T) {
	tr := New()
	require.True(t, tr.IsEnabled())

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.Toggle()
	tr.Toggle()

	assert.Equal(t, []bool{false, true}, got)
	assert.True(t, tr.IsEnabled())
}

func TestTray_Publish(t *testing.T) {
	tr := New()
	assert.Empty(t, tr.LastLabel())

	require.NoError(t, tr.Publish("s", recognizer.Status{Text: "gathering (1/30)"}))
	assert.Empty(t, tr.LastLabel())

	require.NoError(t, tr.Publish("s", recognizer.Status{Text: "Hello (0.91)", LastLabel: "Hello"}))
	assert.Equal(t, "Hello", tr.LastLabel())
}

func TestTitles(t *testing.T) {
	assert.Equal(t, titleEnabled, toggleTitle(true))
	assert.Equal(t, titleDisabled, toggleTitle(false))
	assert.Equal(t, titleNoLabel, lastLabelTitle(""))
	assert.Equal(t, "Last: Yes", lastLabelTitle("Yes"))
}

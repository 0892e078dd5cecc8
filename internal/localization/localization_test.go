package localization

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_LoadsEmbeddedLocales(t *testing.T) {
	l, err := Default()
	require.NoError(t, err)

	assert.True(t, l.Has("en"))
	assert.True(t, l.Has("uk"))
	assert.Equal(t, "New message from CameraShop Admin", l.GetString("en", "notify.admin_reply.subject"))
}

func TestGetString_Fallbacks(t *testing.T) {
	fsys := fstest.MapFS{
		"loc/en.json":    {Data: []byte(`{"greeting":"Hello","only_en":"English"}`)},
		"loc/uk.json":    {Data: []byte(`{"greeting":"Привіт"}`)},
		"loc/readme.txt": {Data: []byte("ignored")},
	}
	l, err := NewLocalizer(fsys, "loc")
	require.NoError(t, err)

	assert.Equal(t, "Привіт", l.GetString("uk", "greeting"))
	assert.Equal(t, "English", l.GetString("uk", "only_en"), "missing key falls back to en")
	assert.Equal(t, "Hello", l.GetString("de", "greeting"), "unknown language falls back to en")
	assert.Equal(t, "missing", l.GetString("en", "missing"), "unknown key returns the key")
}

func TestFormat(t *testing.T) {
	fsys := fstest.MapFS{"loc/en.json": {Data: []byte(`{"hi":"Hi %s"}`)}}
	l, err := NewLocalizer(fsys, "loc")
	require.NoError(t, err)
	assert.Equal(t, "Hi Jane", l.Format("en", "hi", "Jane"))
}

func TestNewLocalizer_BadJSON(t *testing.T) {
	fsys := fstest.MapFS{"loc/en.json": {Data: []byte(`{not json`)}}
	_, err := NewLocalizer(fsys, "loc")
	assert.Error(t, err)
}

func TestNewLocalizer_MissingDir(t *testing.T) {
	_, err := NewLocalizer(fstest.MapFS{}, "nope")
	assert.Error(t, err)
}

package attachments

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadLifecycle(t *testing.T) {
	l := NewList(Config{})
	f, err := l.AddLocal("invoice.pdf", "document", 1024)
	require.NoError(t, err)
	assert.True(t, l.IsUploading())

	require.NoError(t, l.SetProgress(f.ID, 40))
	assert.True(t, l.IsUploading())
	assert.Empty(t, l.Refs())

	require.NoError(t, l.MarkUploaded(f.ID, "upload-1"))
	assert.False(t, l.IsUploading())
	refs := l.Refs()
	require.Len(t, refs, 1)
	assert.Equal(t, "upload-1", refs[0].UploadedID)
	assert.Equal(t, "local_file", refs[0].TransferMethod)
}

func TestFailedUploadCanBeRetried(t *testing.T) {
	l := NewList(Config{})
	f, err := l.AddRemote("https://example.com/receipt.png")
	require.NoError(t, err)

	assert.Error(t, l.ReUpload(f.ID))
	require.NoError(t, l.MarkFailed(f.ID))
	assert.False(t, l.IsUploading())
	assert.True(t, l.Files()[0].IsFailed())

	require.NoError(t, l.ReUpload(f.ID))
	assert.True(t, l.IsUploading())
}

func TestRemoteURLValidation(t *testing.T) {
	l := NewList(Config{})
	for _, url := range []string{"ftp://example.com/a", "example.com/a", ""} {
		_, err := l.AddRemote(url)
		assert.True(t, errors.Is(err, ErrValidation), url)
	}
	_, err := l.AddRemote("http://example.com/a")
	assert.NoError(t, err)
}

func TestConfigLimits(t *testing.T) {
	l := NewList(Config{NumberLimit: 1, AllowedMethods: []TransferMethod{TransferLocalFile}})

	_, err := l.AddRemote("https://example.com/a")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = l.AddLocal("a.txt", "document", 1)
	require.NoError(t, err)
	_, err = l.AddLocal("b.txt", "document", 1)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestRemoveAndClear(t *testing.T) {
	l := NewList(Config{})
	a, err := l.AddLocal("a.txt", "document", 1)
	require.NoError(t, err)
	_, err = l.AddLocal("b.txt", "document", 1)
	require.NoError(t, err)

	require.NoError(t, l.Remove(a.ID))
	require.Len(t, l.Files(), 1)
	assert.Equal(t, "b.txt", l.Files()[0].Name)
	assert.Error(t, l.Remove(a.ID))

	l.Clear()
	assert.Empty(t, l.Files())
	assert.False(t, l.IsUploading())
}

func TestSetProgressBounds(t *testing.T) {
	l := NewList(Config{})
	f, err := l.AddLocal("a.txt", "document", 1)
	require.NoError(t, err)
	assert.Error(t, l.SetProgress(f.ID, 100))
	assert.Error(t, l.SetProgress(f.ID, -2))
	assert.Error(t, l.SetProgress("missing", 10))
}

func TestBlockLocalNetworks(t *testing.T) {
	l := NewList(Config{BlockLocalNetworks: true})
	for _, url := range []string{"http://localhost:8080/a.png", "https://192.168.0.10/a.png"} {
		_, err := l.AddRemote(url)
		assert.True(t, errors.Is(err, ErrValidation), url)
	}
	_, err := l.AddRemote("http://files.example.com/a.png")
	assert.NoError(t, err)
}

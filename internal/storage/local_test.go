package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourlabs/compoctl/internal/models"
)

func newLocal(t *testing.T) (*LocalStorage, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	l, err := NewLocalStorage(fs, &LocalConfig{BasePath: "/archives"})
	require.NoError(t, err)
	return l, fs
}

func TestLocalStorage_StoreRetrieve(t *testing.T) {
	l, fs := newLocal(t)
	ctx := context.Background()

	err := l.Store(ctx, &Archive{
		ID:       "shop@20240101-120000",
		Metadata: models.ArchiveMetadata{ID: "shop@20240101-120000", Project: "shop", Size: 4},
		Data:     strings.NewReader("data"),
	})
	require.NoError(t, err)

	exists, err := afero.Exists(fs, "/archives/shop@20240101-120000.tar.gz")
	require.NoError(t, err)
	assert.True(t, exists)
	leftover, _ := afero.Exists(fs, "/archives/shop@20240101-120000.tar.gz.part")
	assert.False(t, leftover)

	archive, err := l.Retrieve(ctx, "shop@20240101-120000")
	require.NoError(t, err)
	defer archive.Close()

	data, err := io.ReadAll(archive.Data)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
	assert.Equal(t, "shop", archive.Metadata.Project)
}

func TestLocalStorage_RetrieveMissing(t *testing.T) {
	l, _ := newLocal(t)

	_, err := l.Retrieve(context.Background(), "nope@1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStorage_ListExistsDelete(t *testing.T) {
	l, fs := newLocal(t)
	ctx := context.Background()

	for _, id := range []string{"a@1", "b@1"} {
		require.NoError(t, l.Store(ctx, &Archive{
			ID:       id,
			Metadata: models.ArchiveMetadata{ID: id},
			Data:     strings.NewReader(id),
		}))
	}
	require.NoError(t, afero.WriteFile(fs, "/archives/garbage.json", []byte("{not json"), 0o644))

	list, err := l.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	ok, err := l.Exists(ctx, "a@1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Delete(ctx, "a@1"))
	ok, err = l.Exists(ctx, "a@1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, l.Delete(ctx, "a@1"))
}

func TestNewBackend_RequiresType(t *testing.T) {
	_, err := NewBackend(context.Background(), afero.NewMemMapFs(), &Config{})
	assert.Error(t, err)

	_, err = NewBackend(context.Background(), afero.NewMemMapFs(), &Config{Type: "ftp"})
	assert.Error(t, err)

	b, err := NewBackend(context.Background(), afero.NewMemMapFs(), &Config{Type: "local", Local: &LocalConfig{BasePath: "/x"}})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, b)
}

package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpack(t *testing.T) {
	src := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(src, "/app/backup/db/dump.sql", []byte("CREATE TABLE t;"), 0o600))
	require.NoError(t, afero.WriteFile(src, "/app/backup/docker-compose._restore.yml", []byte("services: {}\n"), 0o644))
	require.NoError(t, src.MkdirAll("/app/backup/empty", 0o755))

	buf := &bytes.Buffer{}
	require.NoError(t, Pack(src, "/app/backup", buf))

	dst := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(dst, "/other/backup/keep.txt", []byte("untouched"), 0o644))
	require.NoError(t, afero.WriteFile(dst, "/other/backup/db/dump.sql", []byte("old"), 0o644))

	require.NoError(t, Unpack(dst, buf, "/other/backup"))

	data, err := afero.ReadFile(dst, "/other/backup/db/dump.sql")
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE t;", string(data))

	data, err = afero.ReadFile(dst, "/other/backup/docker-compose._restore.yml")
	require.NoError(t, err)
	assert.Equal(t, "services: {}\n", string(data))

	data, err = afero.ReadFile(dst, "/other/backup/keep.txt")
	require.NoError(t, err)
	assert.Equal(t, "untouched", string(data))

	isDir, err := afero.IsDir(dst, "/other/backup/empty")
	require.NoError(t, err)
	assert.True(t, isDir)
}

func craft(t *testing.T, name string) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: 4, Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte("evil"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf
}

func TestUnpack_RejectsTraversal(t *testing.T) {
	for _, name := range []string{"../escape.txt", "db/../../escape.txt", "/etc/passwd"} {
		t.Run(name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			err := Unpack(fs, craft(t, name), "/app/backup")
			assert.True(t, errors.Is(err, ErrUnsafePath))

			exists, _ := afero.Exists(fs, "/app/escape.txt")
			assert.False(t, exists)
		})
	}
}

func TestUnpack_NotGzip(t *testing.T) {
	err := Unpack(afero.NewMemMapFs(), bytes.NewReader([]byte("plain text")), "/x")
	assert.Error(t, err)
}

func TestUnpack_CorruptTrailer(t *testing.T) {
	data := craft(t, "db/dump.sql").Bytes()
	data[len(data)-1] ^= 0xff

	err := Unpack(afero.NewMemMapFs(), bytes.NewReader(data), "/app/backup")
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/.staging/db/dump.sql", []byte("new"), 0o644))
	require.NoError(t, fs.MkdirAll("/app/.staging/empty", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/app/backup/db/dump.sql", []byte("old"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/app/backup/keep.txt", []byte("kept"), 0o644))

	require.NoError(t, Merge(fs, "/app/.staging", "/app/backup"))

	data, err := afero.ReadFile(fs, "/app/backup/db/dump.sql")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	data, err = afero.ReadFile(fs, "/app/backup/keep.txt")
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))

	isDir, err := afero.IsDir(fs, "/app/backup/empty")
	require.NoError(t, err)
	assert.True(t, isDir)
}

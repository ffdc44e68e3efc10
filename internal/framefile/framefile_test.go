package framefile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendAndLoadAllPreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.data")
	f, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, f.Append([]byte("one")))
	require.NoError(t, f.Append([]byte("two")))
	require.NoError(t, f.Append([]byte("three")))
	require.NoError(t, f.Close())

	frames, skipped, err := LoadAll(path)
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Equal(t, [][]byte{[]byte("one"), []byte("two"), []byte("three")}, frames)
}

func TestLoadAllMissingFileIsEmpty(t *testing.T) {
	frames, skipped, err := LoadAll(filepath.Join(t.TempDir(), "missing.data"))
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Nil(t, frames)
}

func TestTruncateClearsFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.data")
	f, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, f.Append([]byte("payload")))
	require.NoError(t, f.Truncate())
	require.NoError(t, f.Append([]byte("after")))
	require.NoError(t, f.Close())

	frames, skipped, err := LoadAll(path)
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Equal(t, [][]byte{[]byte("after")}, frames)
}

func TestLoadAllSkipsCorruptBase64AndKeepsSurroundingFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.data")
	f, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, f.Append([]byte("before")))
	require.NoError(t, f.Close())

	require.NoError(t, appendRawLine(path, "not-valid-base64!!"))

	f, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, f.Append([]byte("after")))
	require.NoError(t, f.Close())

	frames, skipped, err := LoadAll(path)
	require.NoError(t, err)
	require.Equal(t, 1, skipped)
	require.Equal(t, [][]byte{[]byte("before"), []byte("after")}, frames)
}

func TestReadRawReturnsExactFileContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.data")
	f, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, f.Append([]byte("payload")))

	raw, err := f.ReadRaw()
	require.NoError(t, err)
	require.Equal(t, "cGF5bG9hZA==\n", string(raw))
}

func appendRawLine(path, line string) error {
	f, err := Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	f.mu.Lock()
	_, err = f.w.WriteString(line + "\n")
	f.mu.Unlock()
	return err
}

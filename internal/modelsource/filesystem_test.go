package modelsource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirectoryModelBytes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "detector.onnx.enc"), []byte("ciphertext"), 0o600))

	src := NewDirectory(dir)
	data, err := src.ModelBytes("detector")
	require.NoError(t, err)
	require.Equal(t, []byte("ciphertext"), data)
}

func TestDirectoryModelBytesMissing(t *testing.T) {
	src := NewDirectory(t.TempDir())
	_, err := src.ModelBytes("missing")
	require.Error(t, err)
}

func TestFileKeySourceTrimsTrailingNewline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.txt")
	require.NoError(t, os.WriteFile(path, []byte("s3cr3t\r\n"), 0o600))

	keys := NewFileKeySource(path)
	pass, err := keys.Passphrase()
	require.NoError(t, err)
	require.Equal(t, []byte("s3cr3t"), pass)
}

func TestFileKeySourceMissing(t *testing.T) {
	keys := NewFileKeySource(filepath.Join(t.TempDir(), "missing.txt"))
	_, err := keys.Passphrase()
	require.Error(t, err)
}

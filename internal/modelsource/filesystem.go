// Package modelsource implements the ModelByteSource and KeySource
// collaborators as local-filesystem adapters: ciphertext files
// under a configured models directory, key material under a
// configured key path.
package modelsource

import (
	"fmt"
	"os"
	"path/filepath"
)

// Directory reads encrypted model files named "<name>.onnx.enc" from a
// single directory on disk.
type Directory struct {
	Dir string
}

func NewDirectory(dir string) *Directory {
	return &Directory{Dir: dir}
}

func (d *Directory) ModelBytes(name string) ([]byte, error) {
	path := filepath.Join(d.Dir, name+".onnx.enc")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file %s: %w", path, err)
	}
	return data, nil
}

// FileKeySource reads key material for model decryption from a single
// file, trimming a trailing newline if present (so the file can be
// edited with a standard text editor without corrupting the key). A
// 32-byte file is used directly as the AES-256 key; anything else is
// treated as a passphrase for vision.DecryptModel to derive the key
// from.
type FileKeySource struct {
	Path string
}

func NewFileKeySource(path string) *FileKeySource {
	return &FileKeySource{Path: path}
}

func (k *FileKeySource) Passphrase() ([]byte, error) {
	data, err := os.ReadFile(k.Path)
	if err != nil {
		return nil, fmt.Errorf("read key file %s: %w", k.Path, err)
	}
	for len(data) > 0 && (data[len(data)-1] == '\n' || data[len(data)-1] == '\r') {
		data = data[:len(data)-1]
	}
	return data, nil
}

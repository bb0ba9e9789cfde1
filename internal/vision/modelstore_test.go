package vision

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

// encryptForTest mirrors the shipped encryption scheme (AES-256-CBC with
// a PKCS7-padded body, IV prefixed) so DecryptModel can be exercised
// without a real encrypted model fixture.
func encryptForTest(t *testing.T, plain, passphrase []byte) []byte {
	t.Helper()
	key := pbkdf2.Key(passphrase, modelSalt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	blockSize := block.BlockSize()
	pad := blockSize - len(plain)%blockSize
	padded := append(append([]byte(nil), plain...), make([]byte, pad)...)
	for i := len(plain); i < len(padded); i++ {
		padded[i] = byte(pad)
	}

	iv := make([]byte, blockSize)
	_, err = rand.Read(iv)
	require.NoError(t, err)

	out := make([]byte, blockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[blockSize:], padded)
	return out
}

func TestDecryptModelRoundTrip(t *testing.T) {
	plain := []byte("this stands in for an onnx model's bytes, padded or not")
	ciphertext := encryptForTest(t, plain, []byte("correct-horse-battery-staple"))

	got, err := DecryptModel(ciphertext, []byte("correct-horse-battery-staple"))
	require.NoError(t, err)
	require.Equal(t, plain, got)
}

// encryptForTestRawKey mirrors encryptForTest but uses the raw key
// directly, matching the base 32-byte KeySource contract.
func encryptForTestRawKey(t *testing.T, plain, key []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	blockSize := block.BlockSize()
	pad := blockSize - len(plain)%blockSize
	padded := append(append([]byte(nil), plain...), make([]byte, pad)...)
	for i := len(plain); i < len(padded); i++ {
		padded[i] = byte(pad)
	}

	iv := make([]byte, blockSize)
	_, err = rand.Read(iv)
	require.NoError(t, err)

	out := make([]byte, blockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[blockSize:], padded)
	return out
}

func TestDecryptModelUsesRaw32ByteKeyDirectly(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	plain := []byte("this stands in for an onnx model's bytes, padded or not")
	ciphertext := encryptForTestRawKey(t, plain, key)

	got, err := DecryptModel(ciphertext, key)
	require.NoError(t, err)
	require.Equal(t, plain, got)

	// A passphrase run through PBKDF2 must not coincidentally decrypt a
	// buffer encrypted with the raw key.
	_, err = DecryptModel(ciphertext, []byte("some-passphrase-not-32-bytes"))
	require.Error(t, err)
}

func TestDecryptModelWrongPassphrase(t *testing.T) {
	plain := []byte("secret model bytes")
	ciphertext := encryptForTest(t, plain, []byte("right-passphrase"))

	_, err := DecryptModel(ciphertext, []byte("wrong-passphrase"))
	require.Error(t, err)
}

func TestDecryptModelTruncatedCiphertext(t *testing.T) {
	_, err := DecryptModel([]byte("short"), []byte("whatever"))
	require.Error(t, err)
}

type stubModelSource struct {
	data []byte
	err  error
}

func (s stubModelSource) ModelBytes(string) ([]byte, error) { return s.data, s.err }

type stubKeySource struct {
	pass []byte
	err  error
}

func (s stubKeySource) Passphrase() ([]byte, error) { return s.pass, s.err }

func TestMaterializeModelWritesDecryptedTempFile(t *testing.T) {
	plain := []byte("fake-onnx-bytes")
	ciphertext := encryptForTest(t, plain, []byte("pw"))

	path, cleanup, err := MaterializeModel("pnet", stubModelSource{data: ciphertext}, stubKeySource{pass: []byte("pw")})
	require.NoError(t, err)
	defer cleanup()

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, plain, got)

	cleanup()
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestMaterializeModelPropagatesSourceError(t *testing.T) {
	_, _, err := MaterializeModel("pnet", stubModelSource{err: os.ErrNotExist}, stubKeySource{pass: []byte("pw")})
	require.Error(t, err)
}

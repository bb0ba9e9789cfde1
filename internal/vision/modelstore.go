package vision

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

// ModelByteSource yields the encrypted bytes of a named model, e.g. from
// local disk, an embedded asset, or object storage.
type ModelByteSource interface {
	ModelBytes(name string) ([]byte, error)
}

// KeySource yields the key material used to decrypt models, independent
// of where the ciphertext itself comes from. The base contract is a raw
// 32-byte AES-256 key, used directly; a source may instead return an
// arbitrary-length passphrase, which DecryptModel derives the key from
// via PBKDF2.
type KeySource interface {
	Passphrase() ([]byte, error)
}

// pbkdf2Iterations and pbkdf2KeyLen follow the model-encryption scheme:
// a 256-bit AES key derived from the passphrase with a fixed salt
// embedded alongside the distribution, iterated enough to be slow to
// brute-force offline without being slow to start the service.
const (
	pbkdf2Iterations = 100_000
	pbkdf2KeyLen     = 32
)

// modelSalt is the fixed PBKDF2 salt for all shipped models. It does not
// need secrecy — it exists only to defeat precomputed rainbow tables —
// so a single constant salt across models is acceptable here.
var modelSalt = []byte("fd-vision-model-store-v1")

// DecryptModel reverses the AES-256-CBC+PKCS7 encryption applied to
// shipped ONNX model files: the key is applied to a buffer whose first
// block is the IV and the remainder is ciphertext.
//
// keyMaterial is used directly as the AES-256 key when it is exactly 32
// bytes long, per the base KeySource contract. Anything else is treated
// as an arbitrary-length passphrase and run through PBKDF2 to derive the
// key.
func DecryptModel(ciphertext []byte, keyMaterial []byte) ([]byte, error) {
	key := keyMaterial
	if len(key) != pbkdf2KeyLen {
		key = pbkdf2.Key(keyMaterial, modelSalt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, newError(ErrModelLoadFailed, "create aes cipher", err)
	}
	blockSize := block.BlockSize()
	if len(ciphertext) < blockSize || (len(ciphertext)-blockSize)%blockSize != 0 {
		return nil, newError(ErrModelLoadFailed, "ciphertext not a valid IV+PKCS7 buffer", nil)
	}

	iv := ciphertext[:blockSize]
	body := ciphertext[blockSize:]
	plain := make([]byte, len(body))

	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plain, body)

	return unpadPKCS7(plain, blockSize)
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	n := len(data)
	if n == 0 || n%blockSize != 0 {
		return nil, newError(ErrModelLoadFailed, "invalid padded buffer length", nil)
	}
	pad := int(data[n-1])
	if pad == 0 || pad > blockSize || pad > n {
		return nil, newError(ErrModelLoadFailed, "invalid pkcs7 padding", nil)
	}
	for _, b := range data[n-pad:] {
		if int(b) != pad {
			return nil, newError(ErrModelLoadFailed, "malformed pkcs7 padding", nil)
		}
	}
	return data[:n-pad], nil
}

// MaterializeModel decrypts an encrypted model and writes it to a private
// temp file, returning its path. ONNX Runtime's session constructor takes
// a filesystem path, so encrypted models shipped as opaque byte blobs are
// staged to disk just long enough to build the session.
func MaterializeModel(name string, src ModelByteSource, keys KeySource) (path string, cleanup func(), err error) {
	ciphertext, err := src.ModelBytes(name)
	if err != nil {
		return "", nil, newError(ErrModelLoadFailed, fmt.Sprintf("read model bytes %q", name), err)
	}
	keyMaterial, err := keys.Passphrase()
	if err != nil {
		return "", nil, newError(ErrModelLoadFailed, "read model key material", err)
	}
	plain, err := DecryptModel(ciphertext, keyMaterial)
	if err != nil {
		return "", nil, err
	}

	f, err := os.CreateTemp("", "fd-model-*.onnx")
	if err != nil {
		return "", nil, newError(ErrModelLoadFailed, "create temp model file", err)
	}
	if _, err := f.Write(plain); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, newError(ErrModelLoadFailed, "write temp model file", err)
	}
	f.Close()

	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

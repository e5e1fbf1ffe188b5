package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the size of the salt for key derivation
	SaltSize = 32
	// KeySize is the size of the AES key (256 bits)
	KeySize = 32
	// NonceSize is the size of the GCM nonce
	NonceSize = 12
	// Iterations for PBKDF2
	Iterations = 100000
	// ChunkSize is the plaintext carried by one frame
	ChunkSize = 64 * 1024

	// Magic identifies an encrypted archive
	Magic   = "COMPOCTL"
	version = 1

	frameData  byte = 0
	frameFinal byte = 1
)

var (
	ErrNotEncrypted = errors.New("not an encrypted compoctl archive")
	ErrDecrypt      = errors.New("decryption failed: wrong password or corrupted data")
	ErrTruncated    = errors.New("encrypted stream is truncated")
)

// EncryptionHeader contains encryption metadata
type EncryptionHeader struct {
	Salt  []byte
	Nonce []byte
}

// DeriveKey derives an encryption key from a password using PBKDF2
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)
}

func random(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

func newAEAD(password string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(DeriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// chunkNonce mixes the frame counter into the base nonce
func chunkNonce(base []byte, counter uint64) []byte {
	nonce := make([]byte, len(base))
	copy(nonce, base)
	for i := 0; i < 8 && i < len(nonce); i++ {
		nonce[len(nonce)-1-i] ^= byte(counter >> (8 * i))
	}
	return nonce
}

// EncryptWriter seals everything written to it into length prefixed
// AES-256-GCM frames. Close must be called to emit the final frame;
// a stream without one is rejected as truncated.
type EncryptWriter struct {
	w       io.Writer
	aead    cipher.AEAD
	nonce   []byte
	counter uint64
	buf     []byte
	closed  bool
}

// NewEncryptWriter writes the encryption header to w and returns a writer
// encrypting with a key derived from password
func NewEncryptWriter(w io.Writer, password string) (*EncryptWriter, error) {
	if password == "" {
		return nil, errors.New("encryption password is required")
	}

	salt, err := random(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce, err := random(NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aead, err := newAEAD(password, salt)
	if err != nil {
		return nil, err
	}

	if err := WriteEncryptionHeader(w, &EncryptionHeader{Salt: salt, Nonce: nonce}); err != nil {
		return nil, err
	}

	return &EncryptWriter{
		w:     w,
		aead:  aead,
		nonce: nonce,
		buf:   make([]byte, 0, ChunkSize),
	}, nil
}

func (ew *EncryptWriter) Write(p []byte) (int, error) {
	if ew.closed {
		return 0, errors.New("write to closed encrypt writer")
	}

	written := 0
	for len(p) > 0 {
		// A full chunk is only flushed once more data arrives, so that the
		// last chunk is always sealed as the final frame.
		if len(ew.buf) == ChunkSize {
			if err := ew.flush(frameData); err != nil {
				return written, err
			}
		}
		n := copy(ew.buf[len(ew.buf):ChunkSize], p)
		ew.buf = ew.buf[:len(ew.buf)+n]
		p = p[n:]
		written += n
	}
	return written, nil
}

// Close seals the buffered remainder as the final frame. It does not close
// the underlying writer.
func (ew *EncryptWriter) Close() error {
	if ew.closed {
		return nil
	}
	ew.closed = true
	return ew.flush(frameFinal)
}

func (ew *EncryptWriter) flush(kind byte) error {
	sealed := ew.aead.Seal(nil, chunkNonce(ew.nonce, ew.counter), ew.buf, []byte{kind})
	ew.counter++
	ew.buf = ew.buf[:0]

	var header [5]byte
	header[0] = kind
	binary.BigEndian.PutUint32(header[1:], uint32(len(sealed)))
	if _, err := ew.w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	if _, err := ew.w.Write(sealed); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// DecryptReader opens the frames written by EncryptWriter
type DecryptReader struct {
	r         io.Reader
	aead      cipher.AEAD
	nonce     []byte
	counter   uint64
	decrypted []byte
	done      bool
}

// NewDecryptReader reads the encryption header from r and returns a reader
// yielding the plaintext
func NewDecryptReader(r io.Reader, password string) (*DecryptReader, error) {
	header, err := ReadEncryptionHeader(r)
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(password, header.Salt)
	if err != nil {
		return nil, err
	}

	return &DecryptReader{r: r, aead: aead, nonce: header.Nonce}, nil
}

func (dr *DecryptReader) Read(p []byte) (int, error) {
	for len(dr.decrypted) == 0 {
		if dr.done {
			return 0, io.EOF
		}
		if err := dr.next(); err != nil {
			return 0, err
		}
	}

	n := copy(p, dr.decrypted)
	dr.decrypted = dr.decrypted[n:]
	return n, nil
}

func (dr *DecryptReader) next() error {
	var header [5]byte
	if _, err := io.ReadFull(dr.r, header[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return ErrTruncated
		}
		return err
	}

	kind := header[0]
	size := binary.BigEndian.Uint32(header[1:])
	if (kind != frameData && kind != frameFinal) || size > uint32(ChunkSize+dr.aead.Overhead()) {
		return ErrDecrypt
	}

	sealed := make([]byte, size)
	if _, err := io.ReadFull(dr.r, sealed); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return ErrTruncated
		}
		return err
	}

	plain, err := dr.aead.Open(nil, chunkNonce(dr.nonce, dr.counter), sealed, []byte{kind})
	if err != nil {
		return ErrDecrypt
	}
	dr.counter++
	dr.decrypted = plain

	if kind == frameFinal {
		dr.done = true
		var extra [1]byte
		if n, _ := dr.r.Read(extra[:]); n > 0 {
			return ErrDecrypt
		}
	}
	return nil
}

// WriteEncryptionHeader writes the encryption header to a writer
func WriteEncryptionHeader(w io.Writer, header *EncryptionHeader) error {
	buf := make([]byte, 0, len(Magic)+1+SaltSize+NonceSize)
	buf = append(buf, Magic...)
	buf = append(buf, version)
	buf = append(buf, header.Salt...)
	buf = append(buf, header.Nonce...)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write encryption header: %w", err)
	}
	return nil
}

// ReadEncryptionHeader reads the encryption header from a reader
func ReadEncryptionHeader(r io.Reader) (*EncryptionHeader, error) {
	buf := make([]byte, len(Magic)+1+SaltSize+NonceSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, ErrNotEncrypted
	}

	if string(buf[:len(Magic)]) != Magic {
		return nil, ErrNotEncrypted
	}
	if v := buf[len(Magic)]; v != version {
		return nil, fmt.Errorf("unsupported encryption version: %d", v)
	}

	off := len(Magic) + 1
	return &EncryptionHeader{
		Salt:  buf[off : off+SaltSize],
		Nonce: buf[off+SaltSize:],
	}, nil
}

// IsEncrypted checks if data starts with encryption header
func IsEncrypted(data []byte) bool {
	return len(data) >= len(Magic) && string(data[:len(Magic)]) == Magic
}

package secure

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrEmpty is returned when a buffer would hold no data.
var ErrEmpty = errors.New("secure: empty secret")

// ErrDestroyed is returned when a destroyed buffer is opened.
var ErrDestroyed = errors.New("secure: buffer destroyed")

// SecureBuffer holds a key share or token encrypted in a memguard enclave.
// The plaintext only exists inside locked buffers handed out by Open and Use.
type SecureBuffer struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	destroyed bool
}

// NewSecureBuffer moves data into a protected enclave. memguard wipes the
// source slice.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	return &SecureBuffer{enclave: memguard.NewEnclave(data)}, nil
}

// FromString copies s into a protected enclave.
func FromString(s string) (*SecureBuffer, error) {
	return NewSecureBuffer([]byte(s))
}

// ReadLine reads up to the first newline from r and stores it with
// surrounding whitespace removed. Used for key shares and tokens piped on stdin.
func ReadLine(r io.Reader) (*SecureBuffer, error) {
	line, err := bufio.NewReader(r).ReadBytes('\n')
	if err != nil && err != io.EOF {
		memguard.WipeBytes(line)
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		memguard.WipeBytes(line)
		return nil, ErrEmpty
	}

	buf := make([]byte, len(trimmed))
	copy(buf, trimmed)
	memguard.WipeBytes(line)
	return NewSecureBuffer(buf)
}

// Open decrypts the enclave into a locked buffer. The caller must Destroy the
// returned buffer.
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrDestroyed
	}
	return s.enclave.Open()
}

// Use opens the buffer, passes the plaintext to fn and destroys it again.
// fn must not retain the slice.
func (s *SecureBuffer) Use(fn func(plaintext []byte) error) error {
	locked, err := s.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()
	return fn(locked.Bytes())
}

// Destroy drops the enclave. Calling it more than once is safe.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.enclave = nil
	s.destroyed = true
}

// IsDestroyed reports whether Destroy has been called.
func (s *SecureBuffer) IsDestroyed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed
}

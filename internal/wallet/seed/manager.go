package seed

import (
	"crypto/sha512"
	"sync"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"
)

var ErrInvalidMnemonic = errors.New("invalid BIP39 mnemonic")

// manager implements Manager, safe for concurrent use
type manager struct {
	seed        []byte
	mu          sync.RWMutex
	initialized bool
}

// NewManager creates a new SeedManager
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewManager() Manager {
	return &manager{
		seed:        nil,
		initialized: false,
	}
}

// Initialize converts mnemonic to a seed using PBKDF2 (BIP39 standard)
func (m *manager) Initialize(mnemonic string, passphrase string) error {
	if !bip39.IsMnemonicValid(mnemonic) {
		return ErrInvalidMnemonic
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// BIP39: seed = PBKDF2(mnemonic, "mnemonic" + passphrase, 2048, 64, SHA512)
	const (
		pbkdf2Iterations = 2048 // BIP39 standard iterations
		pbkdf2KeyLength  = 64   // BIP39 standard key length (512 bits)
	)

	seed := pbkdf2.Key(
		[]byte(mnemonic),
		[]byte("mnemonic"+passphrase),
		pbkdf2Iterations,
		pbkdf2KeyLength,
		sha512.New,
	)

	m.clear()
	m.seed = seed
	m.initialized = true

	return nil
}

// GetSeed returns a copy of the seed
func (m *manager) GetSeed() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.initialized || m.seed == nil {
		return nil
	}

	seedCopy := make([]byte, len(m.seed))
	copy(seedCopy, m.seed)
	return seedCopy
}

// IsInitialized checks if seed is initialized
func (m *manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.initialized
}

// Clear clears the seed from memory
func (m *manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clear()
}

// clear assumes m.mu is held.
func (m *manager) clear() {
	for i := range m.seed {
		m.seed[i] = 0
	}
	m.seed = nil
	m.initialized = false
}

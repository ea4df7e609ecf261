package seed

// Manager holds the BIP39 seed of the emulated device in memory
type Manager interface {
	// Initialize derives the seed from mnemonic and the optional BIP39 passphrase
	Initialize(mnemonic string, passphrase string) error

	// GetSeed returns a copy of the seed or nil before Initialize
	GetSeed() []byte

	IsInitialized() bool

	// Clear wipes the seed from memory
	Clear()
}

package address

import "context"

// Service provides BIP32 key derivation from a BIP39 seed
type Service interface {
	// DeriveKey derives the private key and chain code at path
	// WARNING: Caller must call Clear on the returned key after use
	DeriveKey(ctx context.Context, seed []byte, path string) (*Key, error)
}

// Key is a derived secp256k1 private key with its chain code
type Key struct {
	PrivateKey []byte // 32 bytes, left padded
	ChainCode  []byte
}

// Clear zeroes the private key
func (k *Key) Clear() {
	for i := range k.PrivateKey {
		k.PrivateKey[i] = 0
	}
}

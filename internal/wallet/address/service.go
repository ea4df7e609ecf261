package address

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/pkg/errors"
)

type service struct{}

// NewService creates a new AddressService
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService() Service {
	return &service{}
}

// ParsePath parses a BIP32 path with or without the leading "m/".
// Unlike accounts.ParseDerivationPath, paths without "m/" are treated as absolute.
func ParsePath(path string) (accounts.DerivationPath, error) {
	trimmed := strings.TrimSpace(path)
	if len(trimmed) == 0 {
		return nil, errors.New("empty derivation path")
	}

	if !strings.HasPrefix(trimmed, "m/") && trimmed != "m" {
		trimmed = "m/" + trimmed
	}

	parsed, err := accounts.ParseDerivationPath(trimmed)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid derivation path %q", path)
	}

	return parsed, nil
}

// JoinPath returns "{basePath}/{index}" without a trailing slash duplication.
func JoinPath(basePath string, index int) string {
	return fmt.Sprintf("%s/%d", strings.TrimSuffix(basePath, "/"), index)
}

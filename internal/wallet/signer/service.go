package signer

import (
	"math/big"
	"sync"

	"github.com/dropbox/godropbox/time2"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github/chapool/ledger-signer/internal/config"
	"github/chapool/ledger-signer/internal/device"
	"github/chapool/ledger-signer/internal/wallet/address"
)

type service struct {
	device  device.Device
	clock   time2.Clock
	chainID *big.Int

	accountsLength     int
	addressSearchLimit int

	mu            sync.RWMutex
	basePath      string
	pathIndex     int
	alwaysConfirm bool
}

// derivation is a snapshot of the path settings taken at the start of an operation
type derivation struct {
	basePath      string
	pathIndex     int
	alwaysConfirm bool
}

// NewService creates a new SignerService backed by dev, timing connection checks with clock
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(dev device.Device, cfg config.Ledger, clock time2.Clock) (Service, error) {
	if len(cfg.BasePath) == 0 {
		cfg.BasePath = config.DefaultBasePath
	}
	if cfg.AccountsLength == 0 {
		cfg.AccountsLength = config.DefaultAccountsLength
	}
	if cfg.AddressSearchLimit == 0 {
		cfg.AddressSearchLimit = config.DefaultAddressSearchLimit
	}

	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(dev, "device"),
		vala.IsNotNil(clock, "clock"),
		vala.GreaterThan(int(cfg.ChainID), 0, "chainID"),
		vala.GreaterThan(cfg.AccountsLength, 0, "accountsLength"),
		vala.GreaterThan(cfg.AddressSearchLimit, 0, "addressSearchLimit"),
		vala.Not(vala.GreaterThan(0, cfg.PathIndex, "pathIndex")),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "invalid signer configuration")
	}

	if _, err := address.ParsePath(cfg.BasePath); err != nil {
		return nil, errors.Wrap(err, "invalid base path")
	}

	return &service{
		device:             dev,
		clock:              clock,
		chainID:            big.NewInt(cfg.ChainID),
		accountsLength:     cfg.AccountsLength,
		addressSearchLimit: cfg.AddressSearchLimit,
		basePath:           cfg.BasePath,
		pathIndex:          cfg.PathIndex,
		alwaysConfirm:      cfg.AlwaysConfirm,
	}, nil
}

// GetPath returns the base path, the value SetPath accepts.
func (s *service) GetPath() string {
	return s.current().basePath
}

// GetPathIndex returns the index appended to the base path by GetAccounts and SignTransaction.
func (s *service) GetPathIndex() int {
	return s.current().pathIndex
}

// SetPath replaces the base path, e.g. "44'/60'/0'" or "m/44'/60'/1'"
func (s *service) SetPath(path string) error {
	if _, err := address.ParsePath(path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.basePath = path

	return nil
}

func (s *service) SetPathIndex(index int) error {
	if index < 0 {
		return ErrInvalidPathIndex
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pathIndex = index

	return nil
}

func (s *service) ChainID() int64 {
	return s.chainID.Int64()
}

// IsSupported always reports true, there is no feature detection
func (s *service) IsSupported() bool {
	return true
}

func (s *service) current() derivation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return derivation{
		basePath:      s.basePath,
		pathIndex:     s.pathIndex,
		alwaysConfirm: s.alwaysConfirm,
	}
}

package wallet

import (
	"context"
	"fmt"
	"os"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tyler-smith/go-bip39"
	"github/chapool/ledger-signer/internal/config"
	"github/chapool/ledger-signer/internal/device"
	"github/chapool/ledger-signer/internal/device/emulator"
	"github/chapool/ledger-signer/internal/device/ledger"
	"github/chapool/ledger-signer/internal/wallet/address"
	"github/chapool/ledger-signer/internal/wallet/keystore"
	"github/chapool/ledger-signer/internal/wallet/seed"
	"golang.org/x/term"
)

const (
	minPasswordLength = 8
	mnemonicEntropy   = 256
)

// OpenDevice connects the device selected by cfg.Device.Type.
//
//nolint:ireturn // Returning interface is intentional, callers only need the capability
func OpenDevice(ctx context.Context, cfg config.Server) (device.Device, error) {
	log := log.With().Str("component", "device_init").Logger()

	switch cfg.Device.Type {
	case config.DeviceTypeLedger:
		hub, err := ledger.NewHub(cfg.Device.ProductIDs, time2.DefaultClock)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create ledger hub")
		}

		dev, err := hub.Open(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open ledger")
		}

		version, err := dev.Version(ctx)
		if err != nil {
			// the ethereum app might not be open yet, signing calls will report it
			log.Warn().Err(err).Str("device", dev.ID()).Msg("Failed to read ethereum app version")
		} else {
			log.Info().Str("device", dev.ID()).Str("app_version", fmt.Sprintf("%d.%d.%d", version[0], version[1], version[2])).Msg("Ledger connected")
		}

		return dev, nil

	case config.DeviceTypeEmulator:
		keystoreService, err := keystore.NewService(cfg.Emulator.KeystorePath, keystore.DefaultScryptParams())
		if err != nil {
			return nil, errors.Wrap(err, "failed to create keystore service")
		}

		seedManager := seed.NewManager()
		if err := InitializeEmulator(ctx, cfg.Emulator, seedManager, keystoreService); err != nil {
			return nil, err
		}

		log.Warn().Msg("Using software emulator, keys are held in memory")

		return emulator.New(seedManager, address.NewService()), nil

	default:
		return nil, errors.Errorf("unknown device type %q", cfg.Device.Type)
	}
}

// InitializeEmulator initializes the seed manager of the emulator
// This function handles:
// 1. Using EMULATOR_MNEMONIC directly if set
// 2. If the keystore exists, decrypting it with EMULATOR_PASSWORD or a prompted password
// 3. If not, generating a new mnemonic and storing it in a new keystore
func InitializeEmulator(ctx context.Context, cfg config.Emulator, seedManager seed.Manager, keystoreService keystore.Service) error {
	log := log.With().Str("component", "emulator_init").Logger()

	if len(cfg.Mnemonic) > 0 {
		log.Warn().Msg("Using mnemonic from environment, keystore is ignored")
		return errors.Wrap(seedManager.Initialize(cfg.Mnemonic, cfg.Passphrase), "failed to initialize seed manager")
	}

	exists, err := keystoreService.Exists(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check keystore existence")
	}

	var mnemonic string
	if !exists {
		log.Info().Str("path", keystoreService.Path()).Msg("Keystore not found. Generating new mnemonic...")

		mnemonic, err = NewMnemonic()
		if err != nil {
			return err
		}

		if err := CreateKeystore(ctx, keystoreService, mnemonic, cfg.Password); err != nil {
			return err
		}
	} else {
		password := cfg.Password
		if len(password) == 0 {
			log.Info().Str("path", keystoreService.Path()).Msg("Keystore found. Please enter password to unlock...")

			password, err = promptPassword("Enter keystore password: ")
			if err != nil {
				return errors.Wrap(err, "failed to read password")
			}
		}

		mnemonic, err = keystoreService.DecryptMnemonic(ctx, password)
		if err != nil {
			return errors.Wrap(err, "failed to decrypt keystore")
		}
	}

	if err := seedManager.Initialize(mnemonic, cfg.Passphrase); err != nil {
		return errors.Wrap(err, "failed to initialize seed manager")
	}

	log.Info().Msg("Seed manager initialized successfully")

	return nil
}

// CreateKeystore encrypts mnemonic into a new keystore. Without password the user is
// prompted twice.
func CreateKeystore(ctx context.Context, keystoreService keystore.Service, mnemonic string, password string) error {
	if !bip39.IsMnemonicValid(mnemonic) {
		return seed.ErrInvalidMnemonic
	}

	if len(password) == 0 {
		var err error
		password, err = promptPassword(fmt.Sprintf("Enter password for keystore (min %d characters): ", minPasswordLength))
		if err != nil {
			return errors.Wrap(err, "failed to read password")
		}

		passwordConfirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return errors.Wrap(err, "failed to read password confirmation")
		}

		if password != passwordConfirm {
			return errors.New("passwords do not match")
		}
	}

	if len(password) < minPasswordLength {
		return errors.Errorf("password must be at least %d characters", minPasswordLength)
	}

	if _, err := keystoreService.CreateKeystore(ctx, mnemonic, password); err != nil {
		return errors.Wrap(err, "failed to create keystore")
	}

	log.Info().Str("path", keystoreService.Path()).Msg("Keystore created successfully")

	return nil
}

// NewMnemonic generates a 24 word BIP39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropy)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate entropy")
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate mnemonic")
	}

	return mnemonic, nil
}

// promptPassword prompts for password input (hides input)
//
//nolint:forbidigo // Password input requires direct terminal I/O
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", errors.Wrap(err, "failed to read password from terminal")
	}

	fmt.Fprintln(os.Stderr)

	return string(passwordBytes), nil
}

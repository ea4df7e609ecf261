package keystore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github/chapool/ledger-signer/internal/util"
)

const keystoreFileMode = 0o600

type service struct {
	path   string
	params ScryptParams
}

// NewService creates a new KeystoreService persisting to the file at path
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(path string, params ScryptParams) (Service, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(path, "path"),
		vala.GreaterThan(params.N, 1, "params.N"),
		vala.GreaterThan(params.DKLen, 31, "params.DKLen"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "invalid keystore configuration")
	}

	return &service{
		path:   path,
		params: params,
	}, nil
}

func (s *service) Path() string {
	return s.path
}

// CreateKeystore creates and encrypts a mnemonic to keystore
func (s *service) CreateKeystore(ctx context.Context, mnemonic string, password string) (*KeystoreJSON, error) {
	log := util.LogFromContext(ctx)

	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check keystore existence")
	}
	if exists {
		return nil, ErrKeystoreExists
	}

	keystoreJSON, err := encryptMnemonic(mnemonic, password, s.params)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encrypt mnemonic")
		return nil, errors.Wrap(err, "failed to encrypt mnemonic")
	}

	keystoreData, err := json.MarshalIndent(keystoreJSON, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal keystore JSON")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrap(err, "failed to create keystore directory")
		}
	}

	if err := os.WriteFile(s.path, keystoreData, keystoreFileMode); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("Failed to write keystore")
		return nil, errors.Wrap(err, "failed to write keystore")
	}

	log.Info().Str("path", s.path).Str("id", keystoreJSON.ID).Msg("Keystore written")

	return keystoreJSON, nil
}

// DecryptMnemonic decrypts mnemonic from keystore
func (s *service) DecryptMnemonic(ctx context.Context, password string) (string, error) {
	log := util.LogFromContext(ctx)

	keystoreData, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrKeystoreNotFound
		}
		return "", errors.Wrap(err, "failed to read keystore")
	}

	var keystoreJSON KeystoreJSON
	if err := json.Unmarshal(keystoreData, &keystoreJSON); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal keystore JSON")
	}

	mnemonic, err := decryptMnemonic(&keystoreJSON, password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to decrypt mnemonic")
		return "", err
	}

	return mnemonic, nil
}

// Exists checks if keystore exists
func (s *service) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, errors.Wrap(err, "failed to stat keystore")
}

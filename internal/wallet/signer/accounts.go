package signer

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github/chapool/ledger-signer/internal/util"
	"github/chapool/ledger-signer/internal/wallet/address"
)

// GetAccounts fetches addresses one at a time, the device handles a single request at once.
// The first failure aborts the whole listing.
func (s *service) GetAccounts(ctx context.Context) ([]string, error) {
	log := util.LogFromContext(ctx)
	d := s.current()

	accounts := make([]string, 0, s.accountsLength)
	for i := range s.accountsLength {
		path := address.JoinPath(d.basePath, d.pathIndex+i)

		res, err := s.device.GetAddress(ctx, path, d.alwaysConfirm, false)
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("Failed to get address from device")
			return nil, err
		}

		accounts = append(accounts, strings.ToLower(res.Address))
	}

	return accounts, nil
}

// findIndex probes indices 0..addressSearchLimit-1 under the base path for from.
func (s *service) findIndex(ctx context.Context, basePath string, from string) (int, error) {
	log := util.LogFromContext(ctx)

	for i := range s.addressSearchLimit {
		path := address.JoinPath(basePath, i)

		res, err := s.device.GetAddress(ctx, path, false, false)
		if err != nil {
			return 0, err
		}

		if strings.EqualFold(res.Address, from) {
			log.Debug().Str("from", from).Int("index", i).Msg("Resolved address to derivation index")
			return i, nil
		}
	}

	return 0, errors.Wrapf(ErrAddressNotFound, "%s not within the first %d indices of %s", from, s.addressSearchLimit, basePath)
}

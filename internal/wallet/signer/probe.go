package signer

import (
	"context"
	"time"

	"github/chapool/ledger-signer/internal/util"
	"github/chapool/ledger-signer/internal/wallet/address"
)

func (s *service) TestConnection(ctx context.Context, timeout time.Duration, callback ConnectionCallback) {
	connected, err := s.ProbeConnection(ctx, timeout)
	callback(connected, err)
}

// ProbeConnection reports connected=false without error if the device does not answer
// within timeout. The in-flight request is not cancelled, its late result is dropped.
func (s *service) ProbeConnection(ctx context.Context, timeout time.Duration) (bool, error) {
	log := util.LogFromContext(ctx)
	path := address.JoinPath(s.current().basePath, 0)
	start := s.clock.Now()

	// buffered so the losing request can always complete
	result := make(chan error, 1)
	go func() {
		_, err := s.device.GetAddress(context.WithoutCancel(ctx), path, false, false)
		result <- err
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		elapsed := s.clock.Now().Sub(start)
		if err != nil {
			log.Debug().Err(err).Dur("elapsed", elapsed).Msg("Device probe failed")
			return false, err
		}
		log.Debug().Dur("elapsed", elapsed).Msg("Device answered connection check")
		return true, nil
	case <-timer.C:
		log.Debug().Dur("timeout", timeout).Msg("Device probe timed out")
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

package common

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/ledger-signer/internal/api"
	"github/chapool/ledger-signer/internal/util"
)

func GetHealthyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/healthy", getHealthyHandler(s))
}

// Health check
// Probes the device for an address at index 0 within LEDGER_PROBE_TIMEOUT.
func getHealthyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		if !s.Ready() {
			return c.String(521, "Not ready.")
		}

		var (
			connected bool
			probeErr  error
		)
		s.Wallet.TestConnection(ctx, s.Config.Ledger.ProbeTimeout, func(ok bool, err error) {
			connected = ok
			probeErr = err
		})

		if probeErr != nil {
			log.Warn().Err(probeErr).Msg("Health check failed, device error")
			return c.String(521, "Device error: "+probeErr.Error())
		}

		if !connected {
			log.Warn().Dur("timeout", s.Config.Ledger.ProbeTimeout).Msg("Health check failed, device did not answer in time")
			return c.String(521, "Device not connected.")
		}

		return c.String(http.StatusOK, "Healthy.")
	}
}

package handlers

import (
	"github.com/labstack/echo/v4"
	"github/chapool/ledger-signer/internal/api"
	"github/chapool/ledger-signer/internal/api/handlers/common"
	"github/chapool/ledger-signer/internal/api/handlers/rpc"
)

func AttachAllRoutes(s *api.Server) {
	// attach our routes
	s.Router.Routes = []*echo.Route{
		common.GetHealthyRoute(s),
		common.GetReadyRoute(s),
		common.GetVersionRoute(s),
		rpc.PostRPCRoute(s),
	}
}

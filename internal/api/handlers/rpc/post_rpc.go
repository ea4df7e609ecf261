package rpc

import (
	"github.com/labstack/echo/v4"
	"github/chapool/ledger-signer/internal/api"
)

// PostRPCRoute mounts the JSON-RPC server. Single calls and batches are served by
// s.RPC, protocol errors are reported in the body with status 200.
func PostRPCRoute(s *api.Server) *echo.Route {
	return s.Router.RPC.POST("", echo.WrapHandler(s.RPC))
}

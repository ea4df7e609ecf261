package httperrors

import (
	"fmt"

	"github.com/pkg/errors"
	"github/chapool/ledger-signer/internal/device"
	"github/chapool/ledger-signer/internal/wallet/signer"
)

// JSON-RPC 2.0 and EIP-1193 error codes. The protocol level codes are produced by the
// rpc server itself.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeDeviceError          = -32000
	CodeAddressNotFound      = -32001
	CodeFirmwareIncompatible = -32002

	CodeUserRejected = 4001
)

// RPCError is the error object of a JSON-RPC response. It implements rpc.Error and
// rpc.DataError, so go-ethereum's server reports Code and Data as they are.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

func (e *RPCError) ErrorCode() int {
	return e.Code
}

func (e *RPCError) ErrorData() interface{} {
	return e.Data
}

func NewRPCError(code int, message string) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
	}
}

func NewInvalidParamsError(format string, args ...interface{}) *RPCError {
	return NewRPCError(CodeInvalidParams, fmt.Sprintf(format, args...))
}

// FromError maps signer and device errors onto JSON-RPC error objects.
func FromError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	var statusErr *device.StatusError

	switch {
	case device.IsUserRejected(err):
		return &RPCError{Code: CodeUserRejected, Message: "User rejected the request on the device", Data: err.Error()}
	case errors.Is(err, signer.ErrAddressNotFound):
		return &RPCError{Code: CodeAddressNotFound, Message: err.Error()}
	case errors.Is(err, signer.ErrFirmwareIncompatible):
		return &RPCError{Code: CodeFirmwareIncompatible, Message: err.Error()}
	case errors.As(err, &statusErr):
		return &RPCError{Code: CodeDeviceError, Message: statusErr.Error(), Data: map[string]uint16{"status": statusErr.Code}}
	default:
		return &RPCError{Code: CodeDeviceError, Message: err.Error()}
	}
}

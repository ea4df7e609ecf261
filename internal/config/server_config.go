package config

import (
	"time"

	"github.com/rs/zerolog"
	"github/chapool/ledger-signer/internal/util"
)

type EchoServer struct {
	Debug                     bool
	ListenAddress             string
	EnableCORSMiddleware      bool
	EnableLoggerMiddleware    bool
	EnableRecoverMiddleware   bool
	EnableRequestIDMiddleware bool
	EnableMetricsMiddleware   bool
}

type LoggerServer struct {
	Level              zerolog.Level
	RequestLevel       zerolog.Level
	PrettyPrintConsole bool
	Caller             bool
}

// Ledger holds the derivation settings of the signing adapter.
type Ledger struct {
	ChainID            int64
	BasePath           string
	PathIndex          int
	AlwaysConfirm      bool
	AccountsLength     int
	AddressSearchLimit int
	ProbeTimeout       time.Duration
}

// Device selects the device capability backing the signer.
type Device struct {
	// Type is either DeviceTypeLedger or DeviceTypeEmulator.
	Type string
	// ProductIDs restricts Ledger discovery; empty means every known product.
	ProductIDs []string
}

type Emulator struct {
	KeystorePath string
	// Passphrase is the optional BIP39 passphrase ("25th word").
	Passphrase string
	// Password unlocks the keystore without prompting, meant for automation.
	Password string
	// Mnemonic skips the keystore entirely. Never use outside development.
	Mnemonic string
}

type Server struct {
	Echo     EchoServer
	Logger   LoggerServer
	Ledger   Ledger
	Device   Device
	Emulator Emulator
}

const (
	DeviceTypeLedger   = "ledger"
	DeviceTypeEmulator = "emulator"

	DefaultBasePath           = "44'/60'/0'"
	DefaultAccountsLength     = 2
	DefaultAddressSearchLimit = 10
	DefaultProbeTimeout       = 2 * time.Second
)

// DefaultServiceConfigFromEnv returns the server config as parsed from environment variables
// and their respective defaults defined below.
// We don't expect that ENV_VARs change while we are running our application or our tests
// (and it would be a bad thing to do anyways with parallel testing).
// Do NOT use os.Setenv / os.Unsetenv in tests utilizing DefaultServiceConfigFromEnv()!
func DefaultServiceConfigFromEnv() Server {
	return Server{
		Echo: EchoServer{
			Debug:                     util.GetEnvAsBool("SERVER_ECHO_DEBUG", false),
			ListenAddress:             util.GetEnv("SERVER_ECHO_LISTEN_ADDRESS", ":8545"),
			EnableCORSMiddleware:      util.GetEnvAsBool("SERVER_ECHO_ENABLE_CORS_MIDDLEWARE", true),
			EnableLoggerMiddleware:    util.GetEnvAsBool("SERVER_ECHO_ENABLE_LOGGER_MIDDLEWARE", true),
			EnableRecoverMiddleware:   util.GetEnvAsBool("SERVER_ECHO_ENABLE_RECOVER_MIDDLEWARE", true),
			EnableRequestIDMiddleware: util.GetEnvAsBool("SERVER_ECHO_ENABLE_REQUEST_ID_MIDDLEWARE", true),
			EnableMetricsMiddleware:   util.GetEnvAsBool("SERVER_ECHO_ENABLE_METRICS_MIDDLEWARE", true),
		},
		Logger: LoggerServer{
			Level:              util.LogLevelFromString(util.GetEnv("SERVER_LOGGER_LEVEL", zerolog.InfoLevel.String())),
			RequestLevel:       util.LogLevelFromString(util.GetEnv("SERVER_LOGGER_REQUEST_LEVEL", zerolog.DebugLevel.String())),
			PrettyPrintConsole: util.GetEnvAsBool("SERVER_LOGGER_PRETTY_PRINT_CONSOLE", false),
			Caller:             util.GetEnvAsBool("SERVER_LOGGER_CALLER", false),
		},
		Ledger: Ledger{
			ChainID:            util.GetEnvAsInt64("LEDGER_CHAIN_ID", 1),
			BasePath:           util.GetEnv("LEDGER_BASE_PATH", DefaultBasePath),
			PathIndex:          util.GetEnvAsInt("LEDGER_PATH_INDEX", 0),
			AlwaysConfirm:      util.GetEnvAsBool("LEDGER_ALWAYS_CONFIRM", false),
			AccountsLength:     util.GetEnvAsInt("LEDGER_ACCOUNTS_LENGTH", DefaultAccountsLength),
			AddressSearchLimit: util.GetEnvAsInt("LEDGER_ADDRESS_SEARCH_LIMIT", DefaultAddressSearchLimit),
			ProbeTimeout:       util.GetEnvAsDuration("LEDGER_PROBE_TIMEOUT", DefaultProbeTimeout),
		},
		Device: Device{
			Type:       util.GetEnv("DEVICE_TYPE", DeviceTypeLedger),
			ProductIDs: util.GetEnvAsStringArr("DEVICE_LEDGER_PRODUCT_IDS", []string{}),
		},
		Emulator: Emulator{
			KeystorePath: util.GetEnv("EMULATOR_KEYSTORE_PATH", "emulator-keystore.json"),
			Passphrase:   util.GetEnv("EMULATOR_PASSPHRASE", ""),
			Password:     util.GetEnv("EMULATOR_PASSWORD", ""),
			Mnemonic:     util.GetEnv("EMULATOR_MNEMONIC", ""),
		},
	}
}

package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// LoadDotEnv loads .env files into the environment, missing files are skipped.
// Variables already set are never overwritten.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}

	for _, filename := range filenames {
		if err := gotenv.Load(filename); err != nil && !errors.Is(err, os.ErrNotExist) {
			return errors.Wrapf(err, "failed to load %s", filename)
		}
	}

	return nil
}

// LoadConfigFile exports every key of the yaml, toml or json file at path as environment
// variable, nested keys joined by "_" and upper cased ("ledger.chain_id" -> LEDGER_CHAIN_ID).
// Variables already set win over the file so DefaultServiceConfigFromEnv keeps its precedence.
func LoadConfigFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}

	for _, key := range v.AllKeys() {
		env := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if _, ok := os.LookupEnv(env); ok {
			continue
		}

		if err := os.Setenv(env, v.GetString(key)); err != nil {
			return errors.Wrapf(err, "failed to set %s", env)
		}
	}

	return nil
}

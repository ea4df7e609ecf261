package sign

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/ledger-signer/internal/api"
	"github/chapool/ledger-signer/internal/util/command"
	"github/chapool/ledger-signer/internal/wallet/signer"
)

const (
	fromFlag string = "from"
	hexFlag  string = "hex"
)

func newMessage() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message <message>",
		Short: "Signs a personal message",
		Long: `Signs "\x19Ethereum Signed Message:\n" + len(message) + message and prints r || s || v.
The account is looked up by --from within the first LEDGER_ADDRESS_SEARCH_LIMIT indices.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := serverConfig(cmd)
			if err != nil {
				return err
			}

			params, err := messageParamsFromFlags(cmd, args[0])
			if err != nil {
				return err
			}

			return command.WithServer(ctx, cfg, func(ctx context.Context, s *api.Server) error {
				return signMessage(ctx, s, params)
			})
		},
	}

	command.AddLedgerFlags(cmd)
	cmd.Flags().String(fromFlag, "", "Signing address, defaults to index 0")
	cmd.Flags().Bool(hexFlag, false, "Message is hex encoded")

	return cmd
}

func messageParamsFromFlags(cmd *cobra.Command, message string) (*signer.MessageParams, error) {
	from, err := cmd.Flags().GetString(fromFlag)
	if err != nil {
		return nil, err
	}

	isHex, err := cmd.Flags().GetBool(hexFlag)
	if err != nil {
		return nil, err
	}

	data := hex.EncodeToString([]byte(message))
	if isHex {
		if _, err := hex.DecodeString(trim0x(message)); err != nil {
			return nil, errors.Wrap(err, "invalid hex message")
		}
		data = trim0x(message)
	}

	return &signer.MessageParams{Data: data, From: from}, nil
}

func trim0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}

	return s
}

func signMessage(ctx context.Context, s *api.Server, params *signer.MessageParams) error {
	var result error
	s.Wallet.SignMessage(ctx, params, func(err error, signature string) {
		if err != nil {
			result = err
			return
		}

		//nolint:forbidigo // CLI output
		fmt.Println(signature)
	})

	return result
}

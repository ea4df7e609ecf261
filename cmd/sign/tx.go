package sign

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/ledger-signer/internal/api"
	"github/chapool/ledger-signer/internal/util/command"
	"github/chapool/ledger-signer/internal/wallet/signer"
)

const (
	toFlag       string = "to"
	nonceFlag    string = "nonce"
	gasPriceFlag string = "gas-price"
	gasFlag      string = "gas"
	valueFlag    string = "value"
	dataFlag     string = "data"
)

// Example:
//
//	app sign tx --to=0x70997970C51812dc3A010C7d01b50e0d17dc79C8 --nonce=0 --gas-price=1000000000 --gas=21000 --value=1000000000000000000
func newTx() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Signs a legacy EIP-155 transaction",
		Long:  `Signs with the account at the path index and prints the raw signed transaction.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cfg, err := serverConfig(cmd)
			if err != nil {
				return err
			}

			params, err := txParamsFromFlags(cmd)
			if err != nil {
				return err
			}

			return command.WithServer(ctx, cfg, func(ctx context.Context, s *api.Server) error {
				return signTx(ctx, s, params)
			})
		},
	}

	command.AddLedgerFlags(cmd)
	cmd.Flags().String(toFlag, "", "Recipient, empty for contract creation")
	cmd.Flags().Uint64(nonceFlag, 0, "Nonce")
	cmd.Flags().String(gasPriceFlag, "0", "Gas price in wei")
	cmd.Flags().Uint64(gasFlag, 21000, "Gas limit")
	cmd.Flags().String(valueFlag, "0", "Value in wei")
	cmd.Flags().String(dataFlag, "", "Hex encoded call data")

	return cmd
}

func txParamsFromFlags(cmd *cobra.Command) (*signer.TxParams, error) {
	flags := cmd.Flags()
	params := &signer.TxParams{}

	to, err := flags.GetString(toFlag)
	if err != nil {
		return nil, err
	}
	if len(to) > 0 {
		if !common.IsHexAddress(to) {
			return nil, errors.Errorf("invalid --%s address %q", toFlag, to)
		}
		addr := common.HexToAddress(to)
		params.To = &addr
	}

	nonce, err := flags.GetUint64(nonceFlag)
	if err != nil {
		return nil, err
	}
	params.Nonce = hexutil.Uint64(nonce)

	gas, err := flags.GetUint64(gasFlag)
	if err != nil {
		return nil, err
	}
	params.Gas = (*hexutil.Uint64)(&gas)

	if params.GasPrice, err = bigFlag(cmd, gasPriceFlag); err != nil {
		return nil, err
	}
	if params.Value, err = bigFlag(cmd, valueFlag); err != nil {
		return nil, err
	}

	data, err := flags.GetString(dataFlag)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if params.Data, err = hexutil.Decode(data); err != nil {
			return nil, errors.Wrapf(err, "invalid --%s", dataFlag)
		}
	}

	return params, nil
}

func bigFlag(cmd *cobra.Command, name string) (*hexutil.Big, error) {
	s, err := cmd.Flags().GetString(name)
	if err != nil {
		return nil, err
	}

	v, ok := math.ParseBig256(s)
	if !ok || v.Sign() < 0 {
		return nil, errors.Errorf("invalid --%s %q", name, s)
	}

	return (*hexutil.Big)(v), nil
}

func signTx(ctx context.Context, s *api.Server, params *signer.TxParams) error {
	var result error
	s.Wallet.SignTransaction(ctx, params, func(err error, signedTx string) {
		if err != nil {
			result = err
			return
		}

		//nolint:forbidigo // CLI output
		fmt.Println(signedTx)
	})

	return result
}

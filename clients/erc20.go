package clients

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/vitwit/avatarnft/types"
)

// Decimals reads decimals() of an ERC-20 token.
func (e *EVMClient) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	var out []interface{}
	err := e.bound(token, e.tokenABI).Call(&bind.CallOpts{Context: ctx}, &out, "decimals")
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

// BalanceOf reads the token balance of holder.
func (e *EVMClient) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	var out []interface{}
	err := e.bound(token, e.tokenABI).Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// TransferFrom sends transferFrom(payer, recipient, amount) from the signer
// account and waits for it to be mined. Errors after the transaction is sent
// carry its hash.
func (e *EVMClient) TransferFrom(ctx context.Context, token, payer, recipient common.Address, amount *big.Int) error {
	if e.signer == nil {
		return types.NewError(types.ErrConfigError, "no signer key configured for token transfers")
	}

	auth, err := bind.NewKeyedTransactorWithChainID(e.signer, e.chainID)
	if err != nil {
		return fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx

	tx, err := e.bound(token, e.tokenABI).Transact(auth, "transferFrom", payer, recipient, amount)
	if err != nil {
		return classifyTransferError(err)
	}

	receipt, err := bind.WaitMined(ctx, e.client, tx)
	return transferOutcome(tx.Hash(), receipt, err)
}

// transferOutcome classifies a sent transfer. A reverted receipt moved
// nothing; a failed wait leaves the transfer in an unknown state.
func transferOutcome(hash common.Hash, receipt *ethtypes.Receipt, err error) error {
	data := map[string]string{"tx_hash": hash.Hex()}
	if err != nil {
		return &types.Error{
			Code:    types.ErrConsistencyFault,
			Message: fmt.Sprintf("transfer %s sent but not confirmed: %v", hash.Hex(), err),
			Data:    data,
		}
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return &types.Error{
			Code:    types.ErrTransferFailed,
			Message: fmt.Sprintf("transfer %s reverted", hash.Hex()),
			Data:    data,
		}
	}
	return nil
}

// classifyTransferError maps ERC-20 revert reasons, in both the string and
// the custom error form, onto payment error codes.
func classifyTransferError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "insufficient allowance"), strings.Contains(msg, "ERC20InsufficientAllowance"):
		return &types.Error{Code: types.ErrInsufficientAllowance, Message: msg}
	case strings.Contains(msg, "exceeds balance"), strings.Contains(msg, "ERC20InsufficientBalance"):
		return &types.Error{Code: types.ErrInsufficientBalance, Message: msg}
	default:
		return fmt.Errorf("transferFrom failed: %w", err)
	}
}

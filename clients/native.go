package clients

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/vitwit/avatarnft/types"
)

// VerifyPayment fetches tx and its receipt and returns the value it moved
// from payer to recipient. Only mined, successful transfers are accepted.
func (e *EVMClient) VerifyPayment(ctx context.Context, hash common.Hash, payer, recipient common.Address) (*big.Int, error) {
	tx, pending, err := e.client.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, types.NewError(types.ErrPaymentUnverified, "transaction %s not found", hash.Hex())
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", hash.Hex(), err)
	}
	if pending {
		return nil, types.NewError(types.ErrPaymentUnverified, "transaction %s is still pending", hash.Hex())
	}

	receipt, err := e.client.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, types.NewError(types.ErrPaymentUnverified, "no receipt for transaction %s", hash.Hex())
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch receipt %s: %w", hash.Hex(), err)
	}

	return checkNativeTransfer(tx, receipt, payer, recipient, e.chainID)
}

func checkNativeTransfer(tx *ethtypes.Transaction, receipt *ethtypes.Receipt, payer, recipient common.Address, chainID *big.Int) (*big.Int, error) {
	hash := tx.Hash().Hex()
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, types.NewError(types.ErrPaymentUnverified, "transaction %s reverted", hash)
	}
	if tx.To() == nil || *tx.To() != recipient {
		return nil, types.NewError(types.ErrPaymentUnverified, "transaction %s does not pay %s", hash, recipient.Hex())
	}

	sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(chainID), tx)
	if err != nil {
		return nil, types.NewError(types.ErrPaymentUnverified, "transaction %s: %v", hash, err)
	}
	if sender != payer {
		return nil, types.NewError(types.ErrPaymentUnverified, "transaction %s was not sent by %s", hash, payer.Hex())
	}
	return new(big.Int).Set(tx.Value()), nil
}

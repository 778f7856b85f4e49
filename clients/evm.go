package clients

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vitwit/avatarnft/types"
	"github.com/vitwit/avatarnft/utils"
)

const aggregatorV3ABI = `[
	{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"latestRoundData","outputs":[
		{"internalType":"uint80","name":"roundId","type":"uint80"},
		{"internalType":"int256","name":"answer","type":"int256"},
		{"internalType":"uint256","name":"startedAt","type":"uint256"},
		{"internalType":"uint256","name":"updatedAt","type":"uint256"},
		{"internalType":"uint80","name":"answeredInRound","type":"uint80"}
	],"stateMutability":"view","type":"function"}
]`

const erc20ABI = `[
	{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"owner","type":"address"},{"internalType":"address","name":"spender","type":"address"}],"name":"allowance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"from","type":"address"},{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"value","type":"uint256"}],"name":"transferFrom","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// EVMClient reads Chainlink price feeds and pulls approved ERC-20 payments
// over JSON-RPC.
type EVMClient struct {
	rpcURL        string
	chainID       *big.Int
	client        *ethclient.Client
	signer        *ecdsa.PrivateKey
	aggregatorABI abi.ABI
	tokenABI      abi.ABI
}

func NewEVMClient(config types.ChainConfig) (*EVMClient, error) {
	aggregator, err := abi.JSON(strings.NewReader(aggregatorV3ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator ABI: %w", err)
	}
	token, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	client, err := ethclient.Dial(config.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum RPC: %w", err)
	}

	e := &EVMClient{
		rpcURL:        config.RPCUrl,
		client:        client,
		aggregatorABI: aggregator,
		tokenABI:      token,
	}

	if config.ChainID > 0 {
		e.chainID = big.NewInt(config.ChainID)
	} else {
		e.chainID, err = client.ChainID(context.Background())
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to read chain id: %w", err)
		}
	}

	if config.SignerKey != "" {
		e.signer, err = utils.PrivateKeyFromHex(config.SignerKey)
		if err != nil {
			client.Close()
			return nil, &types.Error{
				Code:    types.ErrConfigError,
				Message: fmt.Sprintf("invalid signer key: %v", err),
			}
		}
	}

	return e, nil
}

// Spender returns the account token allowances must be granted to.
func (e *EVMClient) Spender() common.Address {
	if e.signer == nil {
		return common.Address{}
	}
	return utils.AddressFromPrivateKey(e.signer)
}

func (e *EVMClient) ChainID() *big.Int {
	return new(big.Int).Set(e.chainID)
}

func (e *EVMClient) Close() {
	e.client.Close()
}

func (e *EVMClient) bound(address common.Address, contractABI abi.ABI) *bind.BoundContract {
	return bind.NewBoundContract(address, contractABI, e.client, e.client, e.client)
}

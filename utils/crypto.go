package utils

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// RecoverAddressFromSignature recovers the Ethereum address from a signature
func RecoverAddressFromSignature(hash []byte, signature string) (common.Address, error) {
	// Remove 0x prefix if present
	signature = strings.TrimPrefix(signature, "0x")

	sigBytes, err := hex.DecodeString(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", err)
	}

	if len(sigBytes) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(sigBytes))
	}

	// Adjust recovery ID for Ethereum
	if sigBytes[64] >= 27 {
		sigBytes[64] -= 27
	}

	pubKey, err := crypto.SigToPub(hash, sigBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// PrivateKeyFromHex creates a private key from hex string
func PrivateKeyFromHex(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")

	return crypto.HexToECDSA(hexKey)
}

// AddressFromPrivateKey derives the Ethereum address from a private key
func AddressFromPrivateKey(privateKey *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}

// SignHash signs a hash with the given private key
func SignHash(hash []byte, privateKey *ecdsa.PrivateKey) (string, error) {
	signature, err := crypto.Sign(hash, privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign hash: %w", err)
	}

	return hexutil.Encode(signature), nil
}

// SignPersonalMessage signs message the way personal_sign does
func SignPersonalMessage(message []byte, privateKey *ecdsa.PrivateKey) (string, error) {
	return SignHash(accounts.TextHash(message), privateKey)
}

// RecoverPersonalSigner returns the address that produced a personal_sign
// signature over message.
func RecoverPersonalSigner(message []byte, signature string) (common.Address, error) {
	return RecoverAddressFromSignature(accounts.TextHash(message), signature)
}

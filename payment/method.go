package payment

import (
	"github.com/ethereum/go-ethereum/common"
)

// Kind tags the variant of a payment Method.
type Kind int

const (
	// Native is payment in the network's native currency. With Tx set it is
	// proven by an on-chain transfer, otherwise the caller vouches for it.
	Native Kind = iota
	// Token is payment pulled from a registered fungible token.
	Token
)

func (k Kind) String() string {
	switch k {
	case Native:
		return "native"
	case Token:
		return "token"
	default:
		return "unknown"
	}
}

// Method is the payment method of one mint request. Token is only
// meaningful when Kind is Token, Tx only when Kind is Native.
type Method struct {
	Kind  Kind
	Token common.Address
	Tx    common.Hash
}

// NativeMethod returns the native currency method for an amount the caller
// has already received.
func NativeMethod() Method {
	return Method{Kind: Native}
}

// NativeTxMethod returns the native currency method paid by transaction tx.
func NativeTxMethod(tx common.Hash) Method {
	return Method{Kind: Native, Tx: tx}
}

// Verified reports whether the payment is proven by an on-chain transfer.
func (m Method) Verified() bool {
	return m.Kind == Native && m.Tx != (common.Hash{})
}

// TokenMethod returns the method paying with token.
func TokenMethod(token common.Address) Method {
	return Method{Kind: Token, Token: token}
}

func (m Method) String() string {
	if m.Kind == Token {
		return "token:" + m.Token.Hex()
	}
	if m.Verified() {
		return "native:" + m.Tx.Hex()
	}
	return m.Kind.String()
}

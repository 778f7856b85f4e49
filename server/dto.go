package server

import (
	"github.com/vitwit/avatarnft/types"
)

type IdentityRequest struct {
	FirstName    string `json:"firstName" validate:"max=256"`
	LastName     string `json:"lastName" validate:"max=256"`
	Website      string `json:"website" validate:"max=2048"`
	BodyType     string `json:"bodyType" validate:"max=64"`
	OutfitGender string `json:"outfitGender" validate:"max=64"`
	SkinTone     string `json:"skinTone" validate:"max=64"`
	CreatedAt    string `json:"createdAt" validate:"max=64"`
	ImageURI     string `json:"imageUri" validate:"max=2048"`
}

func (r IdentityRequest) fields() types.IdentityFields {
	return types.IdentityFields{
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Website:      r.Website,
		BodyType:     r.BodyType,
		OutfitGender: r.OutfitGender,
		SkinTone:     r.SkinTone,
		CreatedAt:    r.CreatedAt,
		ImageURI:     r.ImageURI,
	}
}

// MintNativeRequest references the native transfer, signed by the minter and
// sent to the fee recipient, that pays for the mint.
type MintNativeRequest struct {
	IdentityRequest
	TxHash string `json:"txHash" validate:"required,len=66,hexadecimal"`
}

// MintTokenRequest pays with Amount base units of Token.
type MintTokenRequest struct {
	IdentityRequest
	Token  string `json:"token" validate:"required,eth_addr"`
	Amount string `json:"amount" validate:"required"`
}

type AddTokenRequest struct {
	Token  string `json:"token" validate:"required,eth_addr"`
	Oracle string `json:"oracle" validate:"required,eth_addr"`
}

type CollectionRequest struct {
	Description string `json:"description"`
	Image       string `json:"image"`
	Link        string `json:"link"`
}

type WebpageRequest struct {
	URI string `json:"uri" validate:"required"`
}

type FeeResponse struct {
	CurrentFee          string `json:"currentFee"`
	CurrentFeeFormatted string `json:"currentFeeFormatted"`
	InitialFee          string `json:"initialFee"`
	IncrementThreshold  uint64 `json:"incrementThreshold"`
	IssuedCount         uint64 `json:"issuedCount"`
}

type MintResponse struct {
	RequestID string `json:"requestId"`
	ID        uint64 `json:"id"`
	Owner     string `json:"owner"`
	TokenURI  string `json:"tokenUri"`
	Method    string `json:"method"`
	Paid      string `json:"paid"`
	Value     string `json:"value"`
	Excess    string `json:"excess"`
	NextFee   string `json:"nextFee"`
}

type CollectionResponse struct {
	Name         string                           `json:"name"`
	Symbol       string                           `json:"symbol"`
	ContractURI  string                           `json:"contractUri"`
	Metadata     types.CollectionMetadataDocument `json:"metadata"`
	Webpage      string                           `json:"webpage"`
	FeeRecipient string                           `json:"feeRecipient"`
}

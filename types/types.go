package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenEntry binds a payment token to the price oracle that quotes it.
type TokenEntry struct {
	Token  common.Address `json:"token"`
	Oracle common.Address `json:"oracle"`
}

// PricingState is the issuance counter together with the stepped fee schedule.
//
// CurrentFee always equals InitialFee * 2^(IssuedCount / IncrementThreshold)
// under the default step function.
type PricingState struct {
	IssuedCount        uint64   `json:"issuedCount"`
	InitialFee         *big.Int `json:"initialFee"`
	IncrementThreshold uint64   `json:"incrementThreshold"`
	CurrentFee         *big.Int `json:"currentFee"`
}

// Copy returns a deep copy so callers never share big.Int pointers with the engine.
func (s PricingState) Copy() PricingState {
	out := PricingState{
		IssuedCount:        s.IssuedCount,
		IncrementThreshold: s.IncrementThreshold,
	}
	if s.InitialFee != nil {
		out.InitialFee = new(big.Int).Set(s.InitialFee)
	}
	if s.CurrentFee != nil {
		out.CurrentFee = new(big.Int).Set(s.CurrentFee)
	}
	return out
}

// IdentityFields are the avatar attributes supplied with a mint request,
// in the order the minting entry points accept them.
type IdentityFields struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Website      string `json:"website"`
	BodyType     string `json:"bodyType"`
	OutfitGender string `json:"outfitGender"`
	SkinTone     string `json:"skinTone"`
	CreatedAt    string `json:"createdAt"`
	ImageURI     string `json:"imageUri"`
}

// Attribute is a single trait entry of an item document.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// MetadataDocument is the per-item document. Field order is the canonical
// key order of the encoded JSON and must not be changed.
type MetadataDocument struct {
	Name        string      `json:"name"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	ExternalURL string      `json:"external_url"`
	Description string      `json:"description"`
	Attributes  []Attribute `json:"attributes"`
	Image       string      `json:"image"`
	CreatedAt   string      `json:"created_at"`
}

// CollectionMetadataDocument describes the collection as a whole.
// Field order is the canonical key order of the encoded JSON.
type CollectionMetadataDocument struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Image        string `json:"image"`
	ExternalLink string `json:"external_link"`
	FeeRecipient string `json:"fee_recipient"`
}

// ItemRecord is one issued item. ID and Metadata never change after creation.
// PaymentRef is the hash of the native transfer that paid for the item, if any.
type ItemRecord struct {
	ID         uint64           `json:"id"`
	Owner      common.Address   `json:"owner"`
	Metadata   MetadataDocument `json:"metadata"`
	TokenURI   string           `json:"tokenUri"`
	PaymentRef string           `json:"paymentRef,omitempty"`
}

// Package metadata builds the item and collection documents and encodes them
// as base64 JSON data URIs.
package metadata

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/avatarnft/types"
)

// DataURIPrefix prefixes every encoded document.
const DataURIPrefix = "data:application/json;base64,"

const descriptionPrefix = "An NFT that represents the Avatar of "

// Trait names, in attribute order.
const (
	TraitSkinTone     = "skinTone"
	TraitBodyType     = "bodyType"
	TraitOutfitGender = "outfitGender"
)

// ItemName returns "{symbol} #{id} of {firstName}".
func ItemName(symbol string, id uint64, firstName string) string {
	return symbol + " #" + strconv.FormatUint(id, 10) + " of " + firstName
}

// Item builds the document of item id.
func Item(symbol string, id uint64, f types.IdentityFields) types.MetadataDocument {
	return types.MetadataDocument{
		Name:        ItemName(symbol, id, f.FirstName),
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		ExternalURL: f.Website,
		Description: descriptionPrefix + f.FirstName,
		Attributes: []types.Attribute{
			{TraitType: TraitSkinTone, Value: f.SkinTone},
			{TraitType: TraitBodyType, Value: f.BodyType},
			{TraitType: TraitOutfitGender, Value: f.OutfitGender},
		},
		Image:     f.ImageURI,
		CreatedAt: f.CreatedAt,
	}
}

// Collection builds the collection document. The fee recipient is rendered
// as a checksummed hex address.
func Collection(name, description, image, link string, feeRecipient common.Address) types.CollectionMetadataDocument {
	return types.CollectionMetadataDocument{
		Name:         name,
		Description:  description,
		Image:        image,
		ExternalLink: link,
		FeeRecipient: feeRecipient.Hex(),
	}
}

// BuildItemMetadata builds the item document together with its data URI.
func BuildItemMetadata(symbol string, id uint64, f types.IdentityFields) (types.MetadataDocument, string, error) {
	doc := Item(symbol, id, f)
	uri, err := Encode(doc)
	if err != nil {
		return types.MetadataDocument{}, "", err
	}
	return doc, uri, nil
}

// BuildCollectionMetadata builds the collection document together with its data URI.
func BuildCollectionMetadata(name, description, image, link string, feeRecipient common.Address) (types.CollectionMetadataDocument, string, error) {
	doc := Collection(name, description, image, link, feeRecipient)
	uri, err := Encode(doc)
	if err != nil {
		return types.CollectionMetadataDocument{}, "", err
	}
	return doc, uri, nil
}

// Marshal encodes v as compact UTF-8 JSON in struct field order. HTML
// characters are left unescaped. U+2028 and U+2029 are always written as
// \u2028 and \u2029, and each invalid UTF-8 byte as \ufffd, so output for
// such strings differs from a JavaScript JSON.stringify.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Encode returns v as a base64 JSON data URI.
func Encode(v interface{}) (string, error) {
	raw, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	return DataURIPrefix + base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses a data URI produced by Encode into v.
func Decode(uri string, v interface{}) error {
	if !strings.HasPrefix(uri, DataURIPrefix) {
		return types.NewError(types.ErrInvalidRequest, "not a base64 JSON data URI")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, DataURIPrefix))
	if err != nil {
		return types.NewError(types.ErrInvalidRequest, "invalid base64 payload: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return types.NewError(types.ErrInvalidRequest, "invalid JSON payload: %v", err)
	}
	return nil
}

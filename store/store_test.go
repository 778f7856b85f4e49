package store

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/avatarnft/types"
)

var (
	weth     = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	wbtc     = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
	wethFeed = common.HexToAddress("0x9326BFA02ADD2366b30bacB125260Af641031331")
	wbtcFeed = common.HexToAddress("0xF4030086522a5bEEa4988F8cA5B36dbC97BeE88c")
	newFeed  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	owner    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
)

func backends(t *testing.T) map[string]func(dir string) Store {
	return map[string]func(dir string) Store{
		"memory": func(string) Store { return NewMemoryStore() },
		"badger": func(dir string) Store {
			s, err := Open(types.StoreConfig{Driver: "badger", Path: filepath.Join(dir, "badger")})
			require.NoError(t, err)
			return s
		},
		"sqlite": func(dir string) Store {
			s, err := Open(types.StoreConfig{Driver: "sqlite", Path: filepath.Join(dir, "avatarnft.db")})
			require.NoError(t, err)
			return s
		},
	}
}

func testItem(id uint64) types.ItemRecord {
	return types.ItemRecord{
		ID:    id,
		Owner: owner,
		Metadata: types.MetadataDocument{
			Name:        "ANME #0 of John",
			FirstName:   "John",
			LastName:    "Doe",
			Description: "An NFT that represents the Avatar of John",
			Attributes: []types.Attribute{
				{TraitType: "skinTone", Value: "Light"},
				{TraitType: "bodyType", Value: "Regular"},
				{TraitType: "outfitGender", Value: "Male"},
			},
		},
		TokenURI: "data:application/json;base64,e30=",
	}
}

func testState(issued int64) types.PricingState {
	return types.PricingState{
		IssuedCount:        uint64(issued),
		InitialFee:         big.NewInt(50),
		IncrementThreshold: 50,
		CurrentFee:         big.NewInt(50),
	}
}

func TestStoreTokens(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t.TempDir())
			defer s.Close()

			require.NoError(t, s.WriteToken(types.TokenEntry{Token: weth, Oracle: wethFeed}))
			require.NoError(t, s.WriteToken(types.TokenEntry{Token: wbtc, Oracle: wbtcFeed}))
			require.NoError(t, s.WriteToken(types.TokenEntry{Token: weth, Oracle: newFeed}))

			entries, err := s.ListTokens()
			require.NoError(t, err)
			require.Len(t, entries, 2)

			byToken := map[common.Address]common.Address{}
			for _, e := range entries {
				byToken[e.Token] = e.Oracle
			}
			assert.Equal(t, newFeed, byToken[weth])
			assert.Equal(t, wbtcFeed, byToken[wbtc])
		})
	}
}

func TestStorePricingAndItems(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t.TempDir())
			defer s.Close()

			state, err := s.ReadPricingState()
			require.NoError(t, err)
			assert.Nil(t, state)

			require.NoError(t, s.WritePricingState(testState(0)))
			require.NoError(t, s.CommitIssuance(testItem(0), testState(1)))
			require.NoError(t, s.CommitIssuance(testItem(1), testState(2)))

			state, err = s.ReadPricingState()
			require.NoError(t, err)
			require.NotNil(t, state)
			assert.Equal(t, uint64(2), state.IssuedCount)
			assert.Equal(t, "50", state.CurrentFee.String())

			err = s.CommitIssuance(testItem(1), testState(3))
			assert.True(t, types.HasCode(err, types.ErrStoreError))

			state, err = s.ReadPricingState()
			require.NoError(t, err)
			assert.Equal(t, uint64(2), state.IssuedCount)

			item, err := s.ReadItem(1)
			require.NoError(t, err)
			require.NotNil(t, item)
			assert.Equal(t, testItem(1), *item)

			missing, err := s.ReadItem(9)
			require.NoError(t, err)
			assert.Nil(t, missing)

			items, err := s.ListItems()
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, uint64(0), items[0].ID)
			assert.Equal(t, uint64(1), items[1].ID)
		})
	}
}

func TestStorePaymentRef(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t.TempDir())
			defer s.Close()

			paid := testItem(0)
			paid.PaymentRef = "0x8a1c1b0c4f5a1bde1d1ac3b8e93f1c1f9d1a5e4c07a5b1c6de3f9a8a1b2c3d4e"
			require.NoError(t, s.CommitIssuance(paid, testState(1)))
			require.NoError(t, s.CommitIssuance(testItem(1), testState(2)))

			items, err := s.ListItems()
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, paid.PaymentRef, items[0].PaymentRef)
			assert.Empty(t, items[1].PaymentRef)
		})
	}
}

func TestStoreCollectionProperties(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t.TempDir())
			defer s.Close()

			doc, err := s.ReadCollection()
			require.NoError(t, err)
			assert.Nil(t, doc)

			page, err := s.ReadWebpage()
			require.NoError(t, err)
			assert.Equal(t, "", page)

			first := types.CollectionMetadataDocument{Name: "Avatar NFT Me", Description: "first"}
			second := types.CollectionMetadataDocument{Name: "Avatar NFT Me", Description: "second"}
			require.NoError(t, s.WriteCollection(first))
			require.NoError(t, s.WriteCollection(second))
			require.NoError(t, s.WriteWebpage("https://www.avatarNFT.me"))

			doc, err = s.ReadCollection()
			require.NoError(t, err)
			assert.Equal(t, second, *doc)

			page, err = s.ReadWebpage()
			require.NoError(t, err)
			assert.Equal(t, "https://www.avatarNFT.me", page)
		})
	}
}

func TestStoreReopen(t *testing.T) {
	for _, driver := range []string{"badger", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state")
			cfg := types.StoreConfig{Driver: driver, Path: path}

			s, err := Open(cfg)
			require.NoError(t, err)
			require.NoError(t, s.WriteToken(types.TokenEntry{Token: weth, Oracle: wethFeed}))
			require.NoError(t, s.CommitIssuance(testItem(0), testState(1)))
			require.NoError(t, s.Close())

			s, err = Open(cfg)
			require.NoError(t, err)
			defer s.Close()

			entries, err := s.ListTokens()
			require.NoError(t, err)
			assert.Len(t, entries, 1)

			state, err := s.ReadPricingState()
			require.NoError(t, err)
			assert.Equal(t, uint64(1), state.IssuedCount)
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(types.StoreConfig{Driver: "postgres"})
	assert.True(t, types.HasCode(err, types.ErrConfigError))
}

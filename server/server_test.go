package server

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/avatarnft"
	"github.com/vitwit/avatarnft/clients"
	"github.com/vitwit/avatarnft/metrics"
	"github.com/vitwit/avatarnft/types"
	"github.com/vitwit/avatarnft/utils"
)

// hardhat development accounts #0 and #1
const (
	adminKeyHex  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	playerKeyHex = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

var (
	weth       = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	wbtc       = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
	nativeFeed = common.HexToAddress("0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419")
	wethFeed   = common.HexToAddress("0x9326BFA02ADD2366b30bacB125260Af641031331")
	wbtcFeed   = common.HexToAddress("0xF4030086522a5bEEa4988F8cA5B36dbC97BeE88c")
)

type testServer struct {
	handler   http.Handler
	engine    *avatarnft.Engine
	tokens    *clients.MemoryTokens
	native    *clients.MemoryNative
	adminKey  *ecdsa.PrivateKey
	playerKey *ecdsa.PrivateKey
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	adminKey, err := utils.PrivateKeyFromHex(adminKeyHex)
	require.NoError(t, err)
	playerKey, err := utils.PrivateKeyFromHex(playerKeyHex)
	require.NoError(t, err)

	cfg := types.DefaultConfig()
	cfg.Admin = utils.AddressFromPrivateKey(adminKey).Hex()
	cfg.InitialFee = "0.1"
	cfg.NativeOracle = nativeFeed.Hex()
	cfg.Tokens = []types.TokenConfig{{Token: weth.Hex(), Oracle: wethFeed.Hex()}}

	feeds := clients.NewMockAggregator()
	feeds.SetPrice(nativeFeed, big.NewInt(2000_00000000), 8)
	feeds.SetPrice(wethFeed, big.NewInt(2000_00000000), 8)
	feeds.SetPrice(wbtcFeed, big.NewInt(30000_00000000), 8)
	tokens := clients.NewMemoryTokens(common.Address{})
	native := clients.NewMemoryNative()

	reg := prometheus.NewRegistry()
	engine, err := avatarnft.New(cfg, avatarnft.Capabilities{Feeds: feeds, Tokens: tokens, Native: native},
		avatarnft.WithMetrics(metrics.NewPrometheusRecorder(reg)))
	require.NoError(t, err)

	return &testServer{
		handler:   New(engine, nil, reg).Handler(),
		engine:    engine,
		tokens:    tokens,
		native:    native,
		adminKey:  adminKey,
		playerKey: playerKey,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, key *ecdsa.PrivateKey) *httptest.ResponseRecorder {
	t.Helper()

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	if key != nil {
		sig, err := utils.SignPersonalMessage(raw, key)
		require.NoError(t, err)
		req.Header.Set(SignatureHeader, sig)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// pay sends amount from the player to the fee recipient and returns the
// transfer hash.
func (ts *testServer) pay(t *testing.T, amount *big.Int) string {
	t.Helper()
	player := utils.AddressFromPrivateKey(ts.playerKey)
	ts.native.Fund(player, amount)
	hash, err := ts.native.Send(player, ts.engine.FeeRecipient(), amount)
	require.NoError(t, err)
	return hash.Hex()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

var identity = IdentityRequest{
	FirstName:    "John",
	LastName:     "Doe",
	Website:      "https://www.avatarNFT.me",
	BodyType:     "Regular",
	OutfitGender: "Male",
	SkinTone:     "Light",
	CreatedAt:    "2021-08-01T00:00:00.000Z",
	ImageURI:     "https://www.avatarNFT.me/image.png",
}

func TestHealthAndFee(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, "GET", "/fee", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fee := decode[FeeResponse](t, rec)
	assert.Equal(t, "100000000000000000", fee.CurrentFee)
	assert.Equal(t, "0.1", fee.CurrentFeeFormatted)
	assert.Equal(t, uint64(50), fee.IncrementThreshold)
}

func TestMintNativeEndpoint(t *testing.T) {
	ts := newTestServer(t)

	txHash := ts.pay(t, big.NewInt(100_000_000_000_000_000))
	rec := ts.do(t, "POST", "/mint/native", MintNativeRequest{
		IdentityRequest: identity,
		TxHash:          txHash,
	}, ts.playerKey)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	res := decode[MintResponse](t, rec)
	assert.Equal(t, uint64(0), res.ID)
	assert.Equal(t, utils.AddressFromPrivateKey(ts.playerKey).Hex(), res.Owner)
	assert.Equal(t, "native:"+txHash, res.Method)

	rec = ts.do(t, "GET", "/items/0", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	item := decode[types.ItemRecord](t, rec)
	assert.Equal(t, "ANME #0 of John", item.Metadata.Name)
	assert.Equal(t, res.TokenURI, item.TokenURI)

	rec = ts.do(t, "GET", "/items/0/owner", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, "GET", "/items/1", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMintNativeInsufficient(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/mint/native", MintNativeRequest{
		IdentityRequest: identity,
		TxHash:          ts.pay(t, big.NewInt(10)),
	}, ts.playerKey)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	body := decode[errorResponse](t, rec)
	assert.Equal(t, types.ErrInsufficientPayment, body.Error.Code)
	assert.Equal(t, uint64(0), ts.engine.GetIssuedCount())
}

func TestMintNativeRequiresTransfer(t *testing.T) {
	ts := newTestServer(t)

	// a fresh key with no funds and no transfer behind the claimed hash
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	unbacked := "0x8a1c1b0c4f5a1bde1d1ac3b8e93f1c1f9d1a5e4c07a5b1c6de3f9a8a1b2c3d4e"
	for i := 0; i < 3; i++ {
		rec := ts.do(t, "POST", "/mint/native", MintNativeRequest{IdentityRequest: identity, TxHash: unbacked}, key)
		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		assert.Equal(t, types.ErrPaymentUnverified, decode[errorResponse](t, rec).Error.Code)
	}

	// the player's transfer cannot be claimed by another key
	txHash := ts.pay(t, big.NewInt(100_000_000_000_000_000))
	rec := ts.do(t, "POST", "/mint/native", MintNativeRequest{IdentityRequest: identity, TxHash: txHash}, key)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = ts.do(t, "POST", "/mint/native", MintNativeRequest{IdentityRequest: identity, TxHash: txHash}, ts.playerKey)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = ts.do(t, "POST", "/mint/native", MintNativeRequest{IdentityRequest: identity, TxHash: txHash}, ts.playerKey)
	assert.Equal(t, types.ErrPaymentReused, decode[errorResponse](t, rec).Error.Code)

	rec = ts.do(t, "POST", "/mint/native", MintNativeRequest{IdentityRequest: identity, TxHash: "0x1234"}, ts.playerKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, uint64(1), ts.engine.GetIssuedCount())
}

func TestMintTokenEndpoint(t *testing.T) {
	ts := newTestServer(t)
	player := utils.AddressFromPrivateKey(ts.playerKey)
	fee := big.NewInt(100_000_000_000_000_000)
	ts.tokens.Mint(weth, player, fee)
	ts.tokens.Approve(weth, player, fee)

	rec := ts.do(t, "POST", "/mint/token", MintTokenRequest{
		IdentityRequest: identity,
		Token:           wbtc.Hex(),
		Amount:          fee.String(),
	}, ts.playerKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, types.ErrUnsupportedToken, decode[errorResponse](t, rec).Error.Code)

	rec = ts.do(t, "POST", "/mint/token", MintTokenRequest{
		IdentityRequest: identity,
		Token:           weth.Hex(),
		Amount:          "0",
	}, ts.playerKey)
	assert.Equal(t, types.ErrZeroAmount, decode[errorResponse](t, rec).Error.Code)

	rec = ts.do(t, "POST", "/mint/token", MintTokenRequest{
		IdentityRequest: identity,
		Token:           weth.Hex(),
		Amount:          fee.String(),
	}, ts.playerKey)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "token:"+weth.Hex(), decode[MintResponse](t, rec).Method)
}

func TestSignatureRequired(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/mint/native", MintNativeRequest{IdentityRequest: identity, TxHash: ts.pay(t, big.NewInt(1))}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest("PUT", "/admin/webpage", bytes.NewReader([]byte(`{"uri":"https://x"}`)))
	req.Header.Set(SignatureHeader, "0xdeadbeef")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAdminEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/admin/tokens", AddTokenRequest{Token: wbtc.Hex(), Oracle: wbtcFeed.Hex()}, ts.playerKey)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, types.ErrUnauthorized, decode[errorResponse](t, rec).Error.Code)

	rec = ts.do(t, "POST", "/admin/tokens", AddTokenRequest{Token: wbtc.Hex(), Oracle: wbtcFeed.Hex()}, ts.adminKey)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, "GET", "/tokens/"+wbtc.Hex(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, wbtcFeed, decode[types.TokenEntry](t, rec).Oracle)

	rec = ts.do(t, "GET", "/prices/"+wbtc.Hex(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "30000000000000000000000", decode[map[string]string](t, rec)["price"])

	rec = ts.do(t, "POST", "/admin/tokens", AddTokenRequest{Token: "not-an-address", Oracle: wbtcFeed.Hex()}, ts.adminKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, "PUT", "/admin/collection", CollectionRequest{
		Description: "Avatar NFT Me is a collection of 10,000 unique avatars living on the Ethereum blockchain.",
		Image:       "https://www.avatarNFT.me/image.png",
		Link:        "https://www.avatarNFT.me",
	}, ts.adminKey)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, "PUT", "/admin/webpage", WebpageRequest{URI: "https://www.avatarNFT.me"}, ts.adminKey)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, "GET", "/collection", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	col := decode[CollectionResponse](t, rec)
	assert.Equal(t, "Avatar NFT Me", col.Name)
	assert.Equal(t, "ANME", col.Symbol)
	assert.Equal(t, "https://www.avatarNFT.me", col.Webpage)
	assert.Equal(t, "https://www.avatarNFT.me", col.Metadata.ExternalLink)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, "POST", "/mint/native", MintNativeRequest{IdentityRequest: identity, TxHash: ts.pay(t, big.NewInt(1))}, ts.playerKey)

	rec := ts.do(t, "GET", "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "avatarnft_events_total")
	assert.Contains(t, rec.Body.String(), `code="INSUFFICIENT_PAYMENT"`)
}

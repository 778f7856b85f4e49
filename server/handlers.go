package server

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/vitwit/avatarnft"
	"github.com/vitwit/avatarnft/types"
	"github.com/vitwit/avatarnft/utils"
)

const maxBodyBytes = 1 << 16

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"issued": s.engine.GetIssuedCount(),
	})
}

func (s *Server) feeHandler(w http.ResponseWriter, r *http.Request) {
	state := s.engine.GetPricingState()
	jsonResponse(w, http.StatusOK, FeeResponse{
		CurrentFee:          state.CurrentFee.String(),
		CurrentFeeFormatted: utils.FormatAmountFromBigInt(state.CurrentFee, s.engine.NativeDecimals()),
		InitialFee:          state.InitialFee.String(),
		IncrementThreshold:  state.IncrementThreshold,
		IssuedCount:         state.IssuedCount,
	})
}

func (s *Server) tokensHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.engine.GetTokens())
}

func (s *Server) tokenHandler(w http.ResponseWriter, r *http.Request) {
	token, err := addressVar(r, "token")
	if err != nil {
		jsonError(w, err)
		return
	}
	oracle, err := s.engine.GetTokenOracle(token)
	if err != nil {
		jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, types.TokenEntry{Token: token, Oracle: oracle})
}

func (s *Server) nativePriceHandler(w http.ResponseWriter, r *http.Request) {
	price, err := s.engine.GetNativePrice(r.Context())
	if err != nil {
		jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{
		"oracle": s.engine.GetNativeOracle().Hex(),
		"price":  price.String(),
	})
}

func (s *Server) tokenPriceHandler(w http.ResponseWriter, r *http.Request) {
	token, err := addressVar(r, "token")
	if err != nil {
		jsonError(w, err)
		return
	}
	price, err := s.engine.GetTokenPrice(r.Context(), token)
	if err != nil {
		jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{
		"token": token.Hex(),
		"price": price.String(),
	})
}

func (s *Server) itemHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r)
	if err != nil {
		jsonError(w, err)
		return
	}
	item, err := s.engine.GetItem(id)
	if err != nil {
		jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

func (s *Server) ownerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r)
	if err != nil {
		jsonError(w, err)
		return
	}
	owner, err := s.engine.GetOwner(r.Context(), id)
	if err != nil {
		jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"id": id, "owner": owner.Hex()})
}

func (s *Server) collectionHandler(w http.ResponseWriter, r *http.Request) {
	doc, uri := s.engine.GetCollectionMetadata()
	jsonResponse(w, http.StatusOK, CollectionResponse{
		Name:         s.engine.Name(),
		Symbol:       s.engine.Symbol(),
		ContractURI:  uri,
		Metadata:     doc,
		Webpage:      s.engine.GetCurrentWebpage(),
		FeeRecipient: s.engine.FeeRecipient().Hex(),
	})
}

func (s *Server) webpageHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"uri": s.engine.GetCurrentWebpage()})
}

func (s *Server) mintNativeHandler(w http.ResponseWriter, r *http.Request) {
	var req MintNativeRequest
	minter, err := s.decodeSigned(r, &req)
	if err != nil {
		jsonError(w, err)
		return
	}
	res, err := s.engine.MintWithNativeTx(r.Context(), minter, common.HexToHash(req.TxHash), req.fields())
	if err != nil {
		jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, mintResponse(res))
}

func (s *Server) mintTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req MintTokenRequest
	minter, err := s.decodeSigned(r, &req)
	if err != nil {
		jsonError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		jsonError(w, err)
		return
	}

	res, err := s.engine.MintWithToken(r.Context(), minter, common.HexToAddress(req.Token), amount, req.fields())
	if err != nil {
		jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, mintResponse(res))
}

func (s *Server) addTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req AddTokenRequest
	caller, err := s.decodeSigned(r, &req)
	if err != nil {
		jsonError(w, err)
		return
	}
	token, oracle := common.HexToAddress(req.Token), common.HexToAddress(req.Oracle)
	if err := s.engine.AddToken(caller, token, oracle); err != nil {
		jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, types.TokenEntry{Token: token, Oracle: oracle})
}

func (s *Server) setCollectionHandler(w http.ResponseWriter, r *http.Request) {
	var req CollectionRequest
	caller, err := s.decodeSigned(r, &req)
	if err != nil {
		jsonError(w, err)
		return
	}
	uri, err := s.engine.SetCollectionMetadata(caller, req.Description, req.Image, req.Link)
	if err != nil {
		jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"contractUri": uri})
}

func (s *Server) setWebpageHandler(w http.ResponseWriter, r *http.Request) {
	var req WebpageRequest
	caller, err := s.decodeSigned(r, &req)
	if err != nil {
		jsonError(w, err)
		return
	}
	if err := s.engine.SetCurrentWebpage(caller, req.URI); err != nil {
		jsonError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"uri": req.URI})
}

// decodeSigned reads the body, recovers the signer from the X-Signature
// header, then decodes and validates the body into v.
func (s *Server) decodeSigned(r *http.Request, v interface{}) (common.Address, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return common.Address{}, types.NewError(types.ErrInvalidRequest, "reading body: %v", err)
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		return common.Address{}, types.NewError(types.ErrUnauthorized, "missing %s header", SignatureHeader)
	}
	signer, err := utils.RecoverPersonalSigner(body, signature)
	if err != nil {
		return common.Address{}, types.NewError(types.ErrUnauthorized, "invalid signature: %v", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return common.Address{}, types.NewError(types.ErrInvalidRequest, "invalid JSON: %v", err)
	}
	if err := utils.ValidateStruct(v); err != nil {
		return common.Address{}, err
	}
	return signer, nil
}

func mintResponse(res *avatarnft.MintResult) MintResponse {
	return MintResponse{
		RequestID: res.RequestID,
		ID:        res.Item.ID,
		Owner:     res.Item.Owner.Hex(),
		TokenURI:  res.Item.TokenURI,
		Method:    res.Settlement.Method.String(),
		Paid:      res.Settlement.Paid.String(),
		Value:     res.Settlement.Value.String(),
		Excess:    res.Settlement.Excess.String(),
		NextFee:   res.NextFee.String(),
	}
}

func addressVar(r *http.Request, name string) (common.Address, error) {
	raw := mux.Vars(r)[name]
	if !common.IsHexAddress(raw) {
		return common.Address{}, types.NewError(types.ErrInvalidRequest, "%s must be a hex address", name)
	}
	return common.HexToAddress(raw), nil
}

func idVar(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, types.NewError(types.ErrInvalidRequest, "invalid item id")
	}
	return id, nil
}

func parseAmount(raw string) (*big.Int, error) {
	amount, err := utils.ValidateBigInt(raw)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "invalid amount: %v", err)
	}
	return amount, nil
}

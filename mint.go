package avatarnft

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/vitwit/avatarnft/logger"
	"github.com/vitwit/avatarnft/metadata"
	"github.com/vitwit/avatarnft/metrics"
	"github.com/vitwit/avatarnft/payment"
	"github.com/vitwit/avatarnft/types"
)

// MintState is the state of one mint request.
type MintState int

const (
	Idle MintState = iota
	PaymentPending
	Settled
	Issued
	Rejected
)

func (s MintState) String() string {
	switch s {
	case Idle:
		return "idle"
	case PaymentPending:
		return "payment_pending"
	case Settled:
		return "settled"
	case Issued:
		return "issued"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Settled only moves to Rejected on a consistency fault.
var transitions = map[MintState][]MintState{
	Idle:           {PaymentPending, Rejected},
	PaymentPending: {Settled, Rejected},
	Settled:        {Issued, Rejected},
}

// MintRequest is one request to issue an item to Minter.
type MintRequest struct {
	Minter   common.Address
	Method   payment.Method
	Amount   *big.Int
	Identity types.IdentityFields
}

// MintResult describes an issued item.
type MintResult struct {
	RequestID  string
	State      MintState
	Item       types.ItemRecord
	Settlement *payment.Settlement
	// NextFee is the fee after this issuance.
	NextFee *big.Int
}

// mintTx tracks the state of one request.
type mintTx struct {
	id     string
	state  MintState
	log    logger.Logger
	fields map[string]any
}

func (t *mintTx) transition(to MintState, extra map[string]any) {
	allowed := false
	for _, s := range transitions[t.state] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		panic("avatarnft: illegal mint transition " + t.state.String() + " -> " + to.String())
	}
	t.log.Debug("mint transition", logger.Merge(t.fields, logger.Merge(extra, map[string]any{
		"from": t.state.String(),
		"to":   to.String(),
	})))
	t.state = to
}

// MintWithNative issues an item paid with amount of native currency that the
// caller has already received, the way a payable call carries its value. The
// whole amount is kept even when it exceeds the fee. Callers that cannot vouch
// for the funds use MintWithNativeTx.
func (e *Engine) MintWithNative(ctx context.Context, minter common.Address, identity types.IdentityFields, amount *big.Int) (*MintResult, error) {
	return e.Mint(ctx, MintRequest{
		Minter:   minter,
		Method:   payment.NativeMethod(),
		Amount:   amount,
		Identity: identity,
	})
}

// MintWithNativeTx issues an item paid by the native transfer tx. The
// transfer must be mined, successful, sent by minter to the fee recipient,
// and not already used for another item. Its whole value is kept.
func (e *Engine) MintWithNativeTx(ctx context.Context, minter common.Address, tx common.Hash, identity types.IdentityFields) (*MintResult, error) {
	return e.Mint(ctx, MintRequest{
		Minter:   minter,
		Method:   payment.NativeTxMethod(tx),
		Identity: identity,
	})
}

// MintWithToken issues an item paid with amount of token, pulled from minter.
func (e *Engine) MintWithToken(ctx context.Context, minter, token common.Address, amount *big.Int, identity types.IdentityFields) (*MintResult, error) {
	return e.Mint(ctx, MintRequest{
		Minter:   minter,
		Method:   payment.TokenMethod(token),
		Amount:   amount,
		Identity: identity,
	})
}

// Mint runs a request to completion. A request that fails before settlement
// changes nothing. A failure after settlement is a CONSISTENCY_FAULT: funds
// have moved and the caller must reconcile on the reported id.
func (e *Engine) Mint(ctx context.Context, req MintRequest) (*MintResult, error) {
	start := time.Now()
	tx := &mintTx{
		id:    uuid.NewString(),
		state: Idle,
		log:   e.logger,
	}
	tx.fields = map[string]any{
		"request_id": tx.id,
		"minter":     req.Minter.Hex(),
		"method":     req.Method.String(),
	}
	labels := map[string]string{"method": req.Method.Kind.String()}
	defer func() {
		e.metrics.ObserveLatency(metrics.MintLatency, time.Since(start), labels)
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.pricing.IssuedCount()
	tx.transition(PaymentPending, map[string]any{"required": e.pricing.CurrentFee(), "id": id})

	if req.Method.Verified() {
		if prev, ok := e.spent[req.Method.Tx]; ok {
			return nil, e.reject(tx, labels, &types.Error{
				Code:    types.ErrPaymentReused,
				Message: fmt.Sprintf("transaction %s already paid for item %d", req.Method.Tx.Hex(), prev),
				Data:    map[string]any{"tx_hash": req.Method.Tx.Hex(), "id": prev},
			})
		}
	}

	// built before any funds move so an encoding failure is a plain rejection
	doc, uri, err := metadata.BuildItemMetadata(e.config.Symbol, id, req.Identity)
	if err != nil {
		return nil, e.reject(tx, labels, err)
	}

	settleCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		settleCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	settlement, err := e.payments.Settle(settleCtx, req.Minter, req.Method, req.Amount)
	if types.HasCode(err, types.ErrConsistencyFault) {
		return nil, e.fault(tx, labels, id, err)
	} else if err != nil {
		return nil, e.reject(tx, labels, err)
	}
	tx.transition(Settled, map[string]any{"paid": settlement.Paid, "value": settlement.Value})
	if req.Method.Kind == payment.Native && settlement.Excess.Sign() > 0 {
		e.logger.Warn("native payment above fee retained", logger.Merge(tx.fields, map[string]any{
			"required": settlement.Required,
			"excess":   settlement.Excess,
		}))
	}

	// funds have moved: nothing below may be cancelled
	ctx = context.WithoutCancel(ctx)

	created, err := e.items.Create(ctx, req.Minter)
	if err != nil {
		return nil, e.fault(tx, labels, id, fmt.Errorf("item registry create failed: %w", err))
	}
	if created != id {
		return nil, e.fault(tx, labels, id, fmt.Errorf("item registry assigned id %d, expected %d", created, id))
	}

	item := types.ItemRecord{
		ID:       id,
		Owner:    req.Minter,
		Metadata: doc,
		TokenURI: uri,
	}
	if settlement.Tx != (common.Hash{}) {
		item.PaymentRef = settlement.Tx.Hex()
		e.spent[settlement.Tx] = id
	}
	e.arena[id] = item
	e.pricing.RecordIssuance()

	if err := e.store.CommitIssuance(item, e.pricing.State()); err != nil {
		return nil, e.fault(tx, labels, id, fmt.Errorf("persisting issuance failed: %w", err))
	}

	tx.transition(Issued, map[string]any{"id": id})
	e.metrics.IncCounter(metrics.MintIssued, labels)
	e.recordState()
	e.logger.Info("item issued", logger.Merge(tx.fields, map[string]any{
		"id":       id,
		"paid":     settlement.Paid,
		"next_fee": e.pricing.CurrentFee(),
	}))

	return &MintResult{
		RequestID:  tx.id,
		State:      tx.state,
		Item:       item,
		Settlement: settlement,
		NextFee:    e.pricing.CurrentFee(),
	}, nil
}

func (e *Engine) reject(tx *mintTx, labels map[string]string, err error) error {
	code := types.CodeOf(err)
	tx.transition(Rejected, map[string]any{"code": code})
	e.metrics.IncCounter(metrics.MintRejected, map[string]string{
		"method": labels["method"],
		"code":   code,
	})
	e.logger.Warn("mint rejected", logger.Merge(tx.fields, map[string]any{
		"code":  code,
		"error": err,
	}))
	return err
}

// fault reports a failure after funds have moved. Data carried by cause,
// such as a transaction hash, is kept alongside the item and request ids.
func (e *Engine) fault(tx *mintTx, labels map[string]string, id uint64, cause error) error {
	data := map[string]any{"id": id, "request_id": tx.id}
	var coded *types.Error
	if errors.As(cause, &coded) {
		if extra, ok := coded.Data.(map[string]string); ok {
			for k, v := range extra {
				data[k] = v
			}
		}
	}
	err := &types.Error{
		Code:    types.ErrConsistencyFault,
		Message: cause.Error(),
		Data:    data,
	}
	tx.transition(Rejected, map[string]any{"code": err.Code})
	e.metrics.IncCounter(metrics.MintRejected, map[string]string{
		"method": labels["method"],
		"code":   err.Code,
	})
	e.logger.Error("consistency fault after settlement", logger.Merge(tx.fields, logger.Merge(data, map[string]any{
		"reason": cause.Error(),
	})))
	return err
}

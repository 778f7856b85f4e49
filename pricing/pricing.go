// Package pricing tracks issuance volume and derives the mint fee from it.
package pricing

import (
	"math/big"

	"github.com/vitwit/avatarnft/types"
)

// Stepper derives the fee of the next threshold block from the current fee.
type Stepper interface {
	Step(fee *big.Int) *big.Int
}

// Doubling doubles the fee at every threshold.
type Doubling struct{}

func (Doubling) Step(fee *big.Int) *big.Int {
	return new(big.Int).Lsh(fee, 1)
}

// Engine holds the pricing state. It is not safe for concurrent use.
type Engine struct {
	state   types.PricingState
	stepper Stepper
}

// New creates an engine at issuance zero.
func New(initialFee *big.Int, threshold uint64, stepper Stepper) (*Engine, error) {
	if initialFee == nil || initialFee.Sign() < 0 {
		return nil, types.NewError(types.ErrConfigError, "initial fee must be non-negative")
	}
	return Restore(types.PricingState{
		IssuedCount:        0,
		InitialFee:         initialFee,
		IncrementThreshold: threshold,
		CurrentFee:         initialFee,
	}, stepper)
}

// Restore resumes from a persisted state.
func Restore(state types.PricingState, stepper Stepper) (*Engine, error) {
	if state.IncrementThreshold == 0 {
		return nil, types.NewError(types.ErrConfigError, "increment threshold must be greater than 0")
	}
	if state.InitialFee == nil || state.CurrentFee == nil {
		return nil, types.NewError(types.ErrConfigError, "pricing state is missing fees")
	}
	if stepper == nil {
		stepper = Doubling{}
	}
	return &Engine{
		state:   state.Copy(),
		stepper: stepper,
	}, nil
}

// CurrentFee returns the fee in native base units.
func (e *Engine) CurrentFee() *big.Int {
	return new(big.Int).Set(e.state.CurrentFee)
}

func (e *Engine) InitialFee() *big.Int {
	return new(big.Int).Set(e.state.InitialFee)
}

func (e *Engine) IncrementThreshold() uint64 {
	return e.state.IncrementThreshold
}

func (e *Engine) IssuedCount() uint64 {
	return e.state.IssuedCount
}

// State returns a copy of the full pricing state.
func (e *Engine) State() types.PricingState {
	return e.state.Copy()
}

// RecordIssuance advances the counter by one and steps the fee when the new
// count completes a threshold block. It must only follow a successful item
// creation.
func (e *Engine) RecordIssuance() {
	e.state.IssuedCount++
	if e.state.IssuedCount%e.state.IncrementThreshold == 0 {
		e.state.CurrentFee = e.stepper.Step(e.state.CurrentFee)
	}
}

// FeeAt computes the fee after issued mints by replaying the step function
// from the initial fee.
func FeeAt(initialFee *big.Int, threshold, issued uint64, stepper Stepper) *big.Int {
	if stepper == nil {
		stepper = Doubling{}
	}
	fee := new(big.Int).Set(initialFee)
	if threshold == 0 {
		return fee
	}
	for i := uint64(0); i < issued/threshold; i++ {
		fee = stepper.Step(fee)
	}
	return fee
}

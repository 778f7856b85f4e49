package clients

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vitwit/avatarnft/types"
)

// MockAggregator is an in-memory price feed set, behaving like a Chainlink
// V3 aggregator per oracle address.
type MockAggregator struct {
	mu    sync.RWMutex
	feeds map[common.Address]mockFeed
}

type mockFeed struct {
	answer   *big.Int
	decimals uint8
}

func NewMockAggregator() *MockAggregator {
	return &MockAggregator{
		feeds: make(map[common.Address]mockFeed),
	}
}

// SetPrice sets the latest answer of oracle.
func (m *MockAggregator) SetPrice(oracle common.Address, answer *big.Int, decimals uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeds[oracle] = mockFeed{answer: new(big.Int).Set(answer), decimals: decimals}
}

// Remove deletes a feed so further reads fail.
func (m *MockAggregator) Remove(oracle common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.feeds, oracle)
}

func (m *MockAggregator) GetPrice(_ context.Context, oracle common.Address) (*big.Int, uint8, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	feed, ok := m.feeds[oracle]
	if !ok {
		return nil, 0, types.NewError(types.ErrOracleUnavailable, "no answer from price feed %s", oracle.Hex())
	}
	return new(big.Int).Set(feed.answer), feed.decimals, nil
}

// MemoryTokens is an in-memory set of ERC-20 tokens. Allowances are granted to
// a single spender, the account the engine pulls payments with.
type MemoryTokens struct {
	mu       sync.Mutex
	spender  common.Address
	decimals map[common.Address]uint8
	balances map[common.Address]map[common.Address]*big.Int
	allowed  map[common.Address]map[common.Address]*big.Int
}

func NewMemoryTokens(spender common.Address) *MemoryTokens {
	return &MemoryTokens{
		spender:  spender,
		decimals: make(map[common.Address]uint8),
		balances: make(map[common.Address]map[common.Address]*big.Int),
		allowed:  make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Spender returns the account allowances must be granted to.
func (l *MemoryTokens) Spender() common.Address {
	return l.spender
}

// SetDecimals overrides the default of 18 decimals for token.
func (l *MemoryTokens) SetDecimals(token common.Address, decimals uint8) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decimals[token] = decimals
}

func (l *MemoryTokens) Decimals(_ context.Context, token common.Address) (uint8, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if d, ok := l.decimals[token]; ok {
		return d, nil
	}
	return 18, nil
}

// Mint credits amount of token to holder.
func (l *MemoryTokens) Mint(token, holder common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balanceLocked(token, holder)
	bal.Add(bal, amount)
}

// Approve sets the allowance owner grants the ledger's spender.
func (l *MemoryTokens) Approve(token, owner common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowed[token] == nil {
		l.allowed[token] = make(map[common.Address]*big.Int)
	}
	l.allowed[token][owner] = new(big.Int).Set(amount)
}

func (l *MemoryTokens) BalanceOf(token, holder common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balanceLocked(token, holder))
}

func (l *MemoryTokens) Allowance(token, owner common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.allowanceLocked(token, owner))
}

// TransferFrom moves amount from payer to recipient using the spender's
// allowance. Allowance is checked before balance.
func (l *MemoryTokens) TransferFrom(_ context.Context, token, payer, recipient common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowance := l.allowanceLocked(token, payer)
	if allowance.Cmp(amount) < 0 {
		return types.NewError(types.ErrInsufficientAllowance, "ERC20: insufficient allowance")
	}
	from := l.balanceLocked(token, payer)
	if from.Cmp(amount) < 0 {
		return types.NewError(types.ErrInsufficientBalance, "ERC20: transfer amount exceeds balance")
	}

	allowance.Sub(allowance, amount)
	from.Sub(from, amount)
	to := l.balanceLocked(token, recipient)
	to.Add(to, amount)
	return nil
}

func (l *MemoryTokens) balanceLocked(token, holder common.Address) *big.Int {
	if l.balances[token] == nil {
		l.balances[token] = make(map[common.Address]*big.Int)
	}
	bal, ok := l.balances[token][holder]
	if !ok {
		bal = new(big.Int)
		l.balances[token][holder] = bal
	}
	return bal
}

func (l *MemoryTokens) allowanceLocked(token, owner common.Address) *big.Int {
	if l.allowed[token] == nil {
		l.allowed[token] = make(map[common.Address]*big.Int)
	}
	a, ok := l.allowed[token][owner]
	if !ok {
		a = new(big.Int)
		l.allowed[token][owner] = a
	}
	return a
}

// MemoryNative is an in-memory native currency ledger. Every Send is
// recorded under a transaction hash that VerifyPayment can later prove.
type MemoryNative struct {
	mu       sync.Mutex
	nonce    uint64
	balances map[common.Address]*big.Int
	sent     map[common.Hash]nativeTransfer
}

type nativeTransfer struct {
	from, to common.Address
	value    *big.Int
}

func NewMemoryNative() *MemoryNative {
	return &MemoryNative{
		balances: make(map[common.Address]*big.Int),
		sent:     make(map[common.Hash]nativeTransfer),
	}
}

// Fund credits amount to holder.
func (n *MemoryNative) Fund(holder common.Address, amount *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	bal := n.balanceLocked(holder)
	bal.Add(bal, amount)
}

func (n *MemoryNative) BalanceOf(holder common.Address) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return new(big.Int).Set(n.balanceLocked(holder))
}

// Send moves amount from one account to another and returns the hash of the
// recorded transfer.
func (n *MemoryNative) Send(from, to common.Address, amount *big.Int) (common.Hash, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	bal := n.balanceLocked(from)
	if bal.Cmp(amount) < 0 {
		return common.Hash{}, types.NewError(types.ErrInsufficientBalance, "insufficient funds for transfer")
	}
	bal.Sub(bal, amount)
	credit := n.balanceLocked(to)
	credit.Add(credit, amount)

	n.nonce++
	hash := crypto.Keccak256Hash(from.Bytes(), to.Bytes(), amount.Bytes(), new(big.Int).SetUint64(n.nonce).Bytes())
	n.sent[hash] = nativeTransfer{from: from, to: to, value: new(big.Int).Set(amount)}
	return hash, nil
}

// VerifyPayment returns the value of transfer tx when it went from payer to
// recipient.
func (n *MemoryNative) VerifyPayment(_ context.Context, tx common.Hash, payer, recipient common.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	t, ok := n.sent[tx]
	if !ok {
		return nil, types.NewError(types.ErrPaymentUnverified, "transaction %s not found", tx.Hex())
	}
	if t.from != payer {
		return nil, types.NewError(types.ErrPaymentUnverified, "transaction %s was not sent by %s", tx.Hex(), payer.Hex())
	}
	if t.to != recipient {
		return nil, types.NewError(types.ErrPaymentUnverified, "transaction %s does not pay %s", tx.Hex(), recipient.Hex())
	}
	return new(big.Int).Set(t.value), nil
}

func (n *MemoryNative) balanceLocked(holder common.Address) *big.Int {
	bal, ok := n.balances[holder]
	if !ok {
		bal = new(big.Int)
		n.balances[holder] = bal
	}
	return bal
}

// MemoryRegistry is an in-memory item registry handing out sequential ids.
type MemoryRegistry struct {
	mu     sync.Mutex
	next   uint64
	owners map[uint64]common.Address
	fail   error
}

// NewMemoryRegistry creates a registry whose next id is next.
func NewMemoryRegistry(next uint64) *MemoryRegistry {
	return &MemoryRegistry{
		next:   next,
		owners: make(map[uint64]common.Address),
	}
}

func (r *MemoryRegistry) Create(_ context.Context, owner common.Address) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return 0, r.fail
	}
	id := r.next
	r.owners[id] = owner
	r.next++
	return id, nil
}

func (r *MemoryRegistry) OwnerOf(_ context.Context, id uint64) (common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[id]
	if !ok {
		return common.Address{}, types.NewError(types.ErrNotFound, "item %d does not exist", id)
	}
	return owner, nil
}

// FailWith makes every following Create return err; nil restores normal operation.
func (r *MemoryRegistry) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

// Assign records owner for an id issued before this registry was created.
func (r *MemoryRegistry) Assign(id uint64, owner common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[id] = owner
}

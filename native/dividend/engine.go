package dividend

import (
	"encoding/binary"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	protoerrors "ideacapital/core/errors"
	"ideacapital/core/events"
	"ideacapital/core/state"
	"ideacapital/core/types"
	"ideacapital/crypto/merkle"
	"ideacapital/native/token"
)

var errStateNotConfigured = errors.New("dividend: state not configured")

// Engine pays out funded epochs to holders who prove membership of
// (address, amount) in the epoch's Merkle root.
type Engine struct {
	state   token.State
	ledger  *token.Engine
	emitter events.Emitter
	nowFn   func() time.Time
}

// NewEngine constructs a vault engine with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		ledger:  token.NewEngine(),
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) SetState(s token.State) {
	e.state = s
	e.ledger.SetState(s)
}

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
	e.ledger.SetEmitter(emitter)
}

func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	e.nowFn = now
	e.ledger.SetNowFunc(now)
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func vaultKey(addr common.Address) []byte {
	return append([]byte("dividend/vault/"), addr.Bytes()...)
}

func epochKey(vault common.Address, epoch uint64) []byte {
	key := append([]byte("dividend/epoch/"), vault.Bytes()...)
	return binary.BigEndian.AppendUint64(key, epoch)
}

func claimedKey(vault common.Address, epoch uint64, account common.Address) []byte {
	key := append([]byte("dividend/claimed/"), vault.Bytes()...)
	key = binary.BigEndian.AppendUint64(key, epoch)
	return append(key, account.Bytes()...)
}

// Deploy creates a vault paying out in payoutToken.
func (e *Engine) Deploy(deployer, payoutToken common.Address) (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	if deployer == (common.Address{}) {
		return nil, protoerrors.ErrInvalidAddress
	}
	if _, err := e.ledger.Token(payoutToken); err != nil {
		return nil, err
	}
	addr, err := e.state.NextContractAddress(deployer)
	if err != nil {
		return nil, err
	}
	now := uint64(e.nowFn().Unix())
	vault := &Vault{Address: addr, Owner: deployer, PayoutToken: payoutToken, CreatedAt: now}
	if err := e.state.RegisterContract(&state.Contract{Address: addr, Kind: Kind, Deployer: deployer, CreatedAt: now}); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(vaultKey(addr), vault); err != nil {
		return nil, err
	}
	e.emit(DeployedEvent(vault))
	return vault, nil
}

// Vault loads a vault header or returns ErrContractNotFound.
func (e *Engine) Vault(addr common.Address) (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	var vault Vault
	ok, err := e.state.KVGet(vaultKey(addr), &vault)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, protoerrors.ErrContractNotFound
	}
	return &vault, nil
}

// Epoch loads a funded epoch. Epoch numbers start at 1; anything outside
// 1..CurrentEpoch is ErrUnknownEpoch.
func (e *Engine) Epoch(vaultAddr common.Address, number uint64) (*Epoch, error) {
	vault, err := e.Vault(vaultAddr)
	if err != nil {
		return nil, err
	}
	if number == 0 || number > vault.CurrentEpoch {
		return nil, protoerrors.ErrUnknownEpoch
	}
	var epoch Epoch
	ok, err := e.state.KVGet(epochKey(vaultAddr, number), &epoch)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, protoerrors.ErrUnknownEpoch
	}
	epoch.normalize()
	return &epoch, nil
}

// CreateDistribution pulls total from the caller's payout allowance and opens
// a new epoch committed to root. It returns the new epoch number.
func (e *Engine) CreateDistribution(vaultAddr, caller common.Address, root common.Hash, total *big.Int) (uint64, error) {
	vault, err := e.Vault(vaultAddr)
	if err != nil {
		return 0, err
	}
	if err := types.ValidateAmount(total); err != nil {
		return 0, err
	}
	if total.Sign() == 0 {
		return 0, protoerrors.ErrZeroAmount
	}
	if root == (common.Hash{}) {
		return 0, protoerrors.ErrInvalidRoot
	}
	if err := e.ledger.TransferFrom(vault.PayoutToken, vault.Address, caller, vault.Address, total); err != nil {
		return 0, err
	}
	vault.CurrentEpoch++
	epoch := &Epoch{
		Number:    vault.CurrentEpoch,
		Root:      root,
		Total:     new(big.Int).Set(total),
		Claimed:   big.NewInt(0),
		Funder:    caller,
		CreatedAt: uint64(e.nowFn().Unix()),
	}
	if err := e.state.KVPut(epochKey(vaultAddr, epoch.Number), epoch); err != nil {
		return 0, err
	}
	if err := e.state.KVPut(vaultKey(vaultAddr), vault); err != nil {
		return 0, err
	}
	e.emit(NewDistributionEvent(vaultAddr, epoch.Number, root, total))
	return epoch.Number, nil
}

// HasClaimed reports whether account already claimed in epoch.
func (e *Engine) HasClaimed(vaultAddr common.Address, epoch uint64, account common.Address) (bool, error) {
	if _, err := e.Vault(vaultAddr); err != nil {
		return false, err
	}
	var claimed bool
	if _, err := e.state.KVGet(claimedKey(vaultAddr, epoch, account), &claimed); err != nil {
		return false, err
	}
	return claimed, nil
}

// ClaimDividend pays amount to the caller if (caller, amount) is a leaf of the
// epoch's tree. Each account claims at most once per epoch and the epoch's
// claims never exceed its funded total.
func (e *Engine) ClaimDividend(vaultAddr, caller common.Address, number uint64, amount *big.Int, proof []common.Hash) error {
	epoch, err := e.Epoch(vaultAddr, number)
	if err != nil {
		return err
	}
	if err := types.ValidateAmount(amount); err != nil {
		return err
	}
	claimed, err := e.HasClaimed(vaultAddr, number, caller)
	if err != nil {
		return err
	}
	if claimed {
		return protoerrors.ErrAlreadyClaimed
	}
	leaf, err := merkle.LeafHash(caller, amount)
	if err != nil {
		return protoerrors.ErrInvalidAmount
	}
	if !merkle.Verify(proof, epoch.Root, leaf) {
		return protoerrors.ErrInvalidProof
	}
	if amount.Cmp(epoch.Remaining()) > 0 {
		return protoerrors.ErrEpochExhausted
	}
	if err := e.state.KVPut(claimedKey(vaultAddr, number, caller), true); err != nil {
		return err
	}
	epoch.Claimed = new(big.Int).Add(epoch.Claimed, amount)
	if err := e.state.KVPut(epochKey(vaultAddr, number), epoch); err != nil {
		return err
	}
	vault, err := e.Vault(vaultAddr)
	if err != nil {
		return err
	}
	if amount.Sign() > 0 {
		if err := e.ledger.Transfer(vault.PayoutToken, vault.Address, caller, amount); err != nil {
			return err
		}
	}
	e.emit(DividendClaimedEvent(vaultAddr, number, caller, amount))
	return nil
}

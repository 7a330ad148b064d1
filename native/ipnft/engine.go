// Package ipnft implements the invention registry: one non-fungible token per
// invention, pointing at its metadata document and its royalty token.
package ipnft

import (
	"encoding/binary"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	protoerrors "ideacapital/core/errors"
	"ideacapital/core/events"
	"ideacapital/core/state"
	"ideacapital/core/types"
	"ideacapital/native/token"
)

var errStateNotConfigured = errors.New("ipnft: state not configured")

type Engine struct {
	state   token.State
	emitter events.Emitter
	nowFn   func() time.Time
}

func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) SetState(s token.State) { e.state = s }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func registryKey(addr common.Address) []byte {
	return append([]byte("ipnft/registry/"), addr.Bytes()...)
}

func inventionKey(registry common.Address, id uint64) []byte {
	key := append([]byte("ipnft/invention/"), registry.Bytes()...)
	return binary.BigEndian.AppendUint64(key, id)
}

// Deploy creates a registry owned by owner.
func (e *Engine) Deploy(owner common.Address) (*Registry, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	if owner == (common.Address{}) {
		return nil, protoerrors.ErrInvalidAddress
	}
	addr, err := e.state.NextContractAddress(owner)
	if err != nil {
		return nil, err
	}
	now := uint64(e.nowFn().Unix())
	reg := &Registry{Address: addr, Owner: owner, CreatedAt: now}
	if err := e.state.RegisterContract(&state.Contract{Address: addr, Kind: Kind, Deployer: owner, CreatedAt: now}); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(registryKey(addr), reg); err != nil {
		return nil, err
	}
	e.emit(DeployedEvent(reg))
	return reg, nil
}

// Registry loads a registry header or returns ErrContractNotFound.
func (e *Engine) Registry(addr common.Address) (*Registry, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	var reg Registry
	ok, err := e.state.KVGet(registryKey(addr), &reg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, protoerrors.ErrContractNotFound
	}
	return &reg, nil
}

// MintInvention records a new invention owned by to. Only the registry owner
// may mint; token ids start at 0 and never repeat.
func (e *Engine) MintInvention(registryAddr, caller, to common.Address, pointer string, royaltyToken common.Address) (*Invention, error) {
	reg, err := e.Registry(registryAddr)
	if err != nil {
		return nil, err
	}
	if caller != reg.Owner {
		return nil, protoerrors.ErrUnauthorized
	}
	if to == (common.Address{}) {
		return nil, protoerrors.ErrInvalidAddress
	}
	pointer = strings.TrimPrefix(strings.TrimSpace(pointer), URIScheme)
	if pointer == "" {
		return nil, protoerrors.ErrMissingField
	}
	inv := &Invention{
		TokenID:         reg.NextTokenID,
		Owner:           to,
		MetadataPointer: pointer,
		RoyaltyToken:    royaltyToken,
		MintedAt:        uint64(e.nowFn().Unix()),
	}
	reg.NextTokenID++
	if err := e.state.KVPut(inventionKey(registryAddr, inv.TokenID), inv); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(registryKey(registryAddr), reg); err != nil {
		return nil, err
	}
	e.emit(InventionMintedEvent(registryAddr, inv))
	return inv, nil
}

// Invention loads an invention or returns ErrInventionNotFound.
func (e *Engine) Invention(registryAddr common.Address, id uint64) (*Invention, error) {
	if _, err := e.Registry(registryAddr); err != nil {
		return nil, err
	}
	var inv Invention
	ok, err := e.state.KVGet(inventionKey(registryAddr, id), &inv)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, protoerrors.ErrInventionNotFound
	}
	return &inv, nil
}

func (e *Engine) OwnerOf(registryAddr common.Address, id uint64) (common.Address, error) {
	inv, err := e.Invention(registryAddr, id)
	if err != nil {
		return common.Address{}, err
	}
	return inv.Owner, nil
}

func (e *Engine) TokenURI(registryAddr common.Address, id uint64) (string, error) {
	inv, err := e.Invention(registryAddr, id)
	if err != nil {
		return "", err
	}
	return URIScheme + inv.MetadataPointer, nil
}

// TransferInvention moves the token from its current owner to to.
func (e *Engine) TransferInvention(registryAddr, caller, to common.Address, id uint64) error {
	inv, err := e.Invention(registryAddr, id)
	if err != nil {
		return err
	}
	if caller != inv.Owner {
		return protoerrors.ErrUnauthorized
	}
	if to == (common.Address{}) {
		return protoerrors.ErrInvalidAddress
	}
	from := inv.Owner
	inv.Owner = to
	if err := e.state.KVPut(inventionKey(registryAddr, id), inv); err != nil {
		return err
	}
	e.emit(TransferEvent(registryAddr, id, from, to))
	return nil
}

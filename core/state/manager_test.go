package state

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"ideacapital/core/events"
	"ideacapital/core/types"
	"ideacapital/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	mgr := NewManager(db)
	mgr.SetNowFunc(func() time.Time { return time.Unix(1_700_000_000, 0).UTC() })
	return mgr
}

func testEvent(typ string, attrs map[string]string) events.Event {
	return events.Wrap(&types.Event{Type: typ, Attributes: attrs})
}

func TestUpdateCommitsWritesAndEvents(t *testing.T) {
	mgr := newTestManager(t)

	records, err := mgr.Update(func(tx *Tx) error {
		if err := tx.KVPut([]byte("balance/alice"), big.NewInt(42)); err != nil {
			return err
		}
		tx.Emit(testEvent("token.transfer", map[string]string{"to": "alice", "amount": "42"}))
		tx.Emit(testEvent("token.transfer", map[string]string{"to": "bob", "amount": "1"}))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, uint64(1), records[0].Seq)
	require.Equal(t, uint64(2), records[1].Seq)

	require.NoError(t, mgr.View(func(tx *Tx) error {
		got := new(big.Int)
		ok, err := tx.KVGet([]byte("balance/alice"), got)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, int64(42), got.Int64())
		return nil
	}))

	stored, err := mgr.EventsSince(0, 0)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, "bob", stored[1].Event.Attributes["to"])
	require.Equal(t, time.Unix(1_700_000_000, 0).UTC(), stored[0].Time)

	tail, err := mgr.EventsSince(1, 10)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	require.Equal(t, uint64(2), tail[0].Seq)

	seq, err := mgr.LatestSeq()
	require.NoError(t, err)
	require.Equal(t, uint64(2), seq)
}

func TestUpdateRollsBackOnError(t *testing.T) {
	mgr := newTestManager(t)
	boom := errors.New("boom")

	_, err := mgr.Update(func(tx *Tx) error {
		require.NoError(t, tx.KVPut([]byte("k"), uint64(7)))
		tx.Emit(testEvent("x", nil))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, mgr.View(func(tx *Tx) error {
		ok, err := tx.KVGet([]byte("k"), nil)
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	}))
	stored, err := mgr.EventsSince(0, 0)
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestTxReadsItsOwnWrites(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.Update(func(tx *Tx) error {
		require.NoError(t, tx.KVPut([]byte("n"), uint64(1)))
		var n uint64
		ok, err := tx.KVGet([]byte("n"), &n)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, uint64(1), n)

		require.NoError(t, tx.KVDelete([]byte("n")))
		ok, err = tx.KVGet([]byte("n"), &n)
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, tx.KVAppend([]byte("list"), []byte{1}))
		require.NoError(t, tx.KVAppend([]byte("list"), []byte{1}))
		require.NoError(t, tx.KVAppend([]byte("list"), []byte{2}))
		var list [][]byte
		require.NoError(t, tx.KVGetList([]byte("list"), &list))
		require.Equal(t, [][]byte{{1}, {2}}, list)

		var empty [][]byte
		require.NoError(t, tx.KVGetList([]byte("missing"), &empty))
		require.NotNil(t, empty)
		require.Empty(t, empty)
		return nil
	})
	require.NoError(t, err)
}

func TestViewRejectsWrites(t *testing.T) {
	mgr := newTestManager(t)
	err := mgr.View(func(tx *Tx) error {
		return tx.KVPut([]byte("k"), uint64(1))
	})
	require.ErrorIs(t, err, errReadOnly)
}

func TestSubscribeReceivesCommittedEvents(t *testing.T) {
	mgr := newTestManager(t)
	feed, cancel := mgr.Subscribe(4)
	defer cancel()

	_, err := mgr.Update(func(tx *Tx) error {
		tx.Emit(testEvent("crowdsale.investment", map[string]string{"investor": "a"}))
		return nil
	})
	require.NoError(t, err)

	select {
	case rec := <-feed:
		require.Equal(t, "crowdsale.investment", rec.Event.Type)
		require.Equal(t, uint64(1), rec.Seq)
	case <-time.After(time.Second):
		t.Fatal("expected live event")
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	mgr := newTestManager(t)
	feed, cancel := mgr.Subscribe(1)
	defer cancel()

	_, err := mgr.Update(func(tx *Tx) error {
		tx.Emit(testEvent("a", nil))
		tx.Emit(testEvent("b", nil))
		return nil
	})
	require.NoError(t, err)

	rec, ok := <-feed
	require.True(t, ok)
	require.Equal(t, "a", rec.Event.Type)
	_, ok = <-feed
	require.False(t, ok)
}

func TestNextContractAddressFollowsDeployerNonce(t *testing.T) {
	mgr := newTestManager(t)
	deployer := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	var first, second common.Address
	_, err := mgr.Update(func(tx *Tx) error {
		var err error
		if first, err = tx.NextContractAddress(deployer); err != nil {
			return err
		}
		if second, err = tx.NextContractAddress(deployer); err != nil {
			return err
		}
		return tx.RegisterContract(&Contract{Address: first, Kind: "token", Deployer: deployer})
	})
	require.NoError(t, err)
	require.Equal(t, ethcrypto.CreateAddress(deployer, 0), first)
	require.Equal(t, ethcrypto.CreateAddress(deployer, 1), second)

	require.NoError(t, mgr.View(func(tx *Tx) error {
		c, ok, err := tx.Contract(first)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "token", c.Kind)
		list, err := tx.ContractsOfKind("token")
		require.NoError(t, err)
		require.Equal(t, []common.Address{first}, list)
		return nil
	}))
}

package relay

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ideacapital/core/events"
	"ideacapital/core/state"
	"ideacapital/core/types"
	"ideacapital/native/dividend"
	"ideacapital/storage"
)

func setupArchive(t *testing.T) (*Archive, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	archive, err := NewArchive(db)
	require.NoError(t, err)
	return archive, db
}

func commit(t *testing.T, mgr *state.Manager, evts ...*types.Event) {
	t.Helper()
	_, err := mgr.Update(func(tx *state.Tx) error {
		for _, evt := range evts {
			tx.Emit(events.Wrap(evt))
		}
		return nil
	})
	require.NoError(t, err)
}

type markerCall struct {
	vault   common.Address
	epoch   uint64
	account common.Address
}

type fakeMarker struct{ calls []markerCall }

func (f *fakeMarker) MarkClaimed(_ context.Context, vault common.Address, epoch uint64, account common.Address) (bool, error) {
	f.calls = append(f.calls, markerCall{vault, epoch, account})
	return true, nil
}

func TestSyncArchivesOutbox(t *testing.T) {
	ctx := context.Background()
	mgr := state.NewManager(storage.NewMemDB())
	archive, _ := setupArchive(t)
	vault := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	claimant := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	commit(t, mgr,
		dividend.NewDistributionEvent(vault, 1, common.Hash{1}, big.NewInt(1_000)),
		dividend.DividendClaimedEvent(vault, 1, claimant, big.NewInt(400)),
	)
	marker := &fakeMarker{}
	r, err := New(mgr, archive, marker, Config{BatchSize: 1}, nil)
	require.NoError(t, err)

	n, err := r.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	cursor, err := archive.Cursor(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), cursor)
	require.Equal(t, []markerCall{{vault, 1, claimant}}, marker.calls)

	n, err = r.Sync(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	commit(t, mgr, dividend.NewDistributionEvent(vault, 2, common.Hash{2}, big.NewInt(5)))
	n, err = r.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	all, err := archive.Events(ctx, 0, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, dividend.EventTypeDividendClaimed, all[1].Event.Type)
	require.Equal(t, claimant.Hex(), all[1].Event.Attributes["claimant"])

	claims, err := archive.Events(ctx, 0, dividend.EventTypeDividendClaimed, 10)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	require.Equal(t, uint64(2), claims[0].Seq)
}

func TestArchiveDetectsTampering(t *testing.T) {
	ctx := context.Background()
	mgr := state.NewManager(storage.NewMemDB())
	archive, db := setupArchive(t)
	commit(t, mgr, dividend.NewDistributionEvent(common.Address{1}, 1, common.Hash{1}, big.NewInt(10)))
	r, err := New(mgr, archive, nil, Config{}, nil)
	require.NoError(t, err)
	_, err = r.Sync(ctx)
	require.NoError(t, err)

	require.NoError(t, db.Model(&ArchivedEvent{}).Where("seq = ?", 1).
		Update("attributes", `{"epoch":"9"}`).Error)
	_, err = archive.Events(ctx, 0, "", 0)
	require.ErrorIs(t, err, ErrDigestMismatch)
}

func TestAppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	archive, _ := setupArchive(t)
	rec := state.Record{
		Seq:   1,
		Time:  time.Unix(1_700_000_000, 0).UTC(),
		Event: dividend.NewDistributionEvent(common.Address{1}, 1, common.Hash{1}, big.NewInt(10)),
	}
	require.NoError(t, archive.Append(ctx, []state.Record{rec}))
	require.NoError(t, archive.Append(ctx, []state.Record{rec}))
	all, err := archive.Events(ctx, 0, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestDigestCoversAttributes(t *testing.T) {
	evt := dividend.NewDistributionEvent(common.Address{1}, 1, common.Hash{1}, big.NewInt(10))
	a := Digest(state.Record{Seq: 1, Event: evt})
	b := Digest(state.Record{Seq: 2, Event: evt})
	require.NotEqual(t, a, b)
	require.Len(t, a, 64)

	changed := dividend.NewDistributionEvent(common.Address{1}, 1, common.Hash{1}, big.NewInt(11))
	require.NotEqual(t, a, Digest(state.Record{Seq: 1, Event: changed}))
}

func TestRunStopsOnCancel(t *testing.T) {
	mgr := state.NewManager(storage.NewMemDB())
	archive, _ := setupArchive(t)
	r, err := New(mgr, archive, nil, Config{PollInterval: 10 * time.Millisecond}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	commit(t, mgr, dividend.NewDistributionEvent(common.Address{1}, 1, common.Hash{1}, big.NewInt(10)))
	require.Eventually(t, func() bool {
		cursor, err := archive.Cursor(context.Background())
		return err == nil && cursor == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

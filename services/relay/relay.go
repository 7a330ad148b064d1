// Package relay copies the committed event outbox into an external archive
// database and lets downstream indexes react to the events it carries.
package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/core/state"
	"ideacapital/native/dividend"
	"ideacapital/observability"
)

const (
	defaultBatchSize = 256
	defaultPoll      = 5 * time.Second
)

// Source is the committed event log. *state.Manager satisfies it.
type Source interface {
	EventsSince(after uint64, limit int) ([]state.Record, error)
	Subscribe(buffer int) (<-chan state.Record, func())
}

// ClaimMarker flags off-chain dividend claims as paid once the vault reports
// the payout.
type ClaimMarker interface {
	MarkClaimed(ctx context.Context, vault common.Address, epoch uint64, account common.Address) (bool, error)
}

// Config tunes the relay loop.
type Config struct {
	BatchSize    int
	PollInterval time.Duration
}

// Relay drains the outbox into an Archive.
type Relay struct {
	source  Source
	archive *Archive
	marker  ClaimMarker
	logger  *slog.Logger
	batch   int
	poll    time.Duration
}

// New constructs a relay. marker may be nil.
func New(source Source, archive *Archive, marker ClaimMarker, cfg Config, logger *slog.Logger) (*Relay, error) {
	if source == nil || archive == nil {
		return nil, errors.New("relay: source and archive are required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPoll
	}
	return &Relay{source: source, archive: archive, marker: marker, logger: logger, batch: batch, poll: poll}, nil
}

// Sync archives everything committed after the stored cursor and returns the
// number of records relayed.
func (r *Relay) Sync(ctx context.Context) (int, error) {
	cursor, err := r.archive.Cursor(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		records, err := r.source.EventsSince(cursor, r.batch)
		if err != nil {
			return total, err
		}
		if len(records) == 0 {
			return total, nil
		}
		for _, rec := range records {
			if err := r.apply(ctx, rec); err != nil {
				return total, err
			}
		}
		if err := r.archive.Append(ctx, records); err != nil {
			return total, err
		}
		cursor = records[len(records)-1].Seq
		total += len(records)
		observability.Events().SetRelayCursor(cursor)
		r.logger.Debug("relayed events", "count", len(records), "cursor", cursor)
	}
}

// Run relays until ctx is cancelled. Live notifications trigger a sync; the
// poll interval covers dropped subscriptions.
func (r *Relay) Run(ctx context.Context) error {
	feed, cancel := r.source.Subscribe(r.batch)
	defer func() { cancel() }()
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()
	for {
		if _, err := r.Sync(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("relay sync failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-feed:
			if !ok {
				cancel()
				feed, cancel = r.source.Subscribe(r.batch)
			}
		case <-ticker.C:
		}
	}
}

func (r *Relay) apply(ctx context.Context, rec state.Record) error {
	if r.marker == nil || rec.Event == nil || rec.Event.Type != dividend.EventTypeDividendClaimed {
		return nil
	}
	attrs := rec.Event.Attributes
	epoch, err := strconv.ParseUint(attrs["epoch"], 10, 64)
	if err != nil {
		r.logger.Warn("dividend claim event without epoch", "seq", rec.Seq)
		return nil
	}
	vault := common.HexToAddress(attrs["vault"])
	claimant := common.HexToAddress(attrs["claimant"])
	matched, err := r.marker.MarkClaimed(ctx, vault, epoch, claimant)
	if err != nil {
		return err
	}
	if matched {
		r.logger.Info("dividend claim settled", "vault", vault.Hex(), "epoch", epoch, "claimant", claimant.Hex())
	}
	return nil
}

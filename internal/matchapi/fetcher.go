package matchapi

import (
	"context"
	"time"

	"github.com/yannisouraghi/nexra-vision/internal/logging"
)

// Reconciles reports whether a candidate match belongs to the session that
// started at sessionStart. Match-end timestamps can lag the actual game end
// and the stats service is eventually consistent, so any match newer than
// sessionStart minus the tolerance is accepted.
func Reconciles(m *MatchRecord, sessionStart time.Time, tolerance time.Duration) bool {
	if m == nil {
		return false
	}
	cutoff := sessionStart.Add(-tolerance).UnixMilli()
	return m.Timestamp > cutoff
}

// Fetcher resolves "the match for this session": it waits out the settle
// delay (the stats service needs time to ingest a just-finished game),
// fetches the most recent match, and applies the tolerance window. Every
// failure degrades to nil; downstream falls back to the measured capture
// duration.
type Fetcher struct {
	client      *Client
	settleDelay time.Duration
	tolerance   time.Duration
	log         *logging.Logger

	sleep func(ctx context.Context, d time.Duration)
}

// NewFetcher returns a Fetcher with the given settle delay and tolerance.
func NewFetcher(client *Client, settleDelay, tolerance time.Duration, log *logging.Logger) *Fetcher {
	return &Fetcher{
		client:      client,
		settleDelay: settleDelay,
		tolerance:   tolerance,
		log:         log,
		sleep:       sleepCtx,
	}
}

// Fetch returns the session's match record, or nil when the account is
// unlinked, the request fails, or the newest match predates the tolerance
// window.
func (f *Fetcher) Fetch(ctx context.Context, accountID, region string, sessionStart time.Time) *MatchRecord {
	if accountID == "" {
		f.log.Debug("Account unlinked, skipping match fetch")
		return nil
	}

	f.log.Info("Waiting %s for match data to settle", f.settleDelay)
	f.sleep(ctx, f.settleDelay)
	if ctx.Err() != nil {
		return nil
	}

	m, err := f.client.LatestMatch(ctx, accountID, region)
	if err != nil {
		f.log.Warn("Match fetch failed, using measured duration: %v", err)
		return nil
	}
	if m == nil {
		f.log.Warn("No matches on record for account")
		return nil
	}
	if !Reconciles(m, sessionStart, f.tolerance) {
		f.log.Warn("Newest match %s predates this session (ended %s), ignoring",
			m.MatchID, time.UnixMilli(m.Timestamp).Format(time.RFC3339))
		return nil
	}

	f.log.Success("Reconciled session with match %s (%.0fs)", m.MatchID, m.DurationSeconds)
	return m
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

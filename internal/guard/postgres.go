package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/apex-pos/api/internal/database"
)

// FingerprintStore is satisfied by *database.Queries.
type FingerprintStore interface {
	AcceptFingerprint(ctx context.Context, arg database.AcceptFingerprintParams) (int64, error)
	PurgeFingerprints(ctx context.Context, before time.Time) (int64, error)
}

// Postgres is a Guard backed by the submission_fingerprints table, shared by
// every API instance. The accept is a single upsert, so two instances racing
// on the same fingerprint cannot both win.
type Postgres struct {
	store FingerprintStore
	now   func() time.Time
}

func NewPostgres(store FingerprintStore, now func() time.Time) *Postgres {
	if now == nil {
		now = time.Now
	}
	return &Postgres{store: store, now: now}
}

func (p *Postgres) Check(ctx context.Context, fingerprint string) (Decision, error) {
	now := p.now()

	if _, err := p.store.PurgeFingerprints(ctx, now.Add(-Retention)); err != nil {
		return Accepted, fmt.Errorf("purge fingerprints: %w", err)
	}

	n, err := p.store.AcceptFingerprint(ctx, database.AcceptFingerprintParams{
		Fingerprint: fingerprint,
		AcceptedAt:  now,
		Cutoff:      now.Add(-Window),
	})
	if err != nil {
		return Accepted, fmt.Errorf("accept fingerprint: %w", err)
	}
	if n == 0 {
		return Rejected, nil
	}
	return Accepted, nil
}

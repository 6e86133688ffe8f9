// source: fingerprints.sql

package database

import (
	"context"
	"time"
)

const acceptFingerprint = `-- name: AcceptFingerprint :execrows
INSERT INTO submission_fingerprints (fingerprint, accepted_at)
VALUES ($1, $2)
ON CONFLICT (fingerprint) DO UPDATE SET accepted_at = EXCLUDED.accepted_at
WHERE submission_fingerprints.accepted_at <= $3
`

type AcceptFingerprintParams struct {
	Fingerprint string    `json:"fingerprint"`
	AcceptedAt  time.Time `json:"accepted_at"`
	Cutoff      time.Time `json:"cutoff"`
}

// AcceptFingerprint records the fingerprint unless it was accepted after
// Cutoff. It affects zero rows for a duplicate.
func (q *Queries) AcceptFingerprint(ctx context.Context, arg AcceptFingerprintParams) (int64, error) {
	result, err := q.db.Exec(ctx, acceptFingerprint, arg.Fingerprint, arg.AcceptedAt, arg.Cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const purgeFingerprints = `-- name: PurgeFingerprints :execrows
DELETE FROM submission_fingerprints WHERE accepted_at < $1
`

func (q *Queries) PurgeFingerprints(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.Exec(ctx, purgeFingerprints, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Package guard suppresses duplicate order submissions, such as a double tap
// on a touch screen, by remembering recently accepted fingerprints.
package guard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	// Window is how long an accepted fingerprint blocks an identical one.
	Window = 5 * time.Second
	// Retention is the age after which fingerprints are purged.
	Retention = 10 * time.Second
)

type Decision int

const (
	Accepted Decision = iota
	Rejected
)

func (d Decision) String() string {
	if d == Rejected {
		return "rejected"
	}
	return "accepted"
}

// Guard decides whether a submission with the given fingerprint may proceed.
// An Accepted decision records the fingerprint.
type Guard interface {
	Check(ctx context.Context, fingerprint string) (Decision, error)
}

// Item is the part of an order line that identifies a submission.
type Item struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
	Price     string `json:"price"`
	Notes     string `json:"notes"`
}

type submission struct {
	CompanyID    string `json:"companyId"`
	Table        string `json:"table"`
	Items        []Item `json:"items"`
	CustomerName string `json:"customerName"`
}

// Fingerprint hashes {tenant, table, items, customer}. Items keep their
// submitted order. An empty table is the counter and an empty customer name
// is "no-customer".
func Fingerprint(companyID uuid.UUID, table string, items []Item, customerName string) string {
	if table == "" {
		table = "counter"
	}
	if customerName == "" {
		customerName = "no-customer"
	}
	if items == nil {
		items = []Item{}
	}
	b, _ := json.Marshal(submission{
		CompanyID:    companyID.String(),
		Table:        table,
		Items:        items,
		CustomerName: customerName,
	})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

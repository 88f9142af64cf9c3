package circulation

import (
	"context"
	"fmt"

	"github.com/kozaktomas/library-kiosk/internal/database"
)

// AuditReport lists enrolled identities that are closer to each other than the
// dedup tolerance. Registration prevents these, so any pair found here was
// enrolled by concurrent writers or under an older tolerance.
type AuditReport struct {
	Checked   int                 `json:"checked"`
	Tolerance float64             `json:"tolerance"`
	Pairs     []database.NearPair `json:"pairs"`
}

// AuditRoster searches the roster for look-alike pairs. progress, if set, is
// called once per checked identity with the running count and the total.
func (k *Kiosk) AuditRoster(ctx context.Context, progress func(done, total int)) (AuditReport, error) {
	roster, err := k.store.ListEmbeddings(ctx)
	if err != nil {
		return AuditReport{}, fmt.Errorf("list roster: %w", err)
	}

	report := AuditReport{Checked: len(roster), Tolerance: k.dedup.Tolerance, Pairs: []database.NearPair{}}
	if len(roster) < 2 {
		return report, nil
	}

	idx := database.NewHNSWIndex()
	idx.Build(roster)

	done := 0
	pairs := idx.NearPairs(k.dedup.Tolerance, database.HNSWAuditNeighbors, func() {
		done++
		if progress != nil {
			progress(done, len(roster))
		}
	})
	if pairs != nil {
		report.Pairs = pairs
	}
	return report, nil
}

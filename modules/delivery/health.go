package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/hookrelay/pkg/kvstore"
)

// failureRecord is the soft state of one endpoint's failure streak. It lives
// in the shared store with a TTL of twice the grace period: long enough that
// failures inside the window are never forgotten by eviction, short enough
// that stale streaks clean themselves up. Eviction is equivalent to forgiving
// the streak.
type failureRecord struct {
	FirstFailureAt time.Time `json:"first_failure_at"`
}

func failureKey(appID, endpointID string) string {
	return fmt.Sprintf("endpoint_failure_%s_%s", appID, endpointID)
}

// HealthTracker records endpoint failure streaks in the shared store and
// decides when an endpoint has been failing long enough to disable.
type HealthTracker struct {
	store kvstore.Store
	now   func() time.Time
}

// NewHealthTracker creates a tracker on top of the given store. With a
// kvstore.NoneStore the tracker degrades into "never disable".
func NewHealthTracker(store kvstore.Store) *HealthTracker {
	return &HealthTracker{store: store, now: time.Now}
}

// OnSuccess clears the failure streak for the endpoint, so an endpoint that
// was previously not responding is not disabled after responding again.
// Clearing an absent streak is a no-op.
func (h *HealthTracker) OnSuccess(ctx context.Context, appID, endpointID string) error {
	return h.store.Delete(ctx, failureKey(appID, endpointID))
}

// OnFailure records a failure and reports whether the endpoint should be
// disabled. The first failure stamps the streak start and never disables.
// Subsequent failures disable once the streak has outlived disableIn, in
// which case the streak start time is returned.
//
// Two concurrent first failures race on SetIfNotExists; both outcomes are
// fine because the grace-period check is monotonic in the recorded time.
func (h *HealthTracker) OnFailure(ctx context.Context, appID, endpointID string, disableIn time.Duration) (*time.Time, error) {
	key := failureKey(appID, endpointID)
	now := h.now()

	record, ok, err := kvstore.GetJSON[failureRecord](ctx, h.store, key)
	if err != nil {
		return nil, err
	}
	if ok {
		if now.Sub(record.FirstFailureAt) > disableIn {
			first := record.FirstFailureAt
			return &first, nil
		}
		return nil, nil
	}

	if _, err := kvstore.SetJSONIfNotExists(ctx, h.store, key, failureRecord{FirstFailureAt: now}, 2*disableIn); err != nil {
		return nil, err
	}
	return nil, nil
}

package tiercache

// Tier names reported to hooks.
const (
	TierHot    = "hot"
	TierNormal = "normal"
	TierTTL    = "ttl"
)

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// Caches call them after releasing their lock, but still on request paths.
type Hooks interface {
	// count entries were evicted from tier to respect its capacity.
	Evicted(cache, tier string, count int)

	// An entry moved from the normal tier into the hot tier.
	Promoted(cache string)

	// count entries were dropped because their TTL elapsed.
	// sweep is true for Cleanup, false for lazy expiry on Get.
	Expired(cache string, count int, sweep bool)

	// A backing-store query for repository failed during Coordinator.Load.
	LoadFailed(namespace, repository string, err error)

	// A contributor returned an error or panicked during Coordinator.Load.
	ContributorFailed(namespace, contributor string, err error)

	// A write-back flush could not persist pending dirty entries.
	FlushFailed(repository string, pending int, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Evicted(string, string, int)             {}
func (NopHooks) Promoted(string)                         {}
func (NopHooks) Expired(string, int, bool)               {}
func (NopHooks) LoadFailed(string, string, error)        {}
func (NopHooks) ContributorFailed(string, string, error) {}
func (NopHooks) FlushFailed(string, int, error)          {}

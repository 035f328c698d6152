// Package tiercache implements the in-process caching engine that sits in
// front of entity repositories, plus a coordinator that warms and drops cache
// contents when a namespace key (a session, a player) comes and goes.
//
// Components:
//   - Cache[K, V]: get/put/invalidate contract with hit, miss, eviction and
//     promotion counters. Implementations own their locking.
//   - TwoTierCache: LRU split into hot and normal tiers. Normal entries read
//     PromotionThreshold times within the promotion window move to hot.
//     Hot capacity 0 gives a plain LRU.
//   - TTLCache: absolute-from-insertion expiry, lazy on Get and eager on Cleanup.
//   - Manager: one cache per repository, built from GlobalConfig defaults
//     overlaid with RepositoryConfig overrides; owns write-back flush scheduling.
//   - Coordinator: Load/Unload fan-out across repository Bindings and
//     Contributors registered for a namespace.
//
// Policies:
//
//	LRU        TwoTierCache{hot: 0, normal: maxSize}
//	HOT_AWARE  TwoTierCache{hot: hotTierSize, normal: maxSize}
//	TTL        TTLCache{ttl: ttlSeconds}
//
// Coordinator pattern:
//
//	reg := tiercache.NewRegistry().
//	    AddRepository("player_uuid", tiercache.AutoLoad(tiercache.Binding[string, Stats]{
//	        Repository: "StatsRepository",
//	        Cache:      statsHandle.Cache(),
//	        ID:         func(s Stats) string { return s.ID },
//	        Field:      func(s Stats) string { return s.PlayerUUID },
//	        Query:      statsStore.FindBy,
//	    }))
//	coord := tiercache.NewCoordinator(reg, tiercache.CoordinatorOptions{Logger: log})
//	_ = coord.Load(ctx, "player_uuid", id) // on connect
//	coord.Unload("player_uuid", id)        // on disconnect
package tiercache

package tiercache

import "time"

const (
	// PromotionThreshold is the access count at which a normal-tier entry is
	// promoted, provided it is still inside its promotion window.
	PromotionThreshold = 10

	DefaultPromotionWindow = time.Minute
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

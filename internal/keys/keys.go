package keys

import (
	"crypto/sha256"
	"encoding/hex"
)

// maxRaw bounds values embedded verbatim; longer ones are hashed.
const maxRaw = 128

// Record is the storage key of one entity: rec:<ns>:<id>.
func Record(ns, id string) string { return "rec:" + ns + ":" + id }

// Index is the storage key of the index set for one field value: idx:<ns>:<value>.
// Long values are replaced by a short sha256 prefix to keep keys bounded.
func Index(ns, value string) string { return "idx:" + ns + ":" + compact(value) }

func compact(v string) string {
	if len(v) <= maxRaw {
		return v
	}
	sum := sha256.Sum256([]byte(v))
	return "h" + hex.EncodeToString(sum[:8])
}

package report

import (
	"strings"
	"time"
)

// KeyPrefix is the common prefix of every report key.
const KeyPrefix = "reports/"

const keyTimeLayout = "20060102150405"

// Key returns the storage key of a report generated at t for ownerID:
// reports/{owner}_maintenance_report_{YYYYMMDDHHMMSS}, in UTC. Two reports for
// the same owner within one second share a key.
func Key(ownerID string, t time.Time) string {
	return OwnerPrefix(ownerID) + t.UTC().Format(keyTimeLayout)
}

// OwnerPrefix returns the key prefix shared by all of ownerID's reports.
func OwnerPrefix(ownerID string) string {
	return KeyPrefix + ownerID + "_maintenance_report_"
}

// OwnsKey reports whether key is a well-formed report key of ownerID.
func OwnsKey(ownerID, key string) bool {
	stamp, ok := strings.CutPrefix(key, OwnerPrefix(ownerID))
	if !ok || len(stamp) != len(keyTimeLayout) {
		return false
	}
	for _, r := range stamp {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

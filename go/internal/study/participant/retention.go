package participant

import "fmt"

// RetentionPolicy decides what happens to a directory entry when its participant leaves.
type RetentionPolicy string

const (
	// RetentionRetain keeps the profile and session mapping after departure, so
	// submissions arriving later are still credited to the participant's session.
	RetentionRetain RetentionPolicy = "retain"
	// RetentionPurge deletes the entry on departure.
	RetentionPurge RetentionPolicy = "purge"
)

// ParseRetentionPolicy validates a configured policy name. Empty means retain.
func ParseRetentionPolicy(s string) (RetentionPolicy, error) {
	switch RetentionPolicy(s) {
	case "", RetentionRetain:
		return RetentionRetain, nil
	case RetentionPurge:
		return RetentionPurge, nil
	default:
		return "", fmt.Errorf("unknown retention policy %q", s)
	}
}

// Package domain defines the anti-forgery state entry and its key layout.
package domain

// IssueCounterPrefix namespaces per-requester issuance counters. State
// entries themselves are keyed directly by the random token value.
const IssueCounterPrefix = "csrf-issue:"

// IssueCounterKey returns the issuance counter key for a requester.
func IssueCounterKey(requesterIdentity string) string {
	return IssueCounterPrefix + requesterIdentity
}

// StateEntry is the value stored for an issued state token.
type StateEntry struct {
	OwnerID string `json:"owner_id"`
}

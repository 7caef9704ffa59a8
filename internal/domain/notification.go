package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type DedupPolicy int

const (
	// DedupNone always appends (reminders).
	DedupNone DedupPolicy = iota
	// DedupTitle keeps one live notice per title.
	DedupTitle
	// DedupTitleText keeps one notice per (title, text).
	DedupTitleText
)

type Notification struct {
	ID          string
	AffiliateID string
	Title       string
	Text        string
	Date        time.Time
	Read        bool
	DedupKey    string
}

// DedupKeyFor returns the key enforced by the store's unique index. Empty
// means the notice is never deduplicated.
func DedupKeyFor(policy DedupPolicy, title, text string) string {
	switch policy {
	case DedupTitle:
		return "title:" + title
	case DedupTitleText:
		sum := sha256.Sum256([]byte(title + "\x00" + text))
		return "event:" + hex.EncodeToString(sum[:])
	}
	return ""
}

// NotificationPurge selects onboarding notices removed on disconnect: exact
// titles plus anything starting with Prefix.
type NotificationPurge struct {
	Titles []string
	Prefix string
}

const (
	TitlePayoutInitiated = "Payout initiated"
	TitlePayoutPaid      = "Payout completed"
	TitlePayoutReversed  = "Payout reversed"
	TitleRefundRecorded  = "Sale refunded"
)

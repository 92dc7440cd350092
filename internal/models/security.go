package models

import (
	"encoding/json"
	"time"
)

// SecurityCheck is a cached score/report pair for one address. Once written
// it is permanent: the read path never refreshes or invalidates it.
type SecurityCheck struct {
	Address   string          `json:"address"`
	Score     int             `json:"score"`
	Reports   json.RawMessage `json:"reports"`
	CheckedAt time.Time       `json:"checkedAt"`
}

// SecurityCheckResult is the API shape for a security check; Cached tells the
// caller whether the record was served from storage or freshly scored.
type SecurityCheckResult struct {
	Address string          `json:"address"`
	Score   int             `json:"score"`
	Reports json.RawMessage `json:"reports"`
	Cached  bool            `json:"cached"`
}

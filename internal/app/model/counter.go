package model

import "github.com/google/uuid"

// CounterTarget is an allow-listed counter column and the key column used to address its row.
type CounterTarget struct {
	Table  string
	Column string
	Key    string
}

// ValidKey reports whether key can address a row of the target. Id keys must be uuids.
func (t CounterTarget) ValidKey(key string) bool {
	if key == "" {
		return false
	}
	if t.Key != "id" {
		return true
	}
	_, err := uuid.Parse(key)
	return err == nil
}

var counterTargets = []CounterTarget{
	{Table: "short_links", Column: "visits", Key: "code"},
	{Table: "url_unlockers", Column: "visits", Key: "id"},
	{Table: "url_unlockers", Column: "unlocks", Key: "id"},
	{Table: "sequence_unlockers", Column: "visits", Key: "id"},
	{Table: "sequence_unlockers", Column: "unlocks", Key: "id"},
	{Table: "bio_cards", Column: "views", Key: "id"},
	{Table: "bio_links", Column: "clicks", Key: "id"},
}

// publicCounters may be bumped by anonymous clients. Unlock counters are excluded:
// they only move on a completed challenge.
var publicCounters = []CounterTarget{
	counterTargets[0],
}

// LookupCounter returns the allow-listed target for table/column.
func LookupCounter(table, column string) (CounterTarget, bool) {
	return lookup(counterTargets, table, column)
}

// LookupPublicCounter returns the target for table/column when anonymous clients may increment it.
func LookupPublicCounter(table, column string) (CounterTarget, bool) {
	return lookup(publicCounters, table, column)
}

func lookup(targets []CounterTarget, table, column string) (CounterTarget, bool) {
	for _, t := range targets {
		if t.Table == table && t.Column == column {
			return t, true
		}
	}
	return CounterTarget{}, false
}

// Well-known counters used by services.
var (
	CounterLinkVisits      = counterTargets[0]
	CounterUnlockerVisits  = counterTargets[1]
	CounterUnlockerUnlocks = counterTargets[2]
	CounterSequenceVisits  = counterTargets[3]
	CounterSequenceUnlocks = counterTargets[4]
	CounterCardViews       = counterTargets[5]
	CounterBioLinkClicks   = counterTargets[6]
)

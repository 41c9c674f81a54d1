package persistence

import (
	"encoding/json"
	"os"
)

// QuarantineSet is a persisted set of room ids that must be treated
// as absent by every externally observable operation.
type QuarantineSet map[string]struct{}

// LoadQuarantine reads quarantine.json, returning an empty set if the
// file does not yet exist.
func LoadQuarantine(l Layout) (QuarantineSet, error) {
	data, err := os.ReadFile(l.QuarantinePath())
	if err != nil {
		if os.IsNotExist(err) {
			return QuarantineSet{}, nil
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	set := make(QuarantineSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// SaveQuarantine atomically persists the quarantine set as a sorted
// JSON array of room ids.
func SaveQuarantine(l Layout, set QuarantineSet) error {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return AtomicWriteFile(l.QuarantinePath(), data, 0o644)
}

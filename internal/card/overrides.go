package card

import (
	"encoding/json"
	"fmt"

	"cardcast/internal/types"
)

// OverrideEntry is one pre-authored alarm card, keyed by the exact alarm
// state and alarm name it replaces. This is the wire shape of the
// CARD_OVERRIDES configuration value.
type OverrideEntry struct {
	State  string       `json:"state"` // exact NewStateValue match, e.g. "ALARM"
	Alarm  string       `json:"alarm"` // exact AlarmName match
	Colour types.Colour `json:"colour"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
}

// overrideKey identifies an override by (state, alarm name). Matching is
// case-sensitive on both parts.
type overrideKey struct {
	state string
	alarm string
}

// OverrideTable holds pre-authored alarm cards. Lookups are exact; there is
// no wildcard or partial matching. The zero table matches nothing.
type OverrideTable struct {
	entries map[overrideKey]types.CardData
}

// NewOverrideTable builds a table from entries. When two entries share a
// (state, alarm) key, the later entry wins.
func NewOverrideTable(entries []OverrideEntry) *OverrideTable {
	t := &OverrideTable{
		entries: make(map[overrideKey]types.CardData, len(entries)),
	}
	for _, e := range entries {
		t.entries[overrideKey{state: e.State, alarm: e.Alarm}] = types.CardData{
			Colour: e.Colour,
			Title:  e.Title,
			Text:   e.Text,
		}
	}
	return t
}

// ParseOverrides decodes the CARD_OVERRIDES JSON array into a table. An
// empty value yields an empty table. Each entry must name a state, an alarm,
// and a valid colour when one is set; a bad entry fails startup rather than
// silently matching nothing.
func ParseOverrides(raw string) (*OverrideTable, error) {
	if raw == "" {
		return NewOverrideTable(nil), nil
	}

	var entries []OverrideEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeConfigInvalid,
			"card overrides are not a JSON array of override entries",
			err,
		)
	}

	for i, e := range entries {
		if e.State == "" || e.Alarm == "" {
			return nil, types.NewAppErrorWithDetails(
				types.ErrCodeConfigInvalid,
				fmt.Sprintf("card override entry %d is missing state or alarm", i),
				nil,
				map[string]interface{}{"entry_index": i},
			)
		}
		if e.Colour != "" && !e.Colour.Valid() {
			return nil, types.NewAppErrorWithDetails(
				types.ErrCodeConfigInvalid,
				fmt.Sprintf("card override entry %d has unknown colour %q", i, e.Colour),
				nil,
				map[string]interface{}{"entry_index": i, "colour": string(e.Colour)},
			)
		}
	}

	return NewOverrideTable(entries), nil
}

// Lookup returns the pre-authored card for the (state, alarm) pair, if any.
func (t *OverrideTable) Lookup(state, alarm string) (types.CardData, bool) {
	data, ok := t.entries[overrideKey{state: state, alarm: alarm}]
	return data, ok
}

// Len reports the number of registered overrides.
func (t *OverrideTable) Len() int {
	return len(t.entries)
}

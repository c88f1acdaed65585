package session

import (
	"encoding/json"
	"fmt"
)

// importProbe mirrors only the fields needed to tell the supported save
// shapes apart before committing to a full decode.
type importProbe struct {
	SavedState *json.RawMessage `json:"savedState"`
	World      *json.RawMessage `json:"world"`
	Player     *json.RawMessage `json:"player"`
	Config     *json.RawMessage `json:"config"`
	History    *json.RawMessage `json:"history"`
	TurnCount  int              `json:"turnCount"`
}

// legacyImport is the older flattened export shape: the world aggregate is
// nested under "world" and history/turnCount sit at the top level.
type legacyImport struct {
	World     World   `json:"world"`
	History   []*Turn `json:"history"`
	TurnCount int     `json:"turnCount"`
}

// ParseImport decodes a session export. It accepts the canonical shape
// (world/player/config with nested savedState) and the legacy flattened
// shape ({world, history, turnCount}); setup-only exports (world creation
// output without any history) are rejected with ErrSetupOnly.
func ParseImport(data []byte) (*World, error) {
	var probe importProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %v", ErrImportFormat, err)
	}

	switch {
	case probe.SavedState != nil && probe.World != nil && probe.Player != nil:
		// Canonical save: full World aggregate with nested savedState.
		var w World
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("%w: decoding save: %v", ErrImportFormat, err)
		}
		if w.SavedState == nil {
			w.SavedState = &SavedState{}
		}
		return &w, nil

	case probe.History != nil && probe.World != nil:
		// Legacy flattened shape: lift history/turnCount into savedState.
		var legacy legacyImport
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("%w: decoding legacy save: %v", ErrImportFormat, err)
		}
		w := legacy.World
		w.SavedState = &SavedState{
			History:   legacy.History,
			TurnCount: legacy.TurnCount,
		}
		return &w, nil

	case probe.Player != nil && probe.World != nil && probe.Config != nil:
		// World-creation export: setup data only, nothing to resume.
		return nil, ErrSetupOnly

	default:
		return nil, ErrImportFormat
	}
}

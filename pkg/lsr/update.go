package lsr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// updateKeys maps the semantic JSON keys the model emits in a state-update
// block to table ids and the positional order of their fields. Field order is
// the contract: object fields are flattened into indexed columns by position.
var updateKeys = []struct {
	key     string
	tableID string
	fields  []string
}{
	{"character_info", "1", []string{
		"Name", "Gender", "Age", "Identity", "Body_Features", "Fashion_Style",
		"Personality", "Hobbies", "Long_term_Goals", "Relationships",
		"Attitude_towards_User", "Inter_character_Relations", "Context_Role",
		"Important_Notes",
	}},
	{"relationship_info", "2", []string{
		"Name", "Trust_Level", "First_Met", "Affinity", "Shared_History",
		"Recent_Interactions", "Notes",
	}},
	{"schedule_log", "3", []string{
		"Summary", "Overall_Content", "Current_Progress", "Performer",
		"Delegator", "Reward", "Location", "Start_Time", "End_Limit_Time",
		"Notes",
	}},
	{"abilities", "4", []string{
		"Ability_Name", "Owner", "Usage_Effect", "Limitations", "Notes",
	}},
	{"inventory", "5", []string{
		"Item_Name", "Owner", "Current_Location", "Quantity",
		"Form_Appearance", "Usage", "Limitations", "Notes",
	}},
	{"organizations", "6", []string{
		"Org_Name", "Known_Structure", "Member_Traits", "Purpose", "Notes",
	}},
	{"locations", "7", []string{
		"Location_Name", "Position_Coordinates", "Spatial_Structure", "Notes",
	}},
	{"event_history", "9", []string{
		"Time", "Location", "Event_Description",
	}},
}

// majorSummaryFields is the field order for table "8", which is an object
// rather than an array in the update payload.
var majorSummaryFields = []string{"Time_Range", "Content"}

// ApplyStateUpdate decodes a JSON state-update payload and merges it into
// current per the table merge policy. A payload that fails to decode is
// non-fatal: the current state is returned unchanged alongside ErrCodec.
func ApplyStateUpdate(payload string, current Tables) (Tables, error) {
	var update map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &update); err != nil {
		return current, fmt.Errorf("%w: decoding state update: %v", ErrCodec, err)
	}

	next := current.Clone()

	for _, uk := range updateKeys {
		raw, ok := update[uk.key]
		if !ok {
			continue
		}

		var items []map[string]any
		if err := json.Unmarshal(raw, &items); err != nil {
			// Wrong shape for this key: skip it, keep the rest of the update.
			continue
		}

		rows := make([]Row, 0, len(items))
		for _, item := range items {
			rows = append(rows, mapObjectToColumns(item, uk.fields))
		}
		next[uk.tableID] = rows

		if uk.tableID == "9" && len(items) > 0 {
			// Table "0" (current time/location) is derived from the latest
			// event, never updated directly.
			latest := items[len(items)-1]
			next["0"] = []Row{{
				"0": stringField(latest, "Time"),
				"1": stringField(latest, "Location"),
			}}
		}
	}

	if raw, ok := update["major_summary"]; ok {
		var summary map[string]any
		if err := json.Unmarshal(raw, &summary); err == nil {
			// Table "8" is overwritten only when real content arrives.
			content := stringField(summary, "Content")
			if content != Placeholder && content != "null" && strings.TrimSpace(content) != "" {
				next["8"] = []Row{mapObjectToColumns(summary, majorSummaryFields)}
			}
		}
	}

	return next, nil
}

// Merge applies a text-form runtime update to current: every table present in
// update replaces the prior rows wholesale, absent tables are retained.
// The same "0"-from-"9" derivation and table "8" content guard apply as in
// the JSON path.
func Merge(current, update Tables) Tables {
	next := current.Clone()

	for id, rows := range update {
		switch id {
		case "0":
			// Derived table, ignore direct updates.
			continue
		case "8":
			if len(rows) == 0 || strings.TrimSpace(rows[0]["1"]) == "" {
				continue
			}
		}

		copied := make([]Row, len(rows))
		for i, row := range rows {
			r := make(Row, len(row))
			for k, v := range row {
				r[k] = v
			}
			copied[i] = r
		}
		next[id] = copied
	}

	if events, ok := update["9"]; ok && len(events) > 0 {
		latest := events[len(events)-1]
		next["0"] = []Row{{
			"0": valueOrPlaceholder(latest["0"]),
			"1": valueOrPlaceholder(latest["1"]),
		}}
	}

	return next
}

func mapObjectToColumns(obj map[string]any, fields []string) Row {
	row := make(Row, len(fields))
	for i, field := range fields {
		row[fmt.Sprintf("%d", i)] = stringField(obj, field)
	}
	return row
}

func stringField(obj map[string]any, field string) string {
	v, ok := obj[field]
	if !ok || v == nil {
		return Placeholder
	}

	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	if s == "" {
		return Placeholder
	}

	return s
}

func valueOrPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

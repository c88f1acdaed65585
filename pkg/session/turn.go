// Package session defines the conversation data model: turns with generated
// alternates ("swipes"), the session snapshot aggregating world, player and
// history, and the import/export shapes for save files.
package session

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mythos-rpg/mythos/pkg/tags"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one exchange unit in history. A model turn holds one or more
// generated alternates for the same slot; exactly one is active. The
// displayed text is always derived from the active alternate, never stored
// separately, so it cannot desync.
type Turn struct {
	Role      Role
	Timestamp int64 // unix milliseconds

	// Alternates is append-only except for in-place edits of the active
	// alternate. It is never empty.
	Alternates []string

	// Active is the index of the active alternate. Always a valid index
	// into Alternates.
	Active int

	// Choices are the suggested next actions parsed from the active
	// alternate's <branches> block. Recomputed whenever the active
	// alternate changes.
	Choices []string
}

// NewUserTurn creates a user-authored turn with a single alternate.
func NewUserTurn(text string) *Turn {
	return &Turn{
		Role:       RoleUser,
		Timestamp:  time.Now().UnixMilli(),
		Alternates: []string{text},
	}
}

// NewModelTurn creates a model turn from a completed response.
func NewModelTurn(text string) *Turn {
	t := &Turn{
		Role:       RoleModel,
		Timestamp:  time.Now().UnixMilli(),
		Alternates: []string{text},
	}
	t.RefreshChoices()
	return t
}

// NewPlaceholderTurn creates an empty model turn used as a stable insertion
// point while a streamed response accumulates.
func NewPlaceholderTurn() *Turn {
	return &Turn{
		Role:       RoleModel,
		Timestamp:  time.Now().UnixMilli(),
		Alternates: []string{""},
	}
}

// Text returns the active alternate's text.
func (t *Turn) Text() string {
	return t.Alternates[t.Active]
}

// SetActiveText replaces the active alternate's text in place and recomputes
// choices for model turns. Used for streaming accumulation and direct edits.
func (t *Turn) SetActiveText(text string) {
	t.Alternates[t.Active] = text
	if t.Role == RoleModel {
		t.RefreshChoices()
	}
}

// AppendAlternate appends a new alternate and makes it active.
func (t *Turn) AppendAlternate(text string) {
	t.Alternates = append(t.Alternates, text)
	t.Active = len(t.Alternates) - 1
	if t.Role == RoleModel {
		t.RefreshChoices()
	}
}

// SwipePrev moves the active index back one alternate. Returns false when
// already at the first alternate.
func (t *Turn) SwipePrev() bool {
	if t.Active == 0 {
		return false
	}
	t.Active--
	t.RefreshChoices()
	return true
}

// SwipeNext moves the active index forward one alternate. Returns false when
// already at the last alternate; the caller decides whether that triggers a
// regeneration.
func (t *Turn) SwipeNext() bool {
	if t.Active >= len(t.Alternates)-1 {
		return false
	}
	t.Active++
	t.RefreshChoices()
	return true
}

// RefreshChoices re-extracts choices from the active alternate.
func (t *Turn) RefreshChoices() {
	t.Choices = ExtractChoices(t.Text())
}

// ID derives the stable memory-vector id for this turn.
func (t *Turn) ID() string {
	return VectorID(t.Timestamp, t.Role)
}

// VectorID builds the memory-vector id for a turn's timestamp and role.
func VectorID(timestamp int64, role Role) string {
	return "msg-" + strconv.FormatInt(timestamp, 10) + "-" + string(role)
}

// ExtractChoices parses the <branches> block of text into a trimmed,
// non-empty list of choices.
func ExtractChoices(text string) []string {
	block := tags.Extract(text, tags.TagBranches)
	if block == "" {
		return nil
	}

	var choices []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		choices = append(choices, line)
	}

	return choices
}

// turnJSON is the wire form of a Turn in save files. The text field mirrors
// the active alternate for compatibility with older saves; it is recomputed,
// never trusted, on load.
type turnJSON struct {
	Role      Role     `json:"role"`
	Text      string   `json:"text"`
	Timestamp int64    `json:"timestamp"`
	Swipes    []string `json:"swipes,omitempty"`
	Index     int      `json:"swipeIndex"`
	Choices   []string `json:"choices,omitempty"`
}

// MarshalJSON renders the canonical save shape.
func (t *Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal(turnJSON{
		Role:      t.Role,
		Text:      t.Text(),
		Timestamp: t.Timestamp,
		Swipes:    t.Alternates,
		Index:     t.Active,
		Choices:   t.Choices,
	})
}

// UnmarshalJSON accepts both the canonical shape and older saves where only
// text was recorded (no swipes array).
func (t *Turn) UnmarshalJSON(data []byte) error {
	var w turnJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	t.Role = w.Role
	t.Timestamp = w.Timestamp
	t.Alternates = w.Swipes
	t.Active = w.Index

	if len(t.Alternates) == 0 {
		t.Alternates = []string{w.Text}
		t.Active = 0
	}
	if t.Active < 0 || t.Active >= len(t.Alternates) {
		t.Active = len(t.Alternates) - 1
	}

	if t.Role == RoleModel {
		t.RefreshChoices()
	}

	return nil
}

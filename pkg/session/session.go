package session

// WorldInfo describes the setting the narrative plays in.
type WorldInfo struct {
	Name        string `json:"worldName"`
	Description string `json:"description,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Rules       string `json:"rules,omitempty"`
}

// PlayerInfo describes the player character.
type PlayerInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Background  string `json:"background,omitempty"`
}

// Entity is a world inhabitant (NPC, faction, event seed) supplied at setup.
type Entity struct {
	Name        string `json:"name"`
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description,omitempty"`
}

// WorldConfig carries the free-text constraint rules injected verbatim into
// every prompt. Mutate by replacing the whole list, never by partial patch.
type WorldConfig struct {
	Rules []string `json:"rules,omitempty"`
}

// SavedState is the resumable portion of a session: the turn history and the
// turn counter.
type SavedState struct {
	History   []*Turn `json:"history"`
	TurnCount int     `json:"turnCount"`
}

// World is the session root: world, player, entities and config, plus the
// optional saved state. It is the single aggregate for save and load.
type World struct {
	World      WorldInfo   `json:"world"`
	Player     PlayerInfo  `json:"player"`
	Entities   []Entity    `json:"entities,omitempty"`
	Config     WorldConfig `json:"config"`
	SavedState *SavedState `json:"savedState,omitempty"`
}

// SaveFile is the stored form of a session in the saves collection.
type SaveFile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
	Data      World  `json:"data"`
}

// ActiveChoices returns the choices of the most recent model turn that has
// any. Older turns' choices describe paths already taken and are not
// actionable.
func ActiveChoices(history []*Turn) []string {
	for i := len(history) - 1; i >= 0; i-- {
		t := history[i]
		if t.Role == RoleModel && len(t.Choices) > 0 {
			return t.Choices
		}
	}
	return nil
}

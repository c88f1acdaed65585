// Package prompt assembles the system prompt for a narrative turn. Assembly
// is pure: same inputs, same prompt, no clock or store access.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/mythos-rpg/mythos/pkg/preset"
	"github.com/mythos-rpg/mythos/pkg/session"
	"github.com/mythos-rpg/mythos/pkg/vector"
)

// Input carries everything Build needs for one turn.
type Input struct {
	World      session.WorldInfo
	Player     session.PlayerInfo
	Entities   []session.Entity
	Memories   string
	TurnNumber int
	Preset     preset.Config
	Rules      []string
	WorldState string
	UserInput  string
}

// FormatMemories renders search results as "[timestamp] Role: text" lines
// separated by blank lines, best match first.
func FormatMemories(results []vector.SearchResult) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		role := "AI"
		if r.Role == "user" {
			role = "User"
		}
		ts := time.UnixMilli(r.Timestamp).UTC().Format("2006-01-02 15:04:05")
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", ts, role, r.Text))
	}
	return strings.Join(lines, "\n\n")
}

// Build assembles the system prompt: world and player context, world rules
// verbatim, the active preset modules, recalled memories, and the current
// world-state tables.
func Build(in Input) string {
	var b strings.Builder

	b.WriteString("<world_info>\n")
	fmt.Fprintf(&b, "Tên thế giới: %s\n", in.World.Name)
	if in.World.Genre != "" {
		fmt.Fprintf(&b, "Thể loại: %s\n", in.World.Genre)
	}
	if in.World.Description != "" {
		fmt.Fprintf(&b, "Mô tả: %s\n", in.World.Description)
	}
	b.WriteString("</world_info>\n\n")

	b.WriteString("<player_info>\n")
	fmt.Fprintf(&b, "Tên: %s\n", in.Player.Name)
	if in.Player.Description != "" {
		fmt.Fprintf(&b, "Mô tả: %s\n", in.Player.Description)
	}
	if in.Player.Background != "" {
		fmt.Fprintf(&b, "Xuất thân: %s\n", in.Player.Background)
	}
	b.WriteString("</player_info>\n")

	if len(in.Entities) > 0 {
		b.WriteString("\n<entities>\n")
		for _, e := range in.Entities {
			fmt.Fprintf(&b, "- %s (%s): %s\n", e.Name, e.Kind, e.Description)
		}
		b.WriteString("</entities>\n")
	}

	if len(in.Rules) > 0 {
		b.WriteString("\n<world_rules>\n")
		for _, rule := range in.Rules {
			b.WriteString(rule)
			b.WriteString("\n")
		}
		b.WriteString("</world_rules>\n")
	}

	for _, m := range in.Preset.ActiveModules() {
		b.WriteString("\n")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}

	if in.Memories != "" {
		b.WriteString("\n<relevant_memories>\n")
		b.WriteString(in.Memories)
		b.WriteString("\n</relevant_memories>\n")
	}

	if in.WorldState != "" {
		b.WriteString("\n<table_stored>\n")
		b.WriteString(in.WorldState)
		b.WriteString("\n</table_stored>\n")
	}

	fmt.Fprintf(&b, "\nLượt hiện tại: %d\n", in.TurnNumber)

	return b.String()
}

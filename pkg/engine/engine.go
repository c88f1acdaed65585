// Package engine orchestrates narrative turns: prompt assembly with memory
// recall, generation (batch or streaming), alternate management for swipes
// and regenerations, world-state reconciliation, and background persistence.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mythos-rpg/mythos/pkg/eventstream"
	"github.com/mythos-rpg/mythos/pkg/eventstream/nop"
	"github.com/mythos-rpg/mythos/pkg/llm"
	"github.com/mythos-rpg/mythos/pkg/lsr"
	"github.com/mythos-rpg/mythos/pkg/preset"
	"github.com/mythos-rpg/mythos/pkg/prompt"
	"github.com/mythos-rpg/mythos/pkg/session"
	"github.com/mythos-rpg/mythos/pkg/tags"
	"github.com/mythos-rpg/mythos/pkg/vector"
	"github.com/mythos-rpg/mythos/pkg/worldstate"
)

const (
	// MaxHistoryContext caps how many recent turns enter the generation
	// context.
	MaxHistoryContext = 200

	// OpeningInput is the synthetic user input that starts a fresh story.
	OpeningInput = "Hãy bắt đầu câu chuyện."
)

// State is the orchestrator lifecycle state. Mutations are only accepted in
// StateIdle.
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateStreaming  State = "streaming"
	StateFinalizing State = "finalizing"
)

// Direction selects which neighboring alternate a swipe moves to.
type Direction string

const (
	SwipePrev Direction = "prev"
	SwipeNext Direction = "next"
)

// Settings are the per-session generation knobs.
type Settings struct {
	Streaming       bool
	Temperature     *float64
	TopP            *float64
	TopK            *int
	MaxOutputTokens *int
	MemoryLimit     int
	Provider        string
}

// Options wires an orchestrator.
type Options struct {
	World     *session.World
	Generator llm.Generator
	Memory    *vector.Memory
	Preset    preset.Config
	Settings  Settings
	Publisher eventstream.Publisher
	Logger    *zap.Logger

	// OnChunk, when set, receives streamed text fragments as they arrive.
	OnChunk func(text string)
}

// Orchestrator drives one session's turn loop. Methods are safe for
// concurrent use; while a generation is in flight every other mutation is
// rejected with ErrBusy.
type Orchestrator struct {
	mu    sync.Mutex
	state State

	world      *session.World
	history    []*session.Turn
	turnCount  int
	reconciler *worldstate.Reconciler

	// baseline is the world state before the latest model turn, so swiping
	// or editing that turn can re-reconcile from a clean base.
	baseline lsr.Tables

	generator llm.Generator
	memory    *vector.Memory
	preset    preset.Config
	settings  Settings
	publisher eventstream.Publisher
	logger    *zap.Logger
	onChunk   func(string)
}

// New creates an orchestrator over the given session. Loading a saved state
// replays its history into the reconciler so world tables resume where the
// save left off.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	publisher := opts.Publisher
	if publisher == nil {
		publisher = nop.NewPublisher()
	}

	o := &Orchestrator{
		state:      StateIdle,
		world:      opts.World,
		reconciler: worldstate.NewReconciler(lsr.ParseDefinitions(preset.SchemaBlock), logger),
		baseline:   lsr.Tables{},
		generator:  opts.Generator,
		memory:     opts.Memory,
		preset:     opts.Preset,
		settings:   opts.Settings,
		publisher:  publisher,
		logger:     logger,
		onChunk:    opts.OnChunk,
	}

	if opts.World.SavedState != nil {
		o.history = opts.World.SavedState.History
		o.turnCount = opts.World.SavedState.TurnCount
		o.replayWorldState()
	}

	return o
}

// replayWorldState rebuilds the table state from history, reconciling every
// model turn's active alternate in order.
func (o *Orchestrator) replayWorldState() {
	for i, t := range o.history {
		if t.Role != session.RoleModel {
			continue
		}
		if i == o.lastModelIndex() {
			o.baseline = o.reconciler.Snapshot()
		}
		o.reconciler.Reconcile(t.Text())
	}
}

func (o *Orchestrator) lastModelIndex() int {
	for i := len(o.history) - 1; i >= 0; i-- {
		if o.history[i].Role == session.RoleModel {
			return i
		}
	}
	return -1
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// TurnCount returns the story turn counter.
func (o *Orchestrator) TurnCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.turnCount
}

// History returns the live turn slice. Callers must not mutate it.
func (o *Orchestrator) History() []*session.Turn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.history
}

// Choices returns the actionable branch choices for the current position.
func (o *Orchestrator) Choices() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return session.ActiveChoices(o.history)
}

// WorldState returns a copy of the current reconciled tables.
func (o *Orchestrator) WorldState() lsr.Tables {
	return o.reconciler.Snapshot()
}

// Snapshot renders the session into its saved form.
func (o *Orchestrator) Snapshot() session.World {
	o.mu.Lock()
	defer o.mu.Unlock()

	w := *o.world
	w.SavedState = &session.SavedState{
		History:   o.history,
		TurnCount: o.turnCount,
	}
	return w
}

// begin moves idle → requesting, rejecting overlapping generations.
func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return ErrBusy
	}
	o.state = StateRequesting
	return nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Start generates the story opening for a fresh session. On a session with
// existing history it is a no-op.
func (o *Orchestrator) Start(ctx context.Context) (*session.Turn, error) {
	o.mu.Lock()
	empty := len(o.history) == 0
	o.mu.Unlock()

	if !empty {
		return nil, nil
	}
	return o.Send(ctx, OpeningInput)
}

// Send runs one full turn: append the user's input, generate the model
// reply, reconcile world state and bump the turn counter. A generation
// failure is delivered in-band as the turn's text, never as an error.
func (o *Orchestrator) Send(ctx context.Context, input string) (*session.Turn, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	userTurn := session.NewUserTurn(input)
	o.history = append(o.history, userTurn)
	contextTurns := contextWindow(o.history)

	// Streaming appends a placeholder model turn up front: a stable insertion
	// point whose active alternate holds the prefix-complete accumulation
	// after every chunk.
	var modelTurn *session.Turn
	if o.settings.Streaming {
		modelTurn = session.NewPlaceholderTurn()
		o.history = append(o.history, modelTurn)
	}
	o.mu.Unlock()

	startedAt := time.Now()
	text, genErr := o.generate(ctx, input, contextTurns, modelTurn)

	o.setState(StateFinalizing)

	o.mu.Lock()
	if genErr != nil {
		if modelTurn == nil {
			modelTurn = session.NewModelTurn(errorText(genErr))
			o.history = append(o.history, modelTurn)
		} else {
			modelTurn.SetActiveText(errorText(genErr))
		}
		o.state = StateIdle
		o.mu.Unlock()

		o.logger.Error("turn generation failed", zap.Error(genErr))
		return modelTurn, nil
	}

	if modelTurn == nil {
		modelTurn = session.NewModelTurn(text)
		o.history = append(o.history, modelTurn)
	} else {
		modelTurn.SetActiveText(text)
	}
	o.baseline = o.reconciler.Snapshot()
	o.reconciler.Reconcile(text)
	o.turnCount++
	turnNumber := o.turnCount
	o.state = StateIdle
	o.mu.Unlock()

	o.persistTurn(userTurn, modelTurn, turnNumber, false, startedAt)

	return modelTurn, nil
}

// Regenerate produces a new alternate for the model turn at index. The turn
// counter does not move: regeneration replaces a beat, it doesn't advance
// the story.
func (o *Orchestrator) Regenerate(ctx context.Context, index int) (*session.Turn, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if err := o.validateModelIndex(index); err != nil {
		o.state = StateIdle
		o.mu.Unlock()
		return nil, err
	}

	target := o.history[index]
	input := "Continue"
	if index > 0 && o.history[index-1].Role == session.RoleUser {
		input = o.history[index-1].Text()
	}
	contextTurns := contextWindow(o.history[:index])
	isLast := index == o.lastModelIndex()

	// Streaming appends the new alternate up front and accumulates into it,
	// the same placeholder protocol Send uses.
	var streamTarget *session.Turn
	if o.settings.Streaming {
		target.AppendAlternate("")
		streamTarget = target
	}
	o.mu.Unlock()

	startedAt := time.Now()
	text, genErr := o.generate(ctx, input, contextTurns, streamTarget)

	o.setState(StateFinalizing)

	o.mu.Lock()
	// The slot may have shifted while the stream ran; re-validate before
	// mutating.
	if err := o.validateModelIndex(index); err != nil || o.history[index] != target {
		o.state = StateIdle
		o.mu.Unlock()
		return nil, ErrStaleIndex
	}

	if genErr != nil {
		if streamTarget == nil {
			target.AppendAlternate(errorText(genErr))
		} else {
			target.SetActiveText(errorText(genErr))
		}
		o.state = StateIdle
		o.mu.Unlock()

		o.logger.Error("regeneration failed", zap.Int("index", index), zap.Error(genErr))
		return target, nil
	}

	if streamTarget == nil {
		target.AppendAlternate(text)
	} else {
		target.SetActiveText(text)
	}
	turnNumber := o.turnCount
	if isLast {
		o.reconciler.Reset(o.baseline)
		o.reconciler.Reconcile(text)
	}
	o.state = StateIdle
	o.mu.Unlock()

	o.persistTurn(nil, target, turnNumber, true, startedAt)

	return target, nil
}

// Swipe moves the model turn at index to a neighboring alternate. Swiping
// next past the last alternate triggers exactly one regeneration.
func (o *Orchestrator) Swipe(ctx context.Context, index int, dir Direction) (*session.Turn, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	if err := o.validateModelIndex(index); err != nil {
		o.mu.Unlock()
		return nil, err
	}

	t := o.history[index]
	isLast := index == o.lastModelIndex()

	switch dir {
	case SwipePrev:
		t.SwipePrev()
	case SwipeNext:
		if !t.SwipeNext() {
			o.mu.Unlock()
			return o.Regenerate(ctx, index)
		}
	default:
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: unknown direction %q", ErrIndex, dir)
	}

	// The reset+reconcile pair stays under the lock so a concurrent swipe
	// cannot leave tables reflecting a stale alternate.
	if isLast {
		o.reconciler.Reset(o.baseline)
		o.reconciler.Reconcile(t.Text())
	}
	o.mu.Unlock()

	return t, nil
}

// Edit replaces the active alternate's text in place. Model turns re-extract
// choices; the latest model turn also re-reconciles world state.
func (o *Orchestrator) Edit(index int, text string) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return ErrBusy
	}
	if index < 0 || index >= len(o.history) {
		o.mu.Unlock()
		return fmt.Errorf("%w: %d out of range", ErrIndex, index)
	}

	t := o.history[index]
	t.SetActiveText(text)
	if t.Role == session.RoleModel && index == o.lastModelIndex() {
		o.reconciler.Reset(o.baseline)
		o.reconciler.Reconcile(text)
	}
	o.mu.Unlock()

	return nil
}

// StartBackfill schedules background vectorization of the loaded history.
func (o *Orchestrator) StartBackfill(ctx context.Context) {
	o.mu.Lock()
	items := make([]vector.BackfillItem, 0, len(o.history))
	for _, t := range o.history {
		if t.Text() == "" {
			continue
		}
		items = append(items, vector.BackfillItem{
			Role:      string(t.Role),
			Text:      t.Text(),
			Timestamp: t.Timestamp,
		})
	}
	o.mu.Unlock()

	if len(items) == 0 {
		return
	}
	o.memory.StartBackfill(ctx, items)
}

// validateModelIndex checks that index names a model turn in range. Callers
// hold the lock.
func (o *Orchestrator) validateModelIndex(index int) error {
	if index < 0 || index >= len(o.history) {
		return fmt.Errorf("%w: %d out of range", ErrIndex, index)
	}
	if o.history[index].Role != session.RoleModel {
		return fmt.Errorf("%w: turn %d is not a model turn", ErrIndex, index)
	}
	return nil
}

// contextWindow returns the most recent MaxHistoryContext turns.
func contextWindow(history []*session.Turn) []*session.Turn {
	if len(history) <= MaxHistoryContext {
		return append([]*session.Turn(nil), history...)
	}
	return append([]*session.Turn(nil), history[len(history)-MaxHistoryContext:]...)
}

// generate assembles the prompt and runs one generation, batch or streaming
// per settings. When streaming, target receives the prefix-complete
// accumulation after every chunk. The returned text includes the assistant
// prefill when one is active.
func (o *Orchestrator) generate(ctx context.Context, input string, contextTurns []*session.Turn, target *session.Turn) (string, error) {
	memories := ""
	if o.memory != nil {
		results := o.memory.Search(ctx, input, o.settings.MemoryLimit)
		memories = prompt.FormatMemories(results)
	}

	turnNumber := len(contextTurns)/2 + 1

	system := prompt.Build(prompt.Input{
		World:      o.world.World,
		Player:     o.world.Player,
		Entities:   o.world.Entities,
		Memories:   memories,
		TurnNumber: turnNumber,
		Preset:     o.preset,
		Rules:      o.world.Config.Rules,
		WorldState: o.reconciler.Serialized(),
		UserInput:  input,
	})

	messages := make([]llm.Message, 0, len(contextTurns)+2)
	for _, t := range contextTurns {
		text := t.Text()
		if t.Role == session.RoleUser {
			text = tags.Wrap(text, tags.TagUserInput)
		}
		messages = append(messages, llm.NewMessage(string(t.Role), text))
	}
	messages = append(messages, llm.NewMessage(llm.RoleUser, tags.Wrap(input, tags.TagUserInput)))

	prefill := o.preset.Prefill()
	if prefill != "" {
		messages = append(messages, llm.NewMessage(llm.RoleModel, prefill))
	}

	req := llm.Request{
		System:   system,
		Messages: messages,
		Config: llm.GenerationConfig{
			Temperature:     o.settings.Temperature,
			TopP:            o.settings.TopP,
			TopK:            o.settings.TopK,
			MaxOutputTokens: o.settings.MaxOutputTokens,
		},
	}

	if !o.settings.Streaming {
		text, err := o.generator.Generate(ctx, req)
		if err != nil {
			return "", err
		}
		return prefill + text, nil
	}

	o.setState(StateStreaming)

	chunks, err := o.generator.Stream(ctx, req)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(prefill)
	if prefill != "" {
		o.accumulate(target, prefill)
		if o.onChunk != nil {
			o.onChunk(prefill)
		}
	}

	for chunk := range chunks {
		if chunk.Err != nil {
			return b.String(), chunk.Err
		}
		b.WriteString(chunk.Text)
		o.accumulate(target, b.String())
		if o.onChunk != nil {
			o.onChunk(chunk.Text)
		}
	}

	return b.String(), nil
}

// accumulate writes the prefix-complete stream text into the target's active
// alternate.
func (o *Orchestrator) accumulate(target *session.Turn, text string) {
	if target == nil {
		return
	}
	o.mu.Lock()
	target.SetActiveText(text)
	o.mu.Unlock()
}

// persistTurn saves turn memories and publishes the turn event without
// blocking the caller.
func (o *Orchestrator) persistTurn(userTurn, modelTurn *session.Turn, turnNumber int, regenerated bool, startedAt time.Time) {
	completedAt := time.Now()

	go func() {
		ctx := context.Background()

		if o.memory != nil {
			if userTurn != nil {
				if err := o.memory.Save(ctx, string(userTurn.Role), userTurn.Text(), userTurn.Timestamp); err != nil {
					o.logger.Warn("persisting user memory failed", zap.Error(err))
				}
			}
			if err := o.memory.Save(ctx, string(modelTurn.Role), modelTurn.Text(), modelTurn.Timestamp); err != nil {
				o.logger.Warn("persisting model memory failed", zap.Error(err))
			}
		}

		event := &eventstream.TurnPersistedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeTurnPersisted,
			EventID:       uuid.NewString(),
			EmittedAt:     completedAt,
			Source: eventstream.EventSource{
				WorldName: o.world.World.Name,
				Provider:  o.settings.Provider,
			},
			Meta: eventstream.TurnMeta{
				TurnNumber:  turnNumber,
				Regenerated: regenerated,
				Streaming:   o.settings.Streaming,
				StartedAt:   startedAt,
				CompletedAt: completedAt,
				DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
			},
			Turn: modelTurn,
		}
		if err := o.publisher.PublishTurn(ctx, event); err != nil {
			o.logger.Warn("publishing turn event failed", zap.Error(err))
		}
	}()
}

// errorText renders a generation failure as in-band story text.
func errorText(err error) string {
	return fmt.Sprintf("[LỖI HỆ THỐNG: %v]", err)
}

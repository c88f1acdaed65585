// Package playcmder provides the play command: an interactive terminal
// story session driven by the turn orchestrator.
package playcmder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mythos-rpg/mythos/cmd/mythos/dbpath"
	"github.com/mythos-rpg/mythos/pkg/cliui"
	"github.com/mythos-rpg/mythos/pkg/config"
	"github.com/mythos-rpg/mythos/pkg/dotdir"
	embeddingutils "github.com/mythos-rpg/mythos/pkg/embeddings/utils"
	"github.com/mythos-rpg/mythos/pkg/engine"
	"github.com/mythos-rpg/mythos/pkg/eventstream"
	"github.com/mythos-rpg/mythos/pkg/eventstream/kafka"
	"github.com/mythos-rpg/mythos/pkg/llm/provider"
	"github.com/mythos-rpg/mythos/pkg/logger"
	"github.com/mythos-rpg/mythos/pkg/lsr"
	"github.com/mythos-rpg/mythos/pkg/preset"
	"github.com/mythos-rpg/mythos/pkg/session"
	"github.com/mythos-rpg/mythos/pkg/storage"
	"github.com/mythos-rpg/mythos/pkg/storage/sqlite"
	"github.com/mythos-rpg/mythos/pkg/tags"
	"github.com/mythos-rpg/mythos/pkg/vector"
)

var (
	playerPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	storyPrompt  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("story> ")
	choiceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
)

const playLongDesc string = `Start or resume an interactive story.

Without flags, play resumes the last-opened save. Pass --save to open a
specific save, or --world with a world setup JSON to begin a new story.

In-session commands:
  /swipe [prev|next]   Move between alternates of the latest story beat
  /regen               Regenerate the latest story beat
  /edit <text>         Replace the latest story beat's text
  /state               Show the reconciled world-state tables
  /save                Write a save file now
  /exit                Save and quit

Entering the number of a listed choice plays that choice.

Examples:
  mythos play
  mythos play --world aetheria.json
  mythos play --save manual-1718000000000 --model gemma3:latest`

const playShortDesc string = "Start or resume an interactive story"

type playCommander struct {
	saveID    string
	worldFile string

	sqlitePath string

	providerName string
	target       string
	model        string
	temperature  float64
	topP         float64
	topK         int
	maxTokens    int
	streaming    bool

	memoryEnabled  bool
	memoryLimit    int
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string

	eventsEnabled bool
	eventsBrokers string
	eventsTopic   string

	configDir string
	debug     bool

	logger *zap.Logger
}

func NewPlayCmd() *cobra.Command {
	cmder := &playCommander{}

	cmd := &cobra.Command{
		Use:   "play",
		Short: playShortDesc,
		Long:  playLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfger, err := config.NewConfiger(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("sqlite") {
				cmder.sqlitePath = cfg.Storage.SQLitePath
			}
			if !cmd.Flags().Changed("provider") {
				cmder.providerName = cfg.Generation.Provider
			}
			if !cmd.Flags().Changed("target") {
				cmder.target = cfg.Generation.Target
			}
			if !cmd.Flags().Changed("model") {
				cmder.model = cfg.Generation.Model
			}
			if !cmd.Flags().Changed("temperature") {
				cmder.temperature = cfg.Generation.Temperature
			}
			if !cmd.Flags().Changed("top-p") {
				cmder.topP = cfg.Generation.TopP
			}
			if !cmd.Flags().Changed("top-k") {
				cmder.topK = cfg.Generation.TopK
			}
			if !cmd.Flags().Changed("max-tokens") {
				cmder.maxTokens = cfg.Generation.MaxTokens
			}
			if !cmd.Flags().Changed("streaming") {
				cmder.streaming = cfg.Generation.Streaming
			}
			if !cmd.Flags().Changed("memory") {
				cmder.memoryEnabled = cfg.Memory.Enabled
			}
			if !cmd.Flags().Changed("memory-limit") {
				cmder.memoryLimit = cfg.Memory.Limit
			}
			if !cmd.Flags().Changed("embedding-provider") {
				cmder.embeddingProv = cfg.Embedding.Provider
			}
			if !cmd.Flags().Changed("embedding-target") {
				cmder.embeddingTgt = cfg.Embedding.Target
			}
			if !cmd.Flags().Changed("embedding-model") {
				cmder.embeddingModel = cfg.Embedding.Model
			}
			if !cmd.Flags().Changed("events") {
				cmder.eventsEnabled = cfg.Events.Enabled
			}
			if !cmd.Flags().Changed("events-brokers") {
				cmder.eventsBrokers = cfg.Events.Brokers
			}
			if !cmd.Flags().Changed("events-topic") {
				cmder.eventsTopic = cfg.Events.Topic
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVar(&cmder.saveID, "save", "", "Save id to open")
	cmd.Flags().StringVarP(&cmder.worldFile, "world", "w", "", "World setup JSON to start a new story from")
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVarP(&cmder.providerName, "provider", "p", defaults.Generation.Provider, "Generation provider (ollama, gemini)")
	cmd.Flags().StringVarP(&cmder.target, "target", "t", defaults.Generation.Target, "Generation provider URL")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", defaults.Generation.Model, "Model name")
	cmd.Flags().Float64Var(&cmder.temperature, "temperature", defaults.Generation.Temperature, "Sampling temperature")
	cmd.Flags().Float64Var(&cmder.topP, "top-p", defaults.Generation.TopP, "Nucleus sampling probability")
	cmd.Flags().IntVar(&cmder.topK, "top-k", defaults.Generation.TopK, "Top-k sampling cutoff (0 = provider default)")
	cmd.Flags().IntVar(&cmder.maxTokens, "max-tokens", defaults.Generation.MaxTokens, "Maximum output tokens (0 = provider default)")
	cmd.Flags().BoolVar(&cmder.streaming, "streaming", defaults.Generation.Streaming, "Stream story text as it generates")
	cmd.Flags().BoolVar(&cmder.memoryEnabled, "memory", defaults.Memory.Enabled, "Enable semantic memory recall")
	cmd.Flags().IntVar(&cmder.memoryLimit, "memory-limit", defaults.Memory.Limit, "Memories recalled per turn")
	cmd.Flags().StringVar(&cmder.embeddingProv, "embedding-provider", defaults.Embedding.Provider, "Embedding provider (ollama, gemini)")
	cmd.Flags().StringVar(&cmder.embeddingTgt, "embedding-target", defaults.Embedding.Target, "Embedding provider URL")
	cmd.Flags().StringVar(&cmder.embeddingModel, "embedding-model", defaults.Embedding.Model, "Embedding model name")
	cmd.Flags().BoolVar(&cmder.eventsEnabled, "events", defaults.Events.Enabled, "Publish turn events to Kafka")
	cmd.Flags().StringVar(&cmder.eventsBrokers, "events-brokers", defaults.Events.Brokers, "Comma-separated Kafka brokers")
	cmd.Flags().StringVar(&cmder.eventsTopic, "events-topic", defaults.Events.Topic, "Kafka topic for turn events")

	return cmd
}

func (c *playCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	driver, err := c.openDriver()
	if err != nil {
		return err
	}
	defer driver.Close()

	save, fresh, err := c.loadOrCreateSave(ctx, driver)
	if err != nil {
		return err
	}

	generator, err := provider.NewGenerator(ctx, &provider.NewGeneratorOpts{
		ProviderType: c.providerName,
		TargetURL:    c.target,
		Model:        c.model,
		APIKey:       os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	memory := c.newMemory(ctx, driver)

	publisher, closePublisher, err := c.newPublisher()
	if err != nil {
		return err
	}
	if closePublisher != nil {
		defer func() { _ = closePublisher() }()
	}

	streamed := false
	orch := engine.New(engine.Options{
		World:     &save.Data,
		Generator: generator,
		Memory:    memory,
		Preset:    preset.Default(),
		Settings:  c.settings(),
		Publisher: publisher,
		Logger:    c.logger,
		OnChunk: func(text string) {
			streamed = true
			fmt.Print(text)
		},
	})

	if memory != nil {
		orch.StartBackfill(ctx)
	}

	c.printHeader(save, fresh)

	// Fresh story: generate the opening beat before handing over the prompt.
	if len(orch.History()) == 0 {
		streamed = false
		fmt.Print(storyPrompt)
		turn, err := orch.Start(ctx)
		if err != nil {
			return err
		}
		c.printTurn(turn, streamed)
		c.printChoices(orch.Choices())
		if err := c.persist(ctx, driver, orch, save); err != nil {
			return err
		}
	} else {
		if last := lastModelTurn(orch.History()); last != nil {
			fmt.Print(storyPrompt)
			c.printTurn(last, false)
			c.printChoices(orch.Choices())
		}
	}

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(playerPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		if handled, err := c.handleCommand(ctx, orch, input); handled {
			if err != nil {
				fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
				continue
			}
			c.printChoices(orch.Choices())
			if err := c.persist(ctx, driver, orch, save); err != nil {
				return err
			}
			continue
		}

		// A bare number picks the matching choice.
		if n, err := strconv.Atoi(input); err == nil {
			choices := orch.Choices()
			if n >= 1 && n <= len(choices) {
				input = choices[n-1]
			}
		}

		streamed = false
		fmt.Print(storyPrompt)
		turn, err := orch.Send(ctx, input)
		if err != nil {
			fmt.Println()
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		c.printTurn(turn, streamed)
		c.printChoices(orch.Choices())

		if err := c.persist(ctx, driver, orch, save); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return c.persist(ctx, driver, orch, save)
}

// handleCommand runs a /slash command against the orchestrator. The bool
// reports whether input was a command at all.
func (c *playCommander) handleCommand(ctx context.Context, orch *engine.Orchestrator, input string) (bool, error) {
	if !strings.HasPrefix(input, "/") {
		return false, nil
	}

	fields := strings.Fields(input)
	index := lastModelIndex(orch.History())

	switch fields[0] {
	case "/swipe":
		if index < 0 {
			return true, fmt.Errorf("no story beat to swipe")
		}
		dir := engine.SwipeNext
		if len(fields) > 1 && fields[1] == "prev" {
			dir = engine.SwipePrev
		}

		alternates := len(orch.History()[index].Alternates)

		turn, err := orch.Swipe(ctx, index, dir)
		if err != nil {
			return true, err
		}

		// Swiping next past the last alternate generated a fresh one, which
		// streamed if streaming is on.
		streamed := c.streaming && dir == engine.SwipeNext && len(turn.Alternates) > alternates
		if streamed {
			fmt.Println()
		} else {
			fmt.Print(storyPrompt)
			c.printTurn(turn, false)
		}
		return true, nil

	case "/regen":
		if index < 0 {
			return true, fmt.Errorf("no story beat to regenerate")
		}
		streamed := false
		if c.streaming {
			fmt.Print(storyPrompt)
			streamed = true
		}
		turn, err := orch.Regenerate(ctx, index)
		if err != nil {
			return true, err
		}
		if streamed {
			fmt.Println()
		} else {
			fmt.Print(storyPrompt)
			c.printTurn(turn, false)
		}
		return true, nil

	case "/edit":
		if index < 0 {
			return true, fmt.Errorf("no story beat to edit")
		}
		text := strings.TrimSpace(strings.TrimPrefix(input, "/edit"))
		if text == "" {
			return true, fmt.Errorf("usage: /edit <text>")
		}
		return true, orch.Edit(index, text)

	case "/state":
		c.printState(orch.WorldState())
		return true, nil

	case "/save":
		fmt.Printf("  %s Saved\n", cliui.SuccessMark)
		return true, nil

	default:
		return true, fmt.Errorf("unknown command %q", fields[0])
	}
}

func (c *playCommander) openDriver() (storage.Driver, error) {
	path, ok := dbpath.Resolve(c.sqlitePath)
	if !ok {
		path = dbpath.DefaultPath()
	}

	driver, err := sqlite.NewDriver(path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	c.logger.Debug("using SQLite storage", zap.String("path", path))
	return driver, nil
}

// loadOrCreateSave resolves which story to play: a new world file, an
// explicit save id, or the resume pointer. fresh reports a brand-new save.
func (c *playCommander) loadOrCreateSave(ctx context.Context, driver storage.Driver) (*session.SaveFile, bool, error) {
	if c.worldFile != "" {
		data, err := os.ReadFile(c.worldFile) //nolint:gosec
		if err != nil {
			return nil, false, fmt.Errorf("reading world file: %w", err)
		}

		world, err := session.ParseImport(data)
		if err != nil {
			return nil, false, fmt.Errorf("parsing world file: %w", err)
		}

		now := time.Now().UnixMilli()
		save := &session.SaveFile{
			ID:        fmt.Sprintf("manual-%d", now),
			Name:      fmt.Sprintf("%s - Turn %d", world.World.Name, world.SavedState.TurnCount),
			CreatedAt: now,
			UpdatedAt: now,
			Data:      *world,
		}
		return save, true, nil
	}

	id := c.saveID
	if id == "" {
		resume, err := dotdir.NewManager().LoadResumeState(c.configDir)
		if err != nil {
			return nil, false, fmt.Errorf("loading resume state: %w", err)
		}
		if resume != nil {
			id = resume.SaveID
		}
	}

	if id == "" {
		return nil, false, fmt.Errorf("nothing to resume; pass --world <setup.json> to start a new story or --save <id>")
	}

	value, err := driver.Get(ctx, storage.CollectionSaves, id)
	if err != nil {
		return nil, false, fmt.Errorf("loading save %q: %w", id, err)
	}

	var save session.SaveFile
	if err := json.Unmarshal(value, &save); err != nil {
		return nil, false, fmt.Errorf("decoding save %q: %w", id, err)
	}

	return &save, false, nil
}

func (c *playCommander) newMemory(ctx context.Context, driver storage.Driver) *vector.Memory {
	if !c.memoryEnabled {
		return nil
	}

	embedder, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
		ProviderType: c.embeddingProv,
		TargetURL:    c.embeddingTgt,
		Model:        c.embeddingModel,
		APIKey:       os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		c.logger.Warn("memory disabled, embedder unavailable", zap.Error(err))
		return nil
	}

	return vector.NewMemory(driver, embedder, c.logger)
}

func (c *playCommander) newPublisher() (eventstream.Publisher, func() error, error) {
	if !c.eventsEnabled {
		return nil, nil, nil
	}

	pub, err := kafka.NewPublisher(kafka.Config{
		Brokers: strings.Split(c.eventsBrokers, ","),
		Topic:   c.eventsTopic,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating event publisher: %w", err)
	}

	return pub, pub.Close, nil
}

func (c *playCommander) settings() engine.Settings {
	s := engine.Settings{
		Streaming:   c.streaming,
		MemoryLimit: c.memoryLimit,
		Provider:    c.providerName,
	}

	if c.temperature != 0 {
		t := c.temperature
		s.Temperature = &t
	}
	if c.topP != 0 {
		p := c.topP
		s.TopP = &p
	}
	if c.topK != 0 {
		k := c.topK
		s.TopK = &k
	}
	if c.maxTokens != 0 {
		m := c.maxTokens
		s.MaxOutputTokens = &m
	}

	return s
}

// persist writes the save file and the resume pointer after every mutation.
func (c *playCommander) persist(ctx context.Context, driver storage.Driver, orch *engine.Orchestrator, save *session.SaveFile) error {
	save.Data = orch.Snapshot()
	save.Name = fmt.Sprintf("%s - Turn %d", save.Data.World.Name, orch.TurnCount())
	save.UpdatedAt = time.Now().UnixMilli()

	value, err := json.Marshal(save)
	if err != nil {
		return fmt.Errorf("encoding save: %w", err)
	}

	if err := driver.Put(ctx, storage.CollectionSaves, save.ID, value); err != nil {
		return fmt.Errorf("writing save: %w", err)
	}

	resume := &dotdir.ResumeState{
		SaveID:    save.ID,
		WorldName: save.Data.World.Name,
	}
	if err := dotdir.NewManager().SaveResume(resume, c.configDir); err != nil {
		c.logger.Warn("saving resume state failed", zap.Error(err))
	}

	return nil
}

func (c *playCommander) printHeader(save *session.SaveFile, fresh bool) {
	fmt.Println()
	if fresh {
		fmt.Printf("  %s New story in %s\n",
			cliui.DimStyle.Render("●"),
			cliui.NameStyle.Render(save.Data.World.Name),
		)
	} else {
		fmt.Printf("  %s Resuming %s %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(save.Name),
			cliui.DimStyle.Render("("+save.ID+")"),
		)
	}

	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(c.model),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your action and press Enter. /exit to save and quit."))
}

// printTurn renders a story beat. Streamed beats were already printed chunk
// by chunk; only the trailing newline remains.
func (c *playCommander) printTurn(turn *session.Turn, streamed bool) {
	if streamed {
		fmt.Println()
		return
	}

	cleaned := tags.Clean(turn.Text())
	fmt.Println(tags.Highlight(cleaned, "\x1b[36m", "\x1b[0m"))
}

func (c *playCommander) printChoices(choices []string) {
	if len(choices) == 0 {
		return
	}

	fmt.Println()
	for i, choice := range choices {
		fmt.Printf("  %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)),
			choiceStyle.Render(choice),
		)
	}
	fmt.Println()
}

func (c *playCommander) printState(tables lsr.Tables) {
	serialized := lsr.Serialize(tables, lsr.ParseDefinitions(preset.SchemaBlock))
	if serialized == "" {
		fmt.Printf("  %s\n", cliui.DimStyle.Render("No world state yet."))
		return
	}

	fmt.Println()
	for _, line := range strings.Split(serialized, "\n") {
		fmt.Printf("  %s\n", cliui.ValueStyle.Render(line))
	}
	fmt.Println()
}

func lastModelIndex(history []*session.Turn) int {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == session.RoleModel {
			return i
		}
	}
	return -1
}

func lastModelTurn(history []*session.Turn) *session.Turn {
	if i := lastModelIndex(history); i >= 0 {
		return history[i]
	}
	return nil
}

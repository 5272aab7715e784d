// Command roundtable runs a multi-figure discussion in the terminal.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"google.golang.org/adk/model"

	"github.com/upperroomlabs/upperroom/internal/config"
	"github.com/upperroomlabs/upperroom/internal/discussion"
	"github.com/upperroomlabs/upperroom/internal/intelligence"
	"github.com/upperroomlabs/upperroom/internal/llm"
	"github.com/upperroomlabs/upperroom/internal/models"
	"github.com/upperroomlabs/upperroom/internal/passage"
	"github.com/upperroomlabs/upperroom/internal/repository"
	"github.com/upperroomlabs/upperroom/internal/types"
)

func main() {
	mode := flag.String("mode", "discussion", "discussion or council")
	flag.Parse()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nshutting down...")
		cancel()
	}()

	store, err := repository.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	figures, err := store.Figures.List(ctx)
	if err != nil {
		log.Fatalf("failed to load figures: %v", err)
	}

	backend := newBackendModel(ctx, cfg)
	completer, err := llm.NewModelCompleter(backend)
	if err != nil {
		log.Fatalf("failed to create completer: %v", err)
	}

	intelStore := intelligence.NewStore(store.Intelligence)
	synthesizer, err := intelligence.NewSynthesizer(backend)
	if err != nil {
		log.Fatalf("failed to create profile synthesizer: %v", err)
	}
	rebuilder := intelligence.NewRebuilder(intelStore, synthesizer, figureNamer(figures), cfg.RebuildMinMemories)
	worker := intelligence.NewWorker(rebuilder, cfg.RebuildQueueSize)
	worker.Start(ctx)
	defer worker.Close()
	recorder := intelligence.NewRecorder(intelStore, nil, worker, cfg.RebuildEvery, cfg.RebuildCooldown)

	deps := discussion.Deps{
		Completer: completer,
		Recorder:  recorder,
		Store:     intelStore,
		Retriever: intelligence.NewRetriever(cfg.TopK),
		Validator: &discussion.Validator{
			SimilarityCutoff:  cfg.SimilarityCutoff,
			TopicCoverageMin:  cfg.TopicCoverageMin,
			LongResponseChars: cfg.LongResponseChars,
		},
		Retries: cfg.ValidationRetries,
	}
	// Passage retrieval needs an embedding backend.
	if cfg.GoogleAPIKey != "" {
		embedder, err := passage.NewEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
		if err != nil {
			log.Fatalf("failed to create embedder: %v", err)
		}
		deps.Passages = passage.NewRetriever(embedder, store.Passages)
		deps.PassageLimit = cfg.TopK
	}

	reader := bufio.NewScanner(os.Stdin)
	fmt.Print("Question for the roundtable: ")
	if !reader.Scan() {
		return
	}
	question := strings.TrimSpace(reader.Text())
	if question == "" {
		return
	}

	if *mode == "council" {
		runCouncil(ctx, figures, deps, question)
		return
	}
	runDiscussion(ctx, figures, deps, discussion.Settings{
		MaxTotalTurns:         cfg.MaxTotalTurns,
		MaxTurnsBeforeCheck:   cfg.MaxTurnsBeforeCheck,
		AllowUserInterjection: true,
		SeekConsensus:         true,
	}, question, reader)
}

func runDiscussion(ctx context.Context, figures []types.Figure, deps discussion.Deps, settings discussion.Settings, question string, reader *bufio.Scanner) {
	session, err := discussion.NewSession(figures, settings, deps)
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}

	stream := session.Run(ctx, question)
	for {
		for event, err := range stream {
			if err != nil {
				log.Fatalf("discussion failed: %v", err)
			}
			printEvent(event)
		}
		if session.State() != discussion.StateAwaitingUserInput {
			return
		}
		fmt.Print("> ")
		if !reader.Scan() {
			return
		}
		stream = session.AddUserInput(ctx, reader.Text())
	}
}

func runCouncil(ctx context.Context, figures []types.Figure, deps discussion.Deps, question string) {
	council, err := discussion.NewCouncil(figures, deps)
	if err != nil {
		log.Fatalf("failed to create council: %v", err)
	}
	answers, err := council.Ask(ctx, question)
	if err != nil {
		log.Fatalf("council failed: %v", err)
	}
	for _, answer := range answers {
		fmt.Printf("%s: %s\n\n", answer.Figure.Name, answer.Response)
	}
}

func printEvent(event discussion.Event) {
	switch event.Kind {
	case discussion.EventUserMessageEcho:
		fmt.Printf("You: %s\n\n", event.Message)
	case discussion.EventStatusUpdate, discussion.EventRequestingUserInput:
		fmt.Printf("-- %s\n", event.Status)
	case discussion.EventCharacterSpeaking:
		fmt.Printf("(%s takes the floor as %s)\n", event.FigureName, event.Role)
	case discussion.EventCharacterResponse:
		fmt.Printf("%s: %s\n\n", event.FigureName, event.Message)
	case discussion.EventConsensusReached, discussion.EventNoConsensus, discussion.EventDiscussionComplete:
		fmt.Printf("== %s\n", event.Message)
	}
}

func newBackendModel(ctx context.Context, cfg config.Config) model.LLM {
	if cfg.OpenAIAPIKey != "" {
		m, err := models.NewOpenAIModel(cfg.LLMModel, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			log.Fatalf("failed to create openai model: %v", err)
		}
		return m
	}
	m, err := models.NewGeminiModel(ctx, cfg.LLMModel, cfg.GoogleAPIKey)
	if err != nil {
		log.Fatalf("failed to create gemini model: %v", err)
	}
	return m
}

func figureNamer(figures []types.Figure) func(string) string {
	names := make(map[string]string, len(figures))
	for _, figure := range figures {
		names[figure.ID] = figure.Name
	}
	return func(id string) string {
		if name, ok := names[id]; ok {
			return name
		}
		return id
	}
}

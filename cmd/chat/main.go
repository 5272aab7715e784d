// Command chat holds a one-on-one conversation with a single figure.
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

	"github.com/upperroomlabs/upperroom/internal/chat"
	"github.com/upperroomlabs/upperroom/internal/config"
	"github.com/upperroomlabs/upperroom/internal/intelligence"
	"github.com/upperroomlabs/upperroom/internal/llm"
	"github.com/upperroomlabs/upperroom/internal/models"
	"github.com/upperroomlabs/upperroom/internal/passage"
	"github.com/upperroomlabs/upperroom/internal/repository"
)

func main() {
	figureID := flag.String("figure", "peter", "figure to talk with")
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

	figure, err := store.Figures.Get(ctx, *figureID)
	if err != nil {
		log.Fatalf("unknown figure %q: %v", *figureID, err)
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
	namer := func(id string) string {
		if id == figure.ID {
			return figure.Name
		}
		return id
	}
	rebuilder := intelligence.NewRebuilder(intelStore, synthesizer, namer, cfg.RebuildMinMemories)
	worker := intelligence.NewWorker(rebuilder, cfg.RebuildQueueSize)
	worker.Start(ctx)
	defer worker.Close()
	recorder := intelligence.NewRecorder(intelStore, nil, worker, cfg.RebuildEvery, cfg.RebuildCooldown)

	deps := chat.Deps{
		Recorder:  recorder,
		Store:     intelStore,
		Retriever: intelligence.NewRetriever(cfg.TopK),
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

	service, err := chat.NewService(completer, deps)
	if err != nil {
		log.Fatalf("failed to create chat service: %v", err)
	}
	conversation := service.NewConversation(figure)

	fmt.Printf("Speaking with %s, %s. Empty line to quit.\n", figure.Name, figure.Title)
	reader := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !reader.Scan() {
			return
		}
		input := strings.TrimSpace(reader.Text())
		if input == "" {
			return
		}

		fmt.Printf("%s: ", figure.Name)
		for fragment, err := range conversation.SendStreaming(ctx, input) {
			if err != nil {
				log.Fatalf("chat failed: %v", err)
			}
			fmt.Print(fragment)
		}
		fmt.Print("\n\n")
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

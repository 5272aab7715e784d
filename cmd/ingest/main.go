// Command ingest loads scripture passages from a file, embeds them and
// stores them for similarity search.
//
// The input is one verse per line: Book|Chapter|Verse|Text.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/upperroomlabs/upperroom/internal/config"
	"github.com/upperroomlabs/upperroom/internal/passage"
	"github.com/upperroomlabs/upperroom/internal/repository"
	"github.com/upperroomlabs/upperroom/internal/types"
)

func main() {
	path := flag.String("file", "", "path to the verse file")
	seedFigures := flag.Bool("seed-figures", false, "also seed the built-in figure roster")
	flag.Parse()

	cfg := config.Load()
	if cfg.GoogleAPIKey == "" {
		log.Fatal("GOOGLE_API_KEY is required for embedding passages")
	}

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

	if *seedFigures {
		if err := store.Figures.Seed(ctx); err != nil {
			log.Fatalf("failed to seed figures: %v", err)
		}
		fmt.Println("figure roster seeded")
	}

	if *path == "" {
		if !*seedFigures {
			log.Fatal("-file is required (one verse per line: Book|Chapter|Verse|Text)")
		}
		return
	}

	embedder, err := passage.NewEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
	if err != nil {
		log.Fatalf("failed to create embedder: %v", err)
	}

	file, err := os.Open(*path)
	if err != nil {
		log.Fatalf("failed to open %s: %v", *path, err)
	}
	defer file.Close()

	var inserted, skipped int
	scanner := bufio.NewScanner(file)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		verse, err := parseLine(line)
		if err != nil {
			log.Printf("line %d skipped: %v", lineNo, err)
			skipped++
			continue
		}

		embedding, err := embedder.EmbedDocument(ctx, verse.Text)
		if err != nil {
			log.Fatalf("line %d: failed to embed: %v", lineNo, err)
		}
		if err := store.Passages.Add(ctx, verse, embedding); err != nil {
			log.Fatalf("line %d: failed to store: %v", lineNo, err)
		}
		inserted++
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("failed to read %s: %v", *path, err)
	}

	total, err := store.Passages.Count(ctx)
	if err != nil {
		log.Fatalf("failed to count passages: %v", err)
	}
	fmt.Printf("inserted %d passages (%d skipped), %d total\n", inserted, skipped, total)
}

func parseLine(line string) (types.Passage, error) {
	fields := strings.SplitN(line, "|", 4)
	if len(fields) != 4 {
		return types.Passage{}, fmt.Errorf("want 4 fields, got %d", len(fields))
	}
	chapter, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return types.Passage{}, fmt.Errorf("bad chapter %q", fields[1])
	}
	verse, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return types.Passage{}, fmt.Errorf("bad verse %q", fields[2])
	}
	return types.Passage{
		Book:    strings.TrimSpace(fields[0]),
		Chapter: chapter,
		Verse:   verse,
		Text:    strings.TrimSpace(fields[3]),
	}, nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"ragstore/internal/chunker"
	"ragstore/internal/config"
	"ragstore/internal/domain"
	"ragstore/internal/embedding/openai"
	"ragstore/internal/embedding/tfidf"
	"ragstore/internal/indexer"
	"ragstore/internal/service"
	"ragstore/internal/summarizer"
	"ragstore/internal/tui"
	"ragstore/internal/vectorstore/flat"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath string
		docsDir string
		reindex bool
		query   string
		topK    int
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragstore/config.yaml if not provided)")
	flag.StringVar(&docsDir, "dir", "", "Documents directory (overrides config)")
	flag.BoolVar(&reindex, "reindex", false, "Force re-indexing even if the corpus is unchanged")
	flag.StringVar(&query, "query", "", "Run a single query and exit instead of starting the TUI")
	flag.IntVar(&topK, "k", 5, "Number of results for -query")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if docsDir == "" {
		docsDir = cfg.Indexer.DocumentsDir
	}

	// Assemble components
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			log.Fatalf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			log.Fatalf("openai embedder init failed: %v", err)
		}
		emb = client
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "fixed", "":
		ch, err = chunker.NewFixed(cfg.Chunker.Size, cfg.Chunker.Overlap)
	case "sentence":
		ch, err = chunker.NewSentence(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		log.Fatalf("unknown chunker: %s", cfg.Chunker.Type)
	}
	if err != nil {
		log.Fatalf("chunker config invalid: %v", err)
	}

	store, err := flat.Open(cfg.Store.Dir)
	if err != nil {
		// a corrupt index is an operator decision, never auto-repaired
		log.Fatalf("failed to open vector store: %v", err)
	}

	mgr := indexer.New(ch, emb, store, nil, indexer.Options{
		BatchSize:  cfg.Indexer.BatchSize,
		Summarizer: summarizer.NewFrequency(),
		MaxSummary: cfg.Summarizer.MaxSentences,
	})
	svc := service.New(emb, store, mgr, docsDir)

	ctx := context.Background()
	if _, err := svc.IndexDocuments(ctx, reindex); err != nil {
		var ierr *indexer.IndexingError
		if errors.As(err, &ierr) {
			log.Fatalf("indexing failed after %d chunks: %v", ierr.Indexed, ierr.Unwrap())
		}
		log.Fatalf("indexing failed: %v", err)
	}

	if query != "" {
		runQuery(ctx, svc, query, topK)
		return
	}

	if _, err := tea.NewProgram(tui.New(svc)).Run(); err != nil {
		log.Fatal(err)
	}
}

func runQuery(ctx context.Context, svc *service.RAG, query string, k int) {
	results, err := svc.SimilaritySearchWithScore(ctx, query, k)
	if err != nil || len(results) == 0 {
		fmt.Println("No relevant context found.")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. score=%.4f  %s#%d\n%s\n\n",
			i+1, r.Score, r.Chunk.Meta.Source, r.Chunk.Meta.ChunkIndex, r.Chunk.Text)
	}
}

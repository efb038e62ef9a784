// Package main is the talentsearch CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/breaker"
	"github.com/hireloop/talentsearch/internal/config"
	"github.com/hireloop/talentsearch/internal/embedding"
	"github.com/hireloop/talentsearch/internal/expansion"
	"github.com/hireloop/talentsearch/internal/graph"
	"github.com/hireloop/talentsearch/internal/graphsync"
	"github.com/hireloop/talentsearch/internal/ingest"
	"github.com/hireloop/talentsearch/internal/keyword"
	"github.com/hireloop/talentsearch/internal/kv"
	"github.com/hireloop/talentsearch/internal/liveindex"
	"github.com/hireloop/talentsearch/internal/metrics"
	"github.com/hireloop/talentsearch/internal/models"
	"github.com/hireloop/talentsearch/internal/orchestrator"
	"github.com/hireloop/talentsearch/internal/profilestore"
	"github.com/hireloop/talentsearch/internal/queue"
	"github.com/hireloop/talentsearch/internal/rollout"
	"github.com/hireloop/talentsearch/internal/semcache"
	"github.com/hireloop/talentsearch/internal/server"
	"github.com/hireloop/talentsearch/internal/taxwatch"
	"github.com/hireloop/talentsearch/internal/vector"
	"github.com/hireloop/talentsearch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/talentsearch/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so "talentsearch server" from the project dir picks it up.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	if _, err := os.Stat(path); err != nil && path == defaultConfigPath {
		// No config file anywhere: run on defaults plus env overrides.
		cfg := config.Default()
		return cfg, "", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "ingest":
		runIngest()
	case "taxonomy":
		runTaxonomy()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("talentsearch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("graph_mode", cfg.Graph.Mode),
		zap.Int("graph_traffic_percent", cfg.Graph.TrafficPercent),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	evalStop := make(chan struct{})
	go components.Evaluator.Run(evalStop, time.Duration(cfg.Alerts.IntervalSeconds)*time.Second)
	defer close(evalStop)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var taxWatcher *taxwatch.Watcher
	if cfg.Taxonomy.FilePath != "" {
		taxWatcher = taxwatch.New(cfg.Taxonomy.FilePath, components.Graph, logger)
		if _, err := os.Stat(cfg.Taxonomy.FilePath); err == nil {
			taxWatcher.Reload(watchCtx)
		}
		if cfg.Taxonomy.Watch {
			if err := taxWatcher.Start(watchCtx); err != nil {
				logger.Fatal("Failed to start taxonomy watcher", zap.Error(err))
			}
			defer taxWatcher.Stop()
		}
	}

	srv := server.NewServer(
		components.Engine,
		components.Pipeline,
		components.Profiles,
		components.Graph,
		components.Broker,
		components.Collector,
		components.Breakers,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = direct storage access)`)
	limit := fs.Int("limit", 20, "results per page")
	page := fs.Int("page", 1, "result page")
	seed := fs.String("seed", "", "sticky seed for rollout bucketing (typically the recruiter id)")
	hints := fs.String("hints", "", "comma-separated hint keywords")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	queryStr := strings.TrimSpace(strings.Join(fs.Args(), " "))

	searchQuery := &models.SearchQuery{
		Query:      queryStr,
		Page:       *page,
		PageSize:   *limit,
		StickySeed: *seed,
	}
	if *hints != "" {
		for _, h := range strings.Split(*hints, ",") {
			if h = strings.TrimSpace(h); h != "" {
				searchQuery.HintKeywords = append(searchQuery.HintKeywords, h)
			}
		}
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		resp, err := searchViaHTTP(*serverURL, searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = resp
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()
		response, err = components.Engine.Search(context.Background(), searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		printSearchResults(response)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func printSearchResults(resp *models.SearchResponse) {
	fmt.Printf("%d result(s) for %q (page %d, %dms", resp.Total, resp.Query, resp.Page, resp.QueryTime)
	if resp.CacheHit {
		fmt.Print(", cached")
	}
	fmt.Println(")")
	if resp.Graph != nil && resp.Graph.Ran {
		fmt.Printf("graph: mode=%s expanded=%d added=%d fallback=%t\n",
			resp.Graph.Mode, resp.Graph.ExpandedSkills, resp.Graph.CandidatesAdded, resp.Graph.FallbackUsed)
	}
	for i, c := range resp.Results {
		fmt.Printf("%2d. %s", (resp.Page-1)*resp.PageSize+i+1, c.Name)
		if c.Title != "" {
			fmt.Printf("  (%s)", c.Title)
		}
		fmt.Printf("  score=%.3f", c.MatchScore)
		if c.BlendVariant != "" && c.BlendVariant != "baseline" {
			fmt.Printf("  [%s]", c.BlendVariant)
		}
		fmt.Println()
		if len(c.Skills) > 0 {
			fmt.Printf("    skills: %s\n", strings.Join(c.Skills, ", "))
		}
		for _, m := range c.GraphMatches {
			fmt.Printf("    via graph: %s <- %s (%.2f)\n", m.CandidateSkill, m.SeedSkill, m.Contribution)
		}
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = direct pipeline access)`)
	userID := fs.String("user", "", "candidate user id (required)")
	resumeURL := fs.String("resume", "", "resume location, e.g. file:///path/to/resume.pdf")
	bio := fs.String("bio", "", "free-text bio to ingest alongside the resume")
	_ = fs.Parse(os.Args[2:])

	if *userID == "" {
		fmt.Println("Usage: talentsearch ingest --user <id> [--resume <url>] [--bio <text>]")
		os.Exit(1)
	}
	payload := models.IngestionJobPayload{
		UserID:    *userID,
		ResumeURL: *resumeURL,
		Bio:       *bio,
	}

	if *serverURL != "" {
		body, _ := json.Marshal(payload)
		resp, err := http.Post(*serverURL+"/api/v1/ingest", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Ingest failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			JobID  string `json:"job_id"`
			Status string `json:"status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Queued: %s (%s)\n", out.JobID, out.Status)
		return
	}

	// Direct mode: run the pipeline in-process and wait for it to drain.
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	jobID, err := components.Pipeline.Submit(ctx, payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	if err := waitForDrain(components.Broker, 2*time.Minute); err != nil {
		fmt.Fprintf(os.Stderr, "Ingest did not complete: %v\n", err)
		os.Exit(1)
	}
	dead, _ := components.Broker.DeadLetterKeys(ctx)
	if len(dead) > 0 {
		fmt.Fprintf(os.Stderr, "Ingest dead-lettered: %s\n", dead[len(dead)-1])
		os.Exit(1)
	}
	fmt.Printf("Candidate ingested: %s (job %s)\n", payload.UserID, jobID)
}

// waitForDrain polls queue depths until all stages are empty. Depth alone can
// read zero between stage handoffs, so require it to stay empty across reads.
func waitForDrain(broker *queue.MemoryBroker, timeout time.Duration) error {
	queues := []string{models.QueueExtract, models.QueueVectorize, models.QueueBroadcast, models.QueueGraphSync}
	deadline := time.Now().Add(timeout)
	emptyReads := 0
	for time.Now().Before(deadline) {
		depth := 0
		for _, q := range queues {
			depth += broker.Depth(q)
		}
		if depth == 0 {
			emptyReads++
			if emptyReads >= 5 {
				return nil
			}
		} else {
			emptyReads = 0
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("timed out after %s", timeout)
}

func runTaxonomy() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: talentsearch taxonomy <sync|validate> <file>")
		fmt.Println("  talentsearch taxonomy validate <file>   Check a taxonomy document locally")
		fmt.Println("  talentsearch taxonomy sync <file>       Push a taxonomy document to the server")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("taxonomy", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: talentsearch taxonomy " + sub + " <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	doc, err := graph.LoadTaxonomyFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load failed: %v\n", err)
		os.Exit(1)
	}
	if err := doc.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid taxonomy: %v\n", err)
		os.Exit(1)
	}

	switch sub {
	case "validate":
		fmt.Printf("Valid: version %d, %d skill(s), %d role(s), %d alias(es), %d relation(s)\n",
			doc.Version, len(doc.Skills), len(doc.Roles), len(doc.Aliases),
			len(doc.RoleRequirements)+len(doc.SkillRelations))
	case "sync":
		body, _ := json.Marshal(doc)
		resp, err := http.Post(*serverURL+"/api/v1/taxonomy/sync", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Sync failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Synced: version %d active\n", doc.Version)
	default:
		fmt.Printf("Unknown taxonomy subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(buf.String())
	case "text":
		var status map[string]any
		if err := json.Unmarshal(raw, &status); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		printStatusSection(status, "counters")
		printStatusSection(status, "expansion")
		printStatusSection(status, "breakers")
		printStatusSection(status, "queues")
		for _, k := range []string{"dead_letters", "taxonomy_version", "started_at"} {
			if v, ok := status[k]; ok {
				fmt.Printf("%s: %v\n", k, v)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func printStatusSection(status map[string]any, key string) {
	section, ok := status[key].(map[string]any)
	if !ok || len(section) == 0 {
		return
	}
	fmt.Printf("# %s\n", key)
	names := make([]string, 0, len(section))
	for name := range section {
		names = append(names, name)
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if names[j] < names[i] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
	for _, name := range names {
		fmt.Printf("  %-32s %v\n", name, section[name])
	}
}

// Components holds initialized services.
type Components struct {
	KV        kv.Store
	Profiles  profilestore.Store
	Keyword   *keyword.BleveIndex
	Embedder  embedding.Embedder
	Graph     *graph.MemoryStore
	Live      *liveindex.Index
	Breakers  *breaker.Registry
	Collector *metrics.Collector
	Evaluator *metrics.Evaluator
	Broker    *queue.MemoryBroker
	Engine    *orchestrator.Engine
	Pipeline  *ingest.Pipeline
}

func (c *Components) Close() {
	if c.Broker != nil {
		_ = c.Broker.Close()
	}
	if c.Keyword != nil {
		_ = c.Keyword.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Profiles != nil {
		_ = c.Profiles.Close()
	}
	if c.KV != nil {
		_ = c.KV.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	var store kv.Store
	if cfg.Storage.KVPath != "" {
		badgerStore, err := kv.NewBadgerStore(cfg.Storage.KVPath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize kv store: %w", err)
		}
		store = badgerStore
	} else {
		store = kv.NewMemoryStore()
	}

	profiles, err := profilestore.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize profile store: %w", err)
	}

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	var embedder embedding.Embedder
	if cfg.Embedding.BaseURL != "" {
		embedder, err = embedding.NewOpenAIEmbedder(
			cfg.Embedding.BaseURL,
			cfg.Embedding.Token,
			cfg.Embedding.Model,
			cfg.Embedding.Dimensions,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
	} else {
		logger.Warn("no embedding endpoint configured, using deterministic mock embedder")
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}

	vectorIndex, err := vector.NewMemoryIndex(cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}

	cache := semcache.New(store, vectorIndex, embedder, semcache.Config{
		TTL:                 time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		SimilarityThreshold: cfg.Cache.SimilarityThreshold,
		Disabled:            cfg.Cache.Disabled,
	}, logger)

	graphStore := graph.NewMemoryStore()
	live := liveindex.New(store, logger)
	collector := metrics.NewCollector(0)

	breakers := breaker.NewRegistry(
		cfg.Breaker.FailureThreshold,
		time.Duration(cfg.Breaker.WindowSeconds)*time.Second,
		time.Duration(cfg.Breaker.CooldownSeconds)*time.Second,
	)

	expander := expansion.NewService(graphStore, store, breakers.Get("graph"), live, expansion.Config{
		PolicyVersion:    cfg.Graph.PolicyVersion,
		MaxDepth:         cfg.Graph.MaxDepth,
		ContainsMaxDepth: cfg.Graph.ContainsMaxDepth,
		PerSeedLimit:     cfg.Graph.PerSeedLimit,
		GlobalLimit:      cfg.Graph.GlobalLimit,
		CacheTTL:         time.Duration(cfg.Graph.CacheTTLSeconds) * time.Second,
	}, logger)

	controller := rollout.New(rollout.ParseMode(cfg.Graph.Mode), cfg.Graph.TrafficPercent)

	engine := orchestrator.NewEngine(
		cache,
		keywordIndex,
		expander,
		live,
		profiles,
		controller,
		collector,
		nil,
		orchestrator.Config{
			BlendWeight: cfg.Search.BlendWeight,
			RecallLimit: cfg.Search.RecallLimit,
			TitleBoost:  cfg.Search.TitleBoost,
		},
		logger,
	)

	broker := queue.NewMemoryBroker(store, queue.Config{
		MaxAttempts: cfg.Queue.MaxAttempts,
		BaseBackoff: time.Duration(cfg.Queue.BaseBackoffMS) * time.Millisecond,
		Buffer:      cfg.Queue.Buffer,
	}, logger)
	broker.OnDeadLetter = func(queueName string, job *queue.Job, err error) {
		collector.Inc(metrics.CounterDeadLetters)
		if strings.HasPrefix(queueName, "ingest.") {
			collector.Inc(metrics.CounterIngestFailures)
		}
		logger.Error("job dead-lettered",
			zap.String("queue", queueName),
			zap.String("job_id", job.ID),
			zap.Int("attempts", job.Attempts),
			zap.Error(err))
	}

	var skills ingest.SkillExtractor
	if cfg.Extraction.BaseURL != "" {
		llmSkills, err := ingest.NewLLMSkillExtractor(
			cfg.Extraction.BaseURL,
			cfg.Extraction.Token,
			cfg.Extraction.Model,
			cfg.Extraction.MaxSkills,
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize skill extractor: %w", err)
		}
		skills = llmSkills
	} else {
		logger.Warn("no extraction endpoint configured, matching against the skill library vocabulary")
		library, err := profiles.SkillLibrary(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to load skill library: %w", err)
		}
		vocab := make([]string, 0, len(library))
		for _, name := range library {
			vocab = append(vocab, name)
		}
		skills = &ingest.VocabSkillExtractor{Vocabulary: vocab}
	}

	pipeline := ingest.New(broker, profiles, store, live, keywordIndex, skills, embedder, nil, collector, ingest.Config{
		ChunkSize:      cfg.Ingest.ChunkSize,
		ChunkOverlap:   cfg.Ingest.ChunkOverlap,
		IndexThreshold: cfg.Ingest.IndexThreshold,
		CacheThreshold: cfg.Ingest.CacheThreshold,
	}, logger)
	if err := pipeline.Register(); err != nil {
		return nil, fmt.Errorf("failed to register ingestion pipeline: %w", err)
	}

	syncWorker := graphsync.New(graphStore, live, graphsync.Config{
		MinConfidence:  cfg.Ingest.CacheThreshold,
		IndexThreshold: cfg.Ingest.IndexThreshold,
	}, logger)
	if err := syncWorker.Register(broker); err != nil {
		return nil, fmt.Errorf("failed to register graph sync worker: %w", err)
	}

	evaluator := metrics.NewEvaluator(collector, &metrics.ZapNotifier{Logger: logger}, metrics.AlertConfig{
		FallbackRateThreshold: cfg.Alerts.FallbackRate,
		ZeroRateThreshold:     cfg.Alerts.ZeroExpansionRate,
		MinSamples:            cfg.Alerts.MinSamples,
		IngestionStallAfter:   time.Duration(cfg.Alerts.IngestionStallHours) * time.Hour,
		Cooldown:              time.Duration(cfg.Alerts.CooldownMinutes) * time.Minute,
	})

	return &Components{
		KV:        store,
		Profiles:  profiles,
		Keyword:   keywordIndex,
		Embedder:  embedder,
		Graph:     graphStore,
		Live:      live,
		Breakers:  breakers,
		Collector: collector,
		Evaluator: evaluator,
		Broker:    broker,
		Engine:    engine,
		Pipeline:  pipeline,
	}, nil
}

func printUsage() {
	fmt.Println(`talentsearch - Hybrid candidate search with graph expansion

Usage:
  talentsearch server [flags]              Start the HTTP server
  talentsearch search [flags] <query>      Search candidates
  talentsearch ingest [flags]              Ingest a candidate resume
  talentsearch taxonomy <sync|validate>    Manage the taxonomy document
  talentsearch status [flags]              Show engine and queue status
  talentsearch version                     Show version
  talentsearch help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/talentsearch/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage access.
  --limit int        Results per page (default: 20)
  --page int         Result page (default: 1)
  --seed string      Sticky seed for rollout bucketing
  --hints string     Comma-separated hint keywords
  --output string    Output format: text or json (default: text)

Ingest Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to run the pipeline in-process.
  --user string      Candidate user id (required)
  --resume string    Resume location, e.g. file:///path/to/resume.pdf
  --bio string       Free-text bio

Taxonomy Flags:
  --server string    Server URL (sync only)

Examples:
  talentsearch server
  talentsearch search senior golang engineer
  talentsearch search --hints kubernetes,aws "backend developer"
  talentsearch ingest --user u-123 --resume file:///tmp/resume.pdf
  talentsearch taxonomy validate taxonomy.json
  talentsearch taxonomy sync taxonomy.json
  talentsearch status --output json`)
}

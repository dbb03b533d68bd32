// Package main is the MediBot CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/cli"
	"github.com/siddhikamalkar/AI-Medibot/internal/config"
	"github.com/siddhikamalkar/AI-Medibot/internal/consult"
	"github.com/siddhikamalkar/AI-Medibot/internal/embedding"
	"github.com/siddhikamalkar/AI-Medibot/internal/eval"
	"github.com/siddhikamalkar/AI-Medibot/internal/extract"
	"github.com/siddhikamalkar/AI-Medibot/internal/keyword"
	"github.com/siddhikamalkar/AI-Medibot/internal/mcpserver"
	"github.com/siddhikamalkar/AI-Medibot/internal/models"
	"github.com/siddhikamalkar/AI-Medibot/internal/retriever"
	"github.com/siddhikamalkar/AI-Medibot/internal/server"
	"github.com/siddhikamalkar/AI-Medibot/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/medibot/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if present; when neither exists, built-in defaults are used with paths
// relative to the current directory. Returns the config and the path actually loaded
// (empty for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get working directory: %w", err)
		}
		fallback := filepath.Join(cwd, "config.yaml")
		if _, statErr := os.Stat(fallback); statErr == nil {
			cfg, loadErr := config.Load(fallback)
			if loadErr != nil {
				return nil, "", loadErr
			}
			return cfg, fallback, nil
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(cwd), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// Secrets such as GROQ_API_KEY may live in a .env file next to the binary.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	code := 0
	switch command {
	case "ingest":
		code = runIngest()
	case "query":
		code = runQuery()
	case "repl":
		code = runRepl()
	case "chat":
		code = runChat()
	case "serve", "server":
		code = runServe()
	case "mcp":
		code = runMCP()
	case "search":
		code = runSearch()
	case "status":
		code = runStatus()
	case "eval":
		code = runEval()
	case "version", "--version", "-v":
		fmt.Printf("medibot version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		code = 1
	}
	// Each run function returns only after its deferred Close and Sync calls have run.
	os.Exit(code)
}

// setup loads config and creates the logger shared by every subcommand.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Debug = cfg.Debug || debugFlag
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved))
	return cfg, logger
}

// mustComponents initializes services and, when withRetriever is set, loads the artifact.
func mustComponents(cfg *config.Config, logger *zap.Logger, withRetriever bool) *Components {
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	if withRetriever {
		if err := components.openRetriever(context.Background(), cfg.Corpus.Source != ""); err != nil {
			components.Close()
			logger.Fatal("Failed to load index", zap.Error(err))
		}
	}
	return components
}

func runIngest() int {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	chunkSize := fs.Int("chunk-size", 0, "characters per chunk (default from config)")
	overlap := fs.Int("overlap", -1, "characters shared by adjacent chunks (default from config)")
	output := fs.String("output", "", "artifact path (default corpus.artifact_path)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	src := cfg.Corpus.Source
	if fs.NArg() > 0 {
		src = fs.Arg(0)
	}
	if src == "" {
		fmt.Println("Usage: medibot ingest [flags] <file-or-directory>")
		fmt.Printf("Decoded formats: %s (other files are read as plain text)\n", strings.Join(extract.Formats(), " "))
		return 1
	}
	if *chunkSize > 0 {
		cfg.Corpus.ChunkSize = *chunkSize
	}
	if *overlap >= 0 {
		cfg.Corpus.ChunkOverlap = *overlap
	}
	dst := cfg.Corpus.ArtifactPath
	if *output != "" {
		dst = *output
	}

	if err := ingestCorpus(context.Background(), cfg, logger, src, dst, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}
	return 0
}

// ingestCorpus builds the artifact at dst from src and releases every component before
// returning, including on failure.
func ingestCorpus(ctx context.Context, cfg *config.Config, logger *zap.Logger, src, dst string, out io.Writer) error {
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		return err
	}
	defer components.Close()

	report, err := components.Ingestor.Ingest(ctx, src, dst)
	if err != nil {
		return err
	}
	cli.WriteIngestReport(out, report, dst)
	return nil
}

func runQuery() int {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topK := fs.Int("top-k", 0, "number of passages (default retrieval.top_k)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	query := joinArgs(fs.Args())
	if query == "" {
		fmt.Println("Usage: medibot query [flags] <text>")
		return 1
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cfg, logger := setup(*configPath, false)
	defer logger.Sync()
	components := mustComponents(cfg, logger, true)
	defer components.Close()

	req := models.RetrieveRequest{Query: query, TopK: *topK}
	if err := req.Validate(components.Retriever.TopK()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	start := time.Now()
	passages, err := components.Retriever.Passages(context.Background(), req.Query, req.TopK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval failed: %v\n", err)
		return 1
	}
	resp := &models.RetrieveResponse{
		Query:     req.Query,
		Context:   retriever.Join(passages),
		Passages:  passages,
		QueryTime: time.Since(start).Milliseconds(),
	}
	if err := cli.WriteRetrieve(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		return 1
	}
	return 0
}

func runRepl() int {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, false)
	defer logger.Sync()
	components := mustComponents(cfg, logger, true)
	defer components.Close()

	if err := runREPL(context.Background(), components.Retriever, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
		return 1
	}
	return 0
}

func runChat() int {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	sessionID := fs.String("session", "", "resume a saved session by id")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, false)
	defer logger.Sync()
	components := mustComponents(cfg, logger, true)
	defer components.Close()

	if err := components.newDoctor(false); err != nil {
		fmt.Fprintf(os.Stderr, "Chat unavailable: %v\n", err)
		return 1
	}
	ctx := context.Background()
	sessions := components.Doctor.Sessions()
	var sess *consult.Session
	if *sessionID != "" {
		var err error
		if sess, err = sessions.Get(ctx, *sessionID); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot resume session %s: %v\n", *sessionID, err)
			return 1
		}
	} else {
		sess = sessions.Create()
	}
	if err := runChatLoop(ctx, components.Doctor, sess, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
		return 1
	}
	return 0
}

func runServe() int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	watch := fs.Bool("watch", false, "re-ingest the corpus source when it changes (overrides watch.enabled)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	components := mustComponents(cfg, logger, true)
	defer components.Close()

	if err := components.newDoctor(true); err != nil {
		logger.Warn("consultation endpoints disabled", zap.Error(err))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled || *watch {
		w, err := components.startWatch(watchCtx)
		if err != nil {
			logger.Error("Failed to start watcher", zap.Error(err))
			return 1
		}
		defer w.Stop()
	}

	srv := server.NewServer(
		components.Retriever,
		components.Doctor,
		components.Lookup,
		components.Storage,
		cfg,
		logger,
	)
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-serveErr:
		logger.Error("Server failed", zap.Error(err))
		return 1
	}

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
	return 0
}

func runMCP() int {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	transport := fs.String("transport", "", "stdio or sse (default mcp.transport)")
	addr := fs.String("addr", "", "listen address for sse (default mcp.addr)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, false)
	defer logger.Sync()
	if *transport != "" {
		cfg.MCP.Transport = *transport
	}
	if *addr != "" {
		cfg.MCP.Addr = *addr
	}
	components := mustComponents(cfg, logger, true)
	defer components.Close()

	srv := mcpserver.New(components.Retriever, components.Lookup, version, logger)
	if err := mcpserver.Serve(srv, cfg.MCP, logger); err != nil {
		logger.Error("MCP server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func runSearch() int {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = open the local index; use when serve is not running)")
	limit := fs.Int("limit", 10, "number of passages")
	fuzzy := fs.Bool("fuzzy", false, "match terms within one edit")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	query := joinArgs(fs.Args())
	if query == "" {
		printSearchUsage(fs)
		return 1
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var response *models.PassageSearchResponse
	if *serverURL != "" {
		// The running server holds the Bleve index lock.
		response, err = searchViaHTTP(*serverURL, query, *limit, *fuzzy)
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		components := mustComponents(cfg, logger, false)
		defer components.Close()
		if refreshErr := components.Lookup.Refresh(); refreshErr != nil {
			logger.Warn("failed to load spelling dictionary", zap.Error(refreshErr))
		}
		response, err = searchLocal(context.Background(), components.Lookup, query, *limit, *fuzzy)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		return 1
	}
	if err := cli.WritePassageSearch(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		return 1
	}
	return 0
}

func searchLocal(ctx context.Context, lookup *keyword.Lookup, query string, limit int, fuzzy bool) (*models.PassageSearchResponse, error) {
	var opts *keyword.SearchOptions
	if fuzzy {
		opts = &keyword.SearchOptions{FuzzyEnabled: true, Fuzziness: 1}
	}
	start := time.Now()
	passages, corrected, err := lookup.Search(ctx, query, limit, opts)
	if err != nil {
		return nil, err
	}
	return &models.PassageSearchResponse{
		Query:          query,
		CorrectedQuery: corrected,
		Passages:       passages,
		Total:          len(passages),
		QueryTime:      time.Since(start).Milliseconds(),
	}, nil
}

func searchViaHTTP(serverURL, query string, limit int, fuzzy bool) (*models.PassageSearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	if fuzzy {
		params.Set("fuzzy", "true")
	}
	var response models.PassageSearchResponse
	if err := getJSON(serverURL+"/api/v1/passages/search?"+params.Encode(), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func getJSON(endpoint string, out interface{}) error {
	resp, err := http.Get(endpoint)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func runStatus() int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read local files)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var status models.Status
	if *serverURL != "" {
		err = getJSON(*serverURL+"/api/v1/status", &status)
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		components := mustComponents(cfg, logger, true)
		defer components.Close()
		var s *models.Status
		s, err = server.CollectStatus(context.Background(), components.Retriever, components.Storage, components.Lookup, cfg)
		if s != nil {
			status = *s
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		return 1
	}
	if err := cli.WriteStatus(os.Stdout, &status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		return 1
	}
	return 0
}

func runEval() int {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	input := fs.String("input", "", "CSV with Answer and Chatbot_Response columns (default eval.input)")
	output := fs.String("output", "", "xlsx report path (default eval.output)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, false)
	defer logger.Sync()
	in, out := cfg.Eval.Input, cfg.Eval.Output
	if *input != "" {
		in = *input
	}
	if *output != "" {
		out = *output
	}

	embedder, err := embedding.NewFromConfig(cfg.Embedding, true, logger)
	if err != nil {
		logger.Error("Failed to initialize embedder", zap.Error(err))
		return 1
	}
	defer embedder.Close()

	res, err := eval.NewEvaluator(embedder, logger).Run(context.Background(), in, out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Evaluation failed: %v\n", err)
		return 1
	}
	cli.WriteEvalSummary(os.Stdout, res, out)
	return 0
}

// joinArgs joins positional args with spaces so multi-word queries work the same
// with or without shell quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// reorderArgs moves flags that appear after the first positional argument to the front
// so flag.Parse sees them; "medibot query chest pain --top-k 5" would otherwise leave
// --top-k unparsed.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: medibot search [flags] <terms>\n\n")
	fmt.Fprintf(fs.Output(), "Lexical lookup over corpus passages. A query with no hits is respelled against the index vocabulary.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  medibot search migraine aura
  medibot search --fuzzy diabetis
  medibot search --server http://localhost:8080 --output json asthma
`)
}

func printUsage() {
	fmt.Println(`medibot - medical assistant backed by retrieval over a medical reference

Usage:
  medibot ingest [flags] <file-or-dir>  Build the index from PDFs and documents
  medibot query [flags] <text>          Retrieve context for one query
  medibot repl [flags]                  Interactive retrieval tester ('exit' quits)
  medibot chat [flags]                  Terminal consultation (/followup, /log, /reset, /exit)
  medibot serve [flags]                 Start the HTTP API
  medibot mcp [flags]                   Serve the medical_context tool over MCP
  medibot search [flags] <terms>        Lexical passage search
  medibot status [flags]                Show index, catalog and disk usage
  medibot eval [flags]                  Score chatbot responses into an xlsx report
  medibot version                       Show version
  medibot help                          Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/medibot/config.yaml,
                     or ./config.yaml when present)

Ingest Flags:
  --chunk-size int   Characters per chunk (default from config, 700)
  --overlap int      Characters shared by adjacent chunks (default from config, 100)
  --output string    Artifact path (default corpus.artifact_path)

Query Flags:
  --top-k int        Number of passages (default retrieval.top_k)
  --output string    text or json

Serve Flags:
  --debug            Enable debug logging
  --watch            Re-ingest when the corpus source changes

Examples:
  medibot ingest ./data/The_GALE_ENCYCLOPEDIA_of_MEDICINE_SECOND.pdf
  medibot query --top-k 5 "persistent dry cough"
  medibot chat
  medibot serve --watch
  medibot eval --input simulated_chatbot_responses.csv --output evaluated_chatbot_responses.xlsx`)
}

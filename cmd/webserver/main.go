package main

import (
	"flag"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"chocoraga"

	"github.com/gorilla/sessions"
)

func main() {
	configPath := flag.String("config", "", "Path to an optional YAML config file")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	cfg, err := chocoraga.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	chocoraga.SetVerbose(*verbose || cfg.Verbose)

	// Initialize database
	db, err := chocoraga.OpenDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.CloseDB()

	// Create tables
	if err := db.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	bank, err := chocoraga.DefaultQuestionBank()
	if err != nil {
		log.Fatalf("Failed to load question bank: %v", err)
	}

	var completer chocoraga.CompletionRequester
	if cfg.AzureConfigured() {
		completer = chocoraga.NewAzureCompleter(cfg.AzureSettings())
	} else {
		log.Printf("Warning: AZURE_OPENAI_ENDPOINT or AZURE_OPENAI_API_KEY not set, question generation is disabled")
	}
	generator := chocoraga.NewGenerator(completer, bank)
	generator.SetLogDir(cfg.LogDir)

	// Initialize session store
	store, err := newSessionStore(cfg.Server.SessionDir, cfg.Server.SessionSecret)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}

	server := NewServer(db, generator, store, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())))
	server.questionTime = cfg.QuestionTime()
	server.requestTimeout = cfg.RequestTimeout()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Starting server on port %s", cfg.Server.Port)
	log.Fatal(httpServer.ListenAndServe())
}

// newSessionStore keeps quiz sessions on disk; the cookie only carries the
// signed session ID.
func newSessionStore(dir, secret string) (*sessions.FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	store := sessions.NewFilesystemStore(dir, []byte(secret))
	store.MaxLength(0)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store, nil
}

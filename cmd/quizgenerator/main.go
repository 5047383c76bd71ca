package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"chocoraga"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to an optional YAML config file")
		topic        = flag.String("topic", "", "Topic to generate questions about")
		category     = flag.String("category", "", "Question bank category (uses the bank instead of the completion service)")
		numQuestions = flag.Int("questions", 10, "Number of questions")
		difficulty   = flag.String("difficulty", "medium", "Difficulty level (easy, medium, hard)")
		format       = flag.String("format", "json", "Output format: json or text")
		outputFile   = flag.String("output", "", "Output file (default: stdout)")
		save         = flag.Bool("save", false, "Store the questions in the question database")
		playMode     = flag.Bool("play", false, "Play the quiz interactively")
		noColor      = flag.Bool("no-color", false, "Disable colored output in play mode")
		listBank     = flag.Bool("categories", false, "List question bank categories and exit")
		verbose      = flag.Bool("verbose", false, "Enable verbose debugging output")
	)

	flag.Parse()

	cfg, err := chocoraga.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	chocoraga.SetVerbose(*verbose || cfg.Verbose)

	bank, err := chocoraga.DefaultQuestionBank()
	if err != nil {
		log.Fatalf("Failed to load question bank: %v", err)
	}

	if *listBank {
		for _, c := range bank.Categories() {
			fmt.Println(c)
		}
		return
	}

	if *topic == "" && *category == "" {
		log.Fatal("Either -topic or -category is required.")
	}
	if *numQuestions <= 0 || *numQuestions > chocoraga.MaxQuestionsCount {
		log.Fatalf("-questions must be between 1 and %d", chocoraga.MaxQuestionsCount)
	}

	var completer chocoraga.CompletionRequester
	if cfg.AzureConfigured() {
		completer = chocoraga.NewAzureCompleter(cfg.AzureSettings())
	}
	generator := chocoraga.NewGenerator(completer, bank)
	generator.SetLogDir(cfg.LogDir)

	req := chocoraga.LoadRequest{
		Source: chocoraga.SourceGenerate,
		GenerationRequest: chocoraga.GenerationRequest{
			Topic:          *topic,
			Difficulty:     *difficulty,
			QuestionsCount: *numQuestions,
			SelectedMusic:  *category,
		},
	}
	if *category != "" {
		req.Source = chocoraga.SourceBank
	} else if completer == nil {
		log.Fatal("AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY are required to generate questions. Use -category for the question bank.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	defer cancel()

	chocoraga.VerboseLog("Loading %d questions (source %s)", *numQuestions, req.Source)
	questions, err := generator.Load(ctx, req)
	if err != nil {
		log.Fatalf("Failed to get questions: %v", err)
	}

	if *save {
		db, err := chocoraga.OpenDB(cfg.Database.Path)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.CloseDB()
		if err := db.CreateTables(); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		if _, err := db.SaveQuestions(questions); err != nil {
			log.Fatalf("Failed to save questions: %v", err)
		}
	}

	if *playMode {
		dice := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
		player := newPlayer(os.Stdin, os.Stdout, dice, *noColor)
		player.questionTime = cfg.QuestionTime()
		if _, err := player.Play(req, questions); err != nil {
			log.Fatalf("Quiz aborted: %v", err)
		}
		return
	}

	var output []byte
	switch *format {
	case "json":
		output, err = json.MarshalIndent(questions, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal questions: %v", err)
		}
	case "text":
		output = []byte(chocoraga.FormatQuestions(questions))
	default:
		log.Fatalf("Unknown format %q", *format)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, output, 0644); err != nil {
			log.Fatalf("Failed to write output file: %v", err)
		}
		log.Printf("Questions saved to: %s", *outputFile)
	} else {
		fmt.Println(string(output))
	}
}

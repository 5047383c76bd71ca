package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"chocoraga"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to an optional YAML config file")
		category     = flag.String("category", "", "Seed only this bank category (default: every category)")
		topics       = flag.String("topics", "", "Comma separated topics to generate questions for")
		numQuestions = flag.Int("questions", 10, "Number of questions per category or topic")
		difficulty   = flag.String("difficulty", "medium", "Difficulty level for generated questions")
		skipBank     = flag.Bool("skip-bank", false, "Do not seed from the question bank")
		verbose      = flag.Bool("verbose", false, "Enable verbose output")
	)

	flag.Parse()

	cfg, err := chocoraga.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	chocoraga.SetVerbose(*verbose || cfg.Verbose)

	// Initialize database
	db, err := chocoraga.OpenDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.CloseDB()

	// Create tables if they don't exist
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
	}
	generator := chocoraga.NewGenerator(completer, bank)
	generator.SetLogDir(cfg.LogDir)

	plan := seedPlan{
		Count:      *numQuestions,
		Difficulty: *difficulty,
	}
	if !*skipBank {
		if *category != "" {
			plan.Categories = []string{*category}
		} else {
			plan.Categories = bank.Categories()
		}
	}
	for _, topic := range strings.Split(*topics, ",") {
		if topic = strings.TrimSpace(topic); topic != "" {
			plan.Topics = append(plan.Topics, topic)
		}
	}

	before, err := db.CountQuestions()
	if err != nil {
		log.Fatalf("Failed to count questions: %v", err)
	}
	fmt.Printf("Found %d questions in database\n", before)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout()*time.Duration(len(plan.Topics)+1))
	defer cancel()

	report := seed(ctx, db, generator, plan)
	for _, line := range report.Lines {
		fmt.Println(line)
	}
	fmt.Printf("Added %d questions (%d failures)\n", report.Added, report.Failures)
}

package main

import (
	"context"
	"fmt"
	"log"

	"chocoraga"
)

// seedPlan lists what to load into the question store.
type seedPlan struct {
	Categories []string
	Topics     []string
	Count      int
	Difficulty string
}

type seedReport struct {
	Added    int
	Failures int
	Lines    []string
}

// questionSaver is the part of the store the seeder writes to.
type questionSaver interface {
	SaveQuestions(questions []chocoraga.Question) (int, error)
}

// seed stores bank categories first, then generated topics. A failing
// category or topic is reported and the rest still run.
func seed(ctx context.Context, db questionSaver, generator *chocoraga.Generator, plan seedPlan) seedReport {
	var report seedReport

	for _, category := range plan.Categories {
		req := chocoraga.LoadRequest{
			Source:            chocoraga.SourceBank,
			GenerationRequest: chocoraga.GenerationRequest{SelectedMusic: category, QuestionsCount: plan.Count},
		}
		report.store(ctx, db, generator, "category "+category, req)
	}

	for _, topic := range plan.Topics {
		req := chocoraga.LoadRequest{
			Source: chocoraga.SourceGenerate,
			GenerationRequest: chocoraga.GenerationRequest{
				Topic:          topic,
				Difficulty:     plan.Difficulty,
				QuestionsCount: plan.Count,
			},
		}
		report.store(ctx, db, generator, "topic "+topic, req)
	}

	return report
}

func (r *seedReport) store(ctx context.Context, db questionSaver, generator *chocoraga.Generator, label string, req chocoraga.LoadRequest) {
	questions, err := generator.Load(ctx, req)
	if err != nil {
		log.Printf("Failed to load %s: %v", label, err)
		r.Failures++
		r.Lines = append(r.Lines, fmt.Sprintf("%s: failed (%v)", label, err))
		return
	}

	added, err := db.SaveQuestions(questions)
	r.Added += added
	if err != nil {
		log.Printf("Failed to store %s: %v", label, err)
		r.Failures++
		r.Lines = append(r.Lines, fmt.Sprintf("%s: stored %d before failing (%v)", label, added, err))
		return
	}
	r.Lines = append(r.Lines, fmt.Sprintf("%s: %d new of %d", label, added, len(questions)))
}

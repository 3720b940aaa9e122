package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/arkitecto/internal/model"
	"github.com/ppiankov/arkitecto/internal/pipeline"
)

// Analyzer produces a budget analysis for one request
type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.Request) (*model.Analysis, error)
}

// BudgetJob represents one instruction to budget
type BudgetJob struct {
	Instruction string
	Offline     bool
	Analyzer    Analyzer
}

// Execute executes the budget job
func (j *BudgetJob) Execute(ctx context.Context) Result {
	analysis, err := j.Analyzer.Analyze(ctx, pipeline.Request{
		Instruction: j.Instruction,
		Offline:     j.Offline,
	})
	return &BudgetResult{
		Instruction: j.Instruction,
		Analysis:    analysis,
		Error:       err,
	}
}

// BudgetResult represents the result of a budget job
type BudgetResult struct {
	Instruction string
	Analysis    *model.Analysis
	Error       error
}

// GetError returns the error from the budget result
func (r *BudgetResult) GetError() error {
	return r.Error
}

// BatchProcessor budgets many instructions concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	offline     bool
}

// NewBatchProcessor creates a new batch processor. With offline set, the AI
// estimator is skipped for every instruction.
func NewBatchProcessor(analyzer Analyzer, concurrency int, offline bool) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
		offline:     offline,
	}
}

// ProcessInstructions budgets every instruction and returns the results in
// input order. Instructions not started before ctx is done carry ctx's error.
func (b *BatchProcessor) ProcessInstructions(ctx context.Context, instructions []string) []*BudgetResult {
	if len(instructions) == 0 {
		return []*BudgetResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for _, instruction := range instructions {
		pool.Submit(&BudgetJob{
			Instruction: instruction,
			Offline:     b.offline,
			Analyzer:    b.analyzer,
		})
	}

	results := pool.Wait()

	budgetResults := make([]*BudgetResult, len(results))
	for i, result := range results {
		if result == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			budgetResults[i] = &BudgetResult{Instruction: instructions[i], Error: err}
			continue
		}
		budgetResults[i] = result.(*BudgetResult)
	}
	return budgetResults
}

// ProcessFile reads instructions from a file and budgets them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BudgetResult, error) {
	instructions, err := ReadInstructionsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read instructions: %w", err)
	}

	return b.ProcessInstructions(ctx, instructions), nil
}

// ReadInstructionsFromFile reads instructions from a file (one per line).
// Blank lines and lines starting with # are skipped; duplicates are dropped.
func ReadInstructionsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var instructions []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			instructions = append(instructions, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return instructions, nil
}

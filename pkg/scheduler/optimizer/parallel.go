package optimizer

import (
	"context"
	"sync"
	"time"

	"github.com/banbiao/banbiao/pkg/logger"
	"github.com/banbiao/banbiao/pkg/scheduler/builder"
)

// ParallelEvaluator 并行评估器
type ParallelEvaluator struct {
	workers   int
	evaluator Evaluator
}

// NewParallelEvaluator 创建并行评估器
func NewParallelEvaluator(workers int, evaluator Evaluator) *ParallelEvaluator {
	if workers <= 0 {
		workers = 4
	}
	return &ParallelEvaluator{
		workers:   workers,
		evaluator: evaluator,
	}
}

// EvaluateBatch 并行评估一批解决方案
// 评估器必须可并发调用
func (p *ParallelEvaluator) EvaluateBatch(ctx context.Context, solutions []*Solution) {
	if len(solutions) == 0 {
		return
	}

	jobChan := make(chan *Solution, len(solutions))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sol := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
					evaluate(p.evaluator, sol)
				}
			}
		}()
	}

	for _, sol := range solutions {
		jobChan <- sol
	}
	close(jobChan)

	wg.Wait()
}

// FindBest 从一批已评估的解中找出最优解
func (p *ParallelEvaluator) FindBest(solutions []*Solution) *Solution {
	if len(solutions) == 0 {
		return nil
	}

	best := solutions[0]
	for _, sol := range solutions[1:] {
		if sol.Score < best.Score {
			best = sol
		}
	}
	return best
}

// ParallelOptimizer 并行优化器
// 并行生成和评估邻域解，接受准则为严格下降
type ParallelOptimizer struct {
	config    *OptimizationConfig
	evaluator *ParallelEvaluator
}

// NewParallelOptimizer 创建并行优化器
func NewParallelOptimizer(config *OptimizationConfig, evaluator Evaluator) *ParallelOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	return &ParallelOptimizer{
		config:    config,
		evaluator: NewParallelEvaluator(config.ParallelWorkers, evaluator),
	}
}

// Optimize 并行优化排班方案
// 仅当找到严格更优且无硬约束违反的方案时才替换初始方案
func (p *ParallelOptimizer) Optimize(ctx context.Context, initial *Solution, problem *builder.Problem) (*Solution, error) {
	start := time.Now()
	log := logger.Get()

	evaluate(p.evaluator.evaluator, initial)
	current := initial.Clone()
	best := current.Clone()

	log.Info().
		Int("workers", p.config.ParallelWorkers).
		Int("neighborhood_size", p.config.NeighborhoodSize).
		Msg("开始并行优化")

	noImprovementCount := 0

	for iter := 0; iter < p.config.MaxIterations; iter++ {
		select {
		case <-ctx.Done():
			return pickResult(initial, best), ctx.Err()
		default:
		}

		if time.Since(start) > p.config.MaxTime {
			break
		}

		neighbors := p.generateNeighborsParallel(ctx, current, problem)
		if len(neighbors) == 0 {
			continue
		}

		p.evaluator.EvaluateBatch(ctx, neighbors)

		bestNeighbor := p.evaluator.FindBest(neighbors)
		if bestNeighbor == nil {
			continue
		}

		if bestNeighbor.Score < current.Score {
			current = bestNeighbor.Clone()

			if current.Score < best.Score {
				best = current.Clone()
				noImprovementCount = 0
				log.Debug().
					Int("iteration", iter).
					Float64("score", best.Score).
					Int("violations", len(best.Violations)).
					Msg("并行优化发现更优解")
			}
		} else {
			noImprovementCount++
		}

		if p.config.StopOnPlateau && noImprovementCount >= p.config.PlateauThreshold {
			log.Info().Int("iterations", iter).Msg("并行优化达到平台期")
			break
		}
	}

	result := pickResult(initial, best)
	log.Info().
		Float64("initial", initial.Score).
		Float64("final", result.Score).
		Dur("elapsed", time.Since(start)).
		Msg("并行优化完成")

	return result, nil
}

// generateNeighborsParallel 并行生成邻域解
func (p *ParallelOptimizer) generateNeighborsParallel(ctx context.Context, current *Solution, problem *builder.Problem) []*Solution {
	count := p.config.NeighborhoodSize
	resultChan := make(chan *Solution, count)

	var wg sync.WaitGroup
	batchSize := count / p.config.ParallelWorkers
	if batchSize < 1 {
		batchSize = 1
	}

	for i := 0; i < p.config.ParallelWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			localGen := NewNeighborhoodGenerator(problem)

			for j := 0; j < batchSize; j++ {
				select {
				case <-ctx.Done():
					return
				default:
					if neighbor := localGen.GenerateNeighbor(current); neighbor != nil {
						resultChan <- neighbor
					}
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]*Solution, 0, count)
	for neighbor := range resultChan {
		results = append(results, neighbor)
	}

	return results
}

// Package optimizer 提供排班优化算法
package optimizer

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/banbiao/banbiao/pkg/logger"
	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/builder"
)

// OptimizationConfig 优化配置
type OptimizationConfig struct {
	MaxIterations    int           `json:"max_iterations"`    // 最大迭代次数
	MaxTime          time.Duration `json:"max_time"`          // 最大运行时间
	InitialTemp      float64       `json:"initial_temp"`      // 模拟退火初始温度
	CoolingRate      float64       `json:"cooling_rate"`      // 冷却速率
	TabuSize         int           `json:"tabu_size"`         // 禁忌表大小
	NeighborhoodSize int           `json:"neighborhood_size"` // 邻域大小
	ParallelWorkers  int           `json:"parallel_workers"`  // 并行工作数
	StopOnPlateau    bool          `json:"stop_on_plateau"`   // 平台期停止
	PlateauThreshold int           `json:"plateau_threshold"` // 平台期阈值（无改进迭代次数）
}

// DefaultOptConfig 默认优化配置
func DefaultOptConfig() *OptimizationConfig {
	return &OptimizationConfig{
		MaxIterations:    1000,
		MaxTime:          30 * time.Second,
		InitialTemp:      100.0,
		CoolingRate:      0.99,
		TabuSize:         50,
		NeighborhoodSize: 20,
		ParallelWorkers:  4,
		StopOnPlateau:    true,
		PlateauThreshold: 100,
	}
}

// Solution 表示一个排班方案
// Assignments 仅包含可调整的分配，锁定分配不在其中
type Solution struct {
	Assignments []*model.Assignment
	Score       float64
	Violations  []string
	Feasible    bool
}

// Clone 深拷贝解决方案
func (s *Solution) Clone() *Solution {
	clone := &Solution{
		Assignments: make([]*model.Assignment, len(s.Assignments)),
		Score:       s.Score,
		Violations:  make([]string, len(s.Violations)),
		Feasible:    s.Feasible,
	}
	for i, a := range s.Assignments {
		cloneA := *a
		clone.Assignments[i] = &cloneA
	}
	copy(clone.Violations, s.Violations)
	return clone
}

// LocalSearchOptimizer 局部搜索优化器
// 模拟退火接受准则加禁忌表，邻域移动只使用各班次的合格候选
type LocalSearchOptimizer struct {
	config    *OptimizationConfig
	evaluator Evaluator
	tabuList  *TabuList
	rng       *rand.Rand
	mu        sync.Mutex
}

// NewLocalSearchOptimizer 创建局部搜索优化器
func NewLocalSearchOptimizer(config *OptimizationConfig, evaluator Evaluator) *LocalSearchOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	return &LocalSearchOptimizer{
		config:    config,
		evaluator: evaluator,
		tabuList:  NewTabuList(config.TabuSize),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Optimize 优化排班方案
// 仅当找到严格更优且无硬约束违反的方案时才替换初始方案
func (o *LocalSearchOptimizer) Optimize(ctx context.Context, initial *Solution, problem *builder.Problem) (*Solution, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	start := time.Now()
	log := logger.Get()

	evaluate(o.evaluator, initial)
	current := initial.Clone()
	best := current.Clone()

	generator := NewNeighborhoodGenerator(problem)
	temperature := o.config.InitialTemp
	noImprovementCount := 0

	log.Info().
		Int("max_iterations", o.config.MaxIterations).
		Dur("max_time", o.config.MaxTime).
		Float64("initial_score", current.Score).
		Msg("开始局部搜索优化")

	for i := 0; i < o.config.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			log.Warn().Msg("优化被取消")
			return pickResult(initial, best), ctx.Err()
		default:
		}

		if time.Since(start) > o.config.MaxTime {
			log.Info().Msg("优化达到最大运行时间")
			break
		}

		neighbors := generator.GenerateBatch(current, o.config.NeighborhoodSize)
		if len(neighbors) == 0 {
			continue
		}

		bestNeighbor := o.evaluateBestNeighbor(neighbors)
		if bestNeighbor == nil {
			continue
		}

		moveKey := hashAssignments(bestNeighbor.Assignments)
		inTabu := o.tabuList.Contains(moveKey)

		// 模拟退火接受准则
		accept := false
		if bestNeighbor.Score < current.Score {
			accept = true
		} else if !inTabu {
			delta := bestNeighbor.Score - current.Score
			if o.rng.Float64() < boltzmannProbability(delta, temperature) {
				accept = true
			}
		}

		if accept {
			current = bestNeighbor
			o.tabuList.Add(moveKey)

			if current.Score < best.Score {
				best = current.Clone()
				noImprovementCount = 0
				log.Debug().
					Int("iteration", i).
					Float64("score", best.Score).
					Msg("发现更优解")
			} else {
				noImprovementCount++
			}
		} else {
			noImprovementCount++
		}

		if o.config.StopOnPlateau && noImprovementCount >= o.config.PlateauThreshold {
			log.Info().
				Int("iterations", i).
				Int("no_improvement", noImprovementCount).
				Msg("达到平台期阈值，停止优化")
			break
		}

		temperature *= o.config.CoolingRate
	}

	result := pickResult(initial, best)
	log.Info().
		Float64("initial", initial.Score).
		Float64("final", result.Score).
		Float64("improvement", initial.Score-result.Score).
		Dur("elapsed", time.Since(start)).
		Msg("局部搜索优化完成")

	return result, nil
}

// pickResult 严格改进才采用优化结果，否则保留初始方案
func pickResult(initial, best *Solution) *Solution {
	if best.Feasible && best.Score < initial.Score {
		return best
	}
	return initial
}

// evaluateBestNeighbor 评估并返回最优邻域解
func (o *LocalSearchOptimizer) evaluateBestNeighbor(neighbors []*Solution) *Solution {
	var best *Solution
	for _, neighbor := range neighbors {
		evaluate(o.evaluator, neighbor)
		if best == nil || neighbor.Score < best.Score {
			best = neighbor
		}
	}
	return best
}

// evaluate 评估解并回填得分字段
func evaluate(e Evaluator, s *Solution) {
	if e == nil {
		return
	}
	score, violations := e.Evaluate(s.Assignments)
	s.Score = score
	s.Violations = violations
	s.Feasible = len(violations) == 0
}

// hashAssignments 计算分配的哈希 (使用FNV-1a算法)
func hashAssignments(assignments []*model.Assignment) uint64 {
	if len(assignments) == 0 {
		return 0
	}
	h := fnv.New64a()
	for _, a := range assignments {
		h.Write(a.EmployeeID[:])
		h.Write(a.ShiftID[:])
		h.Write([]byte(a.Date))
	}
	return h.Sum64()
}

// boltzmannProbability 计算模拟退火的接受概率
// delta: 能量差 (new - old)
// temperature: 当前温度
func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1.0
	}
	if temperature <= 0 {
		return 0.0
	}
	return math.Exp(-delta / temperature)
}

// TabuList 禁忌表（使用uint64哈希作为键提高性能）
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
	mu      sync.RWMutex
}

// NewTabuList 创建禁忌表
func NewTabuList(size int) *TabuList {
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

// Add 添加到禁忌表
func (t *TabuList) Add(key uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.items[key]; exists {
		return
	}

	// 超出容量时移除最旧的
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}

	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains 检查是否在禁忌表中
func (t *TabuList) Contains(key uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.items[key]
	return exists
}

// Clear 清空禁忌表
func (t *TabuList) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[uint64]struct{})
	t.order = t.order[:0]
}

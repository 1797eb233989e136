// Package service 排班生成与优化的编排层
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/internal/config"
	"github.com/banbiao/banbiao/internal/database"
	"github.com/banbiao/banbiao/internal/loader"
	"github.com/banbiao/banbiao/internal/lock"
	"github.com/banbiao/banbiao/internal/metrics"
	"github.com/banbiao/banbiao/internal/repository"
	apperrors "github.com/banbiao/banbiao/pkg/errors"
	"github.com/banbiao/banbiao/pkg/logger"
	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/builder"
	"github.com/banbiao/banbiao/pkg/scheduler/constraint"
	"github.com/banbiao/banbiao/pkg/scheduler/optimizer"
	"github.com/banbiao/banbiao/pkg/scheduler/solver"
	"github.com/banbiao/banbiao/pkg/stats"
	"github.com/banbiao/banbiao/pkg/validator"
)

// Service 排班服务
type Service struct {
	db        *database.DB
	schedules *repository.ScheduleRepository
	loader    *loader.Loader
	locks     *lock.Registry
	engineCfg config.EngineConfig
	log       *logger.EngineLogger
}

// New 创建排班服务
func New(
	db *database.DB,
	schedules *repository.ScheduleRepository,
	dataLoader *loader.Loader,
	locks *lock.Registry,
	engineCfg config.EngineConfig,
) *Service {
	return &Service{
		db:        db,
		schedules: schedules,
		loader:    dataLoader,
		locks:     locks,
		engineCfg: engineCfg,
		log:       logger.NewEngineLogger(),
	}
}

func (s *Service) settings() constraint.Settings {
	return s.engineCfg.ConstraintSettings()
}

// GenerateRequest 排班生成请求
type GenerateRequest struct {
	// 重新生成时指定既有排班表，锁定的分配保持不变
	ScheduleID *uuid.UUID `json:"schedule_id,omitempty"`
	Name       string     `json:"name"`
	StartDate  string     `json:"start_date"`
	EndDate    string     `json:"end_date"`

	// 非空时替换数据库中的规则集，仅对本次求解生效
	RulesOverride []*model.Rule `json:"rules_override,omitempty"`
}

// GenerateResult 排班生成结果
type GenerateResult struct {
	Schedule    *model.Schedule      `json:"schedule"`
	Status      solver.Status        `json:"status"`
	Assignments []*model.Assignment  `json:"assignments"`
	Conflicts   []validator.Conflict `json:"conflicts"`
	Gaps        []*builder.CoverageGap `json:"gaps,omitempty"`
	Relaxations []solver.Relaxation `json:"relaxations,omitempty"`
	Duration    time.Duration       `json:"duration"`
	Message     string              `json:"message,omitempty"`
}

// Generate 生成排班方案
//
// 数据加载、求解均在事务之外进行，只有通过校验的最终方案
// 在单个事务内写回。排班表粒度互斥：同一排班表上并发的
// 生成或优化请求立即失败。
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	start := time.Now()

	dateRange := model.DateRange{StartDate: req.StartDate, EndDate: req.EndDate}
	if err := dateRange.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidTimeRange, "排班周期无效")
	}
	if days := dateRange.Days(); days > s.engineCfg.MaxHorizonDays {
		return nil, apperrors.InvalidInput("end_date",
			fmt.Sprintf("排班周期 %d 天超过上限 %d 天", days, s.engineCfg.MaxHorizonDays))
	}

	schedule, err := s.resolveSchedule(ctx, req)
	if err != nil {
		return nil, err
	}
	isNew := req.ScheduleID == nil

	if !s.locks.TryAcquire(schedule.ID, "generate") {
		return nil, apperrors.ConcurrentModification(schedule.ID.String())
	}
	defer s.locks.Release(schedule.ID)

	metrics.Get().GetGauge("banbiao_active_solves").Inc()
	defer metrics.Get().GetGauge("banbiao_active_solves").Dec()

	existingID := uuid.Nil
	if req.ScheduleID != nil {
		existingID = schedule.ID
	}
	snapshot, err := s.loader.Load(ctx, existingID, dateRange)
	if err != nil {
		metrics.RecordOperation("generate", false, time.Since(start))
		return nil, err
	}
	if len(req.RulesOverride) > 0 {
		snapshot.Rules = req.RulesOverride
	}
	s.log.StartGeneration(schedule.ID.String(), len(snapshot.Employees), len(snapshot.Shifts))

	// 周期内没有班次：合法的空结果，不进求解器
	if len(snapshot.Shifts) == 0 {
		schedule.Status = model.ScheduleStatusDraft
		schedule.Stats = stats.BuildScheduleStats(
			nil, nil, snapshot.Employees, nil, string(solver.StatusOptimal),
			0, s.engineCfg.StandardWeeklyHours,
		)
		if isNew {
			if err := s.schedules.Create(ctx, schedule); err != nil {
				metrics.RecordOperation("generate", false, time.Since(start))
				return nil, apperrors.PersistenceFailure(err)
			}
		}
		if err := s.schedules.SaveResult(ctx, s.db, schedule, nil); err != nil {
			metrics.RecordOperation("generate", false, time.Since(start))
			return nil, err
		}
		metrics.RecordOperation("generate", true, time.Since(start))
		return &GenerateResult{
			Schedule:    schedule,
			Status:      solver.StatusOptimal,
			Assignments: []*model.Assignment{},
			Duration:    time.Since(start),
			Message:     "排班周期内没有班次",
		}, nil
	}

	problem, err := builder.New(s.settings()).Build(schedule.ID, snapshot)
	if err != nil {
		metrics.RecordOperation("generate", false, time.Since(start))
		return nil, err
	}

	greedy := solver.NewGreedySolver()
	greedy.SetTimeBudget(s.engineCfg.TimeBudget)
	greedy.SetMaxIterations(s.engineCfg.MaxIterations)

	result, err := greedy.Solve(ctx, problem)
	if err != nil {
		metrics.RecordOperation("generate", false, time.Since(start))
		return nil, err
	}
	metrics.RecordSolverStatus(string(result.Status))
	for _, rx := range result.Relaxations {
		metrics.RecordRelaxation(rx.RuleType)
	}

	if !result.Valid() {
		metrics.RecordOperation("generate", false, time.Since(start))
		return nil, apperrors.Infeasible(result.Message)
	}

	// 锁定的分配与新方案合并后一并入库
	all := append([]*model.Assignment{}, problem.Pinned...)
	all = append(all, result.Assignments...)

	// 求解结果入库前再过一遍独立冲突检测，检出即报告，不擅自处理
	conflicts := validator.NewDetector(s.settings()).Detect(
		rebuildContext(schedule.ID, snapshot, s.settings(), all))
	if len(conflicts) > 0 {
		s.log.ConflictsDetected(schedule.ID.String(), len(conflicts))
		for _, c := range conflicts {
			metrics.RecordConflict(string(c.Type), c.Severity)
		}
	}

	schedule.Status = model.ScheduleStatusDraft
	schedule.Stats = stats.BuildScheduleStats(
		snapshot.Shifts, all, snapshot.Employees,
		result.ConstraintResult, string(result.Status),
		result.Duration, s.engineCfg.StandardWeeklyHours,
	)
	schedule.Stats.RelaxedRules = len(result.Relaxations)

	// 新排班表的行到这里才落库，此前任何失败都不产生副作用
	if isNew {
		if err := s.schedules.Create(ctx, schedule); err != nil {
			metrics.RecordOperation("generate", false, time.Since(start))
			return nil, apperrors.PersistenceFailure(err)
		}
	}

	if err := s.schedules.SaveResult(ctx, s.db, schedule, result.Assignments); err != nil {
		metrics.RecordOperation("generate", false, time.Since(start))
		// 写入失败回滚后求解结果仍随错误返回，调用方可检查后重试
		return &GenerateResult{
			Schedule:    schedule,
			Status:      result.Status,
			Assignments: all,
			Conflicts:   conflicts,
			Gaps:        result.Gaps,
			Relaxations: result.Relaxations,
			Duration:    time.Since(start),
			Message:     result.Message,
		}, err
	}

	s.recordQuality(schedule)
	metrics.RecordOperation("generate", true, time.Since(start))
	s.log.SolveComplete(schedule.ID.String(), string(result.Status), result.Duration, schedule.Stats.CoverageRate)

	schedule.Assignments = all
	return &GenerateResult{
		Schedule:    schedule,
		Status:      result.Status,
		Assignments: all,
		Conflicts:   conflicts,
		Gaps:        result.Gaps,
		Relaxations: result.Relaxations,
		Duration:    time.Since(start),
		Message:     result.Message,
	}, nil
}

// resolveSchedule 获取既有排班表，或构造一张尚未入库的新表。
// 新表的行在求解成功后才写入，数据加载或求解失败不留痕迹。
func (s *Service) resolveSchedule(ctx context.Context, req GenerateRequest) (*model.Schedule, error) {
	if req.ScheduleID != nil {
		schedule, err := s.schedules.GetByID(ctx, *req.ScheduleID)
		if err != nil {
			return nil, apperrors.DataUnavailable("schedules", err)
		}
		if schedule == nil {
			return nil, apperrors.NotFound("排班表", req.ScheduleID.String())
		}
		if !schedule.Editable() {
			return nil, apperrors.InvalidTransition(schedule.Status, model.ScheduleStatusDraft)
		}
		return schedule, nil
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("排班 %s ~ %s", req.StartDate, req.EndDate)
	}
	return &model.Schedule{
		BaseModel: model.NewBaseModel(),
		Name:      name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    model.ScheduleStatusDraft,
		Version:   1,
	}, nil
}

// OptimizeRequest 排班优化请求
type OptimizeRequest struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
}

// OptimizeResult 排班优化结果
type OptimizeResult struct {
	Schedule     *model.Schedule     `json:"schedule"`
	Improved     bool                `json:"improved"`
	InitialScore float64             `json:"initial_score"`
	FinalScore   float64             `json:"final_score"`
	Improvement  *ImprovementStats   `json:"improvement"`
	Assignments  []*model.Assignment `json:"assignments"`
	Duration     time.Duration       `json:"duration"`
}

// ImprovementStats 优化前后对比
type ImprovementStats struct {
	OvertimeDelta   float64 `json:"overtime_delta"`   // 加班时长变化（负数为改善）
	CoverageDelta   float64 `json:"coverage_delta"`   // 覆盖率变化（正数为改善）
	BalanceImproved bool    `json:"balance_improved"` // 工时分布是否更均衡
}

// measure 计算一组分配的加班时长、覆盖率与工时标准差
func (s *Service) measure(snapshot *builder.Snapshot, assignments []*model.Assignment) (overtime, coverage, stdDev float64) {
	cov := stats.NewCoverageAnalyzer().Analyze(snapshot.Shifts, assignments)
	fair := stats.NewFairnessAnalyzer(s.engineCfg.StandardWeeklyHours).Analyze(assignments, snapshot.Employees, snapshot.Shifts)
	for _, es := range fair.EmployeeStats {
		overtime += es.OvertimeHours
	}
	return overtime, cov.OverallCoverage, fair.WorkloadStdDev
}

// Optimize 对既有排班做局部搜索优化
//
// 只移动未锁定的分配。没有严格更优的可行解时保持原方案不变，
// 重复调用是幂等的。
func (s *Service) Optimize(ctx context.Context, req OptimizeRequest) (*OptimizeResult, error) {
	start := time.Now()

	schedule, err := s.schedules.GetByID(ctx, req.ScheduleID)
	if err != nil {
		return nil, apperrors.DataUnavailable("schedules", err)
	}
	if schedule == nil {
		return nil, apperrors.NotFound("排班表", req.ScheduleID.String())
	}
	if !schedule.Editable() {
		return nil, apperrors.InvalidTransition(schedule.Status, model.ScheduleStatusDraft)
	}

	if !s.locks.TryAcquire(schedule.ID, "optimize") {
		return nil, apperrors.ConcurrentModification(schedule.ID.String())
	}
	defer s.locks.Release(schedule.ID)

	metrics.Get().GetGauge("banbiao_active_solves").Inc()
	defer metrics.Get().GetGauge("banbiao_active_solves").Dec()

	snapshot, err := s.loader.Load(ctx, schedule.ID, schedule.Range())
	if err != nil {
		metrics.RecordOperation("optimize", false, time.Since(start))
		return nil, err
	}

	problem, err := builder.New(s.settings()).Build(schedule.ID, snapshot)
	if err != nil {
		metrics.RecordOperation("optimize", false, time.Since(start))
		return nil, err
	}

	var mutable []*model.Assignment
	for _, a := range snapshot.Assignments {
		if !a.Pinned() && a.Countable() {
			mutable = append(mutable, a)
		}
	}

	optCfg := s.optimizationConfig()
	evaluator := optimizer.NewManagerEvaluator(problem)

	initial := &optimizer.Solution{Assignments: mutable}

	var optimized *optimizer.Solution
	if optCfg.ParallelWorkers > 1 {
		optimized, err = optimizer.NewParallelOptimizer(optCfg, evaluator).Optimize(ctx, initial, problem)
	} else {
		optimized, err = optimizer.NewLocalSearchOptimizer(optCfg, evaluator).Optimize(ctx, initial, problem)
	}
	if err != nil {
		metrics.RecordOperation("optimize", false, time.Since(start))
		return nil, err
	}

	baseOvertime, baseCoverage, baseStdDev := s.measure(snapshot, snapshot.Assignments)
	improvement := &ImprovementStats{}

	improved := optimized.Score < initial.Score
	if improved {
		all := append([]*model.Assignment{}, problem.Pinned...)
		all = append(all, optimized.Assignments...)

		solverStatus := ""
		if schedule.Stats != nil {
			solverStatus = schedule.Stats.SolverStatus
		}
		evalResult := problem.Manager.Evaluate(rebuildContext(schedule.ID, snapshot, s.settings(), all))
		schedule.Stats = stats.BuildScheduleStats(
			snapshot.Shifts, all, snapshot.Employees,
			evalResult, solverStatus,
			time.Since(start), s.engineCfg.StandardWeeklyHours,
		)

		if err := s.schedules.SaveResult(ctx, s.db, schedule, optimized.Assignments); err != nil {
			metrics.RecordOperation("optimize", false, time.Since(start))
			return nil, err
		}
		s.recordQuality(schedule)
		schedule.Assignments = all

		newOvertime, newCoverage, newStdDev := s.measure(snapshot, all)
		improvement.OvertimeDelta = newOvertime - baseOvertime
		improvement.CoverageDelta = newCoverage - baseCoverage
		improvement.BalanceImproved = newStdDev < baseStdDev
	} else {
		schedule.Assignments = snapshot.Assignments
	}

	metrics.RecordOperation("optimize", true, time.Since(start))
	logger.Info().
		Str("schedule_id", schedule.ID.String()).
		Bool("improved", improved).
		Float64("initial_score", initial.Score).
		Float64("final_score", optimized.Score).
		Dur("duration", time.Since(start)).
		Msg("排班优化完成")

	return &OptimizeResult{
		Schedule:     schedule,
		Improved:     improved,
		InitialScore: initial.Score,
		FinalScore:   optimized.Score,
		Improvement:  improvement,
		Assignments:  schedule.Assignments,
		Duration:     time.Since(start),
	}, nil
}

// optimizationConfig 按优化级别缩放迭代配置
func (s *Service) optimizationConfig() *optimizer.OptimizationConfig {
	cfg := optimizer.DefaultOptConfig()
	cfg.MaxIterations = s.engineCfg.MaxIterations
	cfg.MaxTime = s.engineCfg.TimeBudget
	cfg.ParallelWorkers = s.engineCfg.ParallelWorkers

	switch s.engineCfg.OptimizationLevel {
	case 1:
		cfg.MaxIterations /= 4
	case 3:
		cfg.MaxIterations *= 2
	}
	return cfg
}

// ConflictReport 冲突检查结果
type ConflictReport struct {
	ScheduleID uuid.UUID            `json:"schedule_id"`
	Conflicts  []validator.Conflict `json:"conflicts"`
	Errors     int                  `json:"errors"`
	Warnings   int                  `json:"warnings"`
	Clean      bool                 `json:"clean"`
}

// CheckConflicts 对排班表做规则感知的冲突检查
// 只读操作，不求解不加锁
func (s *Service) CheckConflicts(ctx context.Context, scheduleID uuid.UUID) (*ConflictReport, error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, apperrors.DataUnavailable("schedules", err)
	}
	if schedule == nil {
		return nil, apperrors.NotFound("排班表", scheduleID.String())
	}

	snapshot, err := s.loader.Load(ctx, scheduleID, schedule.Range())
	if err != nil {
		return nil, err
	}

	schedCtx := rebuildContext(scheduleID, snapshot, s.settings(), snapshot.Assignments)
	conflicts := validator.NewDetector(s.settings()).Detect(schedCtx)

	report := &ConflictReport{
		ScheduleID: scheduleID,
		Conflicts:  conflicts,
	}
	for _, c := range conflicts {
		metrics.RecordConflict(string(c.Type), c.Severity)
		switch c.Severity {
		case "error":
			report.Errors++
		case "warning":
			report.Warnings++
		}
	}
	report.Clean = report.Errors == 0

	s.log.ConflictsDetected(scheduleID.String(), len(conflicts))
	metrics.RecordOperation("check_conflicts", true, 0)

	return report, nil
}

// ValidateRequest 独立冲突校验输入：任意一组分配及其上下文数据
type ValidateRequest struct {
	StartDate   string              `json:"start_date"`
	EndDate     string              `json:"end_date"`
	Employees   []*model.Employee   `json:"employees"`
	Shifts      []*model.Shift      `json:"shifts"`
	Rules       []*model.Rule       `json:"rules,omitempty"`
	Assignments []*model.Assignment `json:"assignments"`
}

// ValidateAssignments 校验调用方给定的分配集合（人工编辑、批量导入等）
// 不读库、不加锁、不求解
func (s *Service) ValidateAssignments(req ValidateRequest) (*ConflictReport, error) {
	dateRange := model.DateRange{StartDate: req.StartDate, EndDate: req.EndDate}
	if err := dateRange.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidTimeRange, "校验周期无效")
	}
	if len(req.Assignments) == 0 {
		return nil, apperrors.New(apperrors.CodeEmptyInput, "没有待校验的分配")
	}

	snapshot := &builder.Snapshot{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Employees: req.Employees,
		Shifts:    req.Shifts,
		Rules:     req.Rules,
	}
	schedCtx := rebuildContext(uuid.Nil, snapshot, s.settings(), req.Assignments)
	conflicts := validator.NewDetector(s.settings()).Detect(schedCtx)

	report := &ConflictReport{Conflicts: conflicts}
	for _, c := range conflicts {
		switch c.Severity {
		case "error":
			report.Errors++
		case "warning":
			report.Warnings++
		}
	}
	report.Clean = report.Errors == 0
	return report, nil
}

// Transition 执行排班表状态流转
func (s *Service) Transition(ctx context.Context, scheduleID uuid.UUID, target, actor string) (*model.Schedule, error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, apperrors.DataUnavailable("schedules", err)
	}
	if schedule == nil {
		return nil, apperrors.NotFound("排班表", scheduleID.String())
	}

	if target == model.ScheduleStatusApproved {
		err = schedule.Approve(actor)
	} else {
		err = schedule.Transition(target)
	}
	if err != nil {
		return nil, apperrors.InvalidTransition(schedule.Status, target)
	}

	if err := s.schedules.Update(ctx, schedule); err != nil {
		return nil, apperrors.PersistenceFailure(err)
	}

	logger.Info().
		Str("schedule_id", scheduleID.String()).
		Str("status", schedule.Status).
		Str("actor", actor).
		Msg("排班表状态变更")

	return schedule, nil
}

// recordQuality 上报排班质量指标
func (s *Service) recordQuality(schedule *model.Schedule) {
	if schedule.Stats == nil {
		return
	}
	id := schedule.ID.String()
	metrics.SetCoverageRate(id, schedule.Stats.CoverageRate)
	metrics.SetSolutionScore(id, 100-schedule.Stats.SoftPenalty)
}

// rebuildContext 从快照组装约束上下文
func rebuildContext(scheduleID uuid.UUID, snapshot *builder.Snapshot, settings constraint.Settings, assignments []*model.Assignment) *constraint.Context {
	ctx := constraint.NewContext(scheduleID, snapshot.StartDate, snapshot.EndDate)
	ctx.Settings = settings
	ctx.SetEmployees(snapshot.Employees)
	ctx.SetShifts(snapshot.Shifts)
	ctx.SetRules(snapshot.Rules)
	ctx.SetAssignments(assignments)
	return ctx
}

package optimizer

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/banbiao/banbiao/pkg/model"
	"github.com/banbiao/banbiao/pkg/scheduler/builder"
)

// MoveType 邻域移动类型
type MoveType int

const (
	MoveSwap     MoveType = iota // 交换两个员工的班次
	MoveRelocate                 // 重新分配员工到不同班次
	MoveInsert                   // 插入新分配
	MoveRemove                   // 移除分配
	MoveChain                    // 链式移动
)

// NeighborhoodGenerator 邻域生成器
// 移动只使用各班次的合格候选，锁定分配不在解中因此不会被触碰
type NeighborhoodGenerator struct {
	rng         *rand.Rand
	moveWeights map[MoveType]float64

	shifts      []*model.Shift
	shiftByID   map[uuid.UUID]*model.Shift
	eligible    map[uuid.UUID][]*model.Employee
	eligibleSet map[uuid.UUID]map[uuid.UUID]bool
	pinnedCount map[uuid.UUID]int
	pinnedOn    map[uuid.UUID]map[uuid.UUID]bool
	scheduleID  uuid.UUID
}

// NewNeighborhoodGenerator 创建邻域生成器
func NewNeighborhoodGenerator(problem *builder.Problem) *NeighborhoodGenerator {
	g := &NeighborhoodGenerator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		moveWeights: map[MoveType]float64{
			MoveSwap:     0.40, // 40% 交换
			MoveRelocate: 0.25, // 25% 重新分配
			MoveInsert:   0.20, // 20% 插入
			MoveRemove:   0.10, // 10% 移除
			MoveChain:    0.05, // 5% 链式移动
		},
		shiftByID:   make(map[uuid.UUID]*model.Shift),
		eligible:    make(map[uuid.UUID][]*model.Employee),
		eligibleSet: make(map[uuid.UUID]map[uuid.UUID]bool),
		pinnedCount: make(map[uuid.UUID]int),
		pinnedOn:    make(map[uuid.UUID]map[uuid.UUID]bool),
		scheduleID:  problem.Context.ScheduleID,
	}

	for _, v := range problem.Variables {
		g.shifts = append(g.shifts, v.Shift)
		g.shiftByID[v.Shift.ID] = v.Shift
		g.eligible[v.Shift.ID] = v.Eligible

		set := make(map[uuid.UUID]bool, len(v.Eligible))
		for _, emp := range v.Eligible {
			set[emp.ID] = true
		}
		g.eligibleSet[v.Shift.ID] = set
	}

	for _, a := range problem.Pinned {
		g.pinnedCount[a.ShiftID]++
		if g.pinnedOn[a.ShiftID] == nil {
			g.pinnedOn[a.ShiftID] = make(map[uuid.UUID]bool)
		}
		g.pinnedOn[a.ShiftID][a.EmployeeID] = true
	}

	return g
}

// GenerateNeighbor 生成邻域解
func (n *NeighborhoodGenerator) GenerateNeighbor(current *Solution) *Solution {
	if current == nil || len(n.shifts) == 0 {
		return nil
	}

	switch n.selectMoveType() {
	case MoveSwap:
		return n.generateSwapMove(current)
	case MoveRelocate:
		return n.generateRelocateMove(current)
	case MoveInsert:
		return n.generateInsertMove(current)
	case MoveRemove:
		return n.generateRemoveMove(current)
	case MoveChain:
		return n.generateChainMove(current)
	default:
		return n.generateSwapMove(current)
	}
}

// GenerateBatch 批量生成邻域解
func (n *NeighborhoodGenerator) GenerateBatch(current *Solution, count int) []*Solution {
	results := make([]*Solution, 0, count)
	for i := 0; i < count; i++ {
		if neighbor := n.GenerateNeighbor(current); neighbor != nil {
			results = append(results, neighbor)
		}
	}
	return results
}

// SetMoveWeights 设置移动类型权重
func (n *NeighborhoodGenerator) SetMoveWeights(weights map[MoveType]float64) {
	n.moveWeights = weights
}

// selectMoveType 按权重选择移动类型
func (n *NeighborhoodGenerator) selectMoveType() MoveType {
	r := n.rng.Float64()
	cumulative := 0.0

	for moveType, weight := range n.moveWeights {
		cumulative += weight
		if r < cumulative {
			return moveType
		}
	}

	return MoveSwap
}

// generateSwapMove 生成交换移动
// 交换两个分配的员工，双方都必须是对方班次的合格候选
func (n *NeighborhoodGenerator) generateSwapMove(current *Solution) *Solution {
	if len(current.Assignments) < 2 {
		return nil
	}

	neighbor := current.Clone()

	for attempt := 0; attempt < 8; attempt++ {
		i := n.rng.Intn(len(neighbor.Assignments))
		j := n.rng.Intn(len(neighbor.Assignments))
		if j == i {
			continue
		}

		a1, a2 := neighbor.Assignments[i], neighbor.Assignments[j]
		if a1.ShiftID == a2.ShiftID || a1.EmployeeID == a2.EmployeeID {
			continue
		}
		if !n.eligibleSet[a1.ShiftID][a2.EmployeeID] || !n.eligibleSet[a2.ShiftID][a1.EmployeeID] {
			continue
		}
		if n.employeeOnShift(neighbor, a1.ShiftID, a2.EmployeeID) || n.employeeOnShift(neighbor, a2.ShiftID, a1.EmployeeID) {
			continue
		}

		a1.EmployeeID, a2.EmployeeID = a2.EmployeeID, a1.EmployeeID
		// 合格候选承接后不再是放宽分配
		a1.RequirementRelaxed = false
		a2.RequirementRelaxed = false
		return neighbor
	}

	return nil
}

// generateRelocateMove 生成重新分配移动
// 将某个分配移到缺员且该员工合格的班次
func (n *NeighborhoodGenerator) generateRelocateMove(current *Solution) *Solution {
	if len(current.Assignments) == 0 {
		return nil
	}

	neighbor := current.Clone()
	idx := n.rng.Intn(len(neighbor.Assignments))
	assignment := neighbor.Assignments[idx]

	targets := n.understaffedShifts(neighbor)
	n.rng.Shuffle(len(targets), func(i, j int) { targets[i], targets[j] = targets[j], targets[i] })

	for _, shift := range targets {
		if shift.ID == assignment.ShiftID {
			continue
		}
		if !n.eligibleSet[shift.ID][assignment.EmployeeID] {
			continue
		}
		if n.employeeOnShift(neighbor, shift.ID, assignment.EmployeeID) {
			continue
		}

		interval, err := shift.Interval()
		if err != nil {
			continue
		}

		assignment.ShiftID = shift.ID
		assignment.Date = shift.Date
		assignment.StartTime = interval.Start
		assignment.EndTime = interval.End
		assignment.RequirementRelaxed = false
		return neighbor
	}

	return nil
}

// generateInsertMove 生成插入移动
// 为缺员班次添加合格员工
func (n *NeighborhoodGenerator) generateInsertMove(current *Solution) *Solution {
	neighbor := current.Clone()

	targets := n.understaffedShifts(neighbor)
	if len(targets) == 0 {
		return nil
	}

	shift := targets[n.rng.Intn(len(targets))]
	candidates := n.eligible[shift.ID]
	if len(candidates) == 0 {
		return nil
	}

	start := n.rng.Intn(len(candidates))
	for i := 0; i < len(candidates); i++ {
		emp := candidates[(start+i)%len(candidates)]
		if n.employeeOnShift(neighbor, shift.ID, emp.ID) {
			continue
		}

		interval, err := shift.Interval()
		if err != nil {
			return nil
		}

		neighbor.Assignments = append(neighbor.Assignments, &model.Assignment{
			BaseModel:    model.NewBaseModel(),
			ScheduleID:   n.scheduleID,
			ShiftID:      shift.ID,
			EmployeeID:   emp.ID,
			Date:         shift.Date,
			StartTime:    interval.Start,
			EndTime:      interval.End,
			Status:       model.AssignmentStatusAssigned,
			AutoAssigned: true,
		})
		return neighbor
	}

	return nil
}

// generateRemoveMove 生成移除移动
// 只移除超员班次上的分配或放宽分配，避免白白制造缺口
func (n *NeighborhoodGenerator) generateRemoveMove(current *Solution) *Solution {
	if len(current.Assignments) == 0 {
		return nil
	}

	neighbor := current.Clone()

	var removable []int
	for i, a := range neighbor.Assignments {
		shift, ok := n.shiftByID[a.ShiftID]
		if !ok {
			continue
		}
		if a.RequirementRelaxed || n.staffedCount(neighbor, a.ShiftID) > shift.RequiredStaff {
			removable = append(removable, i)
		}
	}
	if len(removable) == 0 {
		return nil
	}

	idx := removable[n.rng.Intn(len(removable))]
	neighbor.Assignments = append(neighbor.Assignments[:idx], neighbor.Assignments[idx+1:]...)
	return neighbor
}

// generateChainMove 生成链式移动
// 在多个分配间轮换员工，每一步都保持合格
func (n *NeighborhoodGenerator) generateChainMove(current *Solution) *Solution {
	if len(current.Assignments) < 3 {
		return nil
	}

	neighbor := current.Clone()

	// 随机选择链长度 (2-4)
	chainLen := 2 + n.rng.Intn(3)
	if chainLen > len(neighbor.Assignments) {
		chainLen = len(neighbor.Assignments)
	}

	indices := n.rng.Perm(len(neighbor.Assignments))[:chainLen]

	// 轮换后每个员工都要是目标班次的合格候选
	for i := 0; i < chainLen; i++ {
		target := neighbor.Assignments[indices[i]]
		source := neighbor.Assignments[indices[(i+1)%chainLen]]
		if !n.eligibleSet[target.ShiftID][source.EmployeeID] {
			return nil
		}
	}

	firstEmployee := neighbor.Assignments[indices[0]].EmployeeID
	for i := 0; i < chainLen-1; i++ {
		neighbor.Assignments[indices[i]].EmployeeID = neighbor.Assignments[indices[i+1]].EmployeeID
		neighbor.Assignments[indices[i]].RequirementRelaxed = false
	}
	neighbor.Assignments[indices[chainLen-1]].EmployeeID = firstEmployee
	neighbor.Assignments[indices[chainLen-1]].RequirementRelaxed = false

	return neighbor
}

// understaffedShifts 当前解下仍缺员的班次
func (n *NeighborhoodGenerator) understaffedShifts(s *Solution) []*model.Shift {
	var result []*model.Shift
	for _, shift := range n.shifts {
		if n.staffedCount(s, shift.ID) < shift.RequiredStaff {
			result = append(result, shift)
		}
	}
	return result
}

// staffedCount 班次当前人数（含锁定分配）
func (n *NeighborhoodGenerator) staffedCount(s *Solution, shiftID uuid.UUID) int {
	count := n.pinnedCount[shiftID]
	for _, a := range s.Assignments {
		if a.ShiftID == shiftID {
			count++
		}
	}
	return count
}

// employeeOnShift 员工是否已在班次上（含锁定分配）
func (n *NeighborhoodGenerator) employeeOnShift(s *Solution, shiftID, empID uuid.UUID) bool {
	if n.pinnedOn[shiftID][empID] {
		return true
	}
	for _, a := range s.Assignments {
		if a.ShiftID == shiftID && a.EmployeeID == empID {
			return true
		}
	}
	return false
}

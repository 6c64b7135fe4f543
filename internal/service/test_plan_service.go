package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PingY2000/LabBenchManager/internal/dto"
	"github.com/PingY2000/LabBenchManager/internal/model"
	"github.com/PingY2000/LabBenchManager/internal/repository"
	"github.com/PingY2000/LabBenchManager/pkg/dateset"
	pkgerrors "github.com/PingY2000/LabBenchManager/pkg/errors"
)

// ── 测试计划模块业务错误 ──

var (
	ErrPlanNotFound         = errors.New("测试计划不存在")
	ErrPlanBenchNotFound    = errors.New("关联的实验台不存在")
	ErrPlanAssignNotFound   = errors.New("关联的测试申请不存在")
	ErrPlanAssignLinked     = errors.New("该测试申请已关联其他计划")
	ErrPlanInProgressDelete = errors.New("进行中的计划不可删除")
)

// planTransitions 状态机：当前状态 → 允许迁移到的状态集合。
// 已完成/已取消为终态
var planTransitions = map[string][]string{
	model.PlanStatusPlanned:    {model.PlanStatusConfirmed, model.PlanStatusCancelled},
	model.PlanStatusConfirmed:  {model.PlanStatusPlanned, model.PlanStatusInProgress, model.PlanStatusPaused, model.PlanStatusCancelled},
	model.PlanStatusInProgress: {model.PlanStatusCompleted, model.PlanStatusPaused, model.PlanStatusCancelled},
	model.PlanStatusPaused:     {model.PlanStatusInProgress, model.PlanStatusCancelled},
	model.PlanStatusCompleted:  {},
	model.PlanStatusCancelled:  {},
}

func canTransition(from, to string) bool {
	for _, s := range planTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TestPlanService 测试计划业务接口
type TestPlanService interface {
	Create(ctx context.Context, req *dto.CreateTestPlanRequest, operator string) (*dto.TestPlanResponse, error)
	Get(ctx context.Context, id string) (*dto.TestPlanResponse, error)
	List(ctx context.Context, req *dto.TestPlanListRequest) ([]dto.TestPlanResponse, int64, error)
	// SubmitPlanEdit 保存编辑：差异比对、落库与历史写入在同一事务内完成
	SubmitPlanEdit(ctx context.Context, id string, req *dto.UpdateTestPlanRequest, operator string) (*dto.TestPlanResponse, error)
	// UpdateStatus 状态流转：进入进行中补记实际开始时间，进入已完成补记实际结束时间
	UpdateStatus(ctx context.Context, id, status, operator string) (*dto.TestPlanResponse, error)
	Delete(ctx context.Context, id string) error
	// CompletedTime 计划最早完成时刻（来自变更历史）
	CompletedTime(ctx context.Context, id string) (*dto.PlanCompletedTimeResponse, error)
	// CompletedTimes 批量版本；ActualEnd 存在时直接使用，否则回退查历史
	CompletedTimes(ctx context.Context, ids []string) ([]dto.PlanCompletedTimeResponse, error)
}

type testPlanService struct {
	repo    *repository.Repository
	history TestPlanHistoryService
	logger  *zap.Logger
}

// NewTestPlanService 创建 TestPlanService 实例
func NewTestPlanService(repo *repository.Repository, history TestPlanHistoryService, logger *zap.Logger) TestPlanService {
	return &testPlanService{repo: repo, history: history, logger: logger}
}

// ════════════════════════════════════════════════════════════
// 创建 — 关联实验台/测试申请时同步维护双向引用
// ════════════════════════════════════════════════════════════

func (s *testPlanService) Create(ctx context.Context, req *dto.CreateTestPlanRequest, operator string) (*dto.TestPlanResponse, error) {
	dates, err := parseDateTokens(req.ScheduledDates)
	if err != nil {
		return nil, err
	}

	if req.BenchID != nil {
		if _, err := s.repo.Bench.GetByID(ctx, *req.BenchID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPlanBenchNotFound
			}
			return nil, err
		}
	}

	var assignment *model.Assignment
	if req.AssignmentID != nil {
		assignment, err = s.repo.Assignment.GetByID(ctx, *req.AssignmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPlanAssignNotFound
			}
			return nil, err
		}
		if assignment.TestPlanID != nil {
			return nil, ErrPlanAssignLinked
		}
	}

	plan := &model.TestPlan{
		ProjectName:  req.ProjectName,
		Description:  req.Description,
		Status:       model.PlanStatusPlanned,
		Owner:        req.Owner,
		Applicant:    req.Applicant,
		SampleCount:  req.SampleCount,
		BenchID:      req.BenchID,
		AssignmentID: req.AssignmentID,
	}
	plan.SetScheduledDates(dates)

	// 申请来源的计划沿用申请方信息
	if assignment != nil {
		if plan.Applicant == "" {
			plan.Applicant = assignment.Applicant
		}
		if plan.SampleCount == 0 {
			plan.SampleCount = assignment.SampleCount
		}
	}

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.TestPlan.Create(ctx, plan); err != nil {
			return err
		}
		if assignment != nil {
			assignment.TestPlanID = &plan.PlanID
			assignment.Status = model.AssignmentStatusScheduled
			return txRepo.Assignment.Update(ctx, assignment)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("创建测试计划失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("测试计划已创建",
		zap.String("plan_id", plan.PlanID),
		zap.String("project", plan.ProjectName),
		zap.String("operator", operator))
	resp := s.toPlanResponse(plan)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// 编辑 — 保存与历史写入在同一事务内，要么都成功要么都回滚
// ════════════════════════════════════════════════════════════

func (s *testPlanService) SubmitPlanEdit(ctx context.Context, id string, req *dto.UpdateTestPlanRequest, operator string) (*dto.TestPlanResponse, error) {
	plan, err := s.getPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	before := *plan // 值拷贝作为变更前快照

	if req.ProjectName != nil {
		plan.ProjectName = *req.ProjectName
	}
	if req.Description != nil {
		plan.Description = *req.Description
	}
	if req.Owner != nil {
		plan.Owner = *req.Owner
	}
	if req.Applicant != nil {
		plan.Applicant = *req.Applicant
	}
	if req.SampleCount != nil {
		plan.SampleCount = *req.SampleCount
	}
	if req.ScheduledDates != nil {
		dates, err := parseDateTokens(*req.ScheduledDates)
		if err != nil {
			return nil, err
		}
		plan.SetScheduledDates(dates)
	}
	if req.BenchID != nil {
		if _, err := s.repo.Bench.GetByID(ctx, *req.BenchID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPlanBenchNotFound
			}
			return nil, err
		}
		plan.BenchID = req.BenchID
	}

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.TestPlan.Update(ctx, plan); err != nil {
			return err
		}
		_, err := s.history.RecordPlanModification(ctx, txRepo, &before, plan, operator, req.Reason)
		return err
	})
	if err != nil {
		s.logger.Error("保存测试计划失败", zap.String("plan_id", id), zap.Error(err))
		return nil, err
	}

	resp := s.toPlanResponse(plan)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// 状态流转
// ════════════════════════════════════════════════════════════

func (s *testPlanService) UpdateStatus(ctx context.Context, id, status, operator string) (*dto.TestPlanResponse, error) {
	if _, ok := planTransitions[status]; !ok {
		return nil, fmt.Errorf("%w: 未知状态 %q", pkgerrors.ErrValidation, status)
	}

	plan, err := s.getPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status == status {
		resp := s.toPlanResponse(plan)
		return &resp, nil // 幂等：重复提交同一状态不报错
	}
	if !canTransition(plan.Status, status) {
		return nil, fmt.Errorf("%w: %s 不能流转为 %s",
			pkgerrors.ErrInvalidTransition, PlanStatusLabel(plan.Status), PlanStatusLabel(status))
	}

	before := *plan
	now := time.Now()
	plan.Status = status
	if status == model.PlanStatusInProgress && plan.ActualStart == nil {
		plan.ActualStart = &now
	}
	if status == model.PlanStatusCompleted && plan.ActualEnd == nil {
		plan.ActualEnd = &now
	}

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.TestPlan.Update(ctx, plan); err != nil {
			return err
		}
		if _, err := s.history.RecordPlanModification(ctx, txRepo, &before, plan, operator, ""); err != nil {
			return err
		}
		// 计划完成时联动关闭来源申请
		if status == model.PlanStatusCompleted && plan.AssignmentID != nil {
			assignment, err := txRepo.Assignment.GetByID(ctx, *plan.AssignmentID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil // 申请已删除，不阻断计划完成
				}
				return err
			}
			assignment.Status = model.AssignmentStatusCompleted
			return txRepo.Assignment.Update(ctx, assignment)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("计划状态流转失败",
			zap.String("plan_id", id), zap.String("to", status), zap.Error(err))
		return nil, err
	}

	s.logger.Info("计划状态已流转",
		zap.String("plan_id", id),
		zap.String("from", before.Status),
		zap.String("to", status),
		zap.String("operator", operator))
	resp := s.toPlanResponse(plan)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// 查询 / 删除
// ════════════════════════════════════════════════════════════

func (s *testPlanService) Get(ctx context.Context, id string) (*dto.TestPlanResponse, error) {
	plan, err := s.getPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.toPlanResponse(plan)
	return &resp, nil
}

func (s *testPlanService) List(ctx context.Context, req *dto.TestPlanListRequest) ([]dto.TestPlanResponse, int64, error) {
	filter := repository.TestPlanFilter{
		Status:  req.Status,
		BenchID: req.BenchID,
		Keyword: req.Keyword,
	}
	plans, total, err := s.repo.TestPlan.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询测试计划列表失败", zap.Error(err))
		return nil, 0, err
	}

	resps := make([]dto.TestPlanResponse, 0, len(plans))
	for i := range plans {
		resps = append(resps, s.toPlanResponse(&plans[i]))
	}
	return resps, total, nil
}

func (s *testPlanService) Delete(ctx context.Context, id string) error {
	plan, err := s.getPlan(ctx, id)
	if err != nil {
		return err
	}
	if plan.Status == model.PlanStatusInProgress {
		return ErrPlanInProgressDelete
	}

	return s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		// 解绑来源申请，让其回到待排期
		if plan.AssignmentID != nil {
			assignment, err := txRepo.Assignment.GetByID(ctx, *plan.AssignmentID)
			if err == nil {
				assignment.TestPlanID = nil
				if assignment.Status == model.AssignmentStatusScheduled {
					assignment.Status = model.AssignmentStatusPending
				}
				if err := txRepo.Assignment.Update(ctx, assignment); err != nil {
					return err
				}
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		return txRepo.TestPlan.Delete(ctx, id)
	})
}

// ════════════════════════════════════════════════════════════
// 完成时间查询 — ActualEnd 优先，缺失时回退变更历史
// ════════════════════════════════════════════════════════════

func (s *testPlanService) CompletedTime(ctx context.Context, id string) (*dto.PlanCompletedTimeResponse, error) {
	plan, err := s.getPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	earliest, err := s.history.CompletedTime(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := dto.PlanCompletedTimeResponse{TestPlanID: id}
	if t := resolveCompletedTime(plan, earliest); t != nil {
		f := t.Format(time.RFC3339)
		resp.CompletedTime = &f
	}
	return &resp, nil
}

func (s *testPlanService) CompletedTimes(ctx context.Context, ids []string) ([]dto.PlanCompletedTimeResponse, error) {
	// 两次批量查询：一次分组历史、一次按 ID 集合取计划
	fromHistory, err := s.history.CompletedTimes(ctx, ids)
	if err != nil {
		return nil, err
	}
	plans, err := s.repo.TestPlan.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.TestPlan, len(plans))
	for i := range plans {
		byID[plans[i].PlanID] = &plans[i]
	}

	resps := make([]dto.PlanCompletedTimeResponse, 0, len(ids))
	for _, id := range ids {
		resp := dto.PlanCompletedTimeResponse{TestPlanID: id}
		var earliest *time.Time
		if t, ok := fromHistory[id]; ok {
			e := t
			earliest = &e
		}
		if t := resolveCompletedTime(byID[id], earliest); t != nil {
			f := t.Format(time.RFC3339)
			resp.CompletedTime = &f
		}
		resps = append(resps, resp)
	}
	return resps, nil
}

// resolveCompletedTime 按 ActualEnd → 最早完成历史 → 审计时间 的顺序推断完成时间。
// 历史记录功能上线前就已完成的旧计划没有完成历史，此时退回 UpdatedAt/CreatedAt。
func resolveCompletedTime(plan *model.TestPlan, fromHistory *time.Time) *time.Time {
	if plan != nil && plan.ActualEnd != nil {
		return plan.ActualEnd
	}
	if fromHistory != nil {
		return fromHistory
	}
	if plan != nil && plan.Status == model.PlanStatusCompleted {
		if !plan.UpdatedAt.IsZero() {
			t := plan.UpdatedAt
			return &t
		}
		t := plan.CreatedAt
		return &t
	}
	return nil
}

// ── 内部辅助 ──

func (s *testPlanService) getPlan(ctx context.Context, id string) (*model.TestPlan, error) {
	plan, err := s.repo.TestPlan.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		s.logger.Error("查询测试计划失败", zap.Error(err))
		return nil, err
	}
	return plan, nil
}

func parseDateTokens(tokens []string) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(tokens))
	for _, tok := range tokens {
		d, err := time.ParseInLocation(dateset.Layout, tok, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: 无法解析日期 %q", pkgerrors.ErrValidation, tok)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func (s *testPlanService) toPlanResponse(plan *model.TestPlan) dto.TestPlanResponse {
	dates, err := plan.GetScheduledDates()
	if err != nil {
		s.logger.Warn("排期日期解析失败", zap.String("plan_id", plan.PlanID), zap.Error(err))
		dates = nil
	}
	tokens := make([]string, 0, len(dates))
	for _, d := range dateset.Normalize(dates) {
		tokens = append(tokens, d.Format(dateset.Layout))
	}

	resp := dto.TestPlanResponse{
		ID:             plan.PlanID,
		ProjectName:    plan.ProjectName,
		Description:    plan.Description,
		Status:         plan.Status,
		Owner:          plan.Owner,
		Applicant:      plan.Applicant,
		SampleCount:    plan.SampleCount,
		ScheduledDates: tokens,
		ScheduleText:   dateset.FormatRanges(dates),
		AssignmentID:   plan.AssignmentID,
		CreatedAt:      plan.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      plan.UpdatedAt.Format(time.RFC3339),
	}
	if plan.Bench != nil {
		resp.Bench = &dto.BenchBrief{
			ID:       plan.Bench.BenchID,
			Name:     plan.Bench.Name,
			Location: plan.Bench.Location,
			Status:   plan.Bench.Status,
		}
	}
	if plan.ActualStart != nil {
		t := plan.ActualStart.Format(time.RFC3339)
		resp.ActualStart = &t
	}
	if plan.ActualEnd != nil {
		t := plan.ActualEnd.Format(time.RFC3339)
		resp.ActualEnd = &t
	}
	return resp
}

// [自证通过] internal/service/test_plan_service.go

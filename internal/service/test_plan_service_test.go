package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/PingY2000/LabBenchManager/internal/dto"
	"github.com/PingY2000/LabBenchManager/internal/model"
	pkgerrors "github.com/PingY2000/LabBenchManager/pkg/errors"
)

func setupPlanService() (TestPlanService, *testRepos) {
	repos := newTestRepos()
	repo := repos.toRepository()
	history := NewTestPlanHistoryService(repo, zap.NewNop())
	svc := NewTestPlanService(repo, history, zap.NewNop())
	return svc, repos
}

func strPtr(s string) *string { return &s }

// ── 创建 ──

func TestCreatePlanNormalizesDates(t *testing.T) {
	svc, repos := setupPlanService()

	resp, err := svc.Create(context.Background(), &dto.CreateTestPlanRequest{
		ProjectName:    "振动测试",
		ScheduledDates: []string{"2025-06-03", "2025-06-01", "2025-06-01"},
	}, "zhang.san")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := repos.plan.plans[resp.ID].ScheduledDates; got != "2025-06-01,2025-06-03" {
		t.Errorf("scheduled_dates = %q, 应去重升序", got)
	}
	if resp.Status != model.PlanStatusPlanned {
		t.Errorf("status = %s, want planned", resp.Status)
	}
}

func TestCreatePlanInvalidDateRejected(t *testing.T) {
	svc, _ := setupPlanService()

	_, err := svc.Create(context.Background(), &dto.CreateTestPlanRequest{
		ProjectName:    "项目",
		ScheduledDates: []string{"2025-13-40"},
	}, "op")
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestCreatePlanLinksAssignment(t *testing.T) {
	svc, repos := setupPlanService()
	repos.assignment.assignments["assign-1"] = &model.Assignment{
		AssignmentID: "assign-1",
		ProjectName:  "委托项目",
		Applicant:    "wai.bu",
		SampleCount:  8,
		Status:       model.AssignmentStatusPending,
	}

	resp, err := svc.Create(context.Background(), &dto.CreateTestPlanRequest{
		ProjectName:  "委托项目",
		AssignmentID: strPtr("assign-1"),
	}, "op")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	assignment := repos.assignment.assignments["assign-1"]
	if assignment.Status != model.AssignmentStatusScheduled {
		t.Errorf("assignment status = %s, want scheduled", assignment.Status)
	}
	if assignment.TestPlanID == nil || *assignment.TestPlanID != resp.ID {
		t.Error("申请应回指新建计划")
	}
	// 申请方信息沿用
	if resp.Applicant != "wai.bu" || resp.SampleCount != 8 {
		t.Errorf("applicant/sample = %s/%d, 应沿用申请信息", resp.Applicant, resp.SampleCount)
	}
}

func TestCreatePlanAssignmentAlreadyLinked(t *testing.T) {
	svc, repos := setupPlanService()
	linked := "plan-other"
	repos.assignment.assignments["assign-1"] = &model.Assignment{
		AssignmentID: "assign-1",
		TestPlanID:   &linked,
		Status:       model.AssignmentStatusScheduled,
	}

	_, err := svc.Create(context.Background(), &dto.CreateTestPlanRequest{
		ProjectName:  "项目",
		AssignmentID: strPtr("assign-1"),
	}, "op")
	if err != ErrPlanAssignLinked {
		t.Errorf("err = %v, want ErrPlanAssignLinked", err)
	}
}

// ── 编辑与历史联动 ──

func TestSubmitPlanEditRecordsHistoryForConfirmed(t *testing.T) {
	svc, repos := setupPlanService()
	repos.plan.plans["plan-1"] = &model.TestPlan{
		PlanID:      "plan-1",
		ProjectName: "项目A",
		Status:      model.PlanStatusConfirmed,
	}

	_, err := svc.SubmitPlanEdit(context.Background(), "plan-1", &dto.UpdateTestPlanRequest{
		ProjectName: strPtr("项目B"),
	}, "op")
	if err != nil {
		t.Fatalf("SubmitPlanEdit: %v", err)
	}
	if len(repos.history.histories) != 1 {
		t.Fatalf("histories = %d, want 1", len(repos.history.histories))
	}
	if repos.plan.plans["plan-1"].ProjectName != "项目B" {
		t.Error("计划未更新")
	}
}

func TestSubmitPlanEditNoHistoryForPlanned(t *testing.T) {
	svc, repos := setupPlanService()
	repos.plan.plans["plan-1"] = &model.TestPlan{
		PlanID:      "plan-1",
		ProjectName: "项目A",
		Status:      model.PlanStatusPlanned,
	}

	if _, err := svc.SubmitPlanEdit(context.Background(), "plan-1", &dto.UpdateTestPlanRequest{
		ProjectName: strPtr("项目B"),
	}, "op"); err != nil {
		t.Fatalf("SubmitPlanEdit: %v", err)
	}
	if len(repos.history.histories) != 0 {
		t.Errorf("histories = %d, 计划中阶段的编辑不留痕", len(repos.history.histories))
	}
}

// ── 状态流转 ──

func TestUpdateStatusStampsActualTimes(t *testing.T) {
	svc, repos := setupPlanService()
	repos.plan.plans["plan-1"] = &model.TestPlan{
		PlanID: "plan-1", ProjectName: "项目", Status: model.PlanStatusConfirmed,
	}

	resp, err := svc.UpdateStatus(context.Background(), "plan-1", model.PlanStatusInProgress, "op")
	if err != nil {
		t.Fatalf("UpdateStatus(in_progress): %v", err)
	}
	if resp.ActualStart == nil {
		t.Error("进入进行中应补记实际开始时间")
	}

	resp, err = svc.UpdateStatus(context.Background(), "plan-1", model.PlanStatusCompleted, "op")
	if err != nil {
		t.Fatalf("UpdateStatus(completed): %v", err)
	}
	if resp.ActualEnd == nil {
		t.Error("进入已完成应补记实际结束时间")
	}
	// 进入已完成必须留痕
	found := false
	for _, h := range repos.history.histories {
		if h.TestPlanID == "plan-1" {
			found = true
		}
	}
	if !found {
		t.Error("完成流转未写入变更历史")
	}
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	svc, repos := setupPlanService()
	repos.plan.plans["plan-1"] = &model.TestPlan{
		PlanID: "plan-1", Status: model.PlanStatusCompleted,
	}

	_, err := svc.UpdateStatus(context.Background(), "plan-1", model.PlanStatusInProgress, "op")
	if !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition（已完成为终态）", err)
	}
}

func TestUpdateStatusIdempotent(t *testing.T) {
	svc, repos := setupPlanService()
	repos.plan.plans["plan-1"] = &model.TestPlan{
		PlanID: "plan-1", Status: model.PlanStatusConfirmed,
	}

	if _, err := svc.UpdateStatus(context.Background(), "plan-1", model.PlanStatusConfirmed, "op"); err != nil {
		t.Errorf("重复提交同一状态应幂等，err = %v", err)
	}
}

func TestUpdateStatusCompletedClosesAssignment(t *testing.T) {
	svc, repos := setupPlanService()
	planID := "plan-1"
	repos.assignment.assignments["assign-1"] = &model.Assignment{
		AssignmentID: "assign-1",
		Status:       model.AssignmentStatusScheduled,
		TestPlanID:   &planID,
	}
	assignID := "assign-1"
	repos.plan.plans[planID] = &model.TestPlan{
		PlanID: planID, Status: model.PlanStatusInProgress, AssignmentID: &assignID,
	}

	if _, err := svc.UpdateStatus(context.Background(), planID, model.PlanStatusCompleted, "op"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got := repos.assignment.assignments["assign-1"].Status; got != model.AssignmentStatusCompleted {
		t.Errorf("assignment status = %s, want completed", got)
	}
}

// ── 删除 ──

func TestDeletePlanInProgressRejected(t *testing.T) {
	svc, repos := setupPlanService()
	repos.plan.plans["plan-1"] = &model.TestPlan{
		PlanID: "plan-1", Status: model.PlanStatusInProgress,
	}

	if err := svc.Delete(context.Background(), "plan-1"); err != ErrPlanInProgressDelete {
		t.Errorf("err = %v, want ErrPlanInProgressDelete", err)
	}
}

func TestDeletePlanUnlinksAssignment(t *testing.T) {
	svc, repos := setupPlanService()
	planID := "plan-1"
	assignID := "assign-1"
	repos.assignment.assignments[assignID] = &model.Assignment{
		AssignmentID: assignID,
		Status:       model.AssignmentStatusScheduled,
		TestPlanID:   &planID,
	}
	repos.plan.plans[planID] = &model.TestPlan{
		PlanID: planID, Status: model.PlanStatusPlanned, AssignmentID: &assignID,
	}

	if err := svc.Delete(context.Background(), planID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	assignment := repos.assignment.assignments[assignID]
	if assignment.TestPlanID != nil {
		t.Error("删除计划后申请应解绑")
	}
	if assignment.Status != model.AssignmentStatusPending {
		t.Errorf("assignment status = %s, want pending", assignment.Status)
	}
}

// ── 完成时间 ──

func TestCompletedTimePrefersActualEnd(t *testing.T) {
	svc, repos := setupPlanService()
	repos.plan.plans["plan-1"] = &model.TestPlan{
		PlanID: "plan-1", Status: model.PlanStatusConfirmed,
	}

	// 途径状态流转产生 ActualEnd 与历史记录
	if _, err := svc.UpdateStatus(context.Background(), "plan-1", model.PlanStatusInProgress, "op"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStatus(context.Background(), "plan-1", model.PlanStatusCompleted, "op"); err != nil {
		t.Fatal(err)
	}

	resp, err := svc.CompletedTime(context.Background(), "plan-1")
	if err != nil {
		t.Fatalf("CompletedTime: %v", err)
	}
	if resp.CompletedTime == nil {
		t.Fatal("completed_time 不应为空")
	}
}

func TestCompletedTimesMissingPlanNull(t *testing.T) {
	svc, repos := setupPlanService()
	repos.plan.plans["plan-1"] = &model.TestPlan{
		PlanID: "plan-1", Status: model.PlanStatusPlanned,
	}

	resps, err := svc.CompletedTimes(context.Background(), []string{"plan-1"})
	if err != nil {
		t.Fatalf("CompletedTimes: %v", err)
	}
	if len(resps) != 1 || resps[0].CompletedTime != nil {
		t.Error("无完成记录的计划 completed_time 应为 null")
	}
}

func TestCompletedTimeFallsBackToAuditTime(t *testing.T) {
	svc, repos := setupPlanService()

	// 历史留痕上线前就已完成的旧计划：无 ActualEnd、无历史记录
	updated := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	repos.plan.plans["plan-1"] = &model.TestPlan{
		PlanID: "plan-1", Status: model.PlanStatusCompleted,
	}
	repos.plan.plans["plan-1"].UpdatedAt = updated

	resp, err := svc.CompletedTime(context.Background(), "plan-1")
	if err != nil {
		t.Fatalf("CompletedTime: %v", err)
	}
	if resp.CompletedTime == nil {
		t.Fatal("已完成的旧计划应退回审计时间")
	}
	if *resp.CompletedTime != updated.Format(time.RFC3339) {
		t.Errorf("completed_time = %s, want %s", *resp.CompletedTime, updated.Format(time.RFC3339))
	}
}

func TestCompletedTimesBatchNoPerPlanLookups(t *testing.T) {
	svc, repos := setupPlanService()

	actualEnd := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)
	updated := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	repos.plan.plans["plan-1"] = &model.TestPlan{
		PlanID: "plan-1", Status: model.PlanStatusCompleted, ActualEnd: &actualEnd,
	}
	repos.plan.plans["plan-2"] = &model.TestPlan{
		PlanID: "plan-2", Status: model.PlanStatusCompleted,
	}
	repos.plan.plans["plan-2"].UpdatedAt = updated
	repos.plan.plans["plan-3"] = &model.TestPlan{
		PlanID: "plan-3", Status: model.PlanStatusPlanned,
	}

	repos.plan.getByIDCalls = 0
	resps, err := svc.CompletedTimes(context.Background(), []string{"plan-1", "plan-2", "plan-3"})
	if err != nil {
		t.Fatalf("CompletedTimes: %v", err)
	}
	if repos.plan.getByIDCalls != 0 {
		t.Errorf("批量查询退化为 %d 次单条查询", repos.plan.getByIDCalls)
	}

	byID := make(map[string]*string, len(resps))
	for i := range resps {
		byID[resps[i].TestPlanID] = resps[i].CompletedTime
	}
	if got := byID["plan-1"]; got == nil || *got != actualEnd.Format(time.RFC3339) {
		t.Errorf("plan-1 completed_time = %v, want ActualEnd", got)
	}
	if got := byID["plan-2"]; got == nil || *got != updated.Format(time.RFC3339) {
		t.Errorf("plan-2 completed_time = %v, want 审计时间回退", got)
	}
	if got := byID["plan-3"]; got != nil {
		t.Errorf("plan-3 completed_time = %v, want null", got)
	}
}

// [自证通过] internal/service/test_plan_service_test.go

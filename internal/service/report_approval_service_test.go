package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/PingY2000/LabBenchManager/internal/dto"
	"github.com/PingY2000/LabBenchManager/internal/model"
	pkgerrors "github.com/PingY2000/LabBenchManager/pkg/errors"
)

func setupReportService() (*reportApprovalService, *testRepos) {
	repos := newTestRepos()
	svc := NewReportApprovalService(repos.toRepository(), zap.NewNop()).(*reportApprovalService)
	svc.now = func() time.Time { return fixedToday }
	return svc, repos
}

func createDraft(t *testing.T, svc ReportApprovalService, submitter string) *dto.ReportResponse {
	t.Helper()
	resp, err := svc.Create(context.Background(), &dto.CreateReportRequest{Title: "测试报告"}, submitter)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return resp
}

// ── 编号分配 ──

func TestReportNumberFormat(t *testing.T) {
	svc, _ := setupReportService()
	resp := createDraft(t, svc, "zhang.san")

	// fixedToday = 2025-06-10 → C250610 + 两位序号
	if resp.ReportNumber != "C25061001" {
		t.Errorf("report_number = %s, want C25061001", resp.ReportNumber)
	}
}

func TestReportNumberIncrementsPerDay(t *testing.T) {
	svc, _ := setupReportService()
	createDraft(t, svc, "a")
	second := createDraft(t, svc, "b")

	if second.ReportNumber != "C25061002" {
		t.Errorf("report_number = %s, want C25061002", second.ReportNumber)
	}
}

func TestReportNumberNotReusedAfterDelete(t *testing.T) {
	svc, _ := setupReportService()
	first := createDraft(t, svc, "zhang.san")

	if err := svc.Delete(context.Background(), first.ID, "zhang.san"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	second := createDraft(t, svc, "zhang.san")
	if second.ReportNumber != "C25061002" {
		t.Errorf("report_number = %s, 软删编号不可复用", second.ReportNumber)
	}
}

func TestReportNumberIgnoresNonStandardSuffix(t *testing.T) {
	svc, repos := setupReportService()
	repos.report.reports["legacy"] = &model.ReportApproval{
		ReportID:     "legacy",
		ReportNumber: "C250610-补发",
		Status:       model.ReportStatusDraft,
		Submitter:    "admin",
	}

	resp := createDraft(t, svc, "zhang.san")
	if resp.ReportNumber != "C25061001" {
		t.Errorf("report_number = %s, 非标准编号不参与取号", resp.ReportNumber)
	}
}

// ── 两级审批状态机 ──

func submitReport(t *testing.T, svc ReportApprovalService, id, submitter, reviewer string) {
	t.Helper()
	if _, err := svc.SubmitForReview(context.Background(), id,
		&dto.SubmitReportRequest{Reviewer: reviewer}, submitter); err != nil {
		t.Fatalf("SubmitForReview: %v", err)
	}
}

func TestFullApprovalFlow(t *testing.T) {
	svc, repos := setupReportService()
	draft := createDraft(t, svc, "zhang.san")

	submitReport(t, svc, draft.ID, "zhang.san", "li.si")
	if got := repos.report.reports[draft.ID].Status; got != model.ReportStatusPendingReview {
		t.Fatalf("status = %s, want pending_review", got)
	}

	// 审核通过 → 直接进入待批准，不停留在 review_approved
	resp, err := svc.Review(context.Background(), draft.ID,
		&dto.ReviewReportRequest{Approve: true, Comment: "内容完整", Approver: "wang.wu"}, "li.si")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if resp.Status != model.ReportStatusPendingApproval {
		t.Errorf("status = %s, want pending_approval", resp.Status)
	}
	if resp.ReviewedAt == nil {
		t.Error("审核时间未记录")
	}

	resp, err = svc.Approve(context.Background(), draft.ID,
		&dto.ApproveReportRequest{Approve: true, Comment: "同意"}, "wang.wu")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if resp.Status != model.ReportStatusApproved {
		t.Errorf("status = %s, want approved", resp.Status)
	}
	if resp.ApprovedAt == nil {
		t.Error("批准时间未记录")
	}
}

func TestReviewRejectFlow(t *testing.T) {
	svc, _ := setupReportService()
	draft := createDraft(t, svc, "zhang.san")
	submitReport(t, svc, draft.ID, "zhang.san", "li.si")

	resp, err := svc.Review(context.Background(), draft.ID,
		&dto.ReviewReportRequest{Approve: false, Comment: "数据缺失"}, "li.si")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if resp.Status != model.ReportStatusReviewRejected {
		t.Errorf("status = %s, want review_rejected", resp.Status)
	}

	// 驳回后须先撤回到草稿，撤回清除上一轮痕迹，再重新提交
	if _, err := svc.Withdraw(context.Background(), draft.ID, "zhang.san"); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	got, _ := svc.Get(context.Background(), draft.ID)
	if got.ReviewComment != "" || got.ReviewedAt != nil {
		t.Error("撤回后应清除上一轮审核痕迹")
	}
	submitReport(t, svc, draft.ID, "zhang.san", "li.si")
	got, _ = svc.Get(context.Background(), draft.ID)
	if got.Status != model.ReportStatusPendingReview {
		t.Errorf("status = %s, want pending_review", got.Status)
	}
}

func TestSubmitOnlyFromDraft(t *testing.T) {
	svc, _ := setupReportService()
	draft := createDraft(t, svc, "zhang.san")
	submitReport(t, svc, draft.ID, "zhang.san", "li.si")
	if _, err := svc.Review(context.Background(), draft.ID,
		&dto.ReviewReportRequest{Approve: false, Comment: "数据缺失"}, "li.si"); err != nil {
		t.Fatal(err)
	}

	// 驳回状态不可直接重新提交
	_, err := svc.SubmitForReview(context.Background(), draft.ID,
		&dto.SubmitReportRequest{Reviewer: "li.si"}, "zhang.san")
	if !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestReviewWrongStateRejected(t *testing.T) {
	svc, _ := setupReportService()
	draft := createDraft(t, svc, "zhang.san")

	_, err := svc.Review(context.Background(), draft.ID,
		&dto.ReviewReportRequest{Approve: true}, "li.si")
	if !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestReviewByWrongReviewer(t *testing.T) {
	svc, _ := setupReportService()
	draft := createDraft(t, svc, "zhang.san")
	submitReport(t, svc, draft.ID, "zhang.san", "li.si")

	_, err := svc.Review(context.Background(), draft.ID,
		&dto.ReviewReportRequest{Approve: true}, "mao.gui")
	if !errors.Is(err, pkgerrors.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestCommentLengthBoundary(t *testing.T) {
	svc, _ := setupReportService()
	draft := createDraft(t, svc, "zhang.san")
	submitReport(t, svc, draft.ID, "zhang.san", "li.si")

	// 恰好 500 字符允许
	ok := strings.Repeat("好", 500)
	if _, err := svc.Review(context.Background(), draft.ID,
		&dto.ReviewReportRequest{Approve: false, Comment: ok}, "li.si"); err != nil {
		t.Errorf("500 字符意见应通过, err = %v", err)
	}

	// 501 字符拒绝（按字符数而非字节数）
	if _, err := svc.Withdraw(context.Background(), draft.ID, "zhang.san"); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	submitReport(t, svc, draft.ID, "zhang.san", "li.si")
	over := strings.Repeat("好", 501)
	_, err := svc.Review(context.Background(), draft.ID,
		&dto.ReviewReportRequest{Approve: false, Comment: over}, "li.si")
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

// ── 撤回 ──

func TestWithdrawResetsApprovalTrail(t *testing.T) {
	svc, repos := setupReportService()
	draft := createDraft(t, svc, "zhang.san")
	submitReport(t, svc, draft.ID, "zhang.san", "li.si")
	if _, err := svc.Review(context.Background(), draft.ID,
		&dto.ReviewReportRequest{Approve: true, Comment: "可以", Approver: "wang.wu"}, "li.si"); err != nil {
		t.Fatal(err)
	}

	resp, err := svc.Withdraw(context.Background(), draft.ID, "zhang.san")
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if resp.Status != model.ReportStatusDraft {
		t.Errorf("status = %s, want draft", resp.Status)
	}
	r := repos.report.reports[draft.ID]
	if r.ReviewedAt != nil || r.ApprovedAt != nil || r.ReviewComment != "" || r.ApprovalComment != "" {
		t.Error("撤回后应清空审核/批准时间与意见")
	}
}

// 提交人比对不区分大小写
func TestWithdrawCaseInsensitiveSubmitter(t *testing.T) {
	svc, _ := setupReportService()
	draft := createDraft(t, svc, "Zhang.San")
	submitReport(t, svc, draft.ID, "Zhang.San", "li.si")

	if _, err := svc.Withdraw(context.Background(), draft.ID, "zhang.san"); err != nil {
		t.Errorf("大小写不同的同一账号应可撤回, err = %v", err)
	}
}

func TestWithdrawByOtherUserRejected(t *testing.T) {
	svc, _ := setupReportService()
	draft := createDraft(t, svc, "zhang.san")
	submitReport(t, svc, draft.ID, "zhang.san", "li.si")

	_, err := svc.Withdraw(context.Background(), draft.ID, "li.si")
	if !errors.Is(err, pkgerrors.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestWithdrawDraftRejected(t *testing.T) {
	svc, _ := setupReportService()
	draft := createDraft(t, svc, "zhang.san")

	_, err := svc.Withdraw(context.Background(), draft.ID, "zhang.san")
	if !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

// 驳回状态同样属于流程中，可撤回到草稿
func TestWithdrawFromRejectedStates(t *testing.T) {
	svc, repos := setupReportService()
	draft := createDraft(t, svc, "zhang.san")
	submitReport(t, svc, draft.ID, "zhang.san", "li.si")
	if _, err := svc.Review(context.Background(), draft.ID,
		&dto.ReviewReportRequest{Approve: false, Comment: "数据缺失"}, "li.si"); err != nil {
		t.Fatal(err)
	}

	resp, err := svc.Withdraw(context.Background(), draft.ID, "zhang.san")
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if resp.Status != model.ReportStatusDraft {
		t.Errorf("status = %s, want draft", resp.Status)
	}
	r := repos.report.reports[draft.ID]
	if r.ReviewedAt != nil || r.ReviewComment != "" {
		t.Error("撤回后应清空审核痕迹")
	}

	// 批准驳回同样可撤回
	submitReport(t, svc, draft.ID, "zhang.san", "li.si")
	if _, err := svc.Review(context.Background(), draft.ID,
		&dto.ReviewReportRequest{Approve: true, Approver: "wang.wu"}, "li.si"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Approve(context.Background(), draft.ID,
		&dto.ApproveReportRequest{Approve: false, Comment: "不批"}, "wang.wu"); err != nil {
		t.Fatal(err)
	}
	resp, err = svc.Withdraw(context.Background(), draft.ID, "zhang.san")
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if resp.Status != model.ReportStatusDraft {
		t.Errorf("status = %s, want draft", resp.Status)
	}
}

func TestWithdrawApprovedRejected(t *testing.T) {
	svc, _ := setupReportService()
	draft := createDraft(t, svc, "zhang.san")
	submitReport(t, svc, draft.ID, "zhang.san", "li.si")
	if _, err := svc.Review(context.Background(), draft.ID,
		&dto.ReviewReportRequest{Approve: true, Approver: "wang.wu"}, "li.si"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Approve(context.Background(), draft.ID,
		&dto.ApproveReportRequest{Approve: true}, "wang.wu"); err != nil {
		t.Fatal(err)
	}

	// 最终批准的报告不可撤回
	_, err := svc.Withdraw(context.Background(), draft.ID, "zhang.san")
	if !errors.Is(err, pkgerrors.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

// ── 删除 ──

func TestDeleteNonDraftRejected(t *testing.T) {
	svc, _ := setupReportService()
	draft := createDraft(t, svc, "zhang.san")
	submitReport(t, svc, draft.ID, "zhang.san", "li.si")

	if err := svc.Delete(context.Background(), draft.ID, "zhang.san"); err != ErrReportNotDraft {
		t.Errorf("err = %v, want ErrReportNotDraft", err)
	}
}

// ── 工作台视图 ──

func TestWorkbenchViews(t *testing.T) {
	svc, _ := setupReportService()
	d1 := createDraft(t, svc, "zhang.san")
	d2 := createDraft(t, svc, "zhang.san")
	createDraft(t, svc, "li.si")

	submitReport(t, svc, d1.ID, "zhang.san", "li.si")
	submitReport(t, svc, d2.ID, "zhang.san", "li.si")
	if _, err := svc.Review(context.Background(), d2.ID,
		&dto.ReviewReportRequest{Approve: true, Approver: "wang.wu"}, "li.si"); err != nil {
		t.Fatal(err)
	}

	page := &dto.PaginationRequest{}

	mine, total, err := svc.MySubmissions(context.Background(), "ZHANG.SAN", page)
	if err != nil {
		t.Fatalf("MySubmissions: %v", err)
	}
	if total != 2 || len(mine) != 2 {
		t.Errorf("my submissions = %d, want 2", total)
	}

	reviews, _, err := svc.ReviewTasks(context.Background(), "li.si", page)
	if err != nil {
		t.Fatalf("ReviewTasks: %v", err)
	}
	if len(reviews) != 1 || reviews[0].ID != d1.ID {
		t.Errorf("review tasks = %v, 只应包含待审核的 d1", len(reviews))
	}

	approvals, _, err := svc.ApprovalTasks(context.Background(), "wang.wu", page)
	if err != nil {
		t.Fatalf("ApprovalTasks: %v", err)
	}
	if len(approvals) != 1 || approvals[0].ID != d2.ID {
		t.Errorf("approval tasks = %d, 只应包含待批准的 d2", len(approvals))
	}
}

// [自证通过] internal/service/report_approval_service_test.go

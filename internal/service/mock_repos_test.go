package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/PingY2000/LabBenchManager/internal/model"
	"github.com/PingY2000/LabBenchManager/internal/repository"
	pkgerrors "github.com/PingY2000/LabBenchManager/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.NTAccount
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByNTAccount(_ context.Context, ntAccount string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.NTAccount, ntAccount) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(_ context.Context, _, _ int) ([]model.User, int64, error) {
	var result []model.User
	for _, u := range m.users {
		result = append(result, *u)
	}
	return result, int64(len(result)), nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	delete(m.users, id)
	return nil
}

// ── Mock BenchRepository ──

type mockBenchRepo struct {
	benches map[string]*model.Bench
	seq     int
}

func newMockBenchRepo() *mockBenchRepo {
	return &mockBenchRepo{benches: make(map[string]*model.Bench)}
}

func (m *mockBenchRepo) Create(_ context.Context, bench *model.Bench) error {
	if bench.BenchID == "" {
		m.seq++
		bench.BenchID = fmt.Sprintf("bench-%d", m.seq)
	}
	m.benches[bench.BenchID] = bench
	return nil
}

func (m *mockBenchRepo) GetByID(_ context.Context, id string) (*model.Bench, error) {
	if b, ok := m.benches[id]; ok {
		return b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBenchRepo) GetByName(_ context.Context, name string) (*model.Bench, error) {
	for _, b := range m.benches {
		if strings.EqualFold(b.Name, name) {
			return b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBenchRepo) List(_ context.Context, filter repository.BenchFilter, _, _ int) ([]model.Bench, int64, error) {
	var result []model.Bench
	for _, b := range m.benches {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		result = append(result, *b)
	}
	return result, int64(len(result)), nil
}

func (m *mockBenchRepo) ListAll(_ context.Context) ([]model.Bench, error) {
	var result []model.Bench
	for _, b := range m.benches {
		result = append(result, *b)
	}
	// sort_order 升序
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].SortOrder < result[i].SortOrder {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result, nil
}

func (m *mockBenchRepo) Update(_ context.Context, bench *model.Bench) error {
	m.benches[bench.BenchID] = bench
	return nil
}

func (m *mockBenchRepo) UpdateDynamicInfo(_ context.Context, id, status, currentUser, currentProject string) error {
	b, ok := m.benches[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.Status = status
	b.CurrentUser = currentUser
	b.CurrentProject = currentProject
	return nil
}

func (m *mockBenchRepo) Delete(_ context.Context, id string) error {
	delete(m.benches, id)
	return nil
}

func (m *mockBenchRepo) MaxSortOrder(_ context.Context) (int, error) {
	max := 0
	for _, b := range m.benches {
		if b.SortOrder > max {
			max = b.SortOrder
		}
	}
	return max, nil
}

func (m *mockBenchRepo) SwapSortOrder(_ context.Context, a, b *model.Bench) error {
	m.benches[a.BenchID].SortOrder, m.benches[b.BenchID].SortOrder =
		b.SortOrder, a.SortOrder
	a.SortOrder, b.SortOrder = b.SortOrder, a.SortOrder
	return nil
}

// ── Mock BenchDocumentRepository ──

type mockBenchDocRepo struct {
	docs map[string]*model.BenchDocument
	seq  int
}

func newMockBenchDocRepo() *mockBenchDocRepo {
	return &mockBenchDocRepo{docs: make(map[string]*model.BenchDocument)}
}

func (m *mockBenchDocRepo) Create(_ context.Context, doc *model.BenchDocument) error {
	if doc.DocumentID == "" {
		m.seq++
		doc.DocumentID = fmt.Sprintf("doc-%d", m.seq)
	}
	m.docs[doc.DocumentID] = doc
	return nil
}

func (m *mockBenchDocRepo) GetByID(_ context.Context, id string) (*model.BenchDocument, error) {
	if d, ok := m.docs[id]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBenchDocRepo) ListByBench(_ context.Context, benchID string) ([]model.BenchDocument, error) {
	var result []model.BenchDocument
	for _, d := range m.docs {
		if d.BenchID == benchID {
			result = append(result, *d)
		}
	}
	return result, nil
}

func (m *mockBenchDocRepo) Delete(_ context.Context, id string) error {
	delete(m.docs, id)
	return nil
}

// ── Mock TestPlanRepository ──

type mockTestPlanRepo struct {
	plans        map[string]*model.TestPlan
	seq          int
	getByIDCalls int // 统计逐条查询次数，批量接口不应退化为 N 次单查
}

func newMockTestPlanRepo() *mockTestPlanRepo {
	return &mockTestPlanRepo{plans: make(map[string]*model.TestPlan)}
}

func (m *mockTestPlanRepo) Create(_ context.Context, plan *model.TestPlan) error {
	if plan.PlanID == "" {
		m.seq++
		plan.PlanID = fmt.Sprintf("plan-%d", m.seq)
	}
	plan.CreatedAt = time.Now()
	plan.UpdatedAt = time.Now()
	m.plans[plan.PlanID] = plan
	return nil
}

func (m *mockTestPlanRepo) GetByID(_ context.Context, id string) (*model.TestPlan, error) {
	m.getByIDCalls++
	if p, ok := m.plans[id]; ok {
		cp := *p // 返回拷贝，模拟独立的查询结果
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTestPlanRepo) List(_ context.Context, filter repository.TestPlanFilter, _, _ int) ([]model.TestPlan, int64, error) {
	var result []model.TestPlan
	for _, p := range m.plans {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.BenchID != "" && (p.BenchID == nil || *p.BenchID != filter.BenchID) {
			continue
		}
		result = append(result, *p)
	}
	return result, int64(len(result)), nil
}

func (m *mockTestPlanRepo) ListByIDs(_ context.Context, ids []string) ([]model.TestPlan, error) {
	var result []model.TestPlan
	for _, id := range ids {
		if p, ok := m.plans[id]; ok {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *mockTestPlanRepo) ListByBench(_ context.Context, benchID string) ([]model.TestPlan, error) {
	var result []model.TestPlan
	for _, p := range m.plans {
		if p.BenchID != nil && *p.BenchID == benchID {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *mockTestPlanRepo) ListScheduled(_ context.Context) ([]model.TestPlan, error) {
	var result []model.TestPlan
	for _, p := range m.plans {
		if p.BenchID != nil && p.ScheduledDates != "" {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *mockTestPlanRepo) Update(_ context.Context, plan *model.TestPlan) error {
	if _, ok := m.plans[plan.PlanID]; !ok {
		return gorm.ErrRecordNotFound
	}
	plan.UpdatedAt = time.Now()
	cp := *plan
	m.plans[plan.PlanID] = &cp
	return nil
}

func (m *mockTestPlanRepo) Delete(_ context.Context, id string) error {
	delete(m.plans, id)
	return nil
}

// ── Mock TestPlanHistoryRepository ──

type mockHistoryRepo struct {
	histories []*model.TestPlanHistory
	seq       int
}

func newMockHistoryRepo() *mockHistoryRepo {
	return &mockHistoryRepo{}
}

func (m *mockHistoryRepo) Append(_ context.Context, history *model.TestPlanHistory) error {
	if history.HistoryID == "" {
		m.seq++
		history.HistoryID = fmt.Sprintf("hist-%d", m.seq)
	}
	m.histories = append(m.histories, history)
	return nil
}

func (m *mockHistoryRepo) ListByPlan(_ context.Context, planID string, _, _ int) ([]model.TestPlanHistory, int64, error) {
	var result []model.TestPlanHistory
	for _, h := range m.histories {
		if h.TestPlanID == planID {
			result = append(result, *h)
		}
	}
	// changed_at 倒序
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].ChangedAt.After(result[i].ChangedAt) {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockHistoryRepo) EarliestCompletedAt(_ context.Context, planID string) (*time.Time, error) {
	var earliest *time.Time
	for _, h := range m.histories {
		if h.TestPlanID != planID || !isCompletedTransition(h) {
			continue
		}
		if earliest == nil || h.ChangedAt.Before(*earliest) {
			t := h.ChangedAt
			earliest = &t
		}
	}
	return earliest, nil
}

// isCompletedTransition 对齐仓储层的判定：变更字段集含状态，且变更后快照为已完成
func isCompletedTransition(h *model.TestPlanHistory) bool {
	var fields []string
	if err := json.Unmarshal([]byte(h.ChangedFields), &fields); err != nil {
		return false
	}
	hit := false
	for _, f := range fields {
		if f == "状态" {
			hit = true
			break
		}
	}
	if !hit {
		return false
	}
	var after model.TestPlan
	if err := json.Unmarshal([]byte(h.AfterJSON), &after); err != nil {
		return false
	}
	return after.Status == model.PlanStatusCompleted
}

func (m *mockHistoryRepo) EarliestCompletedAtBatch(ctx context.Context, planIDs []string) (map[string]time.Time, error) {
	result := make(map[string]time.Time)
	for _, id := range planIDs {
		if t, _ := m.EarliestCompletedAt(ctx, id); t != nil {
			result[id] = *t
		}
	}
	return result, nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct {
	assignments map[string]*model.Assignment
	seq         int
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{assignments: make(map[string]*model.Assignment)}
}

func (m *mockAssignmentRepo) Create(_ context.Context, assignment *model.Assignment) error {
	if assignment.AssignmentID == "" {
		m.seq++
		assignment.AssignmentID = fmt.Sprintf("assign-%d", m.seq)
	}
	m.assignments[assignment.AssignmentID] = assignment
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.Assignment, error) {
	if a, ok := m.assignments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) List(_ context.Context, filter repository.AssignmentFilter, _, _ int) ([]model.Assignment, int64, error) {
	var result []model.Assignment
	for _, a := range m.assignments {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		result = append(result, *a)
	}
	return result, int64(len(result)), nil
}

func (m *mockAssignmentRepo) Update(_ context.Context, assignment *model.Assignment) error {
	if _, ok := m.assignments[assignment.AssignmentID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *assignment
	m.assignments[assignment.AssignmentID] = &cp
	return nil
}

func (m *mockAssignmentRepo) Delete(_ context.Context, id string) error {
	delete(m.assignments, id)
	return nil
}

// ── Mock ReportApprovalRepository ──

type mockReportRepo struct {
	reports map[string]*model.ReportApproval
	deleted map[string]*model.ReportApproval // 软删数据，编号仍占用
	seq     int
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{
		reports: make(map[string]*model.ReportApproval),
		deleted: make(map[string]*model.ReportApproval),
	}
}

func (m *mockReportRepo) Create(_ context.Context, report *model.ReportApproval) error {
	for _, r := range m.reports {
		if r.ReportNumber == report.ReportNumber {
			return fmt.Errorf("%w: %s", pkgerrors.ErrDuplicateReportNumber, report.ReportNumber)
		}
	}
	if report.ReportID == "" {
		m.seq++
		report.ReportID = fmt.Sprintf("report-%d", m.seq)
	}
	report.CreatedAt = time.Now()
	report.UpdatedAt = time.Now()
	m.reports[report.ReportID] = report
	return nil
}

func (m *mockReportRepo) GetByID(_ context.Context, id string) (*model.ReportApproval, error) {
	if r, ok := m.reports[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReportRepo) List(_ context.Context, filter repository.ReportFilter, _, _ int) ([]model.ReportApproval, int64, error) {
	var result []model.ReportApproval
	for _, r := range m.reports {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Submitter != "" && !strings.EqualFold(r.Submitter, filter.Submitter) {
			continue
		}
		if filter.Reviewer != "" && !strings.EqualFold(r.Reviewer, filter.Reviewer) {
			continue
		}
		if filter.Approver != "" && !strings.EqualFold(r.Approver, filter.Approver) {
			continue
		}
		result = append(result, *r)
	}
	return result, int64(len(result)), nil
}

func (m *mockReportRepo) ListNumbersByPrefix(_ context.Context, prefix string) ([]string, error) {
	var numbers []string
	for _, r := range m.reports {
		if strings.HasPrefix(r.ReportNumber, prefix) {
			numbers = append(numbers, r.ReportNumber)
		}
	}
	for _, r := range m.deleted {
		if strings.HasPrefix(r.ReportNumber, prefix) {
			numbers = append(numbers, r.ReportNumber)
		}
	}
	return numbers, nil
}

func (m *mockReportRepo) NumberExists(_ context.Context, number, excludingID string) (bool, error) {
	for id, r := range m.reports {
		if id != excludingID && strings.EqualFold(r.ReportNumber, number) {
			return true, nil
		}
	}
	for id, r := range m.deleted {
		if id != excludingID && strings.EqualFold(r.ReportNumber, number) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReportRepo) ListPendingSince(_ context.Context, before time.Time) ([]model.ReportApproval, error) {
	var result []model.ReportApproval
	for _, r := range m.reports {
		if r.Status != model.ReportStatusPendingReview && r.Status != model.ReportStatusPendingApproval {
			continue
		}
		if r.SubmittedAt != nil && r.SubmittedAt.Before(before) {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockReportRepo) Update(_ context.Context, report *model.ReportApproval) error {
	if _, ok := m.reports[report.ReportID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *report
	m.reports[report.ReportID] = &cp
	return nil
}

func (m *mockReportRepo) Delete(_ context.Context, id string) error {
	if r, ok := m.reports[id]; ok {
		m.deleted[id] = r
		delete(m.reports, id)
	}
	return nil
}

// ── 测试聚合 ──

// testRepos 聚合所有 mock repo 便于 seed 数据
type testRepos struct {
	user       *mockUserRepo
	bench      *mockBenchRepo
	benchDoc   *mockBenchDocRepo
	plan       *mockTestPlanRepo
	history    *mockHistoryRepo
	assignment *mockAssignmentRepo
	report     *mockReportRepo
}

func newTestRepos() *testRepos {
	return &testRepos{
		user:       newMockUserRepo(),
		bench:      newMockBenchRepo(),
		benchDoc:   newMockBenchDocRepo(),
		plan:       newMockTestPlanRepo(),
		history:    newMockHistoryRepo(),
		assignment: newMockAssignmentRepo(),
		report:     newMockReportRepo(),
	}
}

func (r *testRepos) toRepository() *repository.Repository {
	return &repository.Repository{
		User:            r.user,
		Bench:           r.bench,
		BenchDocument:   r.benchDoc,
		TestPlan:        r.plan,
		TestPlanHistory: r.history,
		Assignment:      r.assignment,
		Report:          r.report,
	}
}

// [自证通过] internal/service/mock_repos_test.go

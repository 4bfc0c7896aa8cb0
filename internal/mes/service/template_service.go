package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
)

// TemplateService 工艺路线模板服务
type TemplateService struct {
	tplRepo *repository.RouteTemplateRepository
}

func NewTemplateService(tplRepo *repository.RouteTemplateRepository) *TemplateService {
	return &TemplateService{tplRepo: tplRepo}
}

// CreateTemplateStep 模板工序入参
type CreateTemplateStep struct {
	Sequence       int     `json:"sequence" binding:"required,gte=1"`
	ProcessTypeID  string  `json:"process_type_id" binding:"required"`
	DepartmentID   string  `json:"department_id" binding:"required"`
	MachineID      *string `json:"machine_id"`
	EstimatedHours int     `json:"estimated_hours" binding:"gte=0"`
	DayOffset      int     `json:"day_offset" binding:"gte=0"`
	Notes          string  `json:"notes"`
}

// CreateTemplateRequest 创建模板请求
type CreateTemplateRequest struct {
	Code        string               `json:"code"`
	Name        string               `json:"name" binding:"required"`
	Description string               `json:"description"`
	Steps       []CreateTemplateStep `json:"steps"`
}

// ListTemplates 模板列表
func (s *TemplateService) ListTemplates(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.RouteTemplate, int64, error) {
	return s.tplRepo.FindAll(ctx, page, pageSize, filters)
}

// GetTemplate 模板详情
func (s *TemplateService) GetTemplate(ctx context.Context, id string) (*entity.RouteTemplate, error) {
	return s.tplRepo.FindByID(ctx, id)
}

// CreateTemplate 创建模板（含工序，sequence在模板内必须唯一）
func (s *TemplateService) CreateTemplate(ctx context.Context, userID string, req *CreateTemplateRequest) (*entity.RouteTemplate, error) {
	code := req.Code
	if code == "" {
		var err error
		code, err = s.tplRepo.GenerateCode(ctx)
		if err != nil {
			return nil, fmt.Errorf("生成模板编码失败: %w", err)
		}
	}

	tpl := &entity.RouteTemplate{
		ID:          uuid.New().String()[:32],
		Code:        code,
		Name:        req.Name,
		Description: req.Description,
		Status:      entity.TemplateStatusActive,
		CreatedBy:   userID,
	}

	steps, err := buildTemplateSteps(tpl.ID, req.Steps)
	if err != nil {
		return nil, err
	}
	tpl.Steps = steps

	if err := s.tplRepo.Create(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// UpdateTemplateRequest 更新模板头请求
type UpdateTemplateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status" binding:"omitempty,oneof=draft active archived"`
}

// UpdateTemplate 更新模板头
func (s *TemplateService) UpdateTemplate(ctx context.Context, id string, req *UpdateTemplateRequest) (*entity.RouteTemplate, error) {
	tpl, err := s.tplRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		tpl.Name = *req.Name
	}
	if req.Description != nil {
		tpl.Description = *req.Description
	}
	if req.Status != nil {
		tpl.Status = *req.Status
	}

	if err := s.tplRepo.Update(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// ReplaceTemplateSteps 整体替换模板工序
func (s *TemplateService) ReplaceTemplateSteps(ctx context.Context, id string, stepReqs []CreateTemplateStep) (*entity.RouteTemplate, error) {
	tpl, err := s.tplRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	steps, err := buildTemplateSteps(tpl.ID, stepReqs)
	if err != nil {
		return nil, err
	}

	if err := s.tplRepo.ReplaceSteps(ctx, tpl.ID, steps); err != nil {
		return nil, err
	}
	return s.tplRepo.FindByID(ctx, id)
}

// DeleteTemplate 删除模板
func (s *TemplateService) DeleteTemplate(ctx context.Context, id string) error {
	if _, err := s.tplRepo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.tplRepo.Delete(ctx, id)
}

func buildTemplateSteps(templateID string, reqs []CreateTemplateStep) ([]entity.RouteTemplateStep, error) {
	seen := make(map[int]bool, len(reqs))
	steps := make([]entity.RouteTemplateStep, 0, len(reqs))
	for _, sr := range reqs {
		if seen[sr.Sequence] {
			return nil, fmt.Errorf("工序序号重复: %d", sr.Sequence)
		}
		seen[sr.Sequence] = true
		steps = append(steps, entity.RouteTemplateStep{
			ID:             uuid.New().String()[:32],
			TemplateID:     templateID,
			Sequence:       sr.Sequence,
			ProcessTypeID:  sr.ProcessTypeID,
			DepartmentID:   sr.DepartmentID,
			MachineID:      sr.MachineID,
			EstimatedHours: sr.EstimatedHours,
			DayOffset:      sr.DayOffset,
			Notes:          sr.Notes,
		})
	}
	return steps, nil
}

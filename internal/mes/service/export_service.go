package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/xuri/excelize/v2"
)

// ExportService 流转履历导出
type ExportService struct {
	cardRepo *repository.CardRepository
	mvRepo   *repository.MovementRepository
}

func NewExportService(cardRepo *repository.CardRepository, mvRepo *repository.MovementRepository) *ExportService {
	return &ExportService{cardRepo: cardRepo, mvRepo: mvRepo}
}

// ExportCardMovements 导出某卡的全部流转记录为Excel
func (s *ExportService) ExportCardMovements(ctx context.Context, cardID string) (*excelize.File, string, error) {
	card, err := s.cardRepo.FindByID(ctx, cardID)
	if err != nil {
		return nil, "", err
	}
	movements, err := s.mvRepo.FindByCard(ctx, cardID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"序号", "来源部门", "目的部门", "机台", "操作员", "开始时间", "结束时间", "状态", "备注"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, mv := range movements {
		row := i + 2
		from := ""
		if mv.FromDepartmentID != nil {
			from = *mv.FromDepartmentID
		}
		machine := ""
		if mv.MachineID != nil {
			machine = *mv.MachineID
		}
		end := ""
		if mv.EndTime != nil {
			end = mv.EndTime.Format("2006-01-02 15:04:05")
		}
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), from)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), mv.ToDepartmentID)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), machine)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), mv.OperatorID)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), mv.StartTime.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), end)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), mv.Status)
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), mv.Notes)
	}

	filename := fmt.Sprintf("movements_%s.xlsx", card.CardNo)
	return f, filename, nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"dukapos/internal/caching"
	"dukapos/internal/models"
	"dukapos/internal/repositories"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const stockLevelsTTL = time.Minute

type StockLevelService interface {
	List(ctx context.Context, orgID uuid.UUID, filter *models.StockLevelFilter) (*models.StockLevelPage, error)
	// Export renders every row matching the filter as a workbook.
	Export(ctx context.Context, orgID uuid.UUID, filter *models.StockLevelFilter) (*excelize.File, string, error)
}

type stockLevelService struct {
	stockLevelRepo repositories.StockLevelRepository
	orgRepo        repositories.OrganizationRepository
	cacheService   caching.CacheService
	log            *zap.Logger
	now            func() time.Time
}

func NewStockLevelService(stockLevelRepo repositories.StockLevelRepository, orgRepo repositories.OrganizationRepository,
	cacheService caching.CacheService, log *zap.Logger) StockLevelService {
	return &stockLevelService{
		stockLevelRepo: stockLevelRepo,
		orgRepo:        orgRepo,
		cacheService:   cacheService,
		log:            log,
		now:            time.Now,
	}
}

func (s *stockLevelService) threshold(ctx context.Context, orgID uuid.UUID) (int, error) {
	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("organization: %w", err)
	}
	return org.Settings.LowStockThreshold, nil
}

func (s *stockLevelService) List(ctx context.Context, orgID uuid.UUID, filter *models.StockLevelFilter) (*models.StockLevelPage, error) {
	if filter == nil {
		filter = &models.StockLevelFilter{}
	}
	filter.Normalize()
	key := caching.StockLevelsKey(orgID, filter)

	var cached models.StockLevelPage
	hit, err := s.cacheService.GetJSON(ctx, key, &cached)
	if err != nil {
		s.log.Warn("stock level cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return &cached, nil
	}

	threshold, err := s.threshold(ctx, orgID)
	if err != nil {
		return nil, err
	}
	page, err := s.stockLevelRepo.List(ctx, orgID, filter, threshold)
	if err != nil {
		return nil, err
	}

	if err := s.cacheService.SetJSON(ctx, key, page, stockLevelsTTL); err != nil {
		s.log.Warn("stock level cache write failed", zap.String("key", key), zap.Error(err))
	}
	return page, nil
}

var stockLevelHeaders = []string{"Product", "SKU", "Category", "Quantity", "Reorder Level", "Status", "Batches", "Nearest Expiry"}

func (s *stockLevelService) Export(ctx context.Context, orgID uuid.UUID, filter *models.StockLevelFilter) (*excelize.File, string, error) {
	if filter == nil {
		filter = &models.StockLevelFilter{}
	}
	filter.Normalize()
	threshold, err := s.threshold(ctx, orgID)
	if err != nil {
		return nil, "", err
	}
	levels, err := s.stockLevelRepo.ListAll(ctx, orgID, filter, threshold)
	if err != nil {
		return nil, "", err
	}

	f, err := buildStockLevelWorkbook(levels)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("stock-levels-%s.xlsx", s.now().Format("20060102"))
	return f, filename, nil
}

func buildStockLevelWorkbook(levels []*models.StockLevel) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Stock Levels"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, err
	}

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range stockLevelHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for i, l := range levels {
		row := i + 2
		expiry := ""
		if l.NearestExpiry != nil {
			expiry = l.NearestExpiry.Format("2006-01-02")
		}
		category := ""
		if l.Category != nil {
			category = *l.Category
		}
		sku := ""
		if l.SKU != nil {
			sku = *l.SKU
		}
		values := []interface{}{l.ProductName, sku, category, l.Quantity, l.ReorderLevel, l.Status, l.Batches, expiry}
		for j, v := range values {
			col, _ := excelize.ColumnNumberToName(j + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
	}

	widths := []float64{32, 16, 18, 10, 14, 14, 10, 16}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
	return f, nil
}

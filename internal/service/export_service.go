package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"cantine/internal/dto"
	"cantine/internal/model"
	"cantine/internal/repository"
)

// ── export errors ──

var (
	ErrExportNoPlans      = errors.New("no meal plans in this period")
	ErrExportGenerateFail = errors.New("failed to generate the spreadsheet")
)

// ExportService spreadsheet export of meal plans
type ExportService interface {
	// ExportMealPlans writes planned meals as a flat-header workbook
	// ("Matricule | Nom | <date> <meal> ...", "x" when planned) that the
	// importer reads back unchanged.
	ExportMealPlans(ctx context.Context, req *dto.SummaryRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	clock  *clock
	logger *zap.Logger
}

// NewExportService creates an ExportService.
func NewExportService(repo *repository.Repository, clock *clock, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, clock: clock, logger: logger}
}

type exportColumn struct {
	date string
	meal model.Meal
}

type exportRow struct {
	matricule string
	name      string
	planned   map[exportColumn]bool
}

// ═══════════════════════════════════════════════════════════
// ExportMealPlans
// ═══════════════════════════════════════════════════════════

// Without a full range the active window is exported.
func (s *exportService) ExportMealPlans(ctx context.Context, req *dto.SummaryRequest) (*bytes.Buffer, string, error) {
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		return nil, "", err
	}
	if from.IsZero() || to.IsZero() {
		w := ComputeWindow(s.clock.Today())
		from, to = w.Start, w.End
	}
	if to.Sub(from) > maxListRange {
		return nil, "", ErrMealPlanInvalidRange
	}

	plans, err := s.repo.MealPlan.ListWithPersons(ctx, repository.MealPlanFilter{
		EstablishmentID: req.EstablishmentID,
		From:            from,
		To:              to,
	})
	if err != nil {
		s.logger.Error("list meal plans for export failed", zap.Error(err))
		return nil, "", err
	}
	if len(plans) == 0 {
		return nil, "", ErrExportNoPlans
	}

	// 1. columns: every day of the range x every meal
	var columns []exportColumn
	for _, d := range DaysIn(from, to) {
		for _, m := range model.Meals {
			columns = append(columns, exportColumn{date: d.Format(model.DateLayout), meal: m})
		}
	}

	// 2. one row per person
	rowsByPerson := make(map[string]*exportRow)
	for _, mp := range plans {
		r, ok := rowsByPerson[mp.PersonID]
		if !ok {
			r = &exportRow{planned: make(map[exportColumn]bool)}
			if mp.Person != nil {
				r.matricule, r.name = mp.Person.Matricule, mp.Person.Name
			}
			rowsByPerson[mp.PersonID] = r
		}
		r.planned[exportColumn{date: model.DateOnly(mp.Date).Format(model.DateLayout), meal: mp.Meal}] = true
	}
	rows := make([]*exportRow, 0, len(rowsByPerson))
	for _, r := range rowsByPerson {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].matricule < rows[j].matricule })

	// 3. workbook
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Plans"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 14)
	f.SetColWidth(sheetName, "B", "B", 28)
	f.SetColWidth(sheetName, colName(2), colName(1+len(columns)), 22)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	centered, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	f.SetCellValue(sheetName, cell("A", 1), "Matricule")
	f.SetCellValue(sheetName, cell("B", 1), "Nom")
	for i, c := range columns {
		f.SetCellValue(sheetName, cell(colName(2+i), 1), fmt.Sprintf("%s %s", c.date, c.meal.Label()))
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(1+len(columns)), 1), headerStyle)

	row := 2
	for _, r := range rows {
		// text cells keep leading zeros of matricules
		f.SetCellStr(sheetName, cell("A", row), r.matricule)
		f.SetCellStr(sheetName, cell("B", row), r.name)
		for i, c := range columns {
			if r.planned[c] {
				f.SetCellStr(sheetName, cell(colName(2+i), row), "x")
			}
		}
		row++
	}
	if len(columns) > 0 {
		f.SetCellStyle(sheetName, cell("C", 2), cell(colName(1+len(columns)), row), centered)
	}
	f.SetPanes(sheetName, &excelize.Panes{Freeze: true, XSplit: 2, YSplit: 1, TopLeftCell: "C2", ActivePane: "bottomRight"})

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("write xlsx failed", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("plans_%s_%s.xlsx", from.Format(model.DateLayout), to.Format(model.DateLayout))
	return buf, filename, nil
}

// ── helpers ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

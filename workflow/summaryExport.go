package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// ExportSummaryXlsx renders the reconciliation summary as a spreadsheet for
// the compliance team.
func ExportSummaryXlsx(ctx context.Context, logger *logrus.Logger, fromDate, toDate string, storeIds []int) ([]byte, error) {

	summary, err := Summarize(ctx, logger, fromDate, toDate, storeIds)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Reconciliation"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Reconciliation summary %s to %s", fromDate, toDate))
	headers := []string{"Kind", "Total", "Reconciled", "Pending"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 4
	for _, s := range summary.Kinds {
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), string(s.Kind))
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), s.Total)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), s.Reconciled)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), s.Pending)
		row++
	}
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "overall")
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), summary.Overall.Total)
	_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), summary.Overall.Reconciled)
	_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), summary.Overall.Pending)

	buf, err := f.WriteToBuffer()
	if err != nil {
		config.LogError(logger, "summaryExport.go", "ExportSummaryXlsx", "writing workbook", summary, err)
		return nil, err
	}
	return buf.Bytes(), nil
}

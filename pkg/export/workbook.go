package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/simplifyhr/offerflow/pkg/supervisor"
)

const (
	SheetName   = "Offer Workflows"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []string{"Workflow ID", "Job", "Candidate", "Email", "Step", "Step Name", "Status", "Created", "Updated"}

// Workflows renders the workflows as an xlsx workbook with a frozen header row.
func Workflows(items []supervisor.WorkflowView) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return nil, err
	}

	for i, wf := range items {
		row := []interface{}{
			wf.ID,
			wf.JobTitle,
			wf.CandidateName,
			wf.CandidateEmail,
			wf.CurrentStep,
			wf.StepName,
			wf.Status,
			wf.CreatedAt.Format("2006-01-02 15:04"),
			wf.UpdatedAt.Format("2006-01-02 15:04"),
		}
		if err := f.SetSheetRow(SheetName, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}

	f.SetColWidth(SheetName, "A", "A", 38)
	f.SetColWidth(SheetName, "B", "D", 28)
	f.SetColWidth(SheetName, "E", "E", 8)
	f.SetColWidth(SheetName, "F", "G", 18)
	f.SetColWidth(SheetName, "H", "I", 18)

	f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

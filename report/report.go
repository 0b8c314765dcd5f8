/*
Package report renders the admin overview as a PDF. The output uses the
core Helvetica font, which cannot draw CJK glyphs, so categories appear
under their ASCII labels.
*/
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/dayoff/leave-engine/leave"
	"github.com/dayoff/leave-engine/stats"
)

// Monthly writes a one-page summary for the month containing at.
func Monthly(w io.Writer, at time.Time, ov *stats.Overview) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Report")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, at.Format("January 2006"))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employees: %d", ov.TotalEmployees))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Pending requests: %d", ov.PendingRequests))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Leaves this month: %d", ov.LeavesThisMonth))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Annual leave usage: %s", ov.AnnualLeaveUsage))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Requests by category")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(60, 7, "Category", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, "Requests", "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, c := range leave.Categories {
		pdf.CellFormat(60, 7, c.Label(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", ov.MonthlyLeaveStats[c]), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}

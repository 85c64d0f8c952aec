package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/carebridge/leadsync-cli/internal/model"
	"github.com/carebridge/leadsync-cli/internal/store"
)

var (
	exportOutput         string
	exportCandidatesOnly bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export lead rows to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.ListLeads(ctx, store.LeadFilter{CandidatesOnly: exportCandidatesOnly})
		if err != nil {
			return err
		}

		file, err := buildWorkbook(leads)
		if err != nil {
			return err
		}
		if err := file.Save(exportOutput); err != nil {
			return eris.Wrapf(err, "export: save %s", exportOutput)
		}

		zap.L().Info("export complete",
			zap.String("output", exportOutput),
			zap.Int("rows", len(leads)),
		)
		return nil
	},
}

var exportHeader = []string{
	"Lead ID", "Name", "Address", "City", "Phone", "Website",
	"Score", "Priority",
	"Contact Name", "Contact Role", "Contact Email",
	"Chinese Rep Candidate", "Rep Confidence",
	"Latitude", "Longitude",
}

func buildWorkbook(leads []model.LeadRow) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Leads")
	if err != nil {
		return nil, eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range exportHeader {
		header.AddCell().SetString(h)
	}

	for i := range leads {
		lead := &leads[i]
		row := sheet.AddRow()
		row.AddCell().SetString(lead.LeadID)
		row.AddCell().SetString(lead.Name)
		row.AddCell().SetString(lead.Address)
		row.AddCell().SetString(lead.City)
		row.AddCell().SetString(lead.Phone)
		row.AddCell().SetString(lead.Website)
		row.AddCell().SetInt(lead.Score)
		row.AddCell().SetString(lead.Priority)
		row.AddCell().SetString(deref(lead.ContactName))
		row.AddCell().SetString(deref(lead.ContactRole))
		row.AddCell().SetString(deref(lead.ContactEmail))
		row.AddCell().SetBool(lead.ChineseRepCandidate)
		row.AddCell().SetString(string(lead.ChineseRepConfidence))
		addFloatCell(row, lead.Lat)
		addFloatCell(row, lead.Lon)
	}

	return file, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func addFloatCell(row *xlsx.Row, v *float64) {
	cell := row.AddCell()
	if v != nil {
		cell.SetFloat(*v)
	}
}

func init() {
	exportCmd.Flags().StringVar(&exportOutput, "output", "leads.xlsx", "output workbook path")
	exportCmd.Flags().BoolVar(&exportCandidatesOnly, "candidates-only", false, "export only Chinese-rep candidates")
	rootCmd.AddCommand(exportCmd)
}

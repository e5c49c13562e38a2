package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"training-crm-backend/clients/repositories"
	"training-crm-backend/config"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const exportDir = "./public/files"

// EnsureDirectoryExists creates the directory for a file path if it is missing
func EnsureDirectoryExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			return fmt.Errorf("error creating directory: %w", err)
		}
	}
	return nil
}

var clientExcelColumns = []struct {
	Header string
	Value  func(*repositories.ClientRecord) interface{}
}{
	{"id", func(r *repositories.ClientRecord) interface{} { return r.ID }},
	{"client name", func(r *repositories.ClientRecord) interface{} { return r.ClientName }},
	{"company registration nr", func(r *repositories.ClientRecord) interface{} { return r.CompanyRegistrationNr }},
	{"seta", func(r *repositories.ClientRecord) interface{} { return r.Seta }},
	{"client status", func(r *repositories.ClientRecord) interface{} { return r.ClientStatus }},
	{"main client", func(r *repositories.ClientRecord) interface{} { return derefString(r.MainClientName) }},
	{"contact person", func(r *repositories.ClientRecord) interface{} { return r.ContactPerson }},
	{"contact email", func(r *repositories.ClientRecord) interface{} { return r.ContactPersonEmail }},
	{"contact cellphone", func(r *repositories.ClientRecord) interface{} { return r.ContactPersonCellphone }},
	{"street address", func(r *repositories.ClientRecord) interface{} { return r.ClientStreetAddress }},
	{"suburb", func(r *repositories.ClientRecord) interface{} { return r.ClientSuburb }},
	{"town", func(r *repositories.ClientRecord) interface{} { return r.ClientTown }},
	{"province", func(r *repositories.ClientRecord) interface{} { return r.ClientProvince }},
	{"postal code", func(r *repositories.ClientRecord) interface{} { return r.ClientPostalCode }},
	{"financial year end", func(r *repositories.ClientRecord) interface{} { return derefString(r.FinancialYearEnd) }},
	{"bbbee verification date", func(r *repositories.ClientRecord) interface{} { return derefString(r.BbbeeVerificationDate) }},
	{"last communication", func(r *repositories.ClientRecord) interface{} { return derefString(r.LastCommunicationAt) }},
}

// GenerateClientExcel writes the given client records to an .xlsx workbook
// under public/files and returns the public path to the file
func GenerateClientExcel(records []*repositories.ClientRecord, taskName string) (string, error) {
	if err := EnsureDirectoryExists(exportDir); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	sheetName := "Clients"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")

	titleCaser := cases.Title(language.English)
	for col, column := range clientExcelColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", err
		}
		if err := f.SetCellValue(sheetName, cell, titleCaser.String(column.Header)); err != nil {
			return "", fmt.Errorf("error setting header %s: %w", column.Header, err)
		}
	}

	for row, record := range records {
		for col, column := range clientExcelColumns {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return "", err
			}
			if err := f.SetCellValue(sheetName, cell, column.Value(record)); err != nil {
				return "", fmt.Errorf("error writing row %d: %w", row+2, err)
			}
		}
	}

	f.SetActiveSheet(index)

	fileName := fmt.Sprintf("%s_%s.xlsx", CleanStringForFilename(taskName), time.Now().Format("2006-01-02_15-04-05"))
	savePath := filepath.Join(exportDir, fileName)
	if err := f.SaveAs(savePath); err != nil {
		return "", fmt.Errorf("error saving workbook: %w", err)
	}

	config.Logger.Info("Export workbook written",
		zap.String("file", savePath),
		zap.Int("rows", len(records)),
	)
	return fmt.Sprintf("/public/files/%s", fileName), nil
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

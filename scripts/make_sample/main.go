package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/garnizeh/recruit/internal/importer"
)

const sheet = "Sheet1"

type sampleRow struct {
	Name, Email, Phone  string
	Age, Years          int
	Company1, Position1 string
	Company2, Position2 string
}

var header = []any{
	importer.ColName, importer.ColEmail, importer.ColPhone, importer.ColAge,
	importer.ColExperienceYears, "Company_1", "Position_1", "Company_2", "Position_2",
}

var samples = []sampleRow{
	{"John Doe", "johndoe@example.com", "917-555-1234", 25, 3, "TechWave Solutions", "Software Engineer", "SparkTech Innovations", "Intern"},
	{"Michael Johnson", "michael.johnson@ucla.edu", "323-555-6789", 27, 2, "TechVision Solutions", "Software Engineer", "FutureTech Innovations", "Jr. Software Engineer"},
	{"Ethan Roberts", "ethan.roberts@mit.edu", "617-555-4321", 25, 2, "Saffron", "Data Entry", "", ""},
	{"Daniel Thompson", "daniel.thompson@utexas.edu", "832-555-2490", 24, 1, "PlayOn 24", "Software Engineer", "", ""},
	{"James Anderson", "james.anderson@miami.edu", "305-555-1836", 23, 2, "Techdyno Bd Ltd", "Software Developer", "Pioner Alpha", "Intern Software Engineer"},
	{"David Clark", "david.clark@gsu.edu", "404-555-1571", 23, 2, "GlobalBangla Limited", "IT Operation Officer", "TechnoHack Edutech", "Data Analysis"},
	{"William Johnson", "william.johnson@uic.edu", "312-555-3681", 25, 4, "Ryven.CO", "Laravel Developer", "Dreams enterprise", "Computer Operator"},
	{"Robert Smith", "robert.smith@harvard.edu", "617-555-0326", 31, 3, "SA Tech & Consultancy", "Software Engineer", "App Maker BD", "Junior Software Engineer"},
	{"Michael Davis", "michael.davis@uw.edu", "206-555-7303", 32, 6, "Zaman It", "Laravel Developer", "National Polymer", "Developer"},
	{"Christopher Taylor", "christopher.taylor@stanford.edu", "415-555-1234", 30, 3, "Solution World Ltd", "Web Developer", "Matrix Business Development", "Web Developer"},
	{"William Harris", "william.harris@uchicago.edu", "312-555-4567", 29, 3, "TechLab", "Full Stack Engineer", "Nifty IT Solution", "Full Stack Engineer"},
	{"Daniel Lee", "daniel.lee@usc.edu", "323-555-7890", 28, 7, "weDevs Pte. Ltd.", "Software Engineer", "Alesha Tech Ltd", "Web Application Developer"},
	{"James Clark", "james.clark@nyu.edu", "212-555-6789", 27, 1, "Fleek Bangladesh", "Software Engineer", "naztech Inc. Ltd", "Software Engineer Trainee"},
}

// buildWorkbook lays out the sample candidates in the import format.
func buildWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	for i, s := range samples {
		row := []any{s.Name, s.Email, s.Phone, s.Age, s.Years, s.Company1, s.Position1}
		// optional second company stays blank
		if s.Company2 != "" {
			row = append(row, s.Company2, s.Position2)
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func main() {
	out := flag.String("out", filepath.Join("data", "candidates.xlsx"), "Output workbook path")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		logger.Error("create output dir", "error", err)
		os.Exit(1)
	}
	f, err := buildWorkbook()
	if err != nil {
		logger.Error("build workbook", "error", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := f.SaveAs(*out); err != nil {
		logger.Error("save workbook", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("sample workbook written", "path", *out, "candidates", len(samples))
}

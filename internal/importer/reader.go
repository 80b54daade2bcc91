package importer

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/garnizeh/recruit/internal/apperr"
)

// Column headers of the import workbook.
const (
	ColName               = "Name"
	ColEmail              = "Email"
	ColPhone              = "Phone"
	ColAge                = "Age"
	ColExperienceYears    = "Experience (Years)"
	ColInstitute          = "Institute"
	ColPreviousExperience = "Previous Experience"
)

// Columns is the import schema in its canonical order. Export writes the
// same columns so an exported workbook can be imported again.
var Columns = []string{
	ColName, ColEmail, ColPhone, ColAge, ColExperienceYears, ColInstitute, ColPreviousExperience,
}

var requiredColumns = []string{ColName, ColEmail, ColPhone}

// headerKey folds a header cell so "Experience(years)" and
// "Experience (Years)" resolve to the same column.
func headerKey(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), ""))
}

// RawRow holds the untouched cell text of one spreadsheet row.
type RawRow struct {
	Line               int // 1-based spreadsheet row, header is 1
	Name               string
	Email              string
	Phone              string
	Age                string
	ExperienceYears    string
	Institute          string
	PreviousExperience string
	// Companies holds Company_N/Position_N pairs ordered by N.
	Companies []CompanyCell
}

type CompanyCell struct {
	Company  string
	Position string
}

func (r RawRow) blank() bool {
	if strings.TrimSpace(r.Name+r.Email+r.Phone+r.Age+r.ExperienceYears+r.Institute+r.PreviousExperience) != "" {
		return false
	}
	for _, c := range r.Companies {
		if strings.TrimSpace(c.Company+c.Position) != "" {
			return false
		}
	}
	return true
}

type layout struct {
	fixed     map[string]int // canonical column -> index
	companies []companyCols
}

type companyCols struct {
	n        int
	company  int
	position int
}

func parseHeader(header []string) (*layout, error) {
	canonical := make(map[string]string, len(Columns)+1)
	for _, c := range Columns {
		canonical[headerKey(c)] = c
	}

	l := &layout{fixed: make(map[string]int)}
	pairs := make(map[int]*companyCols)
	pair := func(n int) *companyCols {
		p, ok := pairs[n]
		if !ok {
			p = &companyCols{n: n, company: -1, position: -1}
			pairs[n] = p
		}
		return p
	}

	for i, h := range header {
		key := headerKey(h)
		if key == "" {
			continue
		}
		if c, ok := canonical[key]; ok {
			if _, dup := l.fixed[c]; !dup {
				l.fixed[c] = i
			}
			continue
		}
		if rest, ok := strings.CutPrefix(key, "company_"); ok {
			if n, err := strconv.Atoi(rest); err == nil && n > 0 {
				pair(n).company = i
			}
			continue
		}
		if rest, ok := strings.CutPrefix(key, "position_"); ok {
			if n, err := strconv.Atoi(rest); err == nil && n > 0 {
				pair(n).position = i
			}
		}
	}

	var missing []string
	for _, c := range requiredColumns {
		if _, ok := l.fixed[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("header", "missing required column(s): %s", strings.Join(missing, ", "))
	}

	for _, p := range pairs {
		if p.company >= 0 {
			l.companies = append(l.companies, *p)
		}
	}
	sort.Slice(l.companies, func(i, j int) bool { return l.companies[i].n < l.companies[j].n })
	return l, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (l *layout) row(line int, cells []string) RawRow {
	col := func(name string) string {
		idx, ok := l.fixed[name]
		if !ok {
			return ""
		}
		return cell(cells, idx)
	}
	r := RawRow{
		Line:               line,
		Name:               col(ColName),
		Email:              col(ColEmail),
		Phone:              col(ColPhone),
		Age:                col(ColAge),
		ExperienceYears:    col(ColExperienceYears),
		Institute:          col(ColInstitute),
		PreviousExperience: col(ColPreviousExperience),
	}
	for _, p := range l.companies {
		r.Companies = append(r.Companies, CompanyCell{Company: cell(cells, p.company), Position: cell(cells, p.position)})
	}
	return r
}

// ReadWorkbook reads the rows of an .xlsx stream. sheet selects the sheet by
// name; empty means the first sheet. A missing required header is a
// ValidationError returned before any row is looked at. Fully blank rows
// are dropped.
func ReadWorkbook(r io.Reader, sheet string) ([]RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("file", "not a readable xlsx workbook: %v", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperr.Validation("file", "workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperr.Validation("sheet", "cannot read sheet %q: %v", sheet, err)
	}
	if len(rows) == 0 {
		return nil, apperr.Validation("header", "sheet %q is empty", sheet)
	}

	l, err := parseHeader(rows[0])
	if err != nil {
		return nil, err
	}

	out := make([]RawRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		rr := l.row(i+2, cells)
		if rr.blank() {
			continue
		}
		out = append(out, rr)
	}
	return out, nil
}

// parseWhole accepts "25" and spreadsheet renderings such as "25.0".
func parseWhole(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int(f), nil
}

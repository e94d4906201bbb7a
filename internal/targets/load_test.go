// internal/targets/load_test.go
package targets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFromRows(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want []string
	}{
		{
			name: "exact header selects column",
			rows: [][]string{
				{"Company", "URL"},
				{"Acme", " https://acme.example "},
				{"Blank", ""},
				{"Globex", "https://globex.example"},
			},
			want: []string{"https://acme.example", "https://globex.example"},
		},
		{
			name: "priority follows the known names",
			rows: [][]string{
				{"website", "urls"},
				{"https://a.example", "https://b.example"},
			},
			want: []string{"https://b.example"},
		},
		{
			name: "fuzzy header",
			rows: [][]string{
				{"Company", "Websites"},
				{"Acme", "https://acme.example"},
			},
			want: []string{"https://acme.example"},
		},
		{
			name: "no header uses first column",
			rows: [][]string{
				{"https://a.example", "note"},
				{"https://b.example"},
				{"", "orphan"},
			},
			want: []string{"https://a.example", "https://b.example"},
		},
		{
			name: "unrecognised header row is not visited",
			rows: [][]string{
				{"Sites"},
				{"https://a.example"},
				{"b.example"},
			},
			want: []string{"https://a.example", "b.example"},
		},
		{
			name: "blank first row is dropped",
			rows: [][]string{
				{""},
				{"https://a.example"},
			},
			want: []string{"https://a.example"},
		},
		{
			name: "short rows are skipped",
			rows: [][]string{
				{"name", "link"},
				{"only-name"},
				{"x", "https://x.example"},
			},
			want: []string{"https://x.example"},
		},
		{
			name: "empty",
			rows: nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FromRows(tt.rows)); diff != "" {
				t.Errorf("FromRows() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "sites.csv", "name,links\nAcme,https://acme.example\nGlobex, https://globex.example\n")
	urls, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://acme.example", "https://globex.example"}, urls)
}

func TestLoadText(t *testing.T) {
	path := writeFile(t, "sites.txt", "https://a.example\n\n  https://b.example  \n# skipped\n")
	urls, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, urls)
}

func TestLoadWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "WebsiteList.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Name"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "urls"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "Acme"))
	require.NoError(t, f.SetCellValue(sheet, "B2", "https://acme.example"))
	require.NoError(t, f.SetCellValue(sheet, "A3", "Initech"))
	require.NoError(t, f.SetCellValue(sheet, "B3", "https://initech.example"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	urls, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://acme.example", "https://initech.example"}, urls)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "sites.json", "[]"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

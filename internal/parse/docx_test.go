package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/testutil"
)

func cell(text string, props string) string {
	return `<w:tc><w:tcPr>` + props + `</w:tcPr>` + testutil.Para(text) + `</w:tc>`
}

func row(cells ...string) string {
	out := "<w:tr>"
	for _, c := range cells {
		out += c
	}
	return out + "</w:tr>"
}

func table(rows ...string) string {
	out := `<w:tbl><w:tblPr/>`
	for _, r := range rows {
		out += r
	}
	return out + "</w:tbl>"
}

func parseDOCX(t *testing.T, body string) ParseResult {
	t.Helper()
	path := writeFile(t, "contract.docx", testutil.BuildDOCX(body))
	res, err := NewDOCXParser(nil).Parse(context.Background(), path)
	require.NoError(t, err)
	return res
}

func TestDOCXParser_ParagraphsThenTables(t *testing.T) {
	body := testutil.Para("물품구매 계약서") +
		testutil.Para("   ") +
		table(
			row(cell("구분", ""), cell("기간", "")),
			row(cell("착수", ""), cell("2024-03-01", "")),
		) +
		testutil.Para("계약기간: 착수일로부터 90일")

	res := parseDOCX(t, body)
	assert.Equal(t,
		"물품구매 계약서\n\n계약기간: 착수일로부터 90일\n\n\n[표]\n구분 | 기간\n착수 | 2024-03-01",
		res.Text)
	assert.Equal(t, "docx", res.Method)
}

func TestDOCXParser_ConsecutiveDuplicateCellsCollapse(t *testing.T) {
	res := parseDOCX(t, table(row(cell("A", ""), cell("A", ""), cell("B", ""), cell("A", ""))))
	assert.Equal(t, "\n[표]\nA | B | A", res.Text)
}

func TestDOCXParser_MergedCells(t *testing.T) {
	body := table(
		row(cell("단계", ""), cell("설계", `<w:vMerge w:val="restart"/>`), cell("비고", "")),
		row(cell("1차", ""), cell("", `<w:vMerge/>`), cell("검토", "")),
		row(cell("합계", `<w:gridSpan w:val="2"/>`), cell("-", "")),
	)
	res := parseDOCX(t, body)
	assert.Equal(t, "\n[표]\n단계 | 설계 | 비고\n1차 | 설계 | 검토\n합계 | -", res.Text)
}

func TestDOCXParser_EmptyTableOmitted(t *testing.T) {
	body := testutil.Para("본문") + table(row(cell("", ""), cell(" ", "")))
	res := parseDOCX(t, body)
	assert.Equal(t, "본문", res.Text)
}

func TestDOCXParser_RunTabsAndBreaks(t *testing.T) {
	body := `<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr>` +
		`<w:r><w:t>계약금액</w:t><w:tab/><w:t>50,000,000원</w:t><w:br/><w:t>(부가세 포함)</w:t></w:r></w:p>`
	res := parseDOCX(t, body)
	assert.Equal(t, "계약금액\t50,000,000원\n(부가세 포함)", res.Text)
}

func TestDOCXParser_NestedTableFoldsIntoCell(t *testing.T) {
	inner := table(row(cell("세부1", ""), cell("세부2", "")))
	body := table(row(cell("항목", ""), `<w:tc>`+testutil.Para("내역")+inner+`</w:tc>`))
	res := parseDOCX(t, body)
	assert.Equal(t, "\n[표]\n항목 | 내역\n세부1\n세부2", res.Text)
}

func TestDOCXParser_Corrupt(t *testing.T) {
	cases := map[string][]byte{
		"not a zip":       []byte("PK\x03\x04 definitely not a zip archive"),
		"legacy ole .doc": {0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0, 0},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "contract.doc", data)
			_, err := NewDOCXParser(nil).Parse(context.Background(), path)
			assert.ErrorIs(t, err, common.ErrCorruptDocument)
		})
	}
}

func TestRenderTable(t *testing.T) {
	assert.Equal(t, "A | B", renderTable([][]string{{"A", "A", "B"}}))
	assert.Equal(t, "", renderTable([][]string{{"", ""}, {""}}))
	assert.Equal(t, "\nx", renderTable([][]string{{"", ""}, {"x"}}))
}

// Package parser turns the tracuunnt result pages into records.
package parser

import (
	"bytes"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

// Marker phrases the site prints instead of a result table.
const (
	MarkerInsufficientInput = "Bạn chưa nhập đủ các thông tin cần thiết."
	MarkerNoTaxpayer        = "Không tìm thấy người nộp thuế nào phù hợp."
	MarkerNoResult          = "Không tìm thấy kết quả."
	MarkerCaptchaRejected   = "Vui lòng nhập đúng mã xác nhận!"
)

const resultTableSelector = "table.ta_border"

// ErrTableNotFound means the page layout no longer matches what the parser
// knows how to read.
var ErrTableNotFound = errors.New("parser: result table not found")

// Kind classifies a result page.
type Kind int

const (
	KindRecordsFound Kind = iota
	KindInsufficientInput
	KindEmptyResult
	KindCaptchaRejected
)

func (k Kind) String() string {
	switch k {
	case KindRecordsFound:
		return "records_found"
	case KindInsufficientInput:
		return "insufficient_input"
	case KindEmptyResult:
		return "empty_result"
	case KindCaptchaRejected:
		return "captcha_rejected"
	default:
		return "unknown"
	}
}

// Row maps column headers (or field labels) to cell text. The page's column
// order is not kept; JSON output lists keys sorted.
type Row map[string]string

// Outcome is the classification of an outer page. Rows is only set for
// KindRecordsFound.
type Outcome struct {
	Kind Kind
	Rows []Row
}

// Terminal reports whether the outcome ends the search without records.
func (o Outcome) Terminal() bool {
	return o.Kind == KindInsufficientInput || o.Kind == KindEmptyResult
}

// ParseOuter classifies a results page and, when it holds records, reads
// them. Marker phrases are checked before any table lookup and in a fixed
// order since a page may contain more than one of them.
func ParseOuter(body []byte) (Outcome, error) {
	doc, err := newDocument(body)
	if err != nil {
		return Outcome{}, err
	}

	text := doc.Text()
	switch {
	case strings.Contains(text, MarkerInsufficientInput):
		return Outcome{Kind: KindInsufficientInput}, nil
	case strings.Contains(text, MarkerNoTaxpayer), strings.Contains(text, MarkerNoResult):
		return Outcome{Kind: KindEmptyResult}, nil
	case strings.Contains(text, MarkerCaptchaRejected):
		return Outcome{Kind: KindCaptchaRejected}, nil
	}

	table := doc.Find(resultTableSelector).First()
	if table.Length() == 0 {
		return Outcome{}, ErrTableNotFound
	}

	rows := table.Find("tr")
	if rows.Length() < 2 {
		return Outcome{}, ErrTableNotFound
	}
	// last row holds the pagination links
	rows = rows.Slice(0, rows.Length()-1)

	return Outcome{Kind: KindRecordsFound, Rows: readRows(rows)}, nil
}

// ParseInner reads the detail table of a single record, pairing every
// header cell with the data cell that follows it.
func ParseInner(body []byte) (Row, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}

	table := doc.Find(resultTableSelector).First()
	if table.Length() == 0 {
		return nil, ErrTableNotFound
	}

	record := make(Row)
	table.Find("th").Each(func(_ int, th *goquery.Selection) {
		record[cellText(th)] = cellText(th.NextAllFiltered("td").First())
	})
	return record, nil
}

// ParseSubTable reads one of the auxiliary tables of a business record.
func ParseSubTable(body []byte) ([]Row, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}

	rows := doc.Find("tr")
	if rows.Length() == 0 {
		return nil, ErrTableNotFound
	}
	return readRows(rows), nil
}

// readRows uses the th cells of the first row as headers for the td cells of
// the remaining rows. Extra cells on either side are ignored.
func readRows(rows *goquery.Selection) []Row {
	var headers []string
	rows.First().Find("th").Each(func(_ int, s *goquery.Selection) {
		headers = append(headers, cellText(s))
	})

	out := make([]Row, 0, rows.Length()-1)
	rows.Slice(1, rows.Length()).Each(func(_ int, tr *goquery.Selection) {
		row := make(Row, len(headers))
		tr.Find("td").Each(func(i int, td *goquery.Selection) {
			if i < len(headers) {
				row[headers[i]] = cellText(td)
			}
		})
		out = append(out, row)
	})
	return out
}

// cellText returns NFKC-normalized, trimmed text. The site mixes composed
// and decomposed Vietnamese diacritics depending on the rendering path.
func cellText(s *goquery.Selection) string {
	return strings.TrimSpace(norm.NFKC.String(s.Text()))
}

func newDocument(body []byte) (*goquery.Document, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), "")
	if err != nil {
		return goquery.NewDocumentFromReader(bytes.NewReader(body))
	}
	return goquery.NewDocumentFromReader(reader)
}

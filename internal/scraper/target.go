package scraper

import (
	"fmt"
	"regexp"
	"strings"
)

// Locators shared by both lookup pages.
const (
	CaptchaInput    = "//input[@id='captcha']"
	SubmitButton    = "//input[@class='subBtn']"
	DetailLink      = "//a[contains(@href, 'javascript:submitform')]"
	SubTableTrigger = "//input[@value='...']"
)

// CaptchaPattern matches the challenge image request.
var CaptchaPattern = regexp.MustCompile(`.+captcha.png.+`)

// PageLink returns the locator of the pagination link for page n.
func PageLink(n int) string {
	return fmt.Sprintf("//a[@href='javascript:gotoPage(%d)']", n)
}

// SubTable is an auxiliary table reachable from a business detail page.
type SubTable struct {
	Name    string
	Pattern *regexp.Regexp
}

// Target describes one lookup page of the site. The business and personal
// pages share the navigation flow and differ only in this data.
type Target struct {
	Name        string
	SiteURL     string
	PagePattern *regexp.Regexp
	Fields      map[Field]string
	MaxPage     int
	MaxAttempts int
	PageSize    int
	// KeyColumn is the summary column holding the tax number.
	KeyColumn string
	SubTables []SubTable
}

func subTables(names ...string) []SubTable {
	out := make([]SubTable, len(names))
	for i, name := range names {
		out[i] = SubTable{
			Name:    name,
			Pattern: regexp.MustCompile(`.+/` + name + `.jsp$`),
		}
	}
	return out
}

var (
	Business = Target{
		Name:        "business",
		SiteURL:     "http://tracuunnt.gdt.gov.vn/tcnnt/mstdn.jsp",
		PagePattern: regexp.MustCompile(`.+/mstdn.jsp$`),
		Fields: map[Field]string{
			FieldTaxNum:  "//input[@name='mst']",
			FieldName:    "//input[@name='fullname']",
			FieldAddress: "//input[@name='address']",
			FieldIDNum:   "//input[@name='cmt']",
		},
		MaxPage:     9,
		MaxAttempts: 5,
		PageSize:    15,
		KeyColumn:   "MST",
		SubTables: subTables(
			"doanhnghiepchuquan",
			"chinhanh",
			"tructhuoc",
			"daidien",
			"loaithue",
			"nganhkinhdoanh",
		),
	}

	Personal = Target{
		Name:        "personal",
		SiteURL:     "http://tracuunnt.gdt.gov.vn/tcnnt/mstcn.jsp",
		PagePattern: regexp.MustCompile(`.+/mstcn.jsp$`),
		Fields: map[Field]string{
			FieldTaxNum:  "//input[@name='mst1']",
			FieldName:    "//input[@name='fullname1']",
			FieldAddress: "//input[@name='address']",
			FieldIDNum:   "//input[@name='cmt2']",
		},
		MaxPage:     2,
		MaxAttempts: 5,
		PageSize:    15,
		KeyColumn:   "Mã số thuế",
	}
)

// Targets lists the supported lookup pages by name.
var Targets = map[string]Target{
	Business.Name: Business,
	Personal.Name: Personal,
}

// LookupTarget returns the target registered under name.
func LookupTarget(name string) (Target, error) {
	t, ok := Targets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}
	return t, nil
}

package scraper

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nexconsult/tracuunnt-api/internal/captcha"
	"github.com/nexconsult/tracuunnt-api/internal/correlator"
	"github.com/nexconsult/tracuunnt-api/internal/parser"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const siteBase = "http://tracuunnt.gdt.gov.vn/tcnnt/"

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func captchaPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 130, 50))
	for y := 10; y < 35; y++ {
		for x := 15; x < 110; x++ {
			if (x/10)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{A: 255})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// submission is what the fake site sees when a result page is requested.
type submission struct {
	Call   int
	Page   int
	Answer string
	Fields map[string]string
}

// fakeSession simulates the lookup page. Every page load records the page
// response followed by a new captcha image, the way the browser sees it.
type fakeSession struct {
	t         *testing.T
	target    Target
	responses *correlator.Correlator
	captcha   []byte

	// outer renders the result page for a submission; nil drops the response.
	outer func(sub submission) []byte
	inner []byte
	// triggers is the number of sub-table buttons on the detail page.
	triggers int
	subBody  func(name string) []byte
	// backFromCache makes GoBack restore the page without a new captcha load.
	backFromCache bool

	mu          sync.Mutex
	fields      map[string]string
	submissions []submission
	navigations int
	backs       int
	captchaSeq  int
	lastBody    []byte
}

func newFakeSession(t *testing.T, target Target) *fakeSession {
	return &fakeSession{
		t:         t,
		target:    target,
		responses: correlator.New(100 * time.Millisecond),
		captcha:   captchaPNG(t),
		fields:    make(map[string]string),
		inner:     []byte(innerPage("Mã số thuế", "0301234567")),
		subBody: func(name string) []byte {
			return []byte(subPage(name))
		},
	}
}

func (f *fakeSession) Responses() *correlator.Correlator { return f.responses }

func (f *fakeSession) record(url string, body []byte) {
	f.lastBody = body
	f.responses.Record(correlator.Exchange{URL: url, StatusCode: 200, Body: body})
}

func (f *fakeSession) recordCaptcha() {
	f.captchaSeq++
	f.responses.Record(correlator.Exchange{
		URL:  fmt.Sprintf("%scaptcha.png?uid=%d", siteBase, f.captchaSeq),
		Body: f.captcha,
	})
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigations++
	f.record(url, []byte("<html><body><form></form></body></html>"))
	f.recordCaptcha()
	return nil
}

func (f *fakeSession) FillField(_ context.Context, locator, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields[locator] = value
	return nil
}

func (f *fakeSession) Click(_ context.Context, locator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case locator == SubmitButton:
		f.submit(1)
	case strings.HasPrefix(locator, "//a[@href='javascript:gotoPage("):
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(locator, "//a[@href='javascript:gotoPage("), ")']"))
		require.NoError(f.t, err)
		f.submit(n)
	case locator == DetailLink:
		f.record(f.target.SiteURL, f.inner)
	case strings.HasPrefix(locator, "("+SubTableTrigger+")["):
		idx, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(locator, "("+SubTableTrigger+")["), "]"))
		require.NoError(f.t, err)
		name := f.target.SubTables[idx-1].Name
		f.record(siteBase+name+".jsp", f.subBody(name))
	default:
		f.t.Errorf("unexpected click on %s", locator)
	}
	return nil
}

func (f *fakeSession) submit(page int) {
	fields := make(map[string]string, len(f.fields))
	for k, v := range f.fields {
		fields[k] = v
	}
	sub := submission{
		Call:   len(f.submissions),
		Page:   page,
		Answer: f.fields[CaptchaInput],
		Fields: fields,
	}
	f.submissions = append(f.submissions, sub)

	body := f.outer(sub)
	if body == nil {
		return
	}
	f.record(f.target.SiteURL, body)
	f.recordCaptcha()
}

func (f *fakeSession) Count(_ context.Context, locator string) (int, error) {
	require.Equal(f.t, SubTableTrigger, locator)
	return f.triggers, nil
}

func (f *fakeSession) CurrentPageBody(context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody, nil
}

func (f *fakeSession) GoBack(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backs++
	if !f.backFromCache {
		f.recordCaptcha()
	}
	return nil
}

func (f *fakeSession) pages() []int {
	out := make([]int, len(f.submissions))
	for i, s := range f.submissions {
		out[i] = s.Page
	}
	return out
}

type stubSolver struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (string, error)
}

func answerAlways(answer string) *stubSolver {
	return &stubSolver{fn: func(int) (string, error) { return answer, nil }}
}

func (s *stubSolver) Solve(_ context.Context, img *captcha.Image) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if img.Height != captcha.CanvasHeight || img.Width != captcha.CanvasWidth {
		return "", fmt.Errorf("unexpected image shape %dx%d", img.Height, img.Width)
	}
	call := s.calls
	s.calls++
	return s.fn(call)
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveAttempt(_, _, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[outcome]++
}

func outerPage(headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="ta_border"><tr>`)
	for _, h := range headers {
		b.WriteString("<th>" + h + "</th>")
	}
	b.WriteString("</tr>")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>" + cell + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString(`<tr><td><a href="javascript:gotoPage(2)">2</a></td></tr></table></body></html>`)
	return b.String()
}

func numberedRows(page, n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("03%02d%06d", page, i), fmt.Sprintf("CONG TY %d-%d", page, i)}
	}
	return rows
}

func markerPage(marker string) []byte {
	return []byte("<html><body><p>" + marker + "</p></body></html>")
}

func rejectedPage() []byte {
	return markerPage(parser.MarkerCaptchaRejected)
}

func innerPage(label, value string) string {
	return `<html><body><table class="ta_border"><tr><th>` + label + `</th><td>` + value +
		`</td></tr><tr><th>Tên người nộp thuế</th><td>ACME CO</td></tr></table></body></html>`
}

func subPage(name string) string {
	return `<html><body><table><tr><th>STT</th><th>Bảng</th></tr><tr><td>1</td><td>` + name +
		`</td></tr></table></body></html>`
}

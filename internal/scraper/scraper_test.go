package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/nexconsult/tracuunnt-api/internal/captcha"
	"github.com/nexconsult/tracuunnt-api/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var headers = []string{"MST", "Ten"}

func TestPinpointEndToEnd(t *testing.T) {
	session := newFakeSession(t, Personal)
	session.outer = func(sub submission) []byte {
		if sub.Answer != "abc23" {
			return rejectedPage()
		}
		return []byte(outerPage(headers, [][]string{{"0301234567", "ACME CO"}}))
	}
	solver := answerAlways("abc23")

	s := New(Personal, session, solver, testLogger())
	detail, err := s.Pinpoint(context.Background(), TaxNumber("0301234567"))
	require.NoError(t, err)
	require.NotNil(t, detail)

	assert.Equal(t, []parser.Row{{"MST": "0301234567", "Ten": "ACME CO"}}, detail.Outer)
	assert.Equal(t, parser.Row{"Mã số thuế": "0301234567", "Tên người nộp thuế": "ACME CO"}, detail.Inner)
	assert.Nil(t, detail.Sub)

	assert.Equal(t, 1, solver.calls)
	require.Len(t, session.submissions, 1)
	assert.Equal(t, "0301234567", session.submissions[0].Fields["//input[@name='mst1']"])
	assert.Equal(t, "", session.submissions[0].Fields["//input[@name='fullname1']"])
	assert.Equal(t, 1, session.navigations)
}

func TestPinpointAttemptBound(t *testing.T) {
	session := newFakeSession(t, Business)
	session.outer = func(submission) []byte { return rejectedPage() }
	observer := &countingObserver{}

	s := New(Business, session, answerAlways("xxxxx"), testLogger(), WithObserver(observer))
	detail, err := s.Pinpoint(context.Background(), TaxNumber("0301234567"))
	assert.Nil(t, detail)

	var exhausted *AttemptsExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 5, exhausted.Attempts)
	assert.Equal(t, 1, exhausted.Page)
	assert.Equal(t, AttemptRejected, exhausted.LastOutcome)
	assert.Equal(t, ModePinpoint, exhausted.Mode)
	assert.Len(t, session.submissions, 5)
	assert.Equal(t, 5, observer.counts[AttemptRejected])
	assert.True(t, IsAttemptsExhausted(err))
}

func TestPinpointMaxAttemptsOption(t *testing.T) {
	session := newFakeSession(t, Personal)
	session.outer = func(submission) []byte { return rejectedPage() }

	s := New(Personal, session, answerAlways("xxxxx"), testLogger(), WithMaxAttempts(2))
	_, err := s.Pinpoint(context.Background(), TaxNumber("0301234567"))
	require.True(t, IsAttemptsExhausted(err))
	assert.Len(t, session.submissions, 2)
}

func TestPinpointEmptyOutcomes(t *testing.T) {
	for _, marker := range []string{parser.MarkerInsufficientInput, parser.MarkerNoTaxpayer, parser.MarkerNoResult} {
		t.Run(marker, func(t *testing.T) {
			session := newFakeSession(t, Business)
			session.outer = func(submission) []byte { return markerPage(marker) }

			s := New(Business, session, answerAlways("abc23"), testLogger())
			detail, err := s.Pinpoint(context.Background(), TaxNumber("0301234567"))
			require.NoError(t, err)
			assert.Nil(t, detail)
			assert.Len(t, session.submissions, 1)
		})
	}
}

func TestPinpointRetriesAfterRejection(t *testing.T) {
	session := newFakeSession(t, Personal)
	session.outer = func(sub submission) []byte {
		if sub.Call < 3 {
			return rejectedPage()
		}
		return []byte(outerPage(headers, [][]string{{"0301234567", "ACME CO"}}))
	}

	s := New(Personal, session, answerAlways("abc23"), testLogger())
	detail, err := s.Pinpoint(context.Background(), TaxNumber("0301234567"))
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Len(t, session.submissions, 4)
	assert.Equal(t, 1, session.navigations)
}

func TestPinpointBusinessSubTables(t *testing.T) {
	session := newFakeSession(t, Business)
	session.triggers = 6
	session.outer = func(submission) []byte {
		return []byte(outerPage(headers, [][]string{{"0301234567", "ACME CO"}, {"0301234568", "ACME CO 2"}}))
	}

	s := New(Business, session, answerAlways("abc23"), testLogger())
	detail, err := s.Pinpoint(context.Background(), TaxNumber("0301234567"))
	require.NoError(t, err)
	require.NotNil(t, detail)

	require.Len(t, detail.Sub, 6)
	for _, st := range Business.SubTables {
		assert.Equal(t, []parser.Row{{"STT": "1", "Bảng": st.Name}}, detail.Sub[st.Name], st.Name)
	}
	assert.Len(t, detail.Outer, 2)
}

func TestPinpointSubTableTriggerMismatch(t *testing.T) {
	session := newFakeSession(t, Business)
	session.triggers = 5
	session.outer = func(submission) []byte {
		return []byte(outerPage(headers, [][]string{{"0301234567", "ACME CO"}}))
	}

	s := New(Business, session, answerAlways("abc23"), testLogger())
	_, err := s.Pinpoint(context.Background(), TaxNumber("0301234567"))

	var structural *StructureError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, "sub-table triggers", structural.Step)
	assert.Len(t, session.submissions, 1)
}

func TestPinpointUnknownLayoutIsFatal(t *testing.T) {
	session := newFakeSession(t, Personal)
	session.outer = func(submission) []byte { return []byte("<html><body>maintenance</body></html>") }

	s := New(Personal, session, answerAlways("abc23"), testLogger())
	_, err := s.Pinpoint(context.Background(), TaxNumber("0301234567"))

	var structural *StructureError
	require.ErrorAs(t, err, &structural)
	assert.ErrorIs(t, err, parser.ErrTableNotFound)
	assert.Len(t, session.submissions, 1)
}

func TestPinpointSolverFailureSubmitsFallback(t *testing.T) {
	session := newFakeSession(t, Personal)
	session.outer = func(sub submission) []byte {
		if sub.Answer == fallbackAnswer {
			return rejectedPage()
		}
		return []byte(outerPage(headers, [][]string{{"0301234567", "ACME CO"}}))
	}
	solver := &stubSolver{fn: func(call int) (string, error) {
		if call == 0 {
			return "", captcha.ErrSolverUnavailable
		}
		return "abc23", nil
	}}
	observer := &countingObserver{}

	s := New(Personal, session, solver, testLogger(), WithObserver(observer))
	detail, err := s.Pinpoint(context.Background(), TaxNumber("0301234567"))
	require.NoError(t, err)
	require.NotNil(t, detail)

	require.Len(t, session.submissions, 2)
	assert.Equal(t, "22222", session.submissions[0].Answer)
	assert.Equal(t, "abc23", session.submissions[1].Answer)
	assert.Equal(t, 1, observer.counts[AttemptRejected])
	assert.Equal(t, 1, observer.counts[AttemptAccepted])
}

func TestPinpointSolverHardErrorAborts(t *testing.T) {
	session := newFakeSession(t, Personal)
	session.outer = func(submission) []byte { return rejectedPage() }
	boom := errors.New("boom")
	solver := &stubSolver{fn: func(int) (string, error) { return "", boom }}

	s := New(Personal, session, solver, testLogger())
	_, err := s.Pinpoint(context.Background(), TaxNumber("0301234567"))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, session.submissions)
}

func TestPinpointTimeoutReloadsForm(t *testing.T) {
	session := newFakeSession(t, Personal)
	session.outer = func(sub submission) []byte {
		if sub.Call == 0 {
			return nil
		}
		return []byte(outerPage(headers, [][]string{{"0301234567", "ACME CO"}}))
	}
	observer := &countingObserver{}

	s := New(Personal, session, answerAlways("abc23"), testLogger(), WithObserver(observer))
	detail, err := s.Pinpoint(context.Background(), TaxNumber("0301234567"))
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, 2, session.navigations)
	assert.Equal(t, 1, observer.counts[AttemptTimeout])
}

func TestPinpointTimeoutsCountAgainstBudget(t *testing.T) {
	session := newFakeSession(t, Personal)
	session.outer = func(submission) []byte { return nil }

	s := New(Personal, session, answerAlways("abc23"), testLogger(), WithMaxAttempts(3))
	_, err := s.Pinpoint(context.Background(), TaxNumber("0301234567"))

	var exhausted *AttemptsExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, AttemptTimeout, exhausted.LastOutcome)
	assert.Len(t, session.submissions, 3)
}

func TestPinpointCanceledContext(t *testing.T) {
	session := newFakeSession(t, Personal)
	session.outer = func(submission) []byte { return rejectedPage() }
	ctx, cancel := context.WithCancel(context.Background())
	solver := &stubSolver{fn: func(int) (string, error) {
		cancel()
		return "", captcha.ErrSolverUnavailable
	}}

	s := New(Personal, session, solver, testLogger())
	_, err := s.Pinpoint(ctx, TaxNumber("0301234567"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSweepStopsOnShortPage(t *testing.T) {
	session := newFakeSession(t, Business)
	session.outer = func(sub submission) []byte {
		if sub.Page == 6 {
			return []byte(outerPage(headers, numberedRows(sub.Page, 3)))
		}
		return []byte(outerPage(headers, numberedRows(sub.Page, 15)))
	}

	s := New(Business, session, answerAlways("abc23"), testLogger())
	summary, err := s.Sweep(context.Background(), TaxNumber("03"))
	require.NoError(t, err)

	assert.Len(t, summary.Outer, 5*15+3)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, session.pages())
	assert.Equal(t, "0306000002", summary.Outer[len(summary.Outer)-1]["MST"])
}

func TestSweepStopsAtMaxPage(t *testing.T) {
	session := newFakeSession(t, Personal)
	session.outer = func(sub submission) []byte {
		return []byte(outerPage(headers, numberedRows(sub.Page, 15)))
	}

	s := New(Personal, session, answerAlways("abc23"), testLogger())
	summary, err := s.Sweep(context.Background(), TaxNumber("03"))
	require.NoError(t, err)
	assert.Len(t, summary.Outer, 30)
	assert.Equal(t, []int{1, 2}, session.pages())
}

func TestSweepEmptyResult(t *testing.T) {
	session := newFakeSession(t, Business)
	session.outer = func(submission) []byte { return markerPage(parser.MarkerNoTaxpayer) }

	s := New(Business, session, answerAlways("abc23"), testLogger())
	summary, err := s.Sweep(context.Background(), TaxNumber("03"))
	require.NoError(t, err)
	require.NotNil(t, summary.Outer)
	assert.Empty(t, summary.Outer)
}

func TestSweepAttemptsArePerPage(t *testing.T) {
	session := newFakeSession(t, Business)
	perPage := map[int]int{}
	session.outer = func(sub submission) []byte {
		perPage[sub.Page]++
		if perPage[sub.Page] <= 4 {
			return rejectedPage()
		}
		if sub.Page == 1 {
			return []byte(outerPage(headers, numberedRows(1, 15)))
		}
		return []byte(outerPage(headers, numberedRows(2, 3)))
	}

	s := New(Business, session, answerAlways("abc23"), testLogger())
	summary, err := s.Sweep(context.Background(), TaxNumber("03"))
	require.NoError(t, err)
	assert.Len(t, summary.Outer, 18)
	assert.Len(t, session.submissions, 10)
	assert.Equal(t, 4, session.backs, "only rejections past page 1 go back")
}

func TestSweepRetryReusesCaptchaWhenBackLoadsNothing(t *testing.T) {
	session := newFakeSession(t, Business)
	session.backFromCache = true
	rejected := false
	session.outer = func(sub submission) []byte {
		if sub.Page == 2 && !rejected {
			rejected = true
			return rejectedPage()
		}
		if sub.Page == 1 {
			return []byte(outerPage(headers, numberedRows(1, 15)))
		}
		return []byte(outerPage(headers, numberedRows(2, 3)))
	}

	s := New(Business, session, answerAlways("abc23"), testLogger())
	summary, err := s.Sweep(context.Background(), TaxNumber("03"))
	require.NoError(t, err)
	assert.Len(t, summary.Outer, 18)
	assert.Equal(t, 1, session.backs)
	require.Equal(t, []int{1, 2, 2}, session.pages())
	for _, sub := range session.submissions {
		assert.Equal(t, "abc23", sub.Answer, "page %d submitted without a solved captcha", sub.Page)
	}
}

func TestSweepExhaustedOnLaterPage(t *testing.T) {
	session := newFakeSession(t, Business)
	session.outer = func(sub submission) []byte {
		if sub.Page == 2 {
			return rejectedPage()
		}
		return []byte(outerPage(headers, numberedRows(sub.Page, 15)))
	}

	s := New(Business, session, answerAlways("abc23"), testLogger())
	_, err := s.Sweep(context.Background(), TaxNumber("03"))

	var exhausted *AttemptsExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Page)
	assert.Equal(t, 5, exhausted.Attempts)
	assert.Equal(t, ModeSweep, exhausted.Mode)
	assert.Len(t, session.submissions, 6)
}

func TestSweepTimeoutRestartsFromFirstPage(t *testing.T) {
	session := newFakeSession(t, Personal)
	session.outer = func(sub submission) []byte {
		if sub.Call == 1 {
			return nil
		}
		return []byte(outerPage(headers, numberedRows(sub.Page, 15)))
	}

	s := New(Personal, session, answerAlways("abc23"), testLogger())
	summary, err := s.Sweep(context.Background(), TaxNumber("03"))
	require.NoError(t, err)
	assert.Len(t, summary.Outer, 30)
	assert.Equal(t, []int{1, 2, 1, 2}, session.pages())
	assert.Equal(t, 2, session.navigations)
}

func TestScrapeAll(t *testing.T) {
	session := newFakeSession(t, Personal)
	personalHeaders := []string{"Mã số thuế", "Tên người nộp thuế"}
	session.outer = func(sub submission) []byte {
		mst := sub.Fields["//input[@name='mst1']"]
		if mst == "" {
			return []byte(outerPage(personalHeaders, [][]string{{"8000000001", "NGUYEN A"}, {"", "NO KEY"}, {"8000000002", "TRAN B"}}))
		}
		return []byte(outerPage(personalHeaders, [][]string{{mst, "X"}}))
	}

	c, err := NewCriteria(map[string]string{"name": "nguyen"})
	require.NoError(t, err)

	s := New(Personal, session, answerAlways("abc23"), testLogger())
	out, err := s.ScrapeAll(context.Background(), c)
	require.NoError(t, err)

	assert.Len(t, out.Scan, 3)
	require.Len(t, out.Scrape, 2)
	assert.Equal(t, "8000000001", out.Scrape[0].Outer[0]["Mã số thuế"])
	assert.Equal(t, "8000000002", out.Scrape[1].Outer[0]["Mã số thuế"])
	assert.Equal(t, 3, session.navigations)
}

func TestRunDispatch(t *testing.T) {
	session := newFakeSession(t, Personal)
	session.outer = func(submission) []byte { return markerPage(parser.MarkerNoResult) }
	s := New(Personal, session, answerAlways("abc23"), testLogger())

	res, err := s.Run(context.Background(), CommandPinpoint, TaxNumber("1"))
	require.NoError(t, err)
	assert.Equal(t, CommandPinpoint, res.Command)
	assert.Nil(t, res.Result.(*Detail))

	res, err = s.Run(context.Background(), CommandSweep, TaxNumber("1"))
	require.NoError(t, err)
	assert.Empty(t, res.Result.(*Summary).Outer)

	_, err = s.Run(context.Background(), Command("bogus"), TaxNumber("1"))
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

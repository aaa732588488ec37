package correlator

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pagePattern    = regexp.MustCompile(`.+/mstdn.jsp$`)
	captchaPattern = regexp.MustCompile(`.+captcha.png.+`)
)

func TestCaptureReturnsRecordedExchange(t *testing.T) {
	c := New(time.Second)
	c.Record(Exchange{URL: "http://tracuunnt.gdt.gov.vn/tcnnt/mstdn.jsp", Body: []byte("page")})

	ex, err := c.Capture(context.Background(), pagePattern)
	require.NoError(t, err)
	assert.Equal(t, "page", string(ex.Body))
	assert.False(t, ex.ReceivedAt.IsZero())
}

func TestCaptureIgnoresExchangesBeforeReset(t *testing.T) {
	c := New(50 * time.Millisecond)
	c.Record(Exchange{URL: "http://tracuunnt.gdt.gov.vn/tcnnt/mstdn.jsp", Body: []byte("stale")})
	c.Reset()
	assert.Zero(t, c.Len())

	_, err := c.Capture(context.Background(), pagePattern)
	assert.ErrorIs(t, err, ErrResponseTimeout)

	c.Record(Exchange{URL: "http://tracuunnt.gdt.gov.vn/tcnnt/mstdn.jsp", Body: []byte("fresh")})
	ex, err := c.Capture(context.Background(), pagePattern)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(ex.Body))
}

func TestCaptureWaitsForLateExchange(t *testing.T) {
	c := New(2 * time.Second)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(20 * time.Millisecond)
		c.Record(Exchange{URL: "http://tracuunnt.gdt.gov.vn/tcnnt/style.css"})
		time.Sleep(20 * time.Millisecond)
		c.Record(Exchange{URL: "http://tracuunnt.gdt.gov.vn/tcnnt/mstdn.jsp", Body: []byte("late")})
	}()

	ex, err := c.Capture(context.Background(), pagePattern)
	require.NoError(t, err)
	assert.Equal(t, "late", string(ex.Body))
	wg.Wait()
}

func TestCaptureHonoursContext(t *testing.T) {
	c := New(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Capture(ctx, pagePattern)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindLatestScansNewestFirst(t *testing.T) {
	c := New(time.Second)

	_, ok := c.FindLatest(captchaPattern)
	assert.False(t, ok)

	c.Record(Exchange{URL: "http://tracuunnt.gdt.gov.vn/tcnnt/captcha.png?uid=1", Body: []byte("first")})
	c.Record(Exchange{URL: "http://tracuunnt.gdt.gov.vn/tcnnt/mstdn.jsp"})
	c.Record(Exchange{URL: "http://tracuunnt.gdt.gov.vn/tcnnt/captcha.png?uid=2", Body: []byte("second")})
	c.Record(Exchange{URL: "http://tracuunnt.gdt.gov.vn/tcnnt/style.css"})

	ex, ok := c.FindLatest(captchaPattern)
	require.True(t, ok)
	assert.Equal(t, "second", string(ex.Body))
	assert.Equal(t, 4, c.Len())
}

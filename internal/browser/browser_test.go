package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/facilityqa/internal/page"
)

func TestCSSSelector(t *testing.T) {
	tests := []struct {
		by   page.By
		want string
	}{
		{page.ByID("loginName"), `[id="loginName"]`},
		{page.ByID(`a"b`), `[id="a\"b"]`},
		{page.ByName("password"), `[name="password"]`},
		{page.ByClass("field-error"), `[class~="field-error"]`},
		{page.ByCSS("form > button.save"), "form > button.save"},
		{page.ByTag("option"), "option"},
	}
	for _, tt := range tests {
		t.Run(tt.by.String(), func(t *testing.T) {
			got, err := cssSelector(tt.by)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCSSSelectorErrors(t *testing.T) {
	_, err := cssSelector(page.By{Strategy: "link text", Value: "Home"})
	assert.Error(t, err)

	_, err = cssSelector(page.ByCSS("  "))
	assert.Error(t, err)
}

func TestRodKeys(t *testing.T) {
	got, err := rodKeys([]page.Key{page.KeyArrowDown, page.KeyEnter})
	require.NoError(t, err)
	assert.Equal(t, []input.Key{input.ArrowDown, input.Enter}, got)

	_, err = rodKeys([]page.Key{"F13"})
	assert.Error(t, err)
}

func TestPageError(t *testing.T) {
	assert.NoError(t, pageError(nil))

	err := pageError(errors.New("{-32000 Execution context was destroyed. }"))
	assert.ErrorIs(t, err, page.ErrContextLost)

	plain := errors.New("net::ERR_NAME_NOT_RESOLVED")
	assert.Equal(t, plain, pageError(plain))
}

func TestElementError(t *testing.T) {
	assert.NoError(t, elementError(nil))

	for _, msg := range []string{
		"{-32000 Could not find node with given id }",
		"{-32000 Cannot find context with specified id }",
	} {
		assert.ErrorIs(t, elementError(errors.New(msg)), page.ErrStaleElement, msg)
	}

	plain := errors.New("element is covered")
	assert.Equal(t, plain, elementError(plain))
}

func TestDialogTracker(t *testing.T) {
	tr := &dialogTracker{}
	open, _ := tr.state()
	assert.False(t, open)

	tr.set(true, "Delete sample?")
	open, msg := tr.state()
	assert.True(t, open)
	assert.Equal(t, "Delete sample?", msg)

	d := &Driver{dialogs: tr}
	assert.Equal(t, "Delete sample?", d.DialogMessage())

	tr.set(false, "")
	err := d.HandleDialog(context.Background(), true)
	assert.ErrorIs(t, err, page.ErrNoDialog)
}

func TestUntilReturnsWhenDialogOpens(t *testing.T) {
	tr := &dialogTracker{}
	release := make(chan struct{})
	defer close(release)

	time.AfterFunc(30*time.Millisecond, func() { tr.set(true, "Discard sample?") })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	err := tr.until(ctx, func() error {
		<-release
		return errors.New("released")
	})
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestUntilReturnsResult(t *testing.T) {
	tr := &dialogTracker{}
	boom := errors.New("element is covered")
	assert.Equal(t, boom, tr.until(context.Background(), func() error { return boom }))
	assert.NoError(t, tr.until(context.Background(), func() error { return nil }))

	var none *dialogTracker
	assert.NoError(t, none.until(context.Background(), func() error { return nil }))
}

func TestUntilHonoursContext(t *testing.T) {
	tr := &dialogTracker{}
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := tr.until(ctx, func() error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

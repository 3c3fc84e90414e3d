package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, ExitSuccess, exitCode(nil))
	assert.Equal(t, ExitError, exitCode(base))
	assert.Equal(t, ExitDataError, exitCode(withExit(ExitDataError, base)))
	assert.Equal(t, ExitConfigError, exitCode(fmt.Errorf("wrapped: %w", withExit(ExitConfigError, base))))
	assert.ErrorIs(t, withExit(ExitDataError, base), base)
	assert.NoError(t, withExit(ExitDataError, nil))
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	code := (&app{}).reportError(&buf, withExit(ExitDataError, errors.New("bad csv")))
	assert.Equal(t, ExitDataError, code)
	assert.JSONEq(t, `{"error":"bad csv","code":3}`, buf.String())

	buf.Reset()
	code = (&app{human: true}).reportError(&buf, errors.New("oops"))
	assert.Equal(t, ExitError, code)
	assert.Equal(t, "error: oops\n", buf.String())
}

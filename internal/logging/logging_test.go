package logging

import (
	"testing"

	"github.com/matryer/is"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	is := is.New(t)

	log, err := New("warn", "json")
	is.NoErr(err)
	is.True(!log.Core().Enabled(zapcore.InfoLevel))
	is.True(log.Core().Enabled(zapcore.WarnLevel))

	log, err = New("debug", "console")
	is.NoErr(err)
	is.True(log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	is := is.New(t)

	_, err := New("loud", "json")
	is.True(err != nil)

	_, err = New("info", "xml")
	is.True(err != nil)
}

package logging

import (
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	is := is.New(t)
	is.Equal(ParseLevel("debug"), zerolog.DebugLevel)
	is.Equal(ParseLevel("warning"), zerolog.WarnLevel)
	is.Equal(ParseLevel("error"), zerolog.ErrorLevel)
	is.Equal(ParseLevel("nonsense"), zerolog.InfoLevel)
}

func TestLevelFromVerbosity(t *testing.T) {
	is := is.New(t)
	is.Equal(LevelFromVerbosity(0, "warn"), "warn")
	is.Equal(LevelFromVerbosity(1, "warn"), "debug")
	is.Equal(LevelFromVerbosity(3, "warn"), "trace")
}

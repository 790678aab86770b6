package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datacentricdesign/profile-api/internal/logger"
)

func restoreGlobals(t *testing.T) {
	t.Helper()

	prev, level := log.Logger, zerolog.GlobalLevel()

	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(level)
	})
}

func fileConfig(dir, level string) logger.Log {
	return logger.Log{
		LogLevel:    level,
		LogEnv:      "test",
		AppName:     "profile-api",
		ServiceName: "profile",
		File: logger.LogFile{
			Enabled:   true,
			Path:      dir,
			AccessLog: "access.log",
			ErrorLog:  "error.log",
			InfoLog:   "info.log",
			TraceLog:  "trace.log",
			WarnLog:   "warn.log",
		},
	}
}

func readLines(t *testing.T, file string) []map[string]any {
	t.Helper()

	raw, err := os.ReadFile(file)
	if os.IsNotExist(err) {
		return nil
	}

	require.NoError(t, err)

	var out []map[string]any

	for _, l := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if l == "" {
			continue
		}

		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &m), "not json: %s", l)
		out = append(out, m)
	}

	return out
}

func TestInitRollingFiles(t *testing.T) {
	restoreGlobals(t)

	dir := t.TempDir()
	require.NoError(t, logger.Init(fileConfig(dir, "info")))

	log.Info().Str("person", "dcd:persons:alice").Msg("signin accepted")
	log.Warn().Msg("consent skipped")
	log.Error().Err(errors.New("connection refused")).Msg("keto policy update failed")
	log.Debug().Msg("below the level")

	info := readLines(t, filepath.Join(dir, "info.log"))
	require.Len(t, info, 1)
	assert.Equal(t, "signin accepted", info[0]["message"])
	assert.Equal(t, "profile-api", info[0]["app"])
	assert.Equal(t, "profile", info[0]["service"])
	assert.Equal(t, "test", info[0]["env"])
	assert.Equal(t, "dcd:persons:alice", info[0]["person"])

	warn := readLines(t, filepath.Join(dir, "warn.log"))
	require.Len(t, warn, 1)
	assert.Equal(t, "consent skipped", warn[0]["message"])

	errs := readLines(t, filepath.Join(dir, "error.log"))
	require.Len(t, errs, 1)
	assert.Equal(t, "connection refused", errs[0]["error"])

	assert.Empty(t, readLines(t, filepath.Join(dir, "trace.log")))
}

func TestInitTraceAddsStack(t *testing.T) {
	restoreGlobals(t)

	dir := t.TempDir()
	require.NoError(t, logger.Init(fileConfig(dir, "trace")))

	log.Trace().Err(pkgerrors.New("introspection failed")).Msg("introspection trace")

	trace := readLines(t, filepath.Join(dir, "trace.log"))
	require.Len(t, trace, 1)
	assert.Contains(t, trace[0], "stack")
}

func TestInitNoWriters(t *testing.T) {
	restoreGlobals(t)

	require.NoError(t, logger.Init(logger.Log{LogLevel: "info", AppName: "a", ServiceName: "s"}))
	assert.NotPanics(t, func() { log.Info().Msg("dropped") })
}

func TestLevelWriter(t *testing.T) {
	var errBuf, infoBuf, traceBuf, warnBuf bytes.Buffer

	lw := &logger.LevelWriter{
		ErrorWriter: &errBuf,
		InfoWriter:  &infoBuf,
		TraceWriter: &traceBuf,
		WarnWriter:  &warnBuf,
	}

	testCases := []struct {
		level zerolog.Level
		want  *bytes.Buffer
	}{
		{zerolog.TraceLevel, &traceBuf},
		{zerolog.DebugLevel, &infoBuf},
		{zerolog.InfoLevel, &infoBuf},
		{zerolog.WarnLevel, &warnBuf},
		{zerolog.ErrorLevel, &errBuf},
		{zerolog.FatalLevel, &errBuf},
	}

	for _, tc := range testCases {
		t.Run(tc.level.String(), func(t *testing.T) {
			errBuf.Reset()
			infoBuf.Reset()
			traceBuf.Reset()
			warnBuf.Reset()

			_, err := lw.WriteLevel(tc.level, []byte("x"))
			if err != nil {
				t.Fatal(err)
			}

			if tc.want.String() != "x" {
				t.Errorf("level %s was not routed to the expected writer", tc.level)
			}
		})
	}

	n, err := lw.WriteLevel(zerolog.Disabled, []byte("x"))
	if n != 0 || err != nil {
		t.Errorf("disabled level should write nothing, got n=%d err=%v", n, err)
	}
}

func TestInitValidation(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     logger.Log
		wantErr error
	}{
		{
			name:    "missing service name",
			cfg:     logger.Log{LogLevel: "info", AppName: "test"},
			wantErr: logger.ErrServiceNameIsEmpty,
		},
		{
			name:    "missing app name",
			cfg:     logger.Log{LogLevel: "info", ServiceName: "test"},
			wantErr: logger.ErrAppNameIsEmpty,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := logger.Init(tc.cfg); !errors.Is(err, tc.wantErr) {
				t.Errorf("Init() error = %v, want %v", err, tc.wantErr)
			}
		})
	}

	if err := logger.Init(logger.Log{LogLevel: "loud", AppName: "test", ServiceName: "test"}); err == nil {
		t.Error("Init() should reject an unknown log level")
	}
}

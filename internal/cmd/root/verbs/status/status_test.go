package status

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forfeit-cli/forfeit/internal/cmd/common"
	"github.com/forfeit-cli/forfeit/internal/config"
	"github.com/forfeit-cli/forfeit/internal/iostreams"
	"github.com/forfeit-cli/forfeit/internal/timer"
	"github.com/forfeit-cli/forfeit/test/cmd"
	testConfig "github.com/forfeit-cli/forfeit/test/config"
)

type nopHandler struct{}

func (nopHandler) OnComplete(context.Context, string) error { return nil }
func (nopHandler) OnFail(context.Context, string, timer.FailReason) error {
	return nil
}

func newHelper(t *testing.T, engine *timer.Engine, streams *iostreams.IOStreams) *cmd.MockHelper {
	t.Helper()
	return &cmd.MockHelper{
		GetConfigMock: func() (config.Hook, error) {
			return &testConfig.MockConfigHook{}, nil
		},
		GetLoggerMock: func() (*slog.Logger, error) {
			return slog.New(slog.NewTextHandler(io.Discard, nil)), nil
		},
		GetOutputFormatMock: func() (common.OutputFormat, error) {
			return common.JSON, nil
		},
		GetStreamsMock: func() *iostreams.IOStreams { return streams },
		GetEngineMock: func(config.Hook, *slog.Logger, timer.Presenter) (*timer.Engine, error) {
			return engine, nil
		},
	}
}

func Test_StatusCmdIdle(t *testing.T) {
	all, _, out, _ := iostreams.NewTestIOStreams()
	engine, err := timer.NewEngine(timer.EngineOptions{
		Store:   timer.NewFileStore(filepath.Join(t.TempDir(), "timer.json")),
		Handler: nopHandler{},
	})
	require.NoError(t, err)

	require.NoError(t, run(newHelper(t, engine, &all)))
	assert.Contains(t, out.String(), "idle")
}

func Test_StatusCmdRunning(t *testing.T) {
	all, _, out, _ := iostreams.NewTestIOStreams()
	engine, err := timer.NewEngine(timer.EngineOptions{
		Store:   timer.NewFileStore(filepath.Join(t.TempDir(), "timer.json")),
		Handler: nopHandler{},
	})
	require.NoError(t, err)
	_, err = engine.Start("/tmp/drafts/chapter-1.md", 30*time.Minute)
	require.NoError(t, err)

	require.NoError(t, run(newHelper(t, engine, &all)))
	assert.Contains(t, out.String(), "running")
	assert.Contains(t, out.String(), "chapter-1.md")
}

package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/forfeit-cli/forfeit/internal/build"
	"github.com/forfeit-cli/forfeit/internal/cmd/common"
	"github.com/forfeit-cli/forfeit/internal/cmd/root/verbs"
	"github.com/forfeit-cli/forfeit/internal/config"
	"github.com/forfeit-cli/forfeit/internal/iostreams"
	"github.com/forfeit-cli/forfeit/internal/timer"
)

type MockHelper struct {
	GetCmdMock          func() *cobra.Command
	GetArgsMock         func() []string
	GetVerbMock         func() (verbs.VerbValue, error)
	GetStreamsMock      func() *iostreams.IOStreams
	GetConfigMock       func() (config.Hook, error)
	GetOutputFormatMock func() (common.OutputFormat, error)
	GetLoggerMock       func() (*slog.Logger, error)
	GetBuildInfoMock    func() (*build.Info, error)
	GetContextMock      func() context.Context
	GetEngineMock       func(cfg config.Hook, logger *slog.Logger, presenter timer.Presenter) (*timer.Engine, error)
}

func (m *MockHelper) GetCmd() *cobra.Command {
	return m.GetCmdMock()
}

func (m *MockHelper) GetArgs() []string {
	if m.GetArgsMock != nil {
		return m.GetArgsMock()
	}
	return nil
}

func (m *MockHelper) GetVerb() (verbs.VerbValue, error) {
	return m.GetVerbMock()
}

func (m *MockHelper) GetStreams() *iostreams.IOStreams {
	return m.GetStreamsMock()
}

func (m *MockHelper) GetConfig() (config.Hook, error) {
	return m.GetConfigMock()
}

func (m *MockHelper) GetOutputFormat() (common.OutputFormat, error) {
	return m.GetOutputFormatMock()
}

func (m *MockHelper) GetLogger() (*slog.Logger, error) {
	return m.GetLoggerMock()
}

func (m *MockHelper) GetBuildInfo() (*build.Info, error) {
	return m.GetBuildInfoMock()
}

func (m *MockHelper) GetContext() context.Context {
	if m.GetContextMock != nil {
		return m.GetContextMock()
	}
	return context.Background()
}

func (m *MockHelper) GetEngine(cfg config.Hook, logger *slog.Logger, presenter timer.Presenter) (*timer.Engine, error) {
	return m.GetEngineMock(cfg, logger, presenter)
}

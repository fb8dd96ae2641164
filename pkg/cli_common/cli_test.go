package clicommon

import (
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/klothoplatform/platform/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLevelledFlag(t *testing.T) {
	tests := []struct {
		name    string
		sets    []string
		want    LevelledFlag
		wantErr bool
	}{
		{name: "once", sets: []string{"true"}, want: 1},
		{name: "repeated", sets: []string{"true", "true", "true"}, want: 3},
		{name: "false decrements", sets: []string{"true", "true", "false"}, want: 1},
		{name: "false at zero", sets: []string{"false"}, want: 0},
		{name: "explicit level", sets: []string{"2"}, want: 2},
		{name: "invalid", sets: []string{"loud"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f LevelledFlag
			var err error
			for _, s := range tt.sets {
				err = f.Set(s)
			}
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)
			assert.Equal(t, "levelled_flag", f.Type())
		})
	}
}

func TestCommonConfig_LogOpts(t *testing.T) {
	cfg := &CommonConfig{Color: "never"}
	opts := cfg.LogOpts()
	assert.False(t, opts.Verbose)
	assert.Equal(t, "never", opts.Color)
	assert.Equal(t, zap.InfoLevel, opts.Levels["component"])

	cfg.Verbose = 1
	cfg.JsonLog = true
	opts = cfg.LogOpts()
	assert.True(t, opts.Verbose)
	assert.Equal(t, "json", opts.Encoding)
	assert.Contains(t, opts.Levels, "component")

	cfg.Verbose = 2
	assert.Empty(t, cfg.LogOpts().Levels)
}

func TestSetupRoot(t *testing.T) {
	prev, noColor := zap.L(), color.NoColor
	t.Cleanup(func() {
		zap.ReplaceGlobals(prev)
		color.NoColor = noColor
	})

	var cfg CommonConfig
	var ctxLogger *zap.Logger
	root := &cobra.Command{
		Use: "test",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctxLogger = logging.GetLogger(cmd.Context())
			return nil
		},
	}
	SetupRoot(root, &cfg)
	root.SetArgs([]string{"-v", "-v", "--color", "never"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	assert.Equal(t, LevelledFlag(2), cfg.Verbose)
	assert.Same(t, zap.L(), ctxLogger)
	assert.True(t, color.NoColor)
}

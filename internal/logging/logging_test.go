package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid defaults",
			cfg:  NewDefaultConfig(),
		},
		{
			name: "valid console debug",
			cfg:  Config{Level: "debug", Format: "console"},
		},
		{
			name:    "bad format",
			cfg:     Config{Level: "info", Format: "text"},
			wantErr: "format must be",
		},
		{
			name:    "bad level",
			cfg:     Config{Level: "verbose", Format: "json"},
			wantErr: "invalid level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New(NewDefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("hello")
	_ = logger.Sync()
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "nope", Format: "json"})
	require.Error(t, err)
}

package logger

import (
	"testing"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
	}{
		{name: "JSON output mode", jsonOutput: true},
		{name: "Console output mode", jsonOutput: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			if err := Initialize(tt.jsonOutput); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			if Logger == nil {
				t.Fatal("Initialize() did not set global Logger")
			}
			if JSONOutput != tt.jsonOutput {
				t.Errorf("Initialize() JSONOutput = %v, want %v", JSONOutput, tt.jsonOutput)
			}

			ComponentLogger("test").Infow("component message", FieldCount, 1)
			Infow("message", FieldOperation, "initialize")
		})
	}
}

func TestHelpersTolerateNilLogger(t *testing.T) {
	Logger = nil
	defer func() { _ = Initialize(false) }()

	Infow("ignored")
	Warnw("ignored")
	Errorw("ignored")
	Debugw("ignored")
	Cleanup()
}

package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestHelperProcess is not a real test. It stands in for an external
// processor when re-executed by helperCommand.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	in, _ := io.ReadAll(os.Stdin)
	var req processRequest
	if err := json.Unmarshal(in, &req); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(3)
	}

	switch os.Getenv("HELPER_MODE") {
	case "echo":
		out := fmt.Sprintf("%s|%s|%d items|%s", req.Name, req.Locale.Tag, len(req.Items), req.Locale.XML)
		json.NewEncoder(os.Stdout).Encode(map[string]any{
			"result": map[string]any{"ok": out},
			"logs": []map[string]string{
				{"level": "warn", "message": "style quirk"},
				{"level": "fatal", "message": "clamped"},
			},
		})
	case "err":
		fmt.Fprint(os.Stdout, `{"result":{"err":"no printed form"}}`)
	case "garbage":
		fmt.Fprint(os.Stdout, "not json")
	case "crash":
		fmt.Fprint(os.Stderr, "segfault-ish")
		os.Exit(2)
	}
}

func helperCommand(t *testing.T, mode string) []string {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("HELPER_MODE", mode)
	return []string{os.Args[0], "-test.run=TestHelperProcess", "--"}
}

func TestProcess_Echo(t *testing.T) {
	p, err := NewProcess(helperCommand(t, "echo"))
	require.NoError(t, err)

	f := library()
	cfg, err := NewRunConfig(f)
	require.NoError(t, err)

	log, logs := observed()
	out, err := p.Run(cfg, adapter(f), log).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "lib.yml|en-US|2 items|<locale/>", out)

	require.Equal(t, 1, logs.FilterMessage("style quirk").Len())
	assert.Equal(t, zapcore.WarnLevel, logs.FilterMessage("style quirk").All()[0].Level)
	clamped := logs.FilterMessage("clamped").All()
	require.Len(t, clamped, 1)
	assert.Equal(t, zapcore.ErrorLevel, clamped[0].Level)
}

func TestProcess_Failures(t *testing.T) {
	tests := []struct {
		mode    string
		wantErr error
		msg     string
	}{
		{mode: "err", msg: "no printed form"},
		{mode: "garbage", wantErr: ErrProcessFailed, msg: "decode response"},
		{mode: "crash", wantErr: ErrProcessFailed, msg: "segfault-ish"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			p, err := NewProcess(helperCommand(t, tt.mode))
			require.NoError(t, err)

			f := library()
			cfg, err := NewRunConfig(f)
			require.NoError(t, err)

			log, _ := observed()
			res := p.Run(cfg, adapter(f), log)
			require.True(t, res.IsNone())
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Err(), tt.wantErr)
			}
			assert.Contains(t, res.Err().Error(), tt.msg)
		})
	}
}

func TestNewProcess_EmptyCommand(t *testing.T) {
	_, err := NewProcess(nil)
	assert.Error(t, err)
	_, err = NewProcess([]string{""})
	assert.Error(t, err)
}

package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/citefix/pkg/fixture"
	"github.com/mesh-intelligence/citefix/pkg/result"
	"github.com/mesh-intelligence/citefix/pkg/retrieve"
)

// ProcessName is the registry name of Process.
const ProcessName = "process"

// Process runs an external processor per fixture. The request is written to
// the child's stdin as JSON; the child answers on stdout with
//
//	{"result": {"ok": "..."} | {"err": "..."}, "logs": [{"level": "warn", "message": "..."}]}
//
// Items and the locale are resolved through the Retriever before the child
// starts, since the child cannot call back into the harness.
type Process struct {
	command []string
}

// NewProcess returns a Process engine running argv.
func NewProcess(argv []string) (*Process, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errors.New("process engine: empty command")
	}
	return &Process{command: append([]string(nil), argv...)}, nil
}

// Name implements Engine.
func (p *Process) Name() string { return ProcessName }

// processRequest is the stdin payload.
type processRequest struct {
	RunConfig
	Items  []fixture.Item `json:"items"`
	Locale processLocale  `json:"locale"`
}

type processLocale struct {
	Tag string `json:"tag"`
	XML string `json:"xml"`
}

// processResponse is the stdout payload.
type processResponse struct {
	Result result.Result[string] `json:"result"`
	Logs   []processLog          `json:"logs"`
}

type processLog struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Run implements Engine.
func (p *Process) Run(cfg RunConfig, r retrieve.Retriever, log *zap.Logger) result.Result[string] {
	tag := cfg.Locale()
	xml, err := r.RetrieveLocale(tag)
	if err != nil {
		log.Error("locale unavailable", zap.String("locale", tag), zap.Error(err))
		return result.Err[string](err)
	}

	req := processRequest{RunConfig: cfg, Locale: processLocale{Tag: tag, XML: xml}}
	for _, it := range cfg.Input {
		id, ok := it.ID()
		if !ok {
			continue
		}
		if resolved, ok := r.RetrieveItem(id); ok {
			req.Items = append(req.Items, resolved)
		}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return result.Err[string](fmt.Errorf("encode request: %w", err))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(p.command[0], p.command[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("starting engine process", zap.Strings("argv", p.command))
	if err := cmd.Run(); err != nil {
		return result.Err[string](fmt.Errorf("%w: %v: %s", ErrProcessFailed, err, strings.TrimSpace(stderr.String())))
	}

	var resp processResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return result.Err[string](fmt.Errorf("%w: decode response: %v", ErrProcessFailed, err))
	}
	for _, l := range resp.Logs {
		lvl, err := zapcore.ParseLevel(l.Level)
		if err != nil {
			lvl = zapcore.InfoLevel
		}
		// A child must not be able to panic or exit the harness.
		if lvl > zapcore.ErrorLevel {
			lvl = zapcore.ErrorLevel
		}
		if ce := log.Check(lvl, l.Message); ce != nil {
			ce.Write(zap.String("source", ProcessName))
		}
	}
	return resp.Result
}

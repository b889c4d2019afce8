package prehook

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/whaleinit/whaleinit/internal/model"
)

// Kind tags how a prehook's captured stdout was interpreted.
type Kind int

const (
	Ignored Kind = iota
	Text
	Structured
)

// Result is the interpreted output of one prehook invocation.
type Result struct {
	Kind       Kind
	Text       string
	Structured any
}

// Value returns what the template context sees for this result: the
// decoded JSON value, the raw text, or nil for an ignored output.
func (r Result) Value() any {
	switch r.Kind {
	case Structured:
		return r.Structured
	case Text:
		return r.Text
	default:
		return nil
	}
}

// Run executes the hooks one-shot, in order, before any template renders.
// Results are keyed by hook title. Any failure — spawn error, nonzero
// exit, timeout, undecodable JSON — aborts with a model.PrehookError,
// since templates must not render from garbage.
func Run(ctx context.Context, logger *slog.Logger, hooks []model.Prehook) (map[string]Result, error) {
	results := make(map[string]Result, len(hooks))
	for _, hook := range hooks {
		res, err := run(ctx, logger, hook)
		if err != nil {
			return nil, &model.PrehookError{Hook: hook.Title, Err: err}
		}
		results[hook.Title] = res
	}
	return results, nil
}

func run(ctx context.Context, logger *slog.Logger, hook model.Prehook) (Result, error) {
	if hook.Timeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hook.Timeout.Duration)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, hook.Exec, hook.Args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, err
	}

	logger.InfoContext(ctx, "running prehook", "prehook", hook.Title, "output", outputKind(hook))
	if err := cmd.Start(); err != nil {
		return Result{}, err
	}

	// drain stderr before Wait closes the pipe
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		logger.InfoContext(ctx, "log", "prehook", hook.Title, "stream", "stderr", "line", scanner.Text())
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		logger.ErrorContext(ctx, "processing stderr", "prehook", hook.Title, "error", err)
	}

	if err := cmd.Wait(); err != nil {
		return Result{}, err
	}

	switch outputKind(hook) {
	case model.OutputIgnore:
		return Result{Kind: Ignored}, nil
	case model.OutputJSON:
		var v any
		if err := json.Unmarshal(stdout.Bytes(), &v); err != nil {
			return Result{}, fmt.Errorf("decoding output as JSON: %w", err)
		}
		return Result{Kind: Structured, Structured: v}, nil
	default:
		return Result{Kind: Text, Text: strings.TrimRight(stdout.String(), "\n")}, nil
	}
}

func outputKind(hook model.Prehook) string {
	if hook.Output == "" {
		return model.OutputText
	}
	return hook.Output
}

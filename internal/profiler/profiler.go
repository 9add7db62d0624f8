// Package profiler runs an out-of-process hardware inventory tool and
// exposes its JSON output as a typed document.
//
// Queries block for the lifetime of the child process, which is routinely
// several hundred milliseconds and can reach seconds for storage and
// display categories. Callers must run them from a background goroutine.
package profiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrInventoryUnavailable is returned when the inventory tool cannot be
// started, exits with an error, times out or prints an unparsable document
var ErrInventoryUnavailable = errors.New("inventory unavailable")

const (
	DefaultCommand = "system_profiler"
	DefaultTimeout = 30 * time.Second
)

// DefaultArgs precede the category selectors on every invocation
var DefaultArgs = []string{"-json", "-detailLevel", "mini"}

// Runner executes name with args and returns its standard output and
// standard error separately
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// Profiler invokes the inventory tool
type Profiler struct {
	command string
	args    []string
	timeout time.Duration
	run     Runner
	log     *logrus.Entry
}

// Option configures a Profiler
type Option func(*Profiler)

// WithCommand overrides the tool binary and its leading arguments
func WithCommand(command string, args ...string) Option {
	return func(p *Profiler) {
		p.command = command
		p.args = args
	}
}

// WithTimeout bounds each invocation
func WithTimeout(timeout time.Duration) Option {
	return func(p *Profiler) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithRunner replaces process execution, mainly for tests
func WithRunner(run Runner) Option {
	return func(p *Profiler) {
		p.run = run
	}
}

// New creates a Profiler for the default system_profiler invocation
func New(log *logrus.Entry, opts ...Option) *Profiler {
	p := &Profiler{
		command: DefaultCommand,
		args:    DefaultArgs,
		timeout: DefaultTimeout,
		run:     execRunner,
		log:     log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Query runs the tool for the given categories and parses its output.
// Categories are a set: duplicates are dropped and order is normalized.
func (p *Profiler) Query(ctx context.Context, categories ...string) (Value, error) {
	selectors := normalizeCategories(categories)
	args := append(append([]string{}, p.args...), selectors...)

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()
	stdout, stderr, err := p.run(runCtx, p.command, args...)
	elapsed := time.Since(started)
	if err != nil {
		if runCtx.Err() != nil {
			err = runCtx.Err()
		}
		return Value{}, fmt.Errorf("%w: %s %s: %v: %s", ErrInventoryUnavailable,
			p.command, strings.Join(selectors, ","), err, strings.TrimSpace(string(stderr)))
	}

	doc, err := Decode(stdout)
	if err != nil {
		return Value{}, fmt.Errorf("%w: failed to parse %s output: %v", ErrInventoryUnavailable, p.command, err)
	}

	p.log.WithFields(logrus.Fields{
		"categories": strings.Join(selectors, ","),
		"elapsed":    elapsed.Round(time.Millisecond),
	}).Debug("Inventory query completed")

	return doc, nil
}

func normalizeCategories(categories []string) []string {
	seen := make(map[string]bool, len(categories))
	out := make([]string, 0, len(categories))
	for _, category := range categories {
		category = strings.TrimSpace(category)
		if category == "" || seen[category] {
			continue
		}
		seen[category] = true
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

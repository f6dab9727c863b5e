package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/optengine/internal/errs"
	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
	"github.com/GoSim-25-26J-441/optengine/pkg/simresult"
)

// OutputFormat names the expected shape of a subprocess model's output.
type OutputFormat string

const (
	FormatCSV  OutputFormat = "csv"
	FormatJSON OutputFormat = "json"
)

// SubprocessConfig configures a SubprocessBackend.
type SubprocessConfig struct {
	Command      string
	ParamFormat  string // e.g. "--{name} {value}"
	OutputFormat OutputFormat
	OutputFile   string // optional; empty means capture stdout
	WorkingDir   string
	Env          []string
}

// SubprocessBackend runs a simulation as a child process and parses its
// stdout or a named output file into the standard tabular form.
type SubprocessBackend struct {
	cfg SubprocessConfig
}

// NewSubprocessBackend returns a Dispatcher that shells out per call.
func NewSubprocessBackend(cfg SubprocessConfig) *SubprocessBackend {
	if cfg.ParamFormat == "" {
		cfg.ParamFormat = "--{name} {value}"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = FormatCSV
	}
	return &SubprocessBackend{cfg: cfg}
}

// buildCommand expands ParamFormat per parameter and, if outfile is set,
// substitutes it for a literal "{outfile}" placeholder in Command — letting
// a subprocess be told exactly which (uniquely-named) file to write its
// result to, so concurrent workers never collide on a shared path.
func (b *SubprocessBackend) buildCommand(vec paramspace.Vector, outfile string) string {
	names := make([]string, 0, len(vec))
	for name := range vec {
		names = append(names, name)
	}
	sort.Strings(names)

	fragments := make([]string, 0, len(names))
	for _, name := range names {
		frag := b.cfg.ParamFormat
		frag = strings.ReplaceAll(frag, "{name}", name)
		frag = strings.ReplaceAll(frag, "{value}", formatValue(vec[name]))
		fragments = append(fragments, frag)
	}

	cmdStr := b.cfg.Command
	if len(fragments) > 0 {
		cmdStr = cmdStr + " " + strings.Join(fragments, " ")
	}
	if outfile != "" {
		cmdStr = strings.ReplaceAll(cmdStr, "{outfile}", outfile)
	}
	return cmdStr
}

// formatValue renders a parameter value per the subprocess protocol: floats
// use the shortest round-tripping representation, integers decimal, booleans
// lower-case, categoricals (including strings) as-is.
func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", x)
	}
}

func (b *SubprocessBackend) Run(ctx context.Context, vec paramspace.Vector) (*simresult.Result, error) {
	outfile := ""
	if b.cfg.OutputFile != "" {
		outfile = strings.ReplaceAll(b.cfg.OutputFile, "{run}", uuid.NewString())
	}
	cmdStr := b.buildCommand(vec, outfile)

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	cmd.Dir = b.cfg.WorkingDir
	if len(b.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), b.cfg.Env...)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, errs.New(errs.Timeout, "simulation exceeded per-call deadline")
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, errs.New(errs.Cancelled, "simulation cancelled")
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return nil, errs.Wrap(errs.ExitNonzero, stderr.String(), runErr)
		}
		return nil, errs.Wrap(errs.SpawnFailed, "failed to start subprocess", runErr)
	}

	var raw []byte
	if outfile != "" {
		data, err := os.ReadFile(outfile)
		if err != nil {
			return nil, errs.Wrap(errs.ParseFailed, "failed to read output file", err)
		}
		raw = data
		_ = os.Remove(outfile)
	} else {
		raw = stdout.Bytes()
	}

	table, kpis, err := parseOutput(b.cfg.OutputFormat, raw)
	if err != nil {
		return nil, errs.Wrap(errs.ParseFailed, "failed to parse simulation output", err)
	}

	return simresult.NewResult(table, kpis, nil, vec), nil
}

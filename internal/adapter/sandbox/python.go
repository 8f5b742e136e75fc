package sandbox

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"gitlab.com/offlinejudge.net/internal/config"
	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/core/ports/secondary"
	"gitlab.com/offlinejudge.net/internal/domain"
	"gitlab.com/offlinejudge.net/internal/static/errs"
)

//go:embed harness.py
var harnessSource string

const (
	stderrLimit = 4 * 1024
	// exitWait bounds how long a dead interpreter gets to report its status
	exitWait = time.Second
)

var (
	_ secondary.CandidateLoader = (*PythonLoader)(nil)
	_ io.Closer                 = (*pythonCandidate)(nil)
)

// PythonLoader runs every loaded candidate in its own CPython process.
// The process holds the candidate's module scope for all of its calls.
type PythonLoader struct {
	python      string
	loadTimeout time.Duration
	maxOutput   int
	logger      primary.Logger
}

func NewPythonLoader(cfg *config.JudgeConfig, logger primary.Logger) *PythonLoader {
	python := cfg.PythonPath
	if python == "" {
		python = "python3"
	}
	return &PythonLoader{
		python:      python,
		loadTimeout: cfg.LoadTimeout,
		maxOutput:   DefaultMaxOutput,
		logger:      logger,
	}
}

func (l *PythonLoader) Load(ctx context.Context, source string, functionName string) (secondary.Candidate, error) {
	proc, err := l.start(ctx, source, functionName)
	if err != nil {
		return nil, err
	}
	return &pythonCandidate{
		loader: l,
		source: source,
		name:   functionName,
		proc:   proc,
	}, nil
}

// start launches an interpreter and loads the source into it
func (l *PythonLoader) start(ctx context.Context, source, functionName string) (*pyProcess, error) {
	if l.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.loadTimeout)
		defer cancel()
	}

	proc, err := startProcess(l.python, l.maxOutput, l.logger)
	if err != nil {
		return nil, err
	}
	resp, err := proc.request(ctx, harnessRequest{Op: "load", Source: source, Function: functionName})
	if err != nil {
		proc.kill()
		if ctx.Err() != nil {
			return nil, domain.NewTimeoutError("module initialisation did not finish within %v", l.loadTimeout)
		}
		return nil, err
	}
	if !resp.OK {
		proc.kill()
		return nil, resp.fault()
	}
	return proc, nil
}

type pythonCandidate struct {
	loader *PythonLoader
	source string
	name   string

	// mu serializes calls; procMu guards proc so Close never waits on a call
	mu     sync.Mutex
	procMu sync.Mutex
	proc   *pyProcess
	closed bool
}

func (c *pythonCandidate) Call(ctx context.Context, args []domain.Value, observe int) (inv secondary.Invocation, err error) {
	if observe >= len(args) {
		return inv, domain.NewRuntimeFault(fmt.Errorf("argument %d cannot be observed, only %d given", observe, len(args)))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	proc, err := c.process(ctx)
	if err != nil {
		return inv, err
	}

	wire := make([]interface{}, len(args))
	for i, a := range args {
		wire[i] = encodeWire(a)
	}
	resp, err := proc.request(ctx, harnessRequest{Op: "call", Args: wire, Observe: observe})
	if err != nil {
		if ctx.Err() != nil {
			return inv, domain.NewTimeoutError("execution was cancelled: %v", ctx.Err())
		}
		return inv, err
	}

	inv.Stdout = resp.Stdout
	if !resp.OK {
		return inv, resp.fault()
	}
	result, err := decodeWire(resp.Result, 0)
	if err != nil {
		return inv, domain.NewRuntimeFault(fmt.Errorf("unsupported result: %w", err))
	}
	inv.Result = result
	return inv, nil
}

// process returns the live interpreter. One that was killed by a deadline
// or exited on its own is replaced by a fresh one with the source reloaded.
func (c *pythonCandidate) process(ctx context.Context) (*pyProcess, error) {
	c.procMu.Lock()
	proc, closed := c.proc, c.closed
	c.procMu.Unlock()
	if closed {
		return nil, domain.NewRuntimeFault(errors.New("candidate was already released"))
	}
	if proc != nil && proc.alive() {
		return proc, nil
	}

	proc, err := c.loader.start(ctx, c.source, c.name)
	if err != nil {
		return nil, err
	}
	c.procMu.Lock()
	defer c.procMu.Unlock()
	if c.closed {
		proc.kill()
		return nil, domain.NewRuntimeFault(errors.New("candidate was already released"))
	}
	c.proc = proc
	return proc, nil
}

// Close kills the interpreter, interrupting a call in progress
func (c *pythonCandidate) Close() error {
	c.procMu.Lock()
	c.closed = true
	proc := c.proc
	c.procMu.Unlock()
	if proc != nil {
		proc.kill()
	}
	return nil
}

type harnessRequest struct {
	Op       string        `json:"op"`
	Source   string        `json:"source,omitempty"`
	Function string        `json:"function,omitempty"`
	Args     []interface{} `json:"args,omitempty"`
	Observe  int           `json:"observe"`
}

type harnessResponse struct {
	OK      bool            `json:"ok"`
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
	Stdout  string          `json:"stdout"`
}

func (r harnessResponse) fault() *domain.JudgeError {
	switch domain.FaultKind(r.Kind) {
	case domain.FaultCompile:
		return domain.NewCompileError(errors.New(r.Message))
	case domain.FaultMissingSymbol:
		return domain.NewMissingSymbolError("%s", r.Message)
	default:
		return domain.NewRuntimeFault(errors.New(r.Message))
	}
}

// pyProcess is one interpreter running the harness. Requests go out on the
// child's fd 3 and replies come back on its fd 4.
type pyProcess struct {
	cmd       *exec.Cmd
	requests  *os.File
	responses chan harnessResponse
	stderr    *outputBuffer
	logger    primary.Logger

	cancel  context.CancelFunc
	stop    chan struct{}
	once    sync.Once
	exited  chan struct{}
	waitErr error
}

func startProcess(python string, maxOutput int, logger primary.Logger) (*pyProcess, error) {
	reqR, reqW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRuntimeUnavailable, err)
	}
	respR, respW, err := os.Pipe()
	if err != nil {
		_ = reqR.Close()
		_ = reqW.Close()
		return nil, fmt.Errorf("%w: %v", errs.ErrRuntimeUnavailable, err)
	}

	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, python, "-I", "-c", harnessSource, strconv.Itoa(maxOutput))
	cmd.ExtraFiles = []*os.File{reqR, respW}
	stderr := newOutputBuffer(stderrLimit)
	cmd.Stderr = stderr
	cmd.WaitDelay = exitWait

	if err := cmd.Start(); err != nil {
		cancel()
		for _, f := range []*os.File{reqR, reqW, respR, respW} {
			_ = f.Close()
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrRuntimeUnavailable, err)
	}
	// the child holds its own copies
	_ = reqR.Close()
	_ = respW.Close()

	p := &pyProcess{
		cmd:       cmd,
		requests:  reqW,
		responses: make(chan harnessResponse, 1),
		stderr:    stderr,
		logger:    logger,
		cancel:    cancel,
		stop:      make(chan struct{}),
		exited:    make(chan struct{}),
	}
	go p.readResponses(respR)
	go func() {
		p.waitErr = cmd.Wait()
		_ = reqW.Close()
		cancel()
		close(p.exited)
	}()
	return p, nil
}

func (p *pyProcess) readResponses(r *os.File) {
	defer close(p.responses)
	defer func() { _ = r.Close() }()

	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		var resp harnessResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			resp = harnessResponse{Kind: string(domain.FaultRuntime), Message: "malformed interpreter reply"}
		}
		select {
		case p.responses <- resp:
		case <-p.stop:
			return
		}
	}
}

// request sends one request and waits for its reply. The interpreter is
// killed when ctx ends first.
func (p *pyProcess) request(ctx context.Context, req harnessRequest) (harnessResponse, error) {
	line, err := json.Marshal(req)
	if err != nil {
		return harnessResponse{}, domain.NewRuntimeFault(fmt.Errorf("failed to encode request: %w", err))
	}
	if _, err := p.requests.Write(append(line, '\n')); err != nil {
		return harnessResponse{}, p.exitFault(ctx)
	}

	select {
	case resp, ok := <-p.responses:
		if !ok {
			return harnessResponse{}, p.exitFault(ctx)
		}
		return resp, nil
	case <-ctx.Done():
		p.kill()
		return harnessResponse{}, ctx.Err()
	}
}

// exitFault describes an interpreter that went away mid request
func (p *pyProcess) exitFault(ctx context.Context) error {
	p.kill()
	select {
	case <-p.exited:
	case <-time.After(exitWait):
		return domain.NewRuntimeFault(errors.New("interpreter stopped responding"))
	case <-ctx.Done():
		return ctx.Err()
	}

	msg := "interpreter exited"
	if p.waitErr != nil {
		msg += ": " + p.waitErr.Error()
	}
	if tail := lastLine(p.stderr.String()); tail != "" {
		msg += " (" + tail + ")"
	}
	p.logger.Debug("Interpreter exited during a request", "error", p.waitErr, "stderr", p.stderr.String())
	return domain.NewRuntimeFault(errors.New(msg))
}

func (p *pyProcess) alive() bool {
	select {
	case <-p.stop:
		return false
	case <-p.exited:
		return false
	default:
		return true
	}
}

func (p *pyProcess) kill() {
	p.once.Do(func() {
		close(p.stop)
		p.cancel()
	})
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

package config

import "time"

const (
	RuntimePython   = "python"
	RuntimeStarlark = "starlark"
)

type JudgeConfig struct {
	// Runtime selects the candidate interpreter: python runs a CPython
	// process per loaded candidate, starlark evaluates in process
	Runtime string
	// PythonPath is the interpreter started for the python runtime
	PythonPath string

	// TestTimeout bounds a single invocation of the candidate
	TestTimeout time.Duration
	// LoadTimeout bounds executing the candidate's top level
	LoadTimeout time.Duration
	// GracePeriod is how long past TestTimeout the engine waits for a
	// candidate that ignores cancellation before abandoning it
	GracePeriod    time.Duration
	MaxSteps       uint64
	Parallelism    int
	MaxSourceBytes int
}

func NewJudgeConfig() *JudgeConfig {
	parallelism := getIntEnv("JUDGE_PARALLELISM", 1)
	if parallelism < 1 {
		parallelism = 1
	}
	maxSteps := getIntEnv("JUDGE_MAX_STEPS", 10_000_000)
	if maxSteps < 0 {
		maxSteps = 0
	}
	return &JudgeConfig{
		Runtime:        getEnv("JUDGE_RUNTIME", RuntimePython),
		PythonPath:     getEnv("JUDGE_PYTHON", "python3"),
		TestTimeout:    getMillisEnv("JUDGE_TEST_TIMEOUT_MS", 2*time.Second),
		LoadTimeout:    getMillisEnv("JUDGE_LOAD_TIMEOUT_MS", 2*time.Second),
		GracePeriod:    500 * time.Millisecond,
		MaxSteps:       uint64(maxSteps),
		Parallelism:    parallelism,
		MaxSourceBytes: getIntEnv("JUDGE_MAX_SOURCE_BYTES", 64*1024),
	}
}

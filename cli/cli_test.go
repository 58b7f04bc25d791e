package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	petalcalc "github.com/petal-labs/petalcalc"
)

// newTestRoot creates a fresh cobra root command wired to all subcommands.
// Each test gets an isolated command tree and an empty home directory so a
// developer's own config file is never picked up.
func newTestRoot(t *testing.T) *cobra.Command {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return NewRootCmd("test")
}

// executeCommand runs a cobra command with the given stdin and args and captures stdout/stderr.
func executeCommand(root *cobra.Command, stdin string, args ...string) (stdout, stderr string, err error) {
	var outBuf, errBuf bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

// writeTestFile creates a temporary file with the given content and returns its path.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	return exitErr.Code
}

// --- Shell tests ---

func TestShell_EvaluatesLinesUntilExit(t *testing.T) {
	root := newTestRoot(t)
	input := "1 + 2\n2 ** 10\n7 // 0\nfoo\n  EXIT  \n99\n"
	stdout, _, err := executeCommand(root, input)
	if err != nil {
		t.Fatalf("shell should not error, got: %v", err)
	}
	want := "3\n1024\nError: floor division by zero\nError: unexpected identifier \"foo\" at position 0\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestShell_QuitAndEOF(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"quit", "5 % 3\nQuit\n1\n", "2\n"},
		{"eof", "5 % -3\n10 / 4", "-1\n2.5\n"},
		{"empty input", "", ""},
		{"blank line", "\nexit\n", "Error: empty expression\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newTestRoot(t)
			stdout, _, err := executeCommand(root, tt.input)
			if err != nil {
				t.Fatalf("shell should not error, got: %v", err)
			}
			if stdout != tt.want {
				t.Errorf("stdout = %q, want %q", stdout, tt.want)
			}
		})
	}
}

func TestShell_InteractiveBannerAndPrompt(t *testing.T) {
	var out bytes.Buffer
	shell := &Shell{
		In:          strings.NewReader("2 * 3\nexit\n"),
		Out:         &out,
		Calc:        petalcalc.New(),
		Prompt:      "> ",
		Banner:      "Simple Calculator. Type 'exit' to quit.",
		Interactive: true,
		Styles:      NewStyles(&out, false),
	}
	count, err := shell.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	want := "Simple Calculator. Type 'exit' to quit.\n> 6\n> "
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestShell_InteractiveEOFEndsLine(t *testing.T) {
	var out bytes.Buffer
	shell := &Shell{
		In:          strings.NewReader(""),
		Out:         &out,
		Calc:        petalcalc.New(),
		Prompt:      "> ",
		Interactive: true,
	}
	if _, err := shell.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.String() != "> \n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestShell_LineTooLongIsReportedAndSkipped(t *testing.T) {
	var out bytes.Buffer
	shell := &Shell{
		In:   strings.NewReader(strings.Repeat("1", maxLineBytes+1) + "\n2 + 2\n"),
		Out:  &out,
		Calc: petalcalc.New(),
	}
	count, err := shell.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	want := "Error: line too long (max 1048576 bytes)\n4\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("1 + 1\r\n\n" + strings.Repeat("9", maxLineBytes+10) + "\nlast"))
	want := []struct {
		line string
		err  error
	}{
		{"1 + 1", nil},
		{"", nil},
		{"", errLineTooLong},
		{"last", nil},
		{"", io.EOF},
	}
	for i, w := range want {
		line, err := readLine(r)
		if line != w.line || !errors.Is(err, w.err) {
			t.Fatalf("read %d = %q, %v; want %q, %v", i, line, err, w.line, w.err)
		}
	}
}

func TestStyles_DisabledIsPlain(t *testing.T) {
	if got := NewStyles(&bytes.Buffer{}, false).ErrorLabel(); got != "Error:" {
		t.Errorf("ErrorLabel() = %q", got)
	}
	if got := (Styles{}).ErrorLabel(); got != "Error:" {
		t.Errorf("zero Styles ErrorLabel() = %q", got)
	}
}

func TestFormatResult(t *testing.T) {
	tests := map[float64]string{
		3:      "3",
		2.5:    "2.5",
		-0.125: "-0.125",
		1e21:   "1e+21",
		1e-7:   "1e-07",
	}
	for v, want := range tests {
		if got := FormatResult(v); got != want {
			t.Errorf("FormatResult(%v) = %q, want %q", v, got, want)
		}
	}
}

// --- Eval command tests ---

func TestEval_PrintsResult(t *testing.T) {
	root := newTestRoot(t)
	stdout, _, err := executeCommand(root, "", "eval", "2", "**", "3", "**", "2")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if stdout != "512\n" {
		t.Errorf("stdout = %q, want %q", stdout, "512\n")
	}
}

func TestEval_ExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantMsg  string
	}{
		{"parse error", []string{"eval", "1 +"}, exitParse, "unexpected end of expression"},
		{"too deep", []string{"eval", "--max-depth", "2", "(1 + 2) * 3"}, exitParse, "too deeply nested"},
		{"division by zero", []string{"eval", "1 / 0"}, exitEval, "division by zero"},
		{"invalid power", []string{"eval", "(-8) ** 0.5"}, exitEval, "fractional power"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newTestRoot(t)
			stdout, stderr, err := executeCommand(root, "", tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := exitCode(t, err); got != tt.wantCode {
				t.Errorf("exit code = %d, want %d", got, tt.wantCode)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
			if stdout != "" {
				t.Errorf("stdout should be empty on failure, got %q", stdout)
			}
			if !strings.Contains(stderr, "Error: ") {
				t.Errorf("stderr should report the error, got %q", stderr)
			}
		})
	}
}

func TestEval_RequiresExpression(t *testing.T) {
	root := newTestRoot(t)
	if _, _, err := executeCommand(root, "", "eval"); err == nil {
		t.Fatal("expected error without arguments")
	}
}

func TestEval_SummaryLogged(t *testing.T) {
	root := newTestRoot(t)
	_, stderr, err := executeCommand(root, "", "eval", "--summary", "1 + 1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(stderr, "session summary") || !strings.Contains(stderr, "evaluations=1") {
		t.Errorf("expected summary log line, got: %q", stderr)
	}
}

func TestEval_QuietSuppressesSummary(t *testing.T) {
	root := newTestRoot(t)
	_, stderr, err := executeCommand(root, "", "eval", "--summary", "--quiet", "1 + 1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if stderr != "" {
		t.Errorf("expected no log output, got: %q", stderr)
	}
}

func TestEval_VerboseLogsEvaluation(t *testing.T) {
	root := newTestRoot(t)
	_, stderr, err := executeCommand(root, "", "eval", "--verbose", "6 * 7")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(stderr, "evaluation finished") || !strings.Contains(stderr, "result=42") {
		t.Errorf("expected debug log line, got: %q", stderr)
	}
}

// --- Check command tests ---

func TestCheck_PrintsTree(t *testing.T) {
	root := newTestRoot(t)
	stdout, _, err := executeCommand(root, "", "check", "--", "-2 ** 2 + 3 * 4")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	want := "((-(2 ** 2)) + (3 * 4))\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestCheck_DoesNotEvaluate(t *testing.T) {
	root := newTestRoot(t)
	stdout, _, err := executeCommand(root, "", "check", "--silent", "1 / 0")
	if err != nil {
		t.Fatalf("division by zero is syntactically valid, got: %v", err)
	}
	if stdout != "" {
		t.Errorf("--silent should print nothing, got %q", stdout)
	}
}

func TestCheck_SilentHonorsMaxDepth(t *testing.T) {
	root := newTestRoot(t)
	stdout, _, err := executeCommand(root, "", "check", "--silent", "--max-depth", "2", "(1 + 2) * 3")
	if got := exitCode(t, err); got != exitParse {
		t.Errorf("exit code = %d, want %d", got, exitParse)
	}
	if !strings.Contains(err.Error(), "too deeply nested") {
		t.Errorf("error = %q", err)
	}
	if stdout != "" {
		t.Errorf("--silent should print nothing, got %q", stdout)
	}
}

func TestCheck_SyntaxError(t *testing.T) {
	root := newTestRoot(t)
	_, _, err := executeCommand(root, "", "check", "(1 + 2")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := exitCode(t, err); got != exitParse {
		t.Errorf("exit code = %d, want %d", got, exitParse)
	}
}

// --- Config tests ---

func TestConfigFile_AppliesLimits(t *testing.T) {
	path := writeTestFile(t, "petalcalc.yaml", "limits:\n  max_depth: 2\n")
	root := newTestRoot(t)
	_, _, err := executeCommand(root, "", "eval", "--config", path, "(1 + 2) * 3")
	if got := exitCode(t, err); got != exitParse {
		t.Errorf("exit code = %d, want %d", got, exitParse)
	}

	root = newTestRoot(t)
	stdout, _, err := executeCommand(root, "", "eval", "--config", path, "--max-depth", "10", "(1 + 2) * 3")
	if err != nil {
		t.Fatalf("--max-depth should override the file, got: %v", err)
	}
	if stdout != "9\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestConfigFile_DiscoveredInWorkingDirectory(t *testing.T) {
	root := newTestRoot(t)
	if err := os.WriteFile("petalcalc.yaml", []byte("logging:\n  format: json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, stderr, err := executeCommand(root, "", "eval", "--summary", "1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(stderr, `"msg":"session summary"`) {
		t.Errorf("expected JSON log output, got: %q", stderr)
	}
}

func TestConfigFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
	}{
		{"missing file", func(t *testing.T) []string {
			return []string{"eval", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "1"}
		}},
		{"unknown key", func(t *testing.T) []string {
			return []string{"eval", "--config", writeTestFile(t, "bad.yaml", "shell:\n  colour: red\n"), "1"}
		}},
		{"directory", func(t *testing.T) []string {
			return []string{"eval", "--config", t.TempDir(), "1"}
		}},
		{"bad max depth flag", func(t *testing.T) []string {
			return []string{"eval", "--max-depth", "0", "1"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newTestRoot(t)
			_, _, err := executeCommand(root, "", tt.args(t)...)
			if got := exitCode(t, err); got != exitConfig {
				t.Errorf("exit code = %d, want %d", got, exitConfig)
			}
		})
	}
}

// --- Root command tests ---

func TestRoot_Help(t *testing.T) {
	root := newTestRoot(t)
	stdout, _, err := executeCommand(root, "", "--help")
	if err != nil {
		t.Fatalf("--help should not error, got: %v", err)
	}
	for _, want := range []string{"eval", "check", "--max-depth", "--no-color"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help should mention %q", want)
		}
	}
}

func TestRoot_Version(t *testing.T) {
	root := newTestRoot(t)
	stdout, _, err := executeCommand(root, "", "--version")
	if err != nil {
		t.Fatalf("--version should not error, got: %v", err)
	}
	if stdout != "petalcalc version test\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRoot_RejectsPositionalArgs(t *testing.T) {
	root := newTestRoot(t)
	if _, _, err := executeCommand(root, "", "1+1"); err == nil {
		t.Fatal("expected error for positional args on the root command")
	}
}

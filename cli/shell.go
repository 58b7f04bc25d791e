package cli

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	petalcalc "github.com/petal-labs/petalcalc"
)

const maxLineBytes = 1 << 20

// Styles renders shell output decorations.
type Styles struct {
	enabled bool
	err     lipgloss.Style
}

// NewStyles returns styles rendered for out. When enabled is false every
// string is passed through unchanged.
func NewStyles(out io.Writer, enabled bool) Styles {
	r := lipgloss.NewRenderer(out)
	return Styles{
		enabled: enabled,
		err:     r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

// ErrorLabel renders the "Error:" prefix.
func (s Styles) ErrorLabel() string {
	if !s.enabled {
		return "Error:"
	}
	return s.err.Render("Error:")
}

// Shell is the read-evaluate-print loop. Each input line is evaluated
// independently and failures never end the loop.
type Shell struct {
	In          io.Reader
	Out         io.Writer
	Calc        *petalcalc.Calculator
	Prompt      string
	Banner      string
	Interactive bool // print banner and prompt
	Styles      Styles
}

// Run reads lines until "exit", "quit" or end of input. It returns the
// number of expressions evaluated.
func (s *Shell) Run() (int, error) {
	if s.Interactive && s.Banner != "" {
		fmt.Fprintln(s.Out, s.Banner)
	}

	reader := bufio.NewReader(s.In)
	count := 0
	for {
		if s.Interactive {
			fmt.Fprint(s.Out, s.Prompt)
		}
		line, err := readLine(reader)
		if errors.Is(err, errLineTooLong) {
			fmt.Fprintf(s.Out, "%s %v\n", s.Styles.ErrorLabel(), err)
			continue
		}
		if err != nil {
			if s.Interactive {
				fmt.Fprintln(s.Out)
			}
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return count, fmt.Errorf("reading input: %w", err)
		}
		if isQuit(line) {
			return count, nil
		}

		count++
		value, err := s.Calc.Evaluate(line)
		if err != nil {
			fmt.Fprintf(s.Out, "%s %v\n", s.Styles.ErrorLabel(), err)
			continue
		}
		fmt.Fprintln(s.Out, FormatResult(value))
	}
}

var errLineTooLong = fmt.Errorf("line too long (max %d bytes)", maxLineBytes)

// readLine returns the next line without its terminator. A final line
// without a newline is returned as is; io.EOF follows it. Lines longer than
// maxLineBytes are consumed whole and reported as errLineTooLong.
func readLine(r *bufio.Reader) (string, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			buf = append(buf, chunk...)
			if len(trimNewline(buf)) > maxLineBytes {
				tooLong, buf = true, nil
			}
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case err == nil:
		case errors.Is(err, io.EOF):
			if !tooLong && len(buf) == 0 {
				return "", io.EOF
			}
		default:
			return "", err
		}
		if tooLong {
			return "", errLineTooLong
		}
		return string(trimNewline(buf)), nil
	}
}

func trimNewline(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}

func isQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit":
		return true
	}
	return false
}

// FormatResult renders a value in the shortest form that round-trips.
func FormatResult(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

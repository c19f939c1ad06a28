package crush

import "github.com/yasushi-saito/readline"

// LineReader reads one line of interactive input, e.g. from a terminal line
// editor. Grounded on the teacher's direct calls to
// "github.com/yasushi-saito/readline".Readline (cmd/commands.go's Loop/
// runEval), pulled out as a one-method interface so the REPL loop does not
// depend on a concrete line editor.
type LineReader interface {
	// ReadLine prompts with prompt and returns one line of input, without
	// its trailing newline. Returns io.EOF when the input stream is closed.
	ReadLine(prompt string) (string, error)
}

// readlineReader is the default LineReader, backed by the teacher's
// readline package, history included.
type readlineReader struct{}

// NewReadlineReader returns the default interactive LineReader.
func NewReadlineReader() LineReader { return readlineReader{} }

func (readlineReader) ReadLine(prompt string) (string, error) {
	return readline.Readline(prompt)
}

// AddHistory records line in the line editor's history, mirroring the
// teacher's runEval/runHistory use of readline.AddHistory after each
// evaluated line.
func AddHistory(line string) error {
	return readline.AddHistory(line)
}

package crush

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yasushi-saito/readline"
	"golang.org/x/crypto/ssh/terminal"
)

var (
	evalFlag        bool
	sealSessionFlag bool
)

// NewRootCmd builds the "crush" cobra command: a REPL by default, or batch
// execution of a single script path given as its one positional argument.
// Grounded on the teacher's flag set in main.go (-eval, -cache-dir, etc.),
// trimmed to the flags SPEC_FULL §2 names for this runtime (script path,
// readonly-stdlib toggle) plus -eval for parity with the teacher's
// "evaluate and exit" mode.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crush [script]",
		Short: "crush is a typed-pipeline command shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args)
		},
	}
	cmd.Flags().BoolVar(&evalFlag, "eval", false, "evaluate the script non-interactively and exit")
	cmd.Flags().BoolVar(&sealSessionFlag, "readonly-stdlib", false, "seal the session scope immediately, rejecting new top-level declarations")
	return cmd
}

func run(args []string) error {
	if err := readline.Init(readline.Opts{Name: "crush", ExpandHistory: true}); err != nil {
		fmt.Fprintf(os.Stderr, "readline.Init: %v\n", err)
	}
	interactive := len(args) == 0 && terminal.IsTerminal(syscall.Stdin) && terminal.IsTerminal(syscall.Stdout)
	env, err := New(unimplementedParser{}, NewReadlineReader(), interactive, sealSessionFlag)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		if err := env.RunScript(args[0]); err != nil {
			return err
		}
		return nil
	}
	if evalFlag {
		return fmt.Errorf("--eval requires a script path")
	}
	fmt.Println("crush")
	env.Loop()
	return nil
}

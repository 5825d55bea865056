package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/lox"
	"github.com/deepnoodle-ai/lox/errz"
	"github.com/deepnoodle-ai/lox/vm"
)

var version = "dev"

const (
	exitCompileError = 65
	exitRuntimeError = 70
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fatal(err)
	}
}

var rootCmd = &cobra.Command{
	Use:     "lox [file]",
	Short:   "The Lox programming language",
	Long:    "A bytecode compiler and stack virtual machine for the Lox scripting language.",
	Version: version,
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configureColor()
		if len(args) == 0 {
			if !isTerminalIO() {
				runSource(readStdin())
				return
			}
			if err := runRepl(); err != nil {
				fatal(err)
			}
			return
		}
		runSource(readFile(args[0]))
	},
}

var disCmd = &cobra.Command{
	Use:   "dis <file>",
	Short: "Disassemble compiled Lox bytecode",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configureColor()
		if err := lox.Disassemble(readFile(args[0]), os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			os.Exit(exitCompileError)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("trace", false, "Trace every executed instruction")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("trace", rootCmd.PersistentFlags().Lookup("trace"))
	viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))
	viper.BindEnv("no-color", "NO_COLOR")
	rootCmd.AddCommand(disCmd)
}

func newVM() *vm.VM {
	return vm.New(
		vm.WithStdout(os.Stdout),
		vm.WithStderr(os.Stderr),
		vm.WithLogger(newLogger()),
	)
}

func newLogger() zerolog.Logger {
	level := zerolog.Disabled
	if viper.GetBool("debug") {
		level = zerolog.DebugLevel
	}
	if viper.GetBool("trace") {
		level = zerolog.TraceLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: viper.GetBool("no-color")}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func runSource(source string) {
	if err := newVM().Interpret(source); err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		os.Exit(exitCode(err))
	}
}

// exitCode follows the sysexits convention: 65 for bad input, 70 for an
// internal software error.
func exitCode(err error) int {
	var structured *errz.StructuredError
	if errors.As(err, &structured) && structured.Kind == errz.ErrRuntime {
		return exitRuntimeError
	}
	return exitCompileError
}

func configureColor() {
	if viper.GetBool("no-color") {
		color.NoColor = true
	}
}

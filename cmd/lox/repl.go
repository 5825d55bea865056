package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// runRepl reads statements line by line and feeds them to one long-lived
// VM, so definitions accumulate across inputs. Errors are printed and the
// loop continues.
func runRepl() error {
	machine := newVM()
	scanner := bufio.NewScanner(os.Stdin)
	prompt := color.New(color.FgBlue).Sprint(">>> ")

	fmt.Printf("Lox %s (type \"exit\" to quit)\n", version)
	for {
		fmt.Print(prompt)
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if err := machine.Interpret(line); err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
		}
	}
	return scanner.Err()
}

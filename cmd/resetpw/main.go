// Command resetpw completes a password reset from the terminal.
//
// Usage:
//
//	resetpw [-v] <reset link>
//
// The link is the one from the reset email. The new password is read twice
// without echo and posted to the link exactly as the web form does.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/eswan18/passwordreset/pkg/logger"
	"github.com/eswan18/passwordreset/pkg/resetform"
)

const (
	exitOK       = 0
	exitFailed   = 1
	exitMismatch = 2
	exitUsage    = 64
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin *os.File, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("resetpw", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "log request failures")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: resetpw [-v] <reset link>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}

	log := zerolog.Nop()
	if *verbose {
		os.Setenv("LOG_FORMAT", "console")
		os.Setenv("LOG_LEVEL", "debug")
		log = logger.InitWithWriter(stderr)
	}

	password1, password2, err := readPasswords(stdin, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "resetpw: %v\n", err)
		return exitFailed
	}

	success := resetform.NewTextRegion(nil)
	failure := resetform.NewTextRegion(nil)
	c, err := resetform.New(resetform.Config{
		Endpoint:      fs.Arg(0),
		Form:          resetform.StaticForm{Password1: password1, Password2: password2},
		SuccessOutput: success,
		ErrorOutput:   failure,
		Alerter:       resetform.AlertFunc(func(msg string) { fmt.Fprintln(stderr, msg) }),
		Logger:        log,
	})
	if err != nil {
		fmt.Fprintf(stderr, "resetpw: %v\n", err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch c.HandleSubmit(ctx, &resetform.SubmitEvent{}) {
	case resetform.OutcomeBlocked:
		return exitMismatch
	case resetform.OutcomeSucceeded:
		fmt.Fprintln(stdout, success.Text())
		return exitOK
	default:
		fmt.Fprintln(stderr, failure.Text())
		return exitFailed
	}
}

// readPasswords prompts twice without echo on a terminal. Otherwise it
// reads two lines so the command can be scripted.
func readPasswords(in *os.File, prompt io.Writer) (string, string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(prompt, "New password: ")
		p1, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", "", fmt.Errorf("read password: %w", err)
		}
		fmt.Fprint(prompt, "Confirm new password: ")
		p2, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", "", fmt.Errorf("read password: %w", err)
		}
		return string(p1), string(p2), nil
	}

	r := bufio.NewReader(in)
	p1, err := readLine(r)
	if err != nil {
		return "", "", err
	}
	p2, err := readLine(r)
	if err != nil {
		return "", "", err
	}
	return p1, p2, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

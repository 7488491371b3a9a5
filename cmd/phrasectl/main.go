/*
Phrasectl starts an interactive phrasegen session.

It reads in one or more phrase-syntax files and opens a REPL for compiling,
binding, and sampling the grammar they define. Output is read from stdin
using a go implementation of the GNU Readline library when launched in a tty,
or directly when not (or when -d/--direct forces it).

Usage:

	phrasectl [flags] FILE [FILE...]

The flags are:

	-version
		Give the current version of phrasectl and then exit.

	-d/--direct
		Force reading directly from the console as opposed to using GNU
		readline based routines for reading command input even if launched
		in a tty with stdin and stdout.

	-s/--start NAME
		Set the initial start symbol used by :generate. Defaults to "main".

Once a session has started, input is parsed as REPL commands. Type "help"
once in a session for an explanation of the commands. To exit, type "quit".
*/
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dekarrin/phrasegen"
	"github.com/dekarrin/phrasegen/internal/input"
	"github.com/dekarrin/phrasegen/internal/tqerrors"
	"github.com/dekarrin/phrasegen/internal/version"
	"github.com/dekarrin/rosed"
	"github.com/mattn/go-isatty"
)

const (
	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitSessionError indicates an unsuccessful program execution due to a
	// problem during the REPL session.
	ExitSessionError

	// ExitInitError indicates an unsuccessful program execution due to an
	// issue initializing the engine.
	ExitInitError
)

const consoleOutputWidth = 80

var (
	returnCode  = ExitSuccess
	flagVersion = flag.Bool("version", false, "Gives the version info")
	forceDirect bool
	startSymbol string
)

func init() {
	const (
		forceDirectUsage = "force reading directly from stdin instead of going through GNU readline where possible"
		startUsage       = "the rule name used as the entry point for :generate"
	)
	flag.BoolVar(&forceDirect, "direct", false, forceDirectUsage)
	flag.BoolVar(&forceDirect, "d", false, forceDirectUsage+" (shorthand)")
	flag.StringVar(&startSymbol, "start", "main", startUsage)
	flag.StringVar(&startSymbol, "s", "main", startUsage+" (shorthand)")
}

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic("unrecoverable panic occured")
		} else {
			os.Exit(returnCode)
		}
	}()

	flag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "ERROR: at least one phrase-syntax file is required\n")
		returnCode = ExitInitError
		return
	}

	sess, err := newSession(files, startSymbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}

	reader, err := newReader(forceDirect)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}
	defer reader.Close()

	if err := sess.runUntilQuit(reader); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitSessionError
		return
	}
}

// commandReader is the subset of input.DirectCommandReader and
// input.InteractiveCommandReader that the REPL loop needs.
type commandReader interface {
	ReadCommand() (string, error)
	Close() error
}

func newReader(direct bool) (commandReader, error) {
	if !direct && isatty.IsTerminal(os.Stdin.Fd()) {
		return input.NewInteractiveReader()
	}
	return input.NewDirectReader(os.Stdin), nil
}

// session holds the REPL's compiled grammar and its mutable generation
// settings.
type session struct {
	gen      *phrasegen.Generator
	start    string
	context  phrasegen.ExternalContext
	equalize bool
}

func newSession(files []string, start string) (*session, error) {
	gen := phrasegen.NewGenerator()

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}

		syn, err := phrasegen.Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}

		scope := strings.TrimSuffix(f, ".phrase")
		if scope == f {
			scope = ""
		} else {
			scope = baseName(scope)
		}
		gen.Add(scope, syn)
	}

	return &session{
		gen:      gen,
		start:    start,
		context:  phrasegen.ExternalContext{},
		equalize: true,
	}, nil
}

func baseName(path string) string {
	idx := strings.LastIndexAny(path, "/\\")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

func (s *session) runUntilQuit(r commandReader) error {
	for {
		line, err := r.ReadCommand()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if quit := s.dispatch(line); quit {
			return nil
		}
	}
}

func (s *session) dispatch(line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		s.printHelp()
	case "generate", "gen":
		err = s.cmdGenerate()
	case "start":
		err = s.cmdStart(args)
	case "context":
		err = s.cmdContext(args)
	case "weight":
		err = s.cmdWeight()
	case "combinations", "comb":
		err = s.cmdCombinations()
	case "equalize":
		err = s.cmdEqualize(args)
	default:
		err = tqerrors.REPLf("unknown command %q; type \"help\" for a list", cmd)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, tqerrors.DisplayMessage(err))
	}
	return false
}

func (s *session) printHelp() {
	help := `Commands:
  generate (or gen)       expand the current start symbol and print the result
  start NAME              set the start symbol used by generate
  context KEY=VALUE       set a piece of external context (omit =VALUE to clear)
  weight                  print the current start symbol's total weight
  combinations (or comb)  print the current start symbol's combination count
  equalize on|off         toggle equalize_chance for subsequent generates
  help                    show this message
  quit (or exit)          end the session`
	fmt.Println(rosed.Edit(help).Wrap(consoleOutputWidth).String())
}

func (s *session) cmdGenerate() error {
	out, err := s.gen.Generate(s.start, s.context)
	if err != nil {
		return tqerrors.WrapREPLf(err, "could not generate: %s", err.Error())
	}
	fmt.Println(rosed.Edit(out).Wrap(consoleOutputWidth).String())
	return nil
}

func (s *session) cmdStart(args []string) error {
	if len(args) != 1 {
		return tqerrors.REPL("usage: start NAME", "")
	}
	s.start = args[0]
	return nil
}

func (s *session) cmdContext(args []string) error {
	if len(args) != 1 {
		return tqerrors.REPL("usage: context KEY=VALUE (or KEY to clear)", "")
	}
	parts := strings.SplitN(args[0], "=", 2)
	key := parts[0]
	if len(parts) == 1 {
		delete(s.context, key)
		return nil
	}
	s.context[key] = parts[1]
	return nil
}

func (s *session) cmdWeight() error {
	w, err := s.gen.Weight(s.start, s.context)
	if err != nil {
		return tqerrors.WrapREPLf(err, "could not compute weight: %s", err.Error())
	}
	fmt.Printf("%g\n", w)
	return nil
}

func (s *session) cmdCombinations() error {
	c, err := s.gen.Combinations(s.start, s.context)
	if err != nil {
		return tqerrors.WrapREPLf(err, "could not compute combinations: %s", err.Error())
	}
	fmt.Println(strconv.FormatUint(c, 10))
	return nil
}

func (s *session) cmdEqualize(args []string) error {
	if len(args) != 1 {
		return tqerrors.REPL("usage: equalize on|off", "")
	}
	switch strings.ToLower(args[0]) {
	case "on":
		s.equalize = true
	case "off":
		s.equalize = false
	default:
		return tqerrors.REPL("usage: equalize on|off", "")
	}
	s.gen.EqualizeChance(s.equalize)
	return nil
}

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DuHerb/code-squad/cmd/code-squad/model"
	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

type printer struct {
	w    io.Writer
	json bool

	pass  func(a ...any) string
	fail  func(a ...any) string
	faint func(a ...any) string
	title func(a ...any) string
}

func newPrinter(cmd *cli.Command) *printer {
	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	tty := isTerminal(w)
	p := &printer{
		w:     w,
		json:  cmd.Bool("json") || !tty,
		pass:  color.New(color.FgGreen, color.Bold).SprintFunc(),
		fail:  color.New(color.FgRed, color.Bold).SprintFunc(),
		faint: color.New(color.Faint).SprintFunc(),
		title: color.New(color.Bold).SprintFunc(),
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) challenges(cs []model.Challenge) error {
	if p.json {
		return p.encode(cs)
	}
	for _, c := range cs {
		fmt.Fprintf(p.w, "%-20s %s %s\n", c.ID, p.title(c.Name), p.faint(strings.Repeat("*", c.Difficulty)))
	}
	return nil
}

func (p *printer) challenge(c model.Challenge) error {
	if p.json {
		return p.encode(c)
	}
	fmt.Fprintf(p.w, "%s (%s)\n%s\n\n%s\n", p.title(c.Name), c.ID, c.Description, c.InitialCode)
	return nil
}

func (p *printer) response(r *model.Response) error {
	if p.json {
		return p.encode(r)
	}
	if !r.Success {
		fmt.Fprintln(p.w, p.fail("FAILED"), r.Error)
		return nil
	}
	passed := 0
	for i, tc := range r.Results {
		mark := p.fail("FAIL")
		if tc.Passed {
			mark = p.pass("PASS")
			passed++
		}
		fmt.Fprintf(p.w, "%s case %d: input %s\n", mark, i+1, joinRaw(tc.Input))
		if tc.Passed {
			continue
		}
		if tc.ErrorKind != "" {
			fmt.Fprintf(p.w, "     %s: %s\n", tc.ErrorKind, tc.Error)
		} else {
			fmt.Fprintf(p.w, "     expected %s, got %s\n", tc.Expected, rawOrUndefined(tc.Output))
		}
	}
	summary := fmt.Sprintf("%d/%d passed", passed, len(r.Results))
	if r.AllPassed {
		fmt.Fprintln(p.w, p.pass(summary))
	} else {
		fmt.Fprintln(p.w, p.fail(summary))
	}
	return nil
}

func joinRaw(rs []json.RawMessage) string {
	s := make([]string, 0, len(rs))
	for _, r := range rs {
		s = append(s, string(r))
	}
	return "(" + strings.Join(s, ", ") + ")"
}

func rawOrUndefined(r json.RawMessage) string {
	if r == nil {
		return "undefined"
	}
	return string(r)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/DuHerb/code-squad/challenge"
	"github.com/DuHerb/code-squad/cmd/code-squad/model"
	"github.com/DuHerb/code-squad/cmd/code-squad/version"
	"github.com/DuHerb/code-squad/env"
	"github.com/DuHerb/code-squad/envexec"
	"github.com/DuHerb/code-squad/judger"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// errNotPassed is returned by run when the submission did not pass every case
var errNotPassed = errors.New("submission did not pass")

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "code-squad-cli",
		Usage:   "judge debugging challenge submissions",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "catalog",
				Aliases: []string{"c"},
				Usage:   "challenge catalog file (.yaml / .toml / .json), builtin challenges if empty",
				Sources: cli.EnvVars("CS_CATALOG"),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "always print JSON",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "print sandbox logs to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list the challenges",
				Action: listAction,
			},
			{
				Name:      "show",
				Usage:     "print the starting code of a challenge",
				ArgsUsage: "<id>",
				Action:    showAction,
			},
			{
				Name:      "run",
				Usage:     "judge a submission, - reads it from stdin",
				ArgsUsage: "<file|->",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "challenge",
						Usage:    "challenge id",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "memory-limit",
						Usage: "memory limit for each test case",
						Value: "128m",
					},
					&cli.DurationFlag{
						Name:  "load-timeout",
						Usage: "time limit for running top-level code",
						Value: time.Second,
					},
					&cli.DurationFlag{
						Name:  "call-timeout",
						Usage: "time limit for each function call",
						Value: 500 * time.Millisecond,
					},
					&cli.StringFlag{
						Name:  "remote",
						Usage: "judge on a code squad gRPC endpoint instead of locally",
					},
					&cli.StringFlag{
						Name:    "token",
						Usage:   "bearer token for the remote endpoint",
						Sources: cli.EnvVars("CS_AUTH_TOKEN"),
					},
				},
				Action: runAction,
			},
		},
	}
}

func openCatalog(cmd *cli.Command) (*challenge.Memory, error) {
	return challenge.Open(cmd.String("catalog"))
}

func newLogger(cmd *cli.Command) *zap.Logger {
	if !cmd.Bool("verbose") {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func listAction(_ context.Context, cmd *cli.Command) error {
	c, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	p := newPrinter(cmd)
	return p.challenges(model.ConvertChallenges(c.List()))
}

func showAction(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one challenge id")
	}
	c, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	id := cmd.Args().First()
	ch, ok := c.Get(id)
	if !ok {
		return fmt.Errorf("challenge %q not found", id)
	}
	p := newPrinter(cmd)
	return p.challenge(model.ConvertChallenge(ch))
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one source file")
	}
	source, err := readSource(cmd.Args().First(), cmd.Root().Reader)
	if err != nil {
		return err
	}
	req := &model.Request{
		ChallengeID: cmd.String("challenge"),
		UserCode:    source,
	}

	var resp *model.Response
	if addr := cmd.String("remote"); addr != "" {
		resp, err = runRemote(ctx, addr, cmd.String("token"), req)
	} else {
		resp, err = runLocal(ctx, cmd, req)
	}
	if err != nil {
		return err
	}

	p := newPrinter(cmd)
	if err := p.response(resp); err != nil {
		return err
	}
	if !resp.Success || !resp.AllPassed {
		return errNotPassed
	}
	return nil
}

func readSource(name string, stdin io.Reader) (string, error) {
	var (
		b   []byte
		err error
	)
	if name == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(b), nil
}

func runLocal(ctx context.Context, cmd *cli.Command, req *model.Request) (*model.Response, error) {
	c, err := openCatalog(cmd)
	if err != nil {
		return nil, err
	}
	var memory envexec.Size
	if err := memory.Set(strings.TrimSpace(cmd.String("memory-limit"))); err != nil {
		return nil, fmt.Errorf("invalid memory limit: %w", err)
	}
	logger := newLogger(cmd)
	defer logger.Sync()

	b, _, err := env.NewBuilder(env.Config{
		MaxStackDepth:       10000,
		MaxOutputDepth:      64,
		MaxOutputValues:     100000,
		MemoryCheckInterval: 10 * time.Millisecond,
		Isolate:             true,
		Logger:              logger,
	})
	if err != nil {
		return nil, err
	}
	limit := envexec.Limit{
		Memory:      memory,
		LoadTimeout: cmd.Duration("load-timeout"),
		CallTimeout: cmd.Duration("call-timeout"),
	}
	gate := limit
	gate.Memory = min(memory, 8<<20)
	j := &judger.Judger{
		Builder:   b,
		Catalog:   c,
		Logger:    logger,
		GateLimit: gate,
		CaseLimit: limit,
	}
	rt, err := j.Judge(ctx, judger.Request{ChallengeID: req.ChallengeID, Source: req.UserCode}, nil)
	if err != nil {
		resp := model.Response{Error: err.Error()}
		if errors.Is(err, judger.ErrChallengeNotFound) {
			resp.Error = fmt.Sprintf("Challenge with ID '%s' not found.", req.ChallengeID)
		}
		return &resp, nil
	}
	resp := model.ConvertReport("", rt)
	return &resp, nil
}

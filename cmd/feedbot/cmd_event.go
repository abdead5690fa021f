package main

import (
	"context"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"

	"github.com/pkgforge/feedbot/internal/config"
	"github.com/pkgforge/feedbot/internal/probe"
	"github.com/pkgforge/feedbot/internal/reactor"
)

// ReactToEventCmd implements react-to-event --event={pr|push} --uid=ID.
type ReactToEventCmd struct {
	Event string `name:"event" enum:"pr,push" required:"" help:"Which external trigger fired: pr or push."`
	UID   string `name:"uid" required:"" help:"PR number (event=pr) or feedstock name (event=push)."`
}

func (c *ReactToEventCmd) Run(cli *CLI) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st, err := buildStore(cli, cfg)
	if err != nil {
		return err
	}
	gw := buildGateway(cli, cfg)

	ctx := context.Background()
	specs, err := resolveSpecs(ctx, st, cli)
	if err != nil {
		return err
	}

	kind, err := eventKind(c.Event)
	if err != nil {
		return err
	}

	dispatcher := probe.NewDispatcher(cfg.TimeoutSeconds, false)
	r := reactor.New(st, gw, dispatcher, specKeys(specs))
	return r.React(ctx, reactor.Event{Kind: kind, UID: c.UID})
}

func eventKind(s string) (reactor.EventKind, error) {
	switch s {
	case "pr":
		return reactor.EventPRUpdate, nil
	case "push":
		return reactor.EventPush, nil
	default:
		return "", ferrors.ValidationError("unknown --event value").WithContext("event", s).Build()
	}
}

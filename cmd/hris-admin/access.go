// ABOUTME: Permission commands for the admin CLI: can, menu, guard and get
// ABOUTME: Exercises the resolver, sidebar menu, page guard and query cache against the live session

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/2389/hris-console/internal/apiclient"
	"github.com/2389/hris-console/internal/gate"
)

func cmdCan(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: hris-admin can <resource> <action>")
	}
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	allowed, err := a.resolver.Can(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("checking %s:%s: %s", args[0], args[1], apiclient.Message(err, "permission check failed"))
	}
	if allowed {
		color.Green("  ✓ allowed  %s:%s\n", args[0], args[1])
	} else {
		color.Red("  ✗ denied   %s:%s\n", args[0], args[1])
	}
	return nil
}

func cmdMenu(ctx context.Context, a *app, args []string) error {
	var section gate.Section
	if len(args) > 0 {
		section = gate.Section(args[0])
		if section != gate.SectionGeneral && section != gate.SectionSettings {
			return fmt.Errorf("unknown section %q (use general or settings)", args[0])
		}
	}
	if err := a.restore(ctx); err != nil {
		return err
	}

	visible := gate.NewMenu(a.resolver, a.sessions, nil, a.logger).Visible(ctx, section)

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	fmt.Println()
	for _, sec := range []gate.Section{gate.SectionGeneral, gate.SectionSettings} {
		if section != "" && section != sec {
			continue
		}
		var items []gate.NavItem
		for _, item := range visible {
			if item.Section == sec {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			continue
		}
		cyan.Printf("  %s\n", sec)
		for _, item := range items {
			fmt.Printf("    %-24s", item.Title)
			gray.Printf(" %s\n", item.URL)
		}
	}
	hidden := len(gate.Navigation) - len(visible)
	if section == "" && hidden > 0 {
		gray.Printf("\n  %d entries hidden by permissions\n", hidden)
	}
	fmt.Println()
	return nil
}

func cmdGuard(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: hris-admin guard <path>")
	}
	item, ok := gate.ItemFor(gate.Navigation, args[0])
	if !ok {
		return fmt.Errorf("no console page at %s", args[0])
	}
	if item.Public() {
		color.Green("  %s is open to every signed-in user\n", item.Title)
		return nil
	}
	if err := a.restore(ctx); err != nil {
		return err
	}

	guard := gate.NewPageGuard(a.resolver, a.cfg.Gate.GuardTimeout, a.logger)
	var final gate.Status
	for status := range guard.Watch(ctx, item.Resource, item.Action) {
		fmt.Printf("  %s:%s  %s\n", item.Resource, item.Action, status)
		final = status
	}
	if md := gate.PlaceholderMarkdown(final); md != "" {
		fmt.Println()
		fmt.Println(md)
	}
	return nil
}

// cmdGet fetches a path through the query cache. A rejection that ends the
// session is handled by the app's expiry watcher.
func cmdGet(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: hris-admin get <path>")
	}
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	data, err := a.queries.Fetch(ctx, "get:"+args[0], func(ctx context.Context) (any, error) {
		var out any
		err := a.client.Get(ctx, args[0], &out)
		return out, err
	})
	if err != nil {
		a.drain()
		if apiclient.IsSessionInvalidating(err) && !a.state.IsAuthenticated() {
			return errors.New("session ended by the backend, sign in again")
		}
		return errors.New(apiclient.Message(err, "request failed"))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

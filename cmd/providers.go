package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/mbx/internal/services"
	"github.com/desertthunder/mbx/internal/shared"
	"github.com/urfave/cli/v3"
)

type providerInfo struct {
	Namespace    string   `json:"namespace"`
	Name         string   `json:"name"`
	Enabled      bool     `json:"enabled"`
	Default      bool     `json:"default"`
	Capabilities []string `json:"capabilities"`
}

// Providers lists registered providers. With --capability only enabled providers supporting it are listed.
func (r *Runner) Providers(ctx context.Context, cmd *cli.Command) error {
	var caps []services.Capability
	if name := cmd.String("capability"); name != "" {
		c, ok := services.ParseCapability(name)
		if !ok {
			return fmt.Errorf("%w: unknown capability %q", shared.ErrInvalidInput, name)
		}
		caps = append(caps, c)
	}

	defaultNS := ""
	if p, ok := r.providers.Default(); ok {
		defaultNS = p.Namespace()
	}

	var infos []providerInfo
	add := func(p services.Provider) {
		names := []string{}
		for _, c := range p.Capabilities().List() {
			names = append(names, c.String())
		}
		infos = append(infos, providerInfo{
			Namespace:    p.Namespace(),
			Name:         p.Name(),
			Enabled:      r.providers.Enabled(p.Namespace()),
			Default:      p.Namespace() == defaultNS,
			Capabilities: names,
		})
	}

	if len(caps) > 0 {
		for _, p := range r.providers.List(caps...) {
			add(p)
		}
	} else {
		for _, ns := range r.providers.Namespaces() {
			if p, ok := r.providers.Get(ns); ok {
				add(p)
			}
		}
	}

	if cmd.Bool("json") {
		if infos == nil {
			infos = []providerInfo{}
		}
		return r.writeJSON(infos, true)
	}

	for _, info := range infos {
		state := "enabled"
		if !info.Enabled {
			state = "disabled"
		}
		marker := " "
		if info.Default {
			marker = "*"
		}
		name := info.Name
		if name == "" {
			name = info.Namespace
		}
		if err := r.writePlain("%s %-8s %-10s %-8s %s\n", marker, info.Namespace, name, state, strings.Join(info.Capabilities, ",")); err != nil {
			return err
		}
	}
	return nil
}

// Resolve prints the provider, entity and ID a link points at.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	raw := strings.TrimSpace(cmd.StringArg("url"))
	if raw == "" {
		return fmt.Errorf("%w: url", shared.ErrMissingArgument)
	}

	match, ok := r.providers.ResolveURL(raw)
	if !ok {
		return fmt.Errorf("%w: no provider recognises %s", shared.ErrInvalidInput, raw)
	}

	if cmd.Bool("json") {
		return r.writeJSON(match, true)
	}
	state := ""
	if !r.providers.Enabled(match.Namespace) {
		state = " (disabled)"
	}
	return r.writePlain("%s %s %s%s\n", match.Namespace, match.Entity, match.ID, state)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package console

import "context"

// HelpCommand returns an entry that lists the commands of r the operator
// may run. It needs no permission.
func HelpCommand(r *Registry) Entry {
	return Entry{
		Name: "help",
		Help: "List console commands",
		Handler: func(ctx context.Context, exec *Execution) error {
			p := newPrinter(ctx, exec, "help")
			for _, e := range r.All() {
				if e.Permission != "" && exec.Allowed != nil && !exec.Allowed(e.Permission) {
					continue
				}
				p.info("%-10s %s", e.Name, e.Help)
				if e.Usage != "" {
					p.info("%-10s usage: %s", "", e.Usage)
				}
			}
			return nil
		},
		Usage: "help",
	}
}

// NewDefaultRegistry returns a registry holding the help and addon commands.
func NewDefaultRegistry() *Registry {
	r := NewRegistry(nil)
	r.Register(HelpCommand(r))
	r.Register(AddonCommand())
	return r
}

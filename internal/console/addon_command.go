// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package console

import (
	"context"
	"strings"
	"time"

	"github.com/holomush/addonkit/internal/addon"
)

// AddonCommandName is the root command of the addon console surface.
const AddonCommandName = "addon"

// Permission identifiers of the addon command. Each subcommand needs its own
// permission in addition to PermAddon.
const (
	PermAddon   = "addon"
	PermManager = "addon.manager"
	PermList    = "addon.list"
	PermEnable  = "addon.enable"
	PermDisable = "addon.disable"
	PermStatus  = "addon.status"
	PermUnload  = "addon.unload"
	PermReload  = "addon.reload"
)

const addonUsage = "addon <manager|list|enable|disable|unload|reload|status> ..."

// Subcommand usages.
const (
	usageManager = "addon manager <list|reload <kind>|unload <kind>>"
	usageEnable  = "addon enable [<kind>] <name>"
	usageDisable = "addon disable [<kind>] <name>"
	usageUnload  = "addon unload [<kind>] <name>"
	usageReload  = "addon reload [<kind>] [<name>]"
	usageStatus  = "addon status [<kind>] <name>"
)

// Addon states shown by list.
const (
	stateUnloaded = "unloaded"
	stateInactive = "inactive"
	stateActive   = "active"
)

type subcommand struct {
	permission string
	run        func(ctx context.Context, p *printer, svc *addon.Service, args []string) error
}

var subcommands = map[string]subcommand{
	"manager": {PermManager, managerSubcommand},
	"list":    {PermList, listSubcommand},
	"enable":  {PermEnable, enableSubcommand},
	"disable": {PermDisable, disableSubcommand},
	"unload":  {PermUnload, unloadSubcommand},
	"reload":  {PermReload, reloadSubcommand},
	"status":  {PermStatus, statusSubcommand},
}

// AddonCommand returns the registry entry of the addon command.
func AddonCommand() Entry {
	return Entry{
		Name:       AddonCommandName,
		Handler:    AddonHandler,
		Permission: PermAddon,
		Help:       "Manage addons and addon managers",
		Usage:      addonUsage,
	}
}

// AddonHandler runs the addon command. Failures that concern a named
// manager or addon are printed as warnings and return nil; a wrong number of
// arguments returns an INVALID_ARGS error.
func AddonHandler(ctx context.Context, exec *Execution) error {
	args := exec.Words()
	if len(args) == 0 {
		return ErrInvalidArgs(AddonCommandName, addonUsage)
	}
	p := newPrinter(ctx, exec, AddonCommandName)

	name := strings.ToLower(args[0])
	sub, ok := subcommands[name]
	if !ok {
		p.warn("Invalid sub command %s", args[0])
		return nil
	}
	if exec.Allowed != nil && !exec.Allowed(sub.permission) {
		return ErrPermissionDenied(AddonCommandName+" "+name, sub.permission)
	}
	return sub.run(ctx, p, exec.Service, args[1:])
}

func managerSubcommand(ctx context.Context, p *printer, svc *addon.Service, args []string) error {
	if len(args) == 0 {
		return ErrInvalidArgs(AddonCommandName, usageManager)
	}

	switch strings.ToLower(args[0]) {
	case "list":
		kinds := svc.Managers()
		p.info("There is a total of %d addon manager(s) registered:", len(kinds))
		for _, kind := range kinds {
			p.info("# %s", kind)
		}
	case "reload":
		if len(args) < 2 {
			return ErrInvalidArgs(AddonCommandName, usageManager)
		}
		m := findManager(svc, args[1])
		if m == nil {
			warnNoManager(p, args[1])
			return nil
		}
		m.Reload(ctx)
		p.info("Addon manager %s has been reloaded", m.Kind())
	case "unload":
		if len(args) < 2 {
			return ErrInvalidArgs(AddonCommandName, usageManager)
		}
		m := findManager(svc, args[1])
		if m == nil {
			warnNoManager(p, args[1])
			return nil
		}
		m.UnloadAll(ctx)
		p.info("Unloaded all addons of addon manager %s", m.Kind())
	default:
		return ErrInvalidArgs(AddonCommandName, usageManager)
	}
	return nil
}

func warnNoManager(p *printer, name string) {
	p.warn("Could not find addon manager %q. Try 'addon manager list' for a list of all addon managers", name)
}

func listSubcommand(ctx context.Context, p *printer, svc *addon.Service, _ []string) error {
	p.info("Addons by manager:")
	total := 0
	for _, kind := range svc.Managers() {
		m := svc.Manager(kind)
		p.info("  Manager %s:", kind)

		infos := m.AddonInfo()
		seen := make(map[addon.Key]bool, len(infos))
		for _, info := range infos {
			seen[info.Key()] = true
		}
		if discovered, err := m.Discover(ctx); err == nil {
			for _, info := range discovered {
				if !seen[info.Key()] {
					seen[info.Key()] = true
					infos = append(infos, info)
				}
			}
		}

		for _, info := range infos {
			p.info("    %s -v %s [%s]", info.Name(), versionLabel(info), stateOf(m.GetAddon(info)))
		}
		total += len(infos)
	}
	p.info("In total: %d", total)
	return nil
}

func stateOf(a *addon.Addon) string {
	switch {
	case a == nil:
		return stateUnloaded
	case a.IsActive():
		return stateActive
	default:
		return stateInactive
	}
}

// versionLabel returns the version, flagged when it is not semantic.
func versionLabel(info *addon.Info) string {
	if _, err := info.SemVer(); err != nil {
		return info.Version() + " (non-semver)"
	}
	return info.Version()
}

// target is the addon named by the trailing arguments of a subcommand.
type target struct {
	info    *addon.Info
	manager *addon.Manager
}

// resolveTarget interprets args as "[<kind>] <name>". It prints a warning
// and returns ok=false when nothing matches.
func resolveTarget(ctx context.Context, p *printer, svc *addon.Service, args []string) (target, bool) {
	if len(args) >= 2 {
		m := findManager(svc, args[0])
		if m == nil {
			p.warn("Addon manager %q could not be found", args[0])
			return target{}, false
		}
		info := findAddonIn(ctx, m, args[1])
		if info == nil {
			p.warn("Addon manager %s does not contain an addon named %q", m.Kind(), args[1])
			return target{}, false
		}
		return target{info: info, manager: m}, true
	}

	info := findAddon(ctx, svc, args[0])
	if info == nil {
		p.warn("Could not find addon %q", args[0])
		return target{}, false
	}
	return target{info: info, manager: svc.Manager(info.Kind())}, true
}

func enableSubcommand(ctx context.Context, p *printer, svc *addon.Service, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return ErrInvalidArgs(AddonCommandName, usageEnable)
	}
	t, ok := resolveTarget(ctx, p, svc, args)
	if !ok {
		return nil
	}

	a, err := svc.LoadAddon(ctx, t.info)
	if err != nil || a == nil {
		p.warn("Failed to load addon %s", t.info.Name())
		return nil
	}
	if a.IsActive() {
		p.info("Addon %s is already enabled", t.info.Name())
		return nil
	}
	a.Enable(ctx)
	if !a.IsActive() {
		p.warn("Addon %s could not be enabled", t.info.Name())
		return nil
	}
	p.info("Enabled addon %s", t.info.Name())
	return nil
}

func disableSubcommand(ctx context.Context, p *printer, svc *addon.Service, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return ErrInvalidArgs(AddonCommandName, usageDisable)
	}
	t, ok := resolveTarget(ctx, p, svc, args)
	if !ok {
		return nil
	}

	a := t.manager.GetAddon(t.info)
	if a == nil || !a.IsActive() {
		p.info("Addon %s is already disabled", t.info.Name())
		return nil
	}
	a.Disable(ctx)
	if a.IsActive() {
		p.warn("Addon %s could not be disabled", t.info.Name())
		return nil
	}
	p.info("Disabled addon %s", t.info.Name())
	return nil
}

func unloadSubcommand(ctx context.Context, p *printer, svc *addon.Service, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return ErrInvalidArgs(AddonCommandName, usageUnload)
	}
	t, ok := resolveTarget(ctx, p, svc, args)
	if !ok {
		return nil
	}

	if t.manager.GetAddon(t.info) == nil {
		p.info("Addon %s is already unloaded", t.info.Name())
		return nil
	}
	if err := t.manager.Unload(ctx, t.info); err != nil {
		p.warn("Addon %s could not be unloaded: %v", t.info.Name(), err)
		return nil
	}
	p.info("Unloaded addon %s", t.info.Name())
	return nil
}

func reloadSubcommand(ctx context.Context, p *printer, svc *addon.Service, args []string) error {
	if len(args) > 2 {
		return ErrInvalidArgs(AddonCommandName, usageReload)
	}
	if len(args) == 0 {
		for _, kind := range svc.Managers() {
			svc.Manager(kind).Reload(ctx)
			p.info("Addon manager %s has been reloaded", kind)
		}
		p.info("Reloaded all addon managers")
		return nil
	}

	t, ok := resolveTarget(ctx, p, svc, args)
	if !ok {
		return nil
	}
	if _, err := t.manager.ReloadAddon(ctx, t.info); err != nil {
		p.warn("Failed to reload addon %s", t.info.Name())
		return nil
	}
	p.info("Reloaded addon %s", t.info.Name())
	return nil
}

func statusSubcommand(ctx context.Context, p *printer, svc *addon.Service, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return ErrInvalidArgs(AddonCommandName, usageStatus)
	}
	t, ok := resolveTarget(ctx, p, svc, args)
	if !ok {
		return nil
	}

	a := t.manager.GetAddon(t.info)
	if a == nil {
		p.info("Addon %s is currently not loaded", t.info.Name())
		return nil
	}

	p.info("Status of addon %s:", t.info.Name())
	if a.IsActive() {
		p.info("  Status: Active")
	} else {
		p.info("  Status: Inactive")
	}
	p.info("  Version: %s", versionLabel(t.info))
	p.info("  Authors: [%s]", strings.Join(t.info.Authors(), ", "))
	p.info("  Threads: %d", len(a.Threads(ctx)))
	p.info("  Manager: %s", t.info.Kind())
	p.info("  Directory: %q", a.Dir())
	if since := a.ActivationTime(); since >= 0 {
		started := time.UnixMilli(since).UTC()
		uptime := svc.Env().Now().Sub(started).Truncate(time.Second)
		p.info("  Online since: %s (up %s)", started.Format(time.RFC3339), uptime)
	}
	return nil
}

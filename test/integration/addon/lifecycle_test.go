// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package addon_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/addonkit/internal/addon"
	"github.com/holomush/addonkit/internal/addon/builtin"
	addonlua "github.com/holomush/addonkit/internal/addon/lua"
	"github.com/holomush/addonkit/internal/addon/process"
	"github.com/holomush/addonkit/internal/console"
	"github.com/holomush/addonkit/internal/event"
	"github.com/holomush/addonkit/internal/permission"
	"github.com/holomush/addonkit/internal/settings"
	"github.com/holomush/addonkit/pkg/addonsdk"
	"github.com/holomush/addonkit/plugins/ticker"
)

const counterScript = `
local enabled = 0

function on_enable()
  enabled = enabled + 1
  addon.settings.set("enable_count", enabled)
end

function on_disable()
  addon.log("info", "counter stopping")
end

function threads()
  return { "counter" }
end
`

const operator = "admin"

// recorder collects lifecycle events.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) listen(_ context.Context, e event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// count returns the events of type t for the named addon, or for any addon
// when name is empty.
func (r *recorder) count(t event.Type, name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t && (name == "" || e.Addon.Name == name) {
			n++
		}
	}
	return n
}

func writeFile(path, content string, mode os.FileMode) {
	Expect(os.MkdirAll(filepath.Dir(path), 0o750)).To(Succeed())
	Expect(os.WriteFile(path, []byte(content), mode)).To(Succeed())
}

func writeZip(path string, files map[string]string) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		Expect(err).NotTo(HaveOccurred())
		_, err = io.WriteString(w, content)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(zw.Close()).To(Succeed())
	writeFile(path, buf.String(), 0o600)
}

func copyExecutable(src, dst string) {
	data, err := os.ReadFile(src)
	Expect(err).NotTo(HaveOccurred())
	writeFile(dst, string(data), 0o700)
}

var _ = Describe("Addon service with every kind", func() {
	var (
		ctx        context.Context
		root       string
		svc        *addon.Service
		rec        *recorder
		dispatcher *console.Dispatcher
	)

	run := func(line string) string {
		var out bytes.Buffer
		err := dispatcher.Dispatch(ctx, line, &console.Execution{
			Operator: operator,
			Output:   &out,
			Service:  svc,
		})
		Expect(err).NotTo(HaveOccurred(), "output: %s", out.String())
		return out.String()
	}

	find := func(kind, name string) *addon.Addon {
		m := svc.Manager(kind)
		if m == nil {
			return nil
		}
		for _, a := range m.Addons() {
			if a.Info().Name() == name {
				return a
			}
		}
		return nil
	}

	BeforeEach(func() {
		ctx = context.Background()
		root = GinkgoT().TempDir()

		writeFile(filepath.Join(root, "addons", builtin.Kind, "ticker", addon.DefaultInfoFile),
			ticker.Main+"\nTicker\n1.0.0\nAlice\n", 0o600)
		writeZip(filepath.Join(root, "addons", addonlua.Kind, "counter.zip"), map[string]string{
			addon.DefaultInfoFile: "main.lua\nCounter\n0.2.0\nBob\n",
			"main.lua":            counterScript,
		})
		writeFile(filepath.Join(root, "addons", process.Kind, "heartbeat", addon.DefaultInfoFile),
			"bin/heartbeat\nHeartbeat\n1.0.0\nCarol\n", 0o600)
		copyExecutable(heartbeatBinary, filepath.Join(root, "addons", process.Kind, "heartbeat", "bin", "heartbeat"))

		settingsYAML := "managers: [builtin, lua, process]\nmanager:\n"
		for _, kind := range []string{builtin.Kind, addonlua.Kind, process.Kind} {
			settingsYAML += "  " + kind + ":\n" +
				"    packages: " + filepath.Join(root, "addons", kind) + "\n" +
				"    run: " + filepath.Join(root, "run") + "\n"
		}
		settingsPath := filepath.Join(root, "addon.yaml")
		writeFile(settingsPath, settingsYAML, 0o600)

		logger := slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		bus := event.NewBus(logger)
		rec = &recorder{}
		for _, t := range []event.Type{event.AddonLoad, event.AddonEnable, event.AddonDisable, event.AddonUnload, event.Exception} {
			bus.Subscribe(t, rec.listen)
		}

		svc = addon.NewService(&addon.Env{
			Settings: settings.NewStore(settingsPath),
			Events:   bus,
			Logger:   logger,
		},
			addon.WithKind(builtin.Kind, builtin.Factory),
			addon.WithKind(addonlua.Kind, addonlua.Factory),
			addon.WithKind(process.Kind, process.Factory),
		)
		Expect(svc.Start(ctx)).To(Succeed())

		enforcer := permission.NewEnforcer()
		Expect(enforcer.Grant(operator, []string{"addon", "addon.**"})).To(Succeed())
		var err error
		dispatcher, err = console.NewDispatcher(console.NewDefaultRegistry(), enforcer, console.WithLogger(logger))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(svc.Stop(ctx)).To(Succeed())
	})

	It("loads and enables one addon per kind", func() {
		Expect(svc.Managers()).To(Equal([]string{builtin.Kind, addonlua.Kind, process.Kind}))

		for kind, name := range map[string]string{
			builtin.Kind:  "Ticker",
			addonlua.Kind: "Counter",
			process.Kind:  "Heartbeat",
		} {
			a := find(kind, name)
			Expect(a).NotTo(BeNil(), "%s addon %s", kind, name)
			Expect(a.IsActive()).To(BeTrue(), "%s addon %s", kind, name)
			Expect(rec.count(event.AddonLoad, name)).To(Equal(1))
			Expect(rec.count(event.AddonEnable, name)).To(Equal(1))
		}
		Expect(rec.count(event.Exception, "")).To(BeZero())
	})

	It("collects threads from every active addon", func() {
		names := map[string]string{}
		for _, t := range svc.Threads(ctx) {
			names[t.Name] = t.Owner
		}
		Expect(names).To(HaveKeyWithValue("tick-loop", "Ticker"))
		Expect(names).To(HaveKeyWithValue("counter", "Counter"))
		Expect(names).To(HaveKeyWithValue("beat", "Heartbeat"))

		run("addon disable Heartbeat")
		Expect(svc.Threads(ctx)).NotTo(ContainElement(HaveField("Name", "beat")))
	})

	It("lets the process addon write into its working directory", func() {
		a := find(process.Kind, "Heartbeat")
		Expect(a).NotTo(BeNil())
		Eventually(func() error {
			_, err := os.Stat(filepath.Join(a.Dir(), "heartbeat"))
			return err
		}).Should(Succeed())
	})

	It("persists lua settings across a reload", func() {
		out := run("addon reload Counter")
		Expect(out).To(ContainSubstring("Reloaded addon Counter"))

		a := find(addonlua.Kind, "Counter")
		Expect(a).NotTo(BeNil())
		Expect(a.IsActive()).To(BeTrue())
		Expect(rec.count(event.AddonEnable, "Counter")).To(Equal(2))
		Expect(a.Settings().Int("enable_count", 0)).To(BeNumerically(">=", 1))
	})

	It("drives the lifecycle from the console", func() {
		out := run("addon list")
		Expect(out).To(ContainSubstring("Ticker -v 1.0.0 [active]"))
		Expect(out).To(ContainSubstring("Counter -v 0.2.0 [active]"))
		Expect(out).To(ContainSubstring("Heartbeat -v 1.0.0 [active]"))
		Expect(out).To(ContainSubstring("In total: 3"))

		Expect(run("addon disable process Heartbeat")).To(ContainSubstring("Disabled addon Heartbeat"))
		Expect(find(process.Kind, "Heartbeat").IsActive()).To(BeFalse())

		Expect(run("addon unload Ticker")).To(ContainSubstring("Ticker"))
		Expect(find(builtin.Kind, "Ticker")).To(BeNil())
		Expect(rec.count(event.AddonUnload, "Ticker")).To(Equal(1))

		Expect(run("addon enable Ticker")).To(ContainSubstring("Enabled addon Ticker"))
		Expect(find(builtin.Kind, "Ticker").IsActive()).To(BeTrue())

		out = run("addon status Heartbeat")
		Expect(out).To(ContainSubstring("Status: Inactive"))
	})

	It("reports each addon's metadata to the addon itself", func() {
		a := find(builtin.Kind, "Ticker")
		Expect(a).NotTo(BeNil())
		Expect(a.Instance()).To(BeAssignableToTypeOf(&ticker.Ticker{}))
		Expect(a.Info().Metadata()).To(Equal(addonsdk.Metadata{
			Main:    ticker.Main,
			Name:    "Ticker",
			Version: "1.0.0",
			Authors: []string{"Alice"},
			Package: filepath.Join(root, "addons", builtin.Kind, "ticker"),
			Kind:    builtin.Kind,
		}))
	})
})

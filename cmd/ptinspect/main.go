package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/wippyai/passthrough/capability"
	"github.com/wippyai/passthrough/manifest"
	"github.com/wippyai/passthrough/resolve"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	cfg, err := loadEnv()
	if err != nil {
		return err
	}

	var (
		manifestPath = cfg.Manifest
		queries      []string
		aggregate    bool
		interactive  bool
		debug        = cfg.Debug
		logLevel     = cfg.LogLevel
		noColor      = cfg.NoColor
	)
	flags := pflag.NewFlagSet("ptinspect", pflag.ContinueOnError)
	flags.StringVarP(&manifestPath, "manifest", "m", manifestPath, "class manifest (YAML)")
	flags.StringArrayVarP(&queries, "query", "q", nil, "capability to query (repeatable)")
	flags.BoolVar(&aggregate, "aggregate", false, "create the instance inside an outer controller")
	flags.BoolVarP(&interactive, "interactive", "i", false, "interactive mode with TUI")
	flags.BoolVar(&debug, "debug", debug, "report capability overlaps between wrapper and target")
	flags.StringVar(&logLevel, "log-level", logLevel, "log level (debug, info, warn, error)")
	flags.BoolVar(&noColor, "no-color", noColor, "disable colored output")

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if manifestPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: ptinspect -m <class.yaml> [-q capability]... [--aggregate]")
		fmt.Fprintln(os.Stderr, "       ptinspect -m <class.yaml> -i  (interactive mode)")
		return fmt.Errorf("no manifest given")
	}

	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	installLogger(logger)

	m, err := manifest.LoadFile(manifestPath)
	if err != nil {
		return err
	}
	if debug {
		m.Debug = true
	}

	color := !noColor
	if f, ok := stdout.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		color = false
	}
	st := newStyles(color)

	if interactive {
		return runInteractive(m, aggregate, st)
	}
	return inspect(stdout, m, queries, aggregate, st)
}

func inspect(w io.Writer, m *manifest.Manifest, queries []string, aggregate bool, st styles) error {
	if err := printClass(w, m, st); err != nil {
		return err
	}

	s, err := openSession(m, aggregate)
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}

	fmt.Fprintf(w, "\n%s\n", st.title.Render("Queries"))
	if len(queries) == 0 {
		queries = s.candidates()
	}
	for _, q := range queries {
		fmt.Fprintln(w, formatResult(s.query(q), st))
	}

	if s.pair != nil {
		for _, c := range s.pair.Diagnostics() {
			fmt.Fprintln(w, st.warn.Render(fmt.Sprintf("overlap: %s is implemented locally and by the target in slot %d",
				capability.Name(c.ID), c.Slot)))
		}
	}

	fmt.Fprintf(w, "\n%s\n", st.title.Render("Teardown"))
	for _, line := range s.close() {
		fmt.Fprintf(w, "  %s\n", st.dim.Render(line))
	}
	return nil
}

func printClass(w io.Writer, m *manifest.Manifest, st styles) error {
	primary, companion, err := m.Tables()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %s\n", st.title.Render("Class"), st.name.Render(m.Name))
	fmt.Fprintf(w, "  id        %s\n", m.ClassID())
	fmt.Fprintf(w, "  strategy  %s (%s)\n", m.Strategy, m.Strategy.Mode())
	fmt.Fprintf(w, "  threading %s\n", m.ThreadModel)
	fmt.Fprintf(w, "  debug     %v\n", m.Debug)

	for _, half := range []struct {
		name  string
		table *resolve.Table
	}{{"primary", primary}, {"companion", companion}} {
		fmt.Fprintf(w, "\n%s\n", st.title.Render(half.name))
		for _, e := range half.table.Entries() {
			fmt.Fprintf(w, "  %s\n", formatEntry(e, st))
		}
		if d, ok := half.table.Delegate(); ok {
			fmt.Fprintf(w, "  %s everything else -> slot %d\n", st.kind.Render("delegate"), d.Slot)
		}
		if half.table.Len() == 0 {
			fmt.Fprintf(w, "  %s\n", st.dim.Render("(empty)"))
		}
	}

	if len(m.Target.Implements) > 0 {
		fmt.Fprintf(w, "\n%s %s\n", st.title.Render("target"), strings.Join(m.Target.Implements, ", "))
	}
	return nil
}

func formatEntry(e resolve.Entry, st styles) string {
	line := st.kind.Render(fmt.Sprintf("%-8s", e.Kind)) + " " + st.name.Render(capability.Name(e.ID))
	if e.Kind == resolve.KindForward {
		line += fmt.Sprintf(" -> slot %d", e.Slot)
		if !e.Alias.IsZero() {
			line += " as " + st.name.Render(capability.Name(e.Alias))
		}
	}
	return line
}

func formatResult(r queryResult, st styles) string {
	if r.err != nil {
		return fmt.Sprintf("  %-24s %s", r.name, st.err.Render(r.err.Error()))
	}
	identity := st.ok.Render("identity ok")
	if !r.identity {
		identity = st.err.Render("identity MISMATCH")
	}
	return fmt.Sprintf("  %-24s %s  %s", r.name, st.ok.Render(r.how), identity)
}

type styles struct {
	title lipgloss.Style
	name  lipgloss.Style
	kind  lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	dim   lipgloss.Style
	sel   lipgloss.Style
	help  lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain, plain.Bold(true), plain}
	}
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		name: lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98")),
		kind: lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
		ok:   lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90")),
		err:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		warn: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD166")),
		dim:  lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		sel: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")),
		help: lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"scaffold-planner/internal/cli"
	"scaffold-planner/internal/model"
)

func isDate(s string) bool {
	d, err := model.ParseDate(s)
	return err == nil && !d.IsZero()
}

func isProjectID(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "prj-") && len(s) > len("prj-")
}

// shortcut maps a bare positional token to the command it abbreviates.
func shortcut(tok string) []string {
	switch {
	case isDate(tok):
		return []string{"week", "--date", strings.TrimSpace(tok)}
	case isProjectID(tok):
		return []string{"projects", "show", strings.TrimSpace(tok)}
	}
	return nil
}

func rewriteShortcutArgs(argv []string) []string {
	// Convenience: `planner 2026-10-19` shows that week and `planner prj-abc` shows a project.
	//
	// Cobra treats the first non-flag token as a subcommand, so argv is rewritten before
	// parsing. Persistent flags may come first, so look for the first positional token.
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--backend":   true,
		"--db":        true,
		"--server":    true,
		"--notifier":  true,
		"--format":    true,
		"--log-level": true,
	}

	rewrite := func(i int) []string {
		repl := shortcut(argv[i])
		if repl == nil {
			return argv
		}
		out := make([]string, 0, len(argv)+len(repl))
		out = append(out, argv[:i]...)
		out = append(out, repl...)
		out = append(out, argv[i+1:]...)
		return out
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) {
				return rewrite(i + 1)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		return rewrite(i)
	}
	return argv
}

func main() {
	os.Args = rewriteShortcutArgs(os.Args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

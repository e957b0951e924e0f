package serve

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"sigmakit/internal/codec"
	"sigmakit/internal/config"
)

// banner prints the startup summary operators read before the first session.
func banner(w io.Writer, c *config.Config, addr string, statements []string) {
	title := color.New(color.FgCyan, color.Bold)
	key := color.New(color.FgHiBlack)
	lim := codec.LimitsFrom(c)

	title.Fprintln(w, "sigmactl verifier")
	line := func(k, format string, args ...any) {
		key.Fprintf(w, "%s: ", k)
		fmt.Fprintf(w, format+"\n", args...)
	}
	line("Mode", "serve")
	line("Listen", "%s", addr)
	line("Limits", "depth=%d items=%d frame=%d", lim.MaxDepth, lim.MaxItems, lim.MaxBytes)
	line("Statements", "%s", strings.Join(statements, ", "))
	if c.ArchivePath != "" {
		line("Archive", "%s", c.ArchivePath)
	} else {
		line("Archive", "%s", color.YellowString("off"))
	}
	if c.MetricsAddr != "" {
		line("Admin", "http://%s/metrics", c.MetricsAddr)
	}
}

// ABOUTME: Help display for the ark CLI with grouped flags, subcommands, examples, and environment status.
// ABOUTME: Provides printHelp for usage output and envStatus for API key detection.
package main

import (
	"fmt"
	"io"
	"os"
)

// printHelp writes a formatted help message to w.
func printHelp(w io.Writer, ver string) {
	fmt.Fprintf(w, "ark %s: resumable, staged backup curation\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  ark -target <dir> -source <dir> [-source <dir>...]   Curate and copy a backup")
	fmt.Fprintln(w, "  ark -resume <run-id>                                   Resume a paused run")
	fmt.Fprintln(w, "  ark runs [-status paused]                              List recorded runs")
	fmt.Fprintln(w, "  ark report [-format md|html] <run-id>                  Print a run report")
	fmt.Fprintln(w, "  ark serve [-addr 127.0.0.1:2389] [-index]              Start the inspection API")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Run Flags:")
	fmt.Fprintln(w, "  -target <dir>         Backup target directory")
	fmt.Fprintln(w, "  -source <dir>         Source root to scan (repeatable; none uses a sample dataset)")
	fmt.Fprintln(w, "  -dry-run              Plan the backup without copying")
	fmt.Fprintln(w, "  -non-interactive      Accept every default without prompting")
	fmt.Fprintln(w, "  -include-excluded     Show screened-out and ignored files in the review")
	fmt.Fprintln(w, "  -show-all             Start the review with low-value branches visible")
	fmt.Fprintln(w, "  -page-size <n>        Entries per review page (default: 20)")
	fmt.Fprintln(w, "  -rules-dir <dir>      Ignore, suffix and rules.md overrides (default: $XDG_CONFIG_HOME/ark/rules)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Model Flags:")
	fmt.Fprintln(w, "  -llm                  Classify with a model over an OpenAI-compatible API")
	fmt.Fprintln(w, "  -model <name>         Model name")
	fmt.Fprintln(w, "  -base-url <url>       Custom API base URL for the model provider")
	fmt.Fprintln(w, "  -full-paths           Send full paths instead of base names")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Other:")
	fmt.Fprintln(w, "  -config <file>        Config file (default: $XDG_CONFIG_HOME/ark/config.yaml)")
	fmt.Fprintln(w, "  -data-dir <dir>       Run state and logs (default: $XDG_DATA_HOME/ark)")
	fmt.Fprintln(w, "  -index                Mirror events into the SQLite event index")
	fmt.Fprintln(w, "  -log-level <level>    debug, info, warn, error (default: info)")
	fmt.Fprintln(w, "  -version              Print version and exit")
	fmt.Fprintln(w, "  -help                 Show this help")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  ark -target /mnt/backup -source ~/Documents -source ~/Pictures")
	fmt.Fprintln(w, "  ark -target /mnt/backup -source ~ -dry-run -non-interactive")
	fmt.Fprintln(w, "  ark -llm -model gpt-4o-mini -target /mnt/backup -source ~")
	fmt.Fprintln(w, "  ark report -format html 3f2b9c1e-... > report.html")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  OPENAI_API_KEY        %s\n", envStatus("OPENAI_API_KEY"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Without a key (or with -llm off) every stage uses local heuristics.")
}

// envStatus returns "[set]" if the named environment variable is non-empty,
// or "[not set]" otherwise.
func envStatus(key string) string {
	if os.Getenv(key) != "" {
		return "[set]"
	}
	return "[not set]"
}

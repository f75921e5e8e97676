// ABOUTME: Help display for the tubular CLI with grouped flags, examples, and environment status.
// ABOUTME: Provides printHelp for usage output and envStatus for API key detection.
package main

import (
	"fmt"
	"io"
	"os"
)

const tubularASCII = `
   __        __          __
  / /___  __/ /_  __  __/ /___ ______
 / __/ / / / __ \/ / / / / __ ` + "`" + `/ ___/
/ /_/ /_/ / /_/ / /_/ / / /_/ / /
\__/\__,_/_.___/\__,_/_/\__,_/_/
`

// printHelp writes a formatted help message to w, including usage patterns,
// grouped flags, examples, and environment status.
func printHelp(w io.Writer, ver string) {
	fmt.Fprint(w, tubularASCII)
	fmt.Fprintf(w, "tubular %s — chat with YouTube video transcripts\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tubular -add <url> [<url>...]      Ingest video transcripts")
	fmt.Fprintln(w, "  tubular -chat                      Interactive terminal chat")
	fmt.Fprintln(w, "  tubular -tui                       Interactive full-screen chat")
	fmt.Fprintln(w, "  tubular -server [-port 8087]       Start HTTP API server")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Knowledge Base:")
	fmt.Fprintln(w, "  -stats                Show indexed documents and videos")
	fmt.Fprintln(w, "  -delete <video-id>    Remove one video from the index")
	fmt.Fprintln(w, "  -reset                Clear the index (asks for confirmation)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Storage:")
	fmt.Fprintln(w, "  -storage              Show run directories and disk usage")
	fmt.Fprintln(w, "  -cleanup              Delete old run directories per retention policy")
	fmt.Fprintln(w, "  -dry-run              Preview cleanup without deleting")
	fmt.Fprintln(w, "  -yes                  Skip confirmation prompts")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Other:")
	fmt.Fprintln(w, "  -data-dir <dir>       Persistent state directory (default: $XDG_DATA_HOME/tubular)")
	fmt.Fprintln(w, "  -port <port>          Server port (default: 8087)")
	fmt.Fprintln(w, "  -verbose              Verbose output")
	fmt.Fprintln(w, "  -version              Print version and exit")
	fmt.Fprintln(w, "  -help                 Show this help")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  tubular -add https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	fmt.Fprintln(w, "  tubular -add dQw4w9WgXcQ -chat")
	fmt.Fprintln(w, "  tubular -cleanup -dry-run")
	fmt.Fprintln(w, "  tubular -server -port 8087")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  GROQ_API_KEY          %s\n", envStatus("GROQ_API_KEY"))
	fmt.Fprintf(w, "  OPENAI_API_KEY        %s\n", envStatus("OPENAI_API_KEY"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  One API key is required for ingest, chat, and server modes.")
}

// envStatus returns "[set]" if the named environment variable is non-empty,
// or "[not set]" otherwise.
func envStatus(key string) string {
	if os.Getenv(key) != "" {
		return "[set]"
	}
	return "[not set]"
}

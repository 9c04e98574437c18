// ABOUTME: Help display for the nodegraph CLI with grouped flags and examples.
// ABOUTME: Provides printHelp for usage output shared by -h and the bare invocation.
package main

import (
	"fmt"
	"io"
)

// printHelp writes a formatted help message to w, including usage patterns,
// grouped flags, and examples.
func printHelp(w io.Writer, ver string) {
	fmt.Fprintf(w, "nodegraph %s - headless node graph engine\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  nodegraph <graph.json>              Evaluate a graph and print terminal values")
	fmt.Fprintln(w, "  nodegraph -validate <graph.json>    Deserialize without evaluating")
	fmt.Fprintln(w, "  nodegraph -server [-port 2389]      Start the HTTP editing API")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Server Flags:")
	fmt.Fprintln(w, "  -port <port>       Server port (default: 2389)")
	fmt.Fprintln(w, "  -data-dir <dir>    Graph library directory (default: $XDG_DATA_HOME/nodegraph)")
	fmt.Fprintln(w, "  -config <file>     Config file (default: $XDG_CONFIG_HOME/nodegraph/config.yaml)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "General Flags:")
	fmt.Fprintln(w, "  -verbose           Verbose output")
	fmt.Fprintln(w, "  -version           Print version and exit")
	fmt.Fprintln(w, "  -h, -help          Show this help")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  nodegraph calc.json")
	fmt.Fprintln(w, "  nodegraph -validate calc.json")
	fmt.Fprintln(w, "  nodegraph -server -port 8080 -data-dir ./graphs")
}

// Command reveriectl is the operator CLI for the Reverie API: it applies
// database migrations, mints development tokens, previews share cards and
// grants manual retries directly against the entry store.
package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		slog.Error("reveriectl failed to run", "error", err)
		os.Exit(1)
	}
}

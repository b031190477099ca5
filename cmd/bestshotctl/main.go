// Command bestshotctl seeds and inspects a Best Shot deployment: it loads the
// catalog and guest list, prints progress and ranking tables, resets
// participants and renders the PDF summary locally.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

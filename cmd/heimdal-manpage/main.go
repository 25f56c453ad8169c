package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/limistah/heimdal/cmd/heimdal"
	"github.com/limistah/heimdal/internal/version"
)

func main() {
	rootCmd := heimdal.NewRootCmd()

	header := &doc.GenManHeader{
		Title:   "HEIMDAL",
		Section: "1",
		Source:  "heimdal " + version.Version,
		Manual:  "heimdal manual",
	}

	// One page per command when a directory is given, else the root page.
	var err error
	if len(os.Args) > 1 {
		err = doc.GenManTree(rootCmd, header, os.Args[1])
	} else {
		err = doc.GenMan(rootCmd, header, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}

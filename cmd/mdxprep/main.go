// Command mdxprep prepares the vendored mdxtools and portable_mdx sources of
// a PlatformIO project for embedded builds.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/mdxprep/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

// Command checker validates an xv6-style file system image offline, without
// mounting it, and reports findings with error:/warning: prefixes. Exit
// codes follow checker.StatusOK/StatusInvalid/StatusUnreadable.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"golang.org/x/sys/unix"

	"github.com/Fudanyrd/xv6fs/blockio"
	"github.com/Fudanyrd/xv6fs/checker"
)

func main() {
	app := cli.App{
		Name:      "checker",
		Usage:     "Validate an xv6-style file system image",
		ArgsUsage: "IMAGE_PATH",
		Action:    runCheck,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func runCheck(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return cli.Exit("expected exactly one argument: the image path", 2)
	}
	path := context.Args().Get(0)

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(checker.StatusUnreadable)
	}
	defer f.Close()

	// A shared lock lets multiple checker runs read the same image
	// concurrently but still blocks while mkfs holds its exclusive lock.
	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH); err == nil {
		defer unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}

	stream, unmap, err := blockio.MmapReadOnly(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(checker.StatusUnreadable)
	}
	defer unmap()

	report, status := checker.Check(stream)
	for _, msg := range report.Errors() {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	}
	for _, msg := range report.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
	}

	os.Exit(status)
	return nil
}

package cli

import (
	"fmt"
	"strings"
)

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	// Bare flags behave like the download command: mstream-dl -v <url>.
	if strings.HasPrefix(args[0], "-") && !isHelpArg(args[0]) {
		return runDownload(args)
	}

	switch args[0] {
	case "download":
		return runDownload(args[1:])
	case "settings":
		return runSettings(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "report":
		return runReport(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func isHelpArg(arg string) bool {
	return arg == "-h" || arg == "--help"
}

func printRootUsage() {
	fmt.Println("mstream-dl: download Microsoft Stream videos with aria2c + ffmpeg")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  export MSTREAM_COOKIE='Authorization=...; Signature=...'")
	fmt.Println("  mstream-dl doctor")
	fmt.Println("  mstream-dl download -v https://web.microsoftstream.com/video/<id>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  download  download one or more videos into MP4 files")
	fmt.Println("  settings  show/update saved defaults (identity, output dir, quality, connections)")
	fmt.Println("  doctor    check aria2c, ffmpeg and writable directories")
	fmt.Println("  report    show the last batch report for an output directory")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - The session cookie comes from --cookie, MSTREAM_COOKIE, or")
	fmt.Println("    MSTREAM_AUTHORIZATION + MSTREAM_SIGNATURE (.env and .env.local are read)")
	fmt.Println("  - Use --json on commands for machine-readable output")
}

package cli

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"mstream-dl/internal/tools"
	"mstream-dl/internal/workspace"
)

func runSettings(args []string) error {
	if len(args) == 0 {
		printSettingsUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runSettingsShow(args[1:])
	case "set":
		return runSettingsSet(args[1:])
	case "help", "-h", "--help":
		printSettingsUsage()
		return nil
	default:
		printSettingsUsage()
		return fmt.Errorf("unknown settings subcommand %q", args[0])
	}
}

func runSettingsShow(args []string) error {
	fs := flag.NewFlagSet("settings show", flag.ContinueOnError)
	config := fs.String("config", workspace.DefaultConfigPath, "settings file path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	configPath := workspace.NormalizeConfigPath(*config)
	s, err := workspace.ReadSettings(configPath)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"config_path": configPath,
			"settings":    s,
		})
	}
	printSettings(configPath, s)
	return nil
}

func runSettingsSet(args []string) error {
	fs := flag.NewFlagSet("settings set", flag.ContinueOnError)
	config := fs.String("config", workspace.DefaultConfigPath, "settings file path")
	identity := fs.String("identity", "", "account label (empty keeps current)")
	outputDir := fs.String("output-dir", "", "default output directory (empty keeps current)")
	conn := fs.Int("conn", -1, "default aria2c connections 1-16 (-1 keeps current)")
	quality := fs.String("quality", "", "default rendition index (out of range picks the best), or 'ask' to prompt every time (empty keeps current)")
	datePrefix := fs.String("date-prefix", "", "prefix file names with the lesson date: y|n (empty keeps current)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	configPath := workspace.NormalizeConfigPath(*config)
	s, err := workspace.ReadSettings(configPath)
	if err != nil {
		return err
	}
	if err := applySettingsFlags(&s, *identity, *outputDir, *conn, *quality, *datePrefix); err != nil {
		return err
	}

	saved, err := workspace.SaveSettings(configPath, s)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"config_path": configPath,
			"settings":    saved,
		})
	}
	fmt.Printf("updated settings in %s\n", configPath)
	printSettings(configPath, saved)
	return nil
}

func applySettingsFlags(s *workspace.Settings, identity, outputDir string, conn int, quality, datePrefix string) error {
	if v := strings.TrimSpace(identity); v != "" {
		s.Identity = v
	}
	if v := strings.TrimSpace(outputDir); v != "" {
		s.OutputDir = v
	}
	if conn != -1 {
		if conn < tools.MinConnections || conn > tools.MaxConnections {
			return fmt.Errorf("--conn must be between %d and %d", tools.MinConnections, tools.MaxConnections)
		}
		s.Connections = conn
	}
	switch q := strings.ToLower(strings.TrimSpace(quality)); q {
	case "":
	case "ask":
		s.Quality = nil
	default:
		n, err := strconv.Atoi(q)
		if err != nil {
			return errors.New("--quality must be a rendition index or 'ask'")
		}
		s.Quality = intPtr(n)
	}
	if strings.TrimSpace(datePrefix) != "" {
		v, ok := parseBool(datePrefix)
		if !ok {
			return errors.New("--date-prefix must be y or n")
		}
		s.DatePrefix = &v
	}
	return nil
}

func printSettings(configPath string, s workspace.Settings) {
	fmt.Printf("config: %s\n", configPath)
	fmt.Printf("identity: %s\n", firstNonEmpty(s.Identity, "(none)"))
	fmt.Printf("output_dir: %s\n", s.OutputDir)
	fmt.Printf("connections: %d\n", s.Connections)
	if s.Quality == nil {
		fmt.Println("quality: ask")
	} else {
		fmt.Printf("quality: %d\n", *s.Quality)
	}
	datePrefix := workspace.DefaultDatePrefix
	if s.DatePrefix != nil {
		datePrefix = *s.DatePrefix
	}
	fmt.Printf("date_prefix: %s\n", boolToYN(datePrefix))
}

func printSettingsUsage() {
	fmt.Println("settings commands:")
	fmt.Println("  mstream-dl settings show [--config <path>] [--json]")
	fmt.Println("  mstream-dl settings set [--identity <label>] [--output-dir <dir>] [--conn <1-16>]")
	fmt.Println("                          [--quality <index|ask>] [--date-prefix y|n] [--json]")
}

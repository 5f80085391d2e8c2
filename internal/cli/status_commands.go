package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"mstream-dl/internal/model"
	"mstream-dl/internal/runstore"
	"mstream-dl/internal/workspace"
)

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	outputDir := fs.String("output-dir", "", "output directory (default from settings)")
	config := fs.String("config", workspace.DefaultConfigPath, "settings file path")
	breakLock := fs.Bool("break-lock", false, "remove a lock left behind by a crashed download")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	dir, err := resolveOutputDir(*config, *outputDir)
	if err != nil {
		return err
	}
	if *breakLock {
		if err := runstore.BreakRunLock(dir); err != nil {
			return err
		}
		if !*jsonOut {
			fmt.Printf("removed lock in %s\n", dir)
		}
	}

	res := workspace.Doctor(workspace.DoctorOptions{
		OutputDir:  dir,
		ConfigPath: strings.TrimSpace(*config),
	})
	if *jsonOut {
		return printJSON(res)
	}

	for _, c := range res.Checks {
		status := "ok"
		if !c.OK {
			status = "fail"
		}
		fmt.Printf("%s: %s (%s)\n", c.Name, status, c.Message)
	}
	if !res.OK {
		return errors.New("doctor checks failed")
	}
	fmt.Println("doctor: all checks passed")
	return nil
}

func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	outputDir := fs.String("output-dir", "", "output directory (default from settings)")
	config := fs.String("config", workspace.DefaultConfigPath, "settings file path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	dir, err := resolveOutputDir(*config, *outputDir)
	if err != nil {
		return err
	}
	var report model.BatchReport
	if err := runstore.ReadJSON(reportPath(dir), &report); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Printf("no downloads recorded in %s\n", dir)
			return nil
		}
		return err
	}
	if *jsonOut {
		return printJSON(report)
	}

	fmt.Printf("run: %s\n", report.RunID)
	fmt.Printf("  started: %s\n", report.StartedAt)
	if report.FinishedAt != "" {
		fmt.Printf("  finished: %s\n", report.FinishedAt)
	}
	fmt.Printf("  completed/aborted/total: %d/%d/%d\n", report.Completed, report.Aborted, report.Total)
	for _, job := range report.Jobs {
		fmt.Printf("[%d] %s [%s]\n", job.Index, firstNonEmpty(job.Title, job.VideoURL), job.Stage)
		switch job.Stage {
		case model.StageDone:
			fmt.Printf("  output: %s (%s)\n", job.OutputPath, humanize.Bytes(uint64(job.OutputBytes)))
		case model.StageAborted:
			fmt.Printf("  reason: %s\n", job.Reason)
			if job.LastError != "" {
				fmt.Printf("  error: %s\n", firstLine(job.LastError))
			}
		}
	}
	return nil
}

func resolveOutputDir(configPath, flagValue string) (string, error) {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v, nil
	}
	saved, err := workspace.ReadSettings(configPath)
	if err != nil {
		return "", err
	}
	return firstNonEmpty(saved.OutputDir, workspace.DefaultOutputDir), nil
}

func reportPath(outputDir string) string {
	return runstore.LastReportPath(outputDir)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

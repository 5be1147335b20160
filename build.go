//go:build ignore

// build.go - dashboard build helper
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, server, report, test, clean

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const module = "econdash"

var (
	distDir = "dist"

	// key = cmd directory, value = binary name
	executables = map[string]string{
		"dashboard-server": "dashboard-server",
		"series-report":    "series-report",
	}

	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	fmt.Println(colorCyan + "=== Malaysia Economic Dashboard - Build ===" + colorReset)
	start := time.Now()

	var err error
	switch *target {
	case "all":
		for _, name := range []string{"dashboard-server", "series-report"} {
			if err = buildExecutable(name, *verbose); err != nil {
				break
			}
		}
	case "server":
		err = buildExecutable("dashboard-server", *verbose)
	case "report":
		err = buildExecutable("series-report", *verbose)
	case "test":
		err = runTests(*verbose)
	case "clean":
		err = os.RemoveAll(distDir)
	default:
		fmt.Println("Targets: all, server, report, test, clean")
		os.Exit(1)
	}

	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(start).Round(time.Millisecond)))
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func buildExecutable(name string, verbose bool) error {
	out := executables[name]
	if runtime.GOOS == "windows" {
		out += ".exe"
	}
	outputPath := filepath.Join(distDir, out)
	printInfo(fmt.Sprintf("Building %s...", name))

	ldflags := fmt.Sprintf("-s -w -X %s/internal/app.BuildTime=%s",
		module, time.Now().UTC().Format(time.RFC3339))

	args := []string{"build", "-ldflags", ldflags, "-o", outputPath, "./cmd/" + name}
	if verbose {
		args = append([]string{"build", "-v"}, args[1:]...)
		fmt.Printf("go %s\n", strings.Join(args, " "))
	}

	if err := run(verbose, "go", args...); err != nil {
		return fmt.Errorf("failed to build %s: %w", name, err)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", out, float64(info.Size())/1024/1024))
	}
	return nil
}

func runTests(verbose bool) error {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	return run(true, "go", append(args, "./...")...)
}

func run(stream bool, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if stream {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

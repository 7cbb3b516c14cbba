package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bianoble/contentpack/internal/logging"
	"github.com/bianoble/contentpack/internal/platform"
	"github.com/bianoble/contentpack/pkg/contentpack"
)

// newClient opens the project named by --config.
func newClient() (*contentpack.Client, error) {
	client, err := contentpack.New(contentpack.Options{
		ConfigPath: configPath,
		NoInherit:  noInherit,
		BatchPath:  batchPath,
		CacheDir:   cacheDir,
		Log:        logging.New(verbose, quiet),
	})
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", configPath, err)
	}
	return client, nil
}

// parsePlatforms converts --platform values, accepting comma separated lists.
func parsePlatforms(values []string) ([]platform.Platform, error) {
	var names []string
	for _, v := range values {
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}
	return platform.ParseList(names)
}

// confirm asks a yes/no question on stdin. Anything but y/yes is a no.
func confirm(in io.Reader, question string) bool {
	fmt.Printf("%s [y/N] ", question)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func humanSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

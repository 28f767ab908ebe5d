// gen_file fills a directory with random files for ftserver to share.
//
// Usage:
//
//	gen_file SIZE [NAME] [--dir D] [--count N]
//
// SIZE accepts suffixes: B, KB, MB, GB (e.g., "256KB", "1MB", "65536").
// Without NAME, names are derived from the size. A file that already has
// the requested size is reused.
package main

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/danmuck/ftserve/src/client"
	"github.com/spf13/cobra"
)

var (
	outDir string
	count  int
)

var rootCmd = &cobra.Command{
	Use:           "gen_file SIZE [NAME]",
	Short:         "Generate random files in a served directory",
	Args:          cobra.RangeArgs(1, 2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		size, err := parseSize(args[0])
		if err != nil {
			return err
		}
		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		names, err := fileNames(name, size, count)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", outDir, err)
		}
		for _, n := range names {
			if err := generate(cmd.OutOrStdout(), filepath.Join(outDir, n), size); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&outDir, "dir", ".", "directory to write into, usually the server's base_dir")
	rootCmd.Flags().IntVarP(&count, "count", "n", 1, "number of files to generate")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// generate writes size random bytes to path unless it already holds that many.
func generate(w io.Writer, path string, size int64) error {
	if info, err := os.Stat(path); err == nil {
		if info.Mode().IsRegular() && info.Size() == size {
			fmt.Fprintf(w, "Reusing existing file: %s (%d bytes)\n", path, size)
			return nil
		}
		fmt.Fprintf(w, "File exists but size mismatch (%d != %d), regenerating\n", info.Size(), size)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.CopyN(f, rand.Reader, size); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	fmt.Fprintf(w, "Generated: %s (%d bytes)\n", path, size)
	return nil
}

// fileNames returns n names that the server will list and serve.
func fileNames(name string, size int64, n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("count must be >= 1, got %d", n)
	}
	base, ext := name, ""
	if name == "" {
		base, ext = "test_"+sizeLabel(size), ".dat"
	} else {
		ext = filepath.Ext(name)
		base = name[:len(name)-len(ext)]
	}

	names := make([]string, 0, n)
	for i := range n {
		candidate := base + ext
		if n > 1 {
			candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		if err := client.ValidateFileName(candidate); err != nil {
			return nil, err
		}
		names = append(names, candidate)
	}
	return names, nil
}

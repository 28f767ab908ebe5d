package main

import (
	"os"

	logs "github.com/danmuck/smplog"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logs.Errorf(err, "ftserver")
		os.Exit(1)
	}
}

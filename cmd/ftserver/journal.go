package main

import (
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/danmuck/ftserve/src/journal"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var journalFile string

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Print the sessions recorded in a journal file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if journalFile == "" {
			return errors.New("--path is required")
		}
		entries, err := journal.ReadFile(journalFile)
		if err != nil {
			return err
		}
		printJournal(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	journalCmd.Flags().StringVar(&journalFile, "path", "", "journal file written by ftserver --journal")
}

func printJournal(w io.Writer, entries []journal.Entry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Client", "Mode", "Port", "Outcome", "File", "Bytes", "Detail"})

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, e := range entries {
		table.Append([]string{
			e.Time.Local().Format(time.DateTime),
			e.Client,
			e.Mode.String(),
			strconv.Itoa(int(e.DataPort)),
			e.Outcome,
			e.FileName,
			strconv.FormatUint(uint64(e.BodyLength), 10),
			e.Detail,
		})
	}
	table.Render()
}

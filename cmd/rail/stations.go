package main

import (
	"fmt"

	"github.com/amonks/rail/internal/ui"
	"github.com/amonks/rail/train"
	"github.com/spf13/cobra"
)

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "List the stations an operator serves",
	Args:  cobra.NoArgs,
	RunE:  runStations,
}

var stationsMode string

func init() {
	rootCmd.AddCommand(stationsCmd)
	stationsCmd.Flags().StringVarP(&stationsMode, "mode", "m", "", "Operator (KTX, SRT)")
}

func runStations(cmd *cobra.Command, _ []string) error {
	mode := current.mode
	if stationsMode != "" {
		parsed, err := train.ParseMode(stationsMode)
		if err != nil {
			return err
		}
		mode = parsed
	}

	origin, destination := train.DefaultRoute(mode)
	stations := train.Stations(mode)
	builder := ui.NewTableBuilder([]string{"NAME", "CODE", "DEFAULT"}, len(stations))
	for _, station := range stations {
		role := ""
		switch station.Name {
		case origin.Name:
			role = "from"
		case destination.Name:
			role = "to"
		}
		code := station.Code
		if code == "" {
			code = "-"
		}
		builder.AddRow(station.Name, code, role)
	}
	fmt.Fprint(cmd.OutOrStdout(), builder.String())
	return nil
}

package main

import (
	"strings"
	"time"

	"github.com/amonks/rail/train"
	"github.com/amonks/rail/workflow"
	"github.com/spf13/cobra"
)

// criteriaFlags are the search selections shared by search and reserve.
type criteriaFlags struct {
	mode    string
	from    string
	to      string
	date    string
	clock   string
	account int64
}

func (f *criteriaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "Operator (KTX, SRT)")
	cmd.Flags().StringVar(&f.from, "from", "", "Departure station (default depends on mode)")
	cmd.Flags().StringVar(&f.to, "to", "", "Arrival station (default 부산)")
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "Travel date: YYYY-MM-DD, YYYYMMDD, today, or tomorrow")
	cmd.Flags().StringVarP(&f.clock, "time", "t", "", "Earliest departure: HH:MM or HHMM")
	cmd.Flags().Int64VarP(&f.account, "account", "a", 0, "Worker account id")
	addStationFlagAliases(cmd)
}

// apply copies the flags onto a fresh controller session.
func (f *criteriaFlags) apply(cmd *cobra.Command, ctrl *workflow.Controller) error {
	if f.mode != "" {
		mode, err := train.ParseMode(f.mode)
		if err != nil {
			return err
		}
		if err := ctrl.SwitchMode(mode); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("from") {
		if err := ctrl.SetOrigin(f.from); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("to") {
		if err := ctrl.SetDestination(f.to); err != nil {
			return err
		}
	}
	if f.date != "" {
		if err := ctrl.SetDate(resolveDate(f.date, time.Now())); err != nil {
			return err
		}
	}
	if f.clock != "" {
		if err := ctrl.SetTime(f.clock); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("account") {
		if err := ctrl.SelectAccount(f.account); err != nil {
			return err
		}
	}
	return nil
}

func resolveDate(value string, now time.Time) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "today":
		return train.DateOf(now)
	case "tomorrow":
		return train.DateOf(now.AddDate(0, 0, 1))
	default:
		return value
	}
}

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/amonks/rail/diaglog"
	"github.com/amonks/rail/internal/ui"
	"github.com/amonks/rail/train"
	"github.com/amonks/rail/workflow"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "List departures for a route",
	Args:  cobra.NoArgs,
	RunE:  runSearch,
}

var (
	searchCriteria criteriaFlags
	searchJSON     bool
)

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCriteria.register(searchCmd)
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
}

func runSearch(cmd *cobra.Command, _ []string) error {
	ctrl, err := newController(nil)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := searchCriteria.apply(cmd, ctrl); err != nil {
		return err
	}
	candidates, err := ctrl.Search(cmd.Context())
	if err != nil {
		return sessionError(ctrl, err)
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		return encodeJSON(out, candidates)
	}
	session := ctrl.Session()
	printSearchHeader(out, session)
	if len(candidates) == 0 {
		fmt.Fprintln(out, session.Message)
		return nil
	}
	fmt.Fprint(out, formatCandidateTable(candidates))
	return nil
}

// sessionError prefers the controller's user-facing message over the raw
// error when it recorded one.
func sessionError(ctrl *workflow.Controller, err error) error {
	session := ctrl.Session()
	if session.MessageLevel == diaglog.LevelError && session.Message != "" {
		return &exitError{code: 1, message: session.Message}
	}
	return err
}

func printSearchHeader(out io.Writer, session workflow.Session) {
	fmt.Fprintf(out, "%s %s -> %s on %s from %s\n",
		session.Mode, session.Origin, session.Destination,
		train.FormatDate(session.Date), train.FormatClock(session.Time))
}

func formatCandidateTable(candidates []train.Candidate) string {
	builder := ui.NewTableBuilder([]string{"#", "TRAIN", "TYPE", "DEP", "ARR", "FARE", "SEATS"}, len(candidates))
	for i, candidate := range candidates {
		builder.AddRow(
			strconv.Itoa(i+1),
			candidate.TrainNo,
			candidate.TrainType,
			train.FormatClock(candidate.DepTime),
			train.FormatClock(candidate.ArrTime),
			formatFare(candidate.Fare),
			seatSummary(candidate),
		)
	}
	return builder.String()
}

func seatSummary(candidate train.Candidate) string {
	if !candidate.Reservable() {
		return "매진"
	}
	var classes []string
	if candidate.GeneralSeatAvailable {
		classes = append(classes, string(train.SeatGeneral))
	}
	if candidate.SpecialSeatAvailable {
		classes = append(classes, string(train.SeatSpecial))
	}
	if len(classes) == 0 {
		return "-"
	}
	return strings.Join(classes, ",")
}

// formatFare renders a fare in won with thousands separators.
func formatFare(fare float64) string {
	digits := strconv.FormatInt(int64(fare), 10)
	var builder strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			builder.WriteByte(',')
		}
		builder.WriteRune(r)
	}
	builder.WriteString("원")
	return builder.String()
}

// selectCandidate resolves a --train value: a 1-based index, a train
// number, or a train id.
func selectCandidate(candidates []train.Candidate, value string) (train.Candidate, error) {
	value = strings.TrimSpace(value)
	if index, err := strconv.Atoi(value); err == nil {
		if index < 1 || index > len(candidates) {
			return train.Candidate{}, fmt.Errorf("train %d out of range (1-%d)", index, len(candidates))
		}
		return candidates[index-1], nil
	}
	for _, candidate := range candidates {
		if candidate.TrainID == value || strings.EqualFold(candidate.TrainNo, value) {
			return candidate, nil
		}
	}
	return train.Candidate{}, fmt.Errorf("no train matches %q", value)
}

package workerstub

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/amonks/rail/train"
)

const (
	firstSlotMinute = 5*60 + 30
	lastSlotMinute  = 22*60 + 30
	slotSpacing     = 30
	maxResults      = 10
)

// Timetable returns a deterministic list of departures between two
// stations on date, starting no earlier than timeFrom (HHMM or HHMMSS).
// Every fourth slot is sold out.
func Timetable(mode train.Mode, dep, arr, date, timeFrom string) []train.Candidate {
	if dep == arr {
		return []train.Candidate{}
	}
	start := 0
	if clock, err := train.ParseClock(timeFrom); err == nil {
		start = minutesOf(clock)
	}
	travel := 150 + (len([]rune(dep))+len([]rune(arr)))%4*10

	candidates := []train.Candidate{}
	for slot, minute := 0, firstSlotMinute; minute <= lastSlotMinute; slot, minute = slot+1, minute+slotSpacing {
		if minute < start {
			continue
		}
		if len(candidates) == maxResults {
			break
		}
		candidates = append(candidates, departure(mode, slot, minute, travel, dep, arr, date))
	}
	return candidates
}

func departure(mode train.Mode, slot, minute, travel int, dep, arr, date string) train.Candidate {
	trainType, fare := "SRT", 52900.0
	if mode == train.ModeKTX {
		trainType, fare = "KTX", 59800.0
		if slot%3 == 2 {
			trainType = "KTX-산천"
		}
	}
	depTime := clockOf(minute)
	trainNo := fmt.Sprintf("%s-%s", strings.Split(trainType, "-")[0], train.FormatClock(depTime))
	soldOut := slot%4 == 3

	return train.Candidate{
		TrainNo:              trainNo,
		TrainType:            trainType,
		DepTime:              depTime,
		ArrTime:              clockOf(minute + travel),
		DepStation:           dep,
		ArrStation:           arr,
		IsAvailable:          !soldOut,
		SpecialSeatAvailable: !soldOut && slot%2 == 0,
		GeneralSeatAvailable: !soldOut,
		Fare:                 fare,
		RunDate:              date,
		TrainID:              fmt.Sprintf("%s_%s_%s", trainNo, date, depTime),
	}
}

func minutesOf(hhmm string) int {
	hours, _ := strconv.Atoi(hhmm[:2])
	minutes, _ := strconv.Atoi(hhmm[2:4])
	return hours*60 + minutes
}

func clockOf(minute int) string {
	minute %= 24 * 60
	return fmt.Sprintf("%02d%02d", minute/60, minute%60)
}

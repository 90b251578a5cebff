package train

import (
	"errors"
	"fmt"

	internalstrings "github.com/amonks/rail/internal/strings"
)

// Station is a named stop. Requests to the worker identify stations by name;
// Code is informational and empty when unknown.
type Station struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

func (s Station) String() string {
	if s.Code == "" {
		return s.Name
	}
	return fmt.Sprintf("%s(%s)", s.Name, s.Code)
}

// ErrUnknownStation indicates a station name outside the mode's catalog.
var ErrUnknownStation = errors.New("unknown station")

var (
	stationSeoul = Station{Name: "서울", Code: "0001"}
	stationSuseo = Station{Name: "수서", Code: "0551"}
	stationBusan = Station{Name: "부산", Code: "0017"}
)

var ktxStations = []Station{
	stationSeoul,
	{Name: "용산"},
	{Name: "영등포"},
	{Name: "광명"},
	{Name: "수원"},
	{Name: "천안아산"},
	{Name: "오송"},
	{Name: "대전"},
	{Name: "김천구미"},
	{Name: "동대구"},
	{Name: "신경주"},
	{Name: "울산(통도사)"},
	stationBusan,
	{Name: "포항"},
	{Name: "마산"},
	{Name: "창원중앙"},
	{Name: "진주"},
	{Name: "익산"},
	{Name: "전주"},
	{Name: "광주송정"},
	{Name: "목포"},
	{Name: "여수EXPO"},
	{Name: "순천"},
	{Name: "강릉"},
	{Name: "청량리"},
}

var srtStations = []Station{
	stationSuseo,
	{Name: "동탄"},
	{Name: "평택지제"},
	{Name: "천안아산"},
	{Name: "오송"},
	{Name: "대전"},
	{Name: "김천(구미)"},
	{Name: "동대구"},
	{Name: "신경주"},
	{Name: "울산(통도사)"},
	stationBusan,
	{Name: "공주"},
	{Name: "익산"},
	{Name: "정읍"},
	{Name: "광주송정"},
	{Name: "나주"},
	{Name: "목포"},
}

// Stations returns the station catalog for a mode.
func Stations(mode Mode) []Station {
	switch mode {
	case ModeSRT:
		return append([]Station(nil), srtStations...)
	case ModeKTX:
		return append([]Station(nil), ktxStations...)
	default:
		return nil
	}
}

// DefaultRoute returns the origin and destination selected when a mode becomes active.
func DefaultRoute(mode Mode) (Station, Station) {
	if mode == ModeSRT {
		return stationSuseo, stationBusan
	}
	return stationSeoul, stationBusan
}

// FindStation looks up a station by name in the mode's catalog.
func FindStation(mode Mode, name string) (Station, error) {
	trimmed := internalstrings.TrimSpace(name)
	for _, station := range Stations(mode) {
		if station.Name == trimmed {
			return station, nil
		}
	}
	return Station{}, fmt.Errorf("%w: %q for %s", ErrUnknownStation, trimmed, mode)
}

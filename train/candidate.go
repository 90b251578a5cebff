package train

// SeatClass names the car class requested for a reservation.
type SeatClass string

const (
	// SeatGeneral is standard class.
	SeatGeneral SeatClass = "일반실"
	// SeatSpecial is first class.
	SeatSpecial SeatClass = "특실"
)

// Candidate is one departure returned by a search.
type Candidate struct {
	TrainNo              string  `json:"trainNo"`
	TrainType            string  `json:"trainType"`
	DepTime              string  `json:"depTime"`
	ArrTime              string  `json:"arrTime"`
	DepStation           string  `json:"depStation"`
	ArrStation           string  `json:"arrStation"`
	IsAvailable          bool    `json:"isAvailable"`
	SpecialSeatAvailable bool    `json:"specialSeatAvailable"`
	GeneralSeatAvailable bool    `json:"generalSeatAvailable"`
	Fare                 float64 `json:"fare"`
	RunDate              string  `json:"runDate"`
	TrainID              string  `json:"trainId"`
}

// Reservable reports whether a task may be created for this departure.
// Sold-out trains are still reservable while any availability flag is set,
// because the worker keeps retrying until a seat frees up.
func (c Candidate) Reservable() bool {
	return c.IsAvailable || c.GeneralSeatAvailable || c.SpecialSeatAvailable
}

// SeatClass returns the class to request, preferring general seats.
// ok is false when neither class currently has seats.
func (c Candidate) SeatClass() (SeatClass, bool) {
	switch {
	case c.GeneralSeatAvailable:
		return SeatGeneral, true
	case c.SpecialSeatAvailable:
		return SeatSpecial, true
	default:
		return "", false
	}
}

// Reservation is the payload submitted to create a reservation task.
type Reservation struct {
	AccountID          int64      `json:"accountId"`
	TrainMode          Mode       `json:"trainMode"`
	DepStation         string     `json:"depStation"`
	ArrStation         string     `json:"arrStation"`
	Date               string     `json:"date"`
	TimeFrom           string     `json:"timeFrom"`
	SelectedTrainNo    string     `json:"selectedTrainNo"`
	SelectedTrainType  string     `json:"selectedTrainType"`
	SelectedDepTime    string     `json:"selectedDepTime"`
	SelectedArrTime    string     `json:"selectedArrTime"`
	SelectedTrainClass *SeatClass `json:"selectedTrainClass"`
	SelectedTrainID    string     `json:"selectedTrainId"`
}

// NewReservation builds the task payload for a candidate found with criteria.
func NewReservation(criteria SearchCriteria, candidate Candidate) Reservation {
	reservation := Reservation{
		AccountID:         criteria.AccountID,
		TrainMode:         criteria.Mode,
		DepStation:        criteria.Origin.Name,
		ArrStation:        criteria.Destination.Name,
		Date:              criteria.Date,
		TimeFrom:          candidate.DepTime,
		SelectedTrainNo:   candidate.TrainNo,
		SelectedTrainType: candidate.TrainType,
		SelectedDepTime:   candidate.DepTime,
		SelectedArrTime:   candidate.ArrTime,
		SelectedTrainID:   candidate.TrainID,
	}
	if class, ok := candidate.SeatClass(); ok {
		reservation.SelectedTrainClass = &class
	}
	return reservation
}

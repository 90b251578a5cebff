package train

import (
	"errors"
	"testing"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		input string
		want  Mode
	}{
		{input: "KTX", want: ModeKTX},
		{input: " srt ", want: ModeSRT},
		{input: "Ktx", want: ModeKTX},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.input)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ParseMode(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseModeRejectsUnknown(t *testing.T) {
	_, err := ParseMode("itx")
	if !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
	want := `invalid mode: "itx" (valid: KTX, SRT)`
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestDefaultRoute(t *testing.T) {
	origin, destination := DefaultRoute(ModeKTX)
	if origin.Name != "서울" || origin.Code != "0001" || destination.Name != "부산" || destination.Code != "0017" {
		t.Fatalf("unexpected KTX default route %v -> %v", origin, destination)
	}
	origin, destination = DefaultRoute(ModeSRT)
	if origin.Name != "수서" || origin.Code != "0551" || destination.Name != "부산" {
		t.Fatalf("unexpected SRT default route %v -> %v", origin, destination)
	}
}

func TestFindStation(t *testing.T) {
	station, err := FindStation(ModeSRT, " 동탄 ")
	if err != nil {
		t.Fatalf("find station: %v", err)
	}
	if station.Name != "동탄" {
		t.Fatalf("expected 동탄, got %q", station.Name)
	}

	if _, err := FindStation(ModeSRT, "서울"); !errors.Is(err, ErrUnknownStation) {
		t.Fatalf("expected ErrUnknownStation for KTX-only station, got %v", err)
	}
}

func TestStationsReturnsCopy(t *testing.T) {
	stations := Stations(ModeKTX)
	stations[0].Name = "changed"
	if Stations(ModeKTX)[0].Name != "서울" {
		t.Fatal("expected catalog to be unaffected by caller mutation")
	}
}

package series

import "testing"

func TestDetectSeries(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		wantBase string
		wantSeq  int
		wantOK   bool
	}{
		{"volume word", "Ascendance of a Bookworm Volume 3", "Ascendance of a Bookworm", 3, true},
		{"vol abbreviation", "Ascendance of a Bookworm Vol. 12", "Ascendance of a Bookworm", 12, true},
		{"vol no dot", "Spice and Wolf vol 2", "Spice and Wolf", 2, true},
		{"v marker", "Overlord V3", "Overlord", 3, true},
		{"v marker spaced", "Overlord v 4", "Overlord", 4, true},
		{"trailing bare number", "Konosuba 2", "Konosuba", 2, true},
		{"japanese dai kan", "本好きの下剋上 第3巻", "本好きの下剋上", 3, true},
		{"japanese fullwidth digit", "本好きの下剋上 第３巻", "本好きの下剋上", 3, true},
		{"japanese bare kan", "狼と香辛料 2巻", "狼と香辛料", 2, true},
		{"underscore separated", "bookworm_vol_2", "bookworm", 2, true},
		{"no marker", "A Standalone Story", "", 0, false},
		{"empty", "", "", 0, false},
		{"number only", "42", "", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := DetectSeries(tc.title)
			if ok != tc.wantOK {
				t.Fatalf("DetectSeries(%q) ok = %v, want %v", tc.title, ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if got.SeriesTitle != tc.wantBase || got.Sequence != tc.wantSeq {
				t.Errorf("DetectSeries(%q) = %+v, want (%q, %d)", tc.title, got, tc.wantBase, tc.wantSeq)
			}
		})
	}
}

func TestExplicitMarkerBeatsBareNumber(t *testing.T) {
	// A title carrying both an embedded number and an explicit volume marker
	// must resolve to the marker's sequence.
	got, ok := DetectSeries("86 Eighty-Six Vol. 5")
	if !ok {
		t.Fatal("no detection")
	}
	if got.Sequence != 5 {
		t.Errorf("sequence = %d, want 5 from the explicit marker", got.Sequence)
	}
}

func TestTitlesMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Ascendance of a Bookworm", "ascendance of a bookworm", true},
		{"Ascendance of a Bookworm", "Ascendance of a Bookworm Light Novel", true},
		{"Spice and Wolf", "Spice and Wolf Series", true},
		{"spice-and-wolf", "Spice And Wolf", true},
		{"Ascendance of a Bookworm", "Spice and Wolf", false},
		{"", "Spice and Wolf", false},
	}
	for _, tc := range tests {
		if got := TitlesMatch(tc.a, tc.b); got != tc.want {
			t.Errorf("TitlesMatch(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

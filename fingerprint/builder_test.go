package fingerprint

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func loc(lat, lon float64) *Coordinates {
	return &Coordinates{Latitude: lat, Longitude: lon}
}

func mustFingerprint(t *testing.T, kind Kind, p Params) string {
	t.Helper()
	key, err := NewBuilder().Fingerprint(kind, p)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	return key
}

func TestFingerprint_Format(t *testing.T) {
	key := mustFingerprint(t, KindForecast, Params{Location: loc(0.3476, 32.5825)})

	if !strings.HasPrefix(key, "geofetch:forecast:") {
		t.Errorf("key = %q, want prefix geofetch:forecast:", key)
	}
	hash := strings.TrimPrefix(key, "geofetch:forecast:")
	if len(hash) != 32 {
		t.Errorf("hash length = %d, want 32", len(hash))
	}
}

func TestFingerprint_QueryNormalization(t *testing.T) {
	a := mustFingerprint(t, KindLocationSearch, Params{Query: "Kampala"})
	b := mustFingerprint(t, KindLocationSearch, Params{Query: "  kampala \t"})
	c := mustFingerprint(t, KindLocationSearch, Params{Query: "KAMPALA"})

	if a != b || b != c {
		t.Errorf("case/whitespace variants should share a key: %s %s %s", a, b, c)
	}

	other := mustFingerprint(t, KindLocationSearch, Params{Query: "kampal"})
	if other == a {
		t.Error("different queries should not share a key")
	}
}

func TestFingerprint_CoordinateRounding(t *testing.T) {
	vars := []string{"temperature_2m"}
	a := mustFingerprint(t, KindCurrentConditions, Params{Location: loc(0.347612, 32.582519), Variables: vars})
	b := mustFingerprint(t, KindCurrentConditions, Params{Location: loc(0.347649, 32.582451), Variables: vars})
	if a != b {
		t.Errorf("near-duplicate coordinates should share a key:\n  a=%s\n  b=%s", a, b)
	}

	c := mustFingerprint(t, KindCurrentConditions, Params{Location: loc(0.3481, 32.5825), Variables: vars})
	if a == c {
		t.Error("coordinates differing beyond precision should not share a key")
	}
}

func TestFingerprint_NegativeZero(t *testing.T) {
	a := mustFingerprint(t, KindForecast, Params{Location: loc(math.Copysign(0, -1), -0.00001)})
	b := mustFingerprint(t, KindForecast, Params{Location: loc(0, 0)})
	if a != b {
		t.Errorf("negative zero should fold into zero:\n  a=%s\n  b=%s", a, b)
	}
}

func TestFingerprint_VariableOrderIgnored(t *testing.T) {
	a := mustFingerprint(t, KindCurrentConditions, Params{
		Location:  loc(1, 2),
		Variables: []string{"wind_speed_10m", "temperature_2m", "relative_humidity_2m"},
	})
	b := mustFingerprint(t, KindCurrentConditions, Params{
		Location:  loc(1, 2),
		Variables: []string{"relative_humidity_2m", " temperature_2m", "wind_speed_10m", "temperature_2m"},
	})
	if a != b {
		t.Errorf("variable order and duplicates should not matter:\n  a=%s\n  b=%s", a, b)
	}
}

func TestFingerprint_OptionsStableOrder(t *testing.T) {
	a := mustFingerprint(t, KindCurrentConditions, Params{
		Location: loc(1, 2),
		Options:  map[string]any{"temperature_unit": "celsius", "wind_speed_unit": "kmh"},
	})
	b := mustFingerprint(t, KindCurrentConditions, Params{
		Location: loc(1, 2),
		Options:  map[string]any{"wind_speed_unit": "kmh", "temperature_unit": "celsius"},
	})
	if a != b {
		t.Errorf("option order should not matter:\n  a=%s\n  b=%s", a, b)
	}

	c := mustFingerprint(t, KindCurrentConditions, Params{
		Location: loc(1, 2),
		Options:  map[string]any{"temperature_unit": "fahrenheit", "wind_speed_unit": "kmh"},
	})
	if a == c {
		t.Error("different units should not share a key")
	}
}

func TestFingerprint_DistinctRequests(t *testing.T) {
	base := Params{Location: loc(1, 2), Days: 7, Daily: []string{"temperature_2m_max"}}

	tests := []struct {
		name string
		p    Params
	}{
		{"days", Params{Location: loc(1, 2), Days: 3, Daily: base.Daily}},
		{"daily", Params{Location: loc(1, 2), Days: 7, Daily: []string{"precipitation_sum"}}},
		{"hourly", Params{Location: loc(1, 2), Days: 7, Daily: base.Daily, Hourly: []string{"temperature_2m"}}},
		{"location", Params{Location: loc(2, 1), Days: 7, Daily: base.Daily}},
	}

	want := mustFingerprint(t, KindForecast, base)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := mustFingerprint(t, KindForecast, tc.p); got == want {
				t.Errorf("fingerprint should differ from base, both %s", got)
			}
		})
	}
}

func TestFingerprint_KindsNeverCollide(t *testing.T) {
	p := Params{Location: loc(1, 2)}
	current := mustFingerprint(t, KindCurrentConditions, p)
	forecast := mustFingerprint(t, KindForecast, p)
	if current == forecast {
		t.Error("different kinds should never share a key")
	}
}

func TestFingerprint_IrrelevantFieldsIgnored(t *testing.T) {
	a := mustFingerprint(t, KindLocationSearch, Params{Query: "gulu"})
	b := mustFingerprint(t, KindLocationSearch, Params{Query: "gulu", Location: loc(1, 1), Days: 3})
	if a != b {
		t.Error("fields a kind does not use should not change its key")
	}
}

func TestFingerprint_Validation(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		p    Params
		want error
	}{
		{"empty query", KindLocationSearch, Params{Query: ""}, ErrQueryTooShort},
		{"whitespace query", KindLocationSearch, Params{Query: "   "}, ErrQueryTooShort},
		{"one char", KindLocationSearch, Params{Query: " k "}, ErrQueryTooShort},
		{"two chars", KindLocationSearch, Params{Query: "ka"}, ErrQueryTooShort},
		{"two runes padded", KindLocationSearch, Params{Query: "  ék  "}, ErrQueryTooShort},
		{"missing location", KindCurrentConditions, Params{}, ErrMissingLocation},
		{"latitude range", KindCurrentConditions, Params{Location: loc(91, 0)}, ErrInvalidCoordinates},
		{"longitude range", KindForecast, Params{Location: loc(0, -181)}, ErrInvalidCoordinates},
		{"nan", KindForecast, Params{Location: loc(math.NaN(), 0)}, ErrInvalidCoordinates},
		{"days", KindForecast, Params{Location: loc(0, 0), Days: 17}, ErrInvalidDays},
		{"unknown kind", Kind(42), Params{}, ErrUnknownKind},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBuilder().Fingerprint(tc.kind, tc.p)
			if !errors.Is(err, tc.want) {
				t.Errorf("Fingerprint() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestFingerprint_UnmarshalableOption(t *testing.T) {
	_, err := Of(KindForecast, Params{
		Location: loc(0, 0),
		Options:  map[string]any{"bad": make(chan int)},
	})
	if err == nil {
		t.Error("Fingerprint() should fail for options that cannot be serialized")
	}
}

func TestKind_ParseRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q) error = %v", k.String(), err)
		}
		if got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}

	if _, err := ParseKind("radar"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ParseKind(radar) error = %v, want ErrUnknownKind", err)
	}
	if Kind(9).String() != "unknown" {
		t.Errorf("Kind(9).String() = %q, want unknown", Kind(9).String())
	}
}

func TestParams_ShortestAcceptedQuery(t *testing.T) {
	for _, q := range []string{"kam", " Gulu ", "Ühé"} {
		if err := (Params{Query: q}).Validate(KindLocationSearch); err != nil {
			t.Errorf("Validate(%q) error = %v, want nil", q, err)
		}
	}
}

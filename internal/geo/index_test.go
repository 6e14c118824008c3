package geo

import (
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/mmynk/flatearth/internal/errors"
)

type pin struct {
	id string
	at Coordinate
}

func (p pin) Position() Coordinate { return p.at }

func TestSameBucket(t *testing.T) {
	paris := Coordinate{Lat: 48.8566, Lon: 2.3522}

	tests := []struct {
		name string
		a, b Coordinate
		want bool
	}{
		{
			name: "sub-precision noise matches",
			a:    Coordinate{Lat: 48.85660001, Lon: 2.35220001},
			b:    paris,
			want: true,
		},
		{
			name: "one step in the fourth decimal does not match",
			a:    Coordinate{Lat: 48.8567, Lon: 2.3522},
			b:    paris,
			want: false,
		},
		{
			name: "longitude differs",
			a:    Coordinate{Lat: 48.8566, Lon: 2.3523},
			b:    paris,
			want: false,
		},
		{
			name: "negative latitude rounds to nearest",
			a:    Coordinate{Lat: -33.86881, Lon: 151.20929},
			b:    Coordinate{Lat: -33.8688, Lon: 151.2093},
			want: true,
		},
		{
			name: "identical",
			a:    paris,
			b:    paris,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameBucket(tt.a, tt.b, Precision); got != tt.want {
				t.Errorf("SameBucket(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	current := Coordinate{Lat: 48.8566, Lon: 2.3522}
	records := []pin{
		{id: "a", at: Coordinate{Lat: 48.85660001, Lon: 2.35220001}},
		{id: "b", at: Coordinate{Lat: 51.505, Lon: -0.09}},
		{id: "c", at: Coordinate{Lat: 48.8566, Lon: 2.3522}},
		{id: "d", at: Coordinate{Lat: 48.8567, Lon: 2.3522}},
	}

	got := Filter(records, current, Precision)

	var ids []string
	for _, r := range got {
		ids = append(ids, r.id)
	}
	if want := []string{"a", "c"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("Filter ids = %v, want %v", ids, want)
	}
}

func TestFilter_Empty(t *testing.T) {
	got := Filter([]pin(nil), Coordinate{Lat: 1, Lon: 2}, Precision)
	if got == nil {
		t.Fatal("expected empty non-nil slice")
	}
	if len(got) != 0 {
		t.Errorf("expected 0 records, got %d", len(got))
	}
}

func TestReverse(t *testing.T) {
	in := []string{"oldest", "middle", "newest"}

	once := Reverse(in)
	if want := []string{"newest", "middle", "oldest"}; !reflect.DeepEqual(once, want) {
		t.Errorf("Reverse = %v, want %v", once, want)
	}
	if twice := Reverse(once); !reflect.DeepEqual(twice, in) {
		t.Errorf("Reverse(Reverse(x)) = %v, want %v", twice, in)
	}
	if in[0] != "oldest" {
		t.Error("Reverse must not modify its input")
	}
}

func TestCoordinate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		c       Coordinate
		wantErr bool
	}{
		{"origin", Coordinate{}, false},
		{"poles and antimeridian", Coordinate{Lat: -90, Lon: 180}, false},
		{"latitude too high", Coordinate{Lat: 90.0001, Lon: 0}, true},
		{"longitude too low", Coordinate{Lat: 0, Lon: -180.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperrors.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRound(t *testing.T) {
	if got := Round(48.85660001, Precision); got != 48.8566 {
		t.Errorf("Round = %v, want 48.8566", got)
	}
	if got := (Coordinate{Lat: 1.23456, Lon: -1.23456}).Rounded(2); got != (Coordinate{Lat: 1.23, Lon: -1.23}) {
		t.Errorf("Rounded = %v", got)
	}
}

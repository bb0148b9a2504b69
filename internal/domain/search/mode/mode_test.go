package mode

import "testing"

func TestOf(t *testing.T) {
	tests := []struct {
		text, images bool
		want         Mode
	}{
		{true, false, Text},
		{false, true, Images},
		{true, true, Blended},
		{false, false, None},
	}
	for _, tt := range tests {
		if got := Of(tt.text, tt.images); got != tt.want {
			t.Errorf("Of(%v, %v) = %q, want %q", tt.text, tt.images, got, tt.want)
		}
	}
}

func TestIsValid(t *testing.T) {
	valid := []Mode{Text, Images, Blended}
	for _, m := range valid {
		if !m.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", m)
		}
	}

	invalid := []Mode{"", None, "hybrid", "TEXT"}
	for _, m := range invalid {
		if m.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", m)
		}
	}
}

func TestUsesVision(t *testing.T) {
	if Text.UsesVision() {
		t.Error("Text.UsesVision() = true")
	}
	if !Images.UsesVision() || !Blended.UsesVision() {
		t.Error("image modes must use vision")
	}
}

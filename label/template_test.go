package label

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestSelectRowTemplate(t *testing.T) {
	day := time.Hour * 24

	tests := []struct {
		name     string
		width    float64
		span     time.Duration
		intraday bool
		want     Template
	}{
		{"large intraday ten hours", 900, time.Hour * 10, true, Template{Hours, Days}},
		{"large intraday two hours", 900, time.Hour * 2, true, Template{Minutes, Days}},
		{"large intraday five days", 900, day * 5, true, Template{Days, Months}},
		{"default intraday ninety minutes", 500, time.Minute * 90, true, Template{Minutes, Days}},
		{"default intraday two days", 500, day * 2, true, Template{Hours, Days}},
		{"thumbnail intraday", 200, time.Hour * 6, true, Template{Hours, NoRow}},
		{"thumbnail intraday days", 200, day * 3, true, Template{Days, NoRow}},
		{"large month", 1200, day * 30, false, Template{Days, Months}},
		{"large quarter", 1200, day * 90, false, Template{Weeks, Months}},
		{"large two years", 1200, day * 730, false, Template{Months, Years}},
		{"large decade", 1200, day * 3650, false, Template{Years, NoRow}},
		{"default year", 500, day * 365, false, Template{Months, Years}},
		{"default decade", 500, day * 3650, false, Template{Years, NoRow}},
		{"thumbnail month", 100, day * 30, false, Template{Days, NoRow}},
		{"thumbnail year", 100, day * 365, false, Template{Months, NoRow}},
		{"thumbnail decade", 100, day * 3650, false, Template{Years, NoRow}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := SelectRowTemplate(ClassFor(test.width), test.span, test.intraday)
			assert.Equal(t, got, test.want)
		})
	}

	// Ensure panel widths map to size classes.
	assert.Equal(t, ClassFor(299), Thumbnail)
	assert.Equal(t, ClassFor(300), DefaultSize)
	assert.Equal(t, ClassFor(800), Large)
	assert.Equal(t, Large.String(), "large")
}

package fetch

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dnldd/chartwindow/series"
	"github.com/dnldd/chartwindow/shared"
	"github.com/tidwall/gjson"
)

// Payload represents a parsed chart data payload.
type Payload struct {
	// Batches are the series batches of the payload.
	Batches []series.Batch
	// Calendar is the session calendar of the payload, nil when absent.
	Calendar *shared.SessionCalendar
}

// ParseDate parses a payload date in the provided location, accepting full timestamps and
// calendar days. The result is normalized to UTC.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{shared.DateLayout, shared.DayLayout, time.RFC3339} {
		dt, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return dt.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unknown date format provided: %q", s)
}

// ParseDatapoints parses datapoints from the provided json data. Every numeric field other
// than the date is kept as a value.
func ParseDatapoints(data []gjson.Result, loc *time.Location) ([]shared.Datapoint, error) {
	points := make([]shared.Datapoint, 0, len(data))

	for idx := range data {
		dt, err := ParseDate(data[idx].Get("date").String(), loc)
		if err != nil {
			return nil, fmt.Errorf("parsing datapoint date: %w", err)
		}

		point := shared.Datapoint{
			Date:   dt,
			Values: make(map[string]float64),
		}

		data[idx].ForEach(func(key, value gjson.Result) bool {
			if key.String() != "date" && value.Type == gjson.Number {
				point.Values[key.String()] = value.Float()
			}
			return true
		})

		points = append(points, point)
	}

	return points, nil
}

// ParseBatches parses series batches from the provided json data.
func ParseBatches(data []gjson.Result, loc *time.Location) ([]series.Batch, error) {
	batches := make([]series.Batch, 0, len(data))

	for idx := range data {
		symbol := data[idx].Get("symbol").String()
		if symbol == "" {
			return nil, fmt.Errorf("series %d has no symbol", idx)
		}

		seriesType := data[idx].Get("type").String()
		if seriesType == "" {
			return nil, fmt.Errorf("series %d of %s has no type", idx, symbol)
		}

		points, err := ParseDatapoints(data[idx].Get("points").Array(), loc)
		if err != nil {
			return nil, fmt.Errorf("parsing %s %s points: %w", symbol, seriesType, err)
		}

		batches = append(batches, series.Batch{
			Symbol: symbol,
			Type:   seriesType,
			ID:     data[idx].Get("id").String(),
			Points: points,
		})
	}

	return batches, nil
}

// ParseCalendar parses a session calendar from the provided json data. The calendar
// location overrides the provided default when set.
func ParseCalendar(data gjson.Result, loc *time.Location) (*shared.SessionCalendar, error) {
	if name := data.Get("location").String(); name != "" {
		l, err := time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("loading calendar location: %w", err)
		}

		loc = l
	}

	cal := &shared.SessionCalendar{Location: loc}

	var parseErr error
	data.Get("typicalSessions").ForEach(func(key, value gjson.Result) bool {
		day, err := strconv.Atoi(key.String())
		if err != nil || day < 0 || day > 6 {
			parseErr = fmt.Errorf("invalid weekday provided: %q", key.String())
			return false
		}

		for _, entry := range value.Array() {
			sessionType := entry.Get("sessionType").String()
			if sessionType == "" {
				sessionType = shared.RegularSession
			}

			session, err := shared.NewTypicalSession(entry.Get("exchangeId").String(),
				entry.Get("open").String(), entry.Get("close").String(), sessionType)
			if err != nil {
				parseErr = fmt.Errorf("parsing %s session: %w", time.Weekday(day), err)
				return false
			}

			cal.TypicalSessions[day] = append(cal.TypicalSessions[day], *session)
		}

		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	for _, entry := range data.Get("fullClosures").Array() {
		day, err := time.ParseInLocation(shared.DayLayout, entry.Get("date").String(), loc)
		if err != nil {
			return nil, fmt.Errorf("parsing closure date: %w", err)
		}

		closure := shared.Closure{Date: day}
		for _, id := range entry.Get("exchangeIds").Array() {
			closure.ExchangeIDs = append(closure.ExchangeIDs, id.String())
		}

		cal.FullClosures = append(cal.FullClosures, closure)
	}

	for _, entry := range data.Get("nonTradingDays").Array() {
		day, err := time.ParseInLocation(shared.DayLayout, entry.String(), loc)
		if err != nil {
			return nil, fmt.Errorf("parsing non-trading day: %w", err)
		}

		cal.NonTradingDays = append(cal.NonTradingDays, day)
	}

	err := cal.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating calendar: %w", err)
	}

	return cal, nil
}

// ParsePayload parses a chart data payload. Dates without zone information are read in the
// calendar location, or the provided default when the payload has no calendar.
func ParsePayload(data gjson.Result, loc *time.Location) (*Payload, error) {
	if !data.IsObject() {
		return nil, fmt.Errorf("payload is not a json object")
	}

	payload := &Payload{}
	if calendar := data.Get("calendar"); calendar.Exists() {
		cal, err := ParseCalendar(calendar, loc)
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}

		payload.Calendar = cal
		loc = cal.Location
	}

	batches, err := ParseBatches(data.Get("series").Array(), loc)
	if err != nil {
		return nil, fmt.Errorf("parsing series: %w", err)
	}

	payload.Batches = batches

	return payload, nil
}

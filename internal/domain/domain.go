// Package domain holds the sensor records replayed by the agent.
package domain

import (
	"fmt"
	"time"

	"github.com/JonMunkholm/sensoragent/internal/schema"
)

// Accelerometer is one row of the accelerometer log.
type Accelerometer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Gps is one row of the positioning log.
type Gps struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// AggregatedData pairs one accelerometer row with one GPS row. Time is the
// moment the pair was assembled, not a value read from either file.
type AggregatedData struct {
	Accelerometer Accelerometer `json:"accelerometer"`
	Gps           Gps           `json:"gps"`
	Time          time.Time     `json:"time"`
}

// NewAggregatedData builds a combined record.
func NewAggregatedData(a Accelerometer, g Gps, at time.Time) AggregatedData {
	return AggregatedData{Accelerometer: a, Gps: g, Time: at}
}

// DecodeAccelerometer converts a CSV row into an Accelerometer.
func DecodeAccelerometer(row []string, idx schema.HeaderIndex) (Accelerometer, error) {
	var (
		a   Accelerometer
		err error
	)
	dst := []*float64{&a.X, &a.Y, &a.Z}
	for i, spec := range schema.AccelerometerFieldSpecs {
		if *dst[i], err = schema.Float(row, idx, spec); err != nil {
			return Accelerometer{}, err
		}
	}
	return a, nil
}

// DecodeGps converts a CSV row into a Gps.
func DecodeGps(row []string, idx schema.HeaderIndex) (Gps, error) {
	lon, err := schema.Float(row, idx, schema.GpsFieldSpecs[0])
	if err != nil {
		return Gps{}, err
	}
	lat, err := schema.Float(row, idx, schema.GpsFieldSpecs[1])
	if err != nil {
		return Gps{}, err
	}
	return Gps{Longitude: lon, Latitude: lat}, nil
}

func (a Accelerometer) String() string {
	return fmt.Sprintf("(%g, %g, %g)", a.X, a.Y, a.Z)
}

func (g Gps) String() string {
	return fmt.Sprintf("(%g, %g)", g.Longitude, g.Latitude)
}

func (d AggregatedData) String() string {
	return fmt.Sprintf("accelerometer=%s gps=%s time=%s", d.Accelerometer, d.Gps, d.Time.Format(time.RFC3339Nano))
}

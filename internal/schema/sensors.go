package schema

// AccelerometerFieldSpecs defines the expected CSV columns for accelerometer data.
var AccelerometerFieldSpecs = []FieldSpec{
	{Name: "x", Required: true},
	{Name: "y", Required: true},
	{Name: "z", Required: true},
}

// GpsFieldSpecs defines the expected CSV columns for GPS data.
var GpsFieldSpecs = []FieldSpec{
	{Name: "longitude", Required: true},
	{Name: "latitude", Required: true},
}

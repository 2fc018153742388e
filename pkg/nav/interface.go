package nav

import (
	"github.com/teslashibe/go-sarus/pkg/safety"
	"github.com/teslashibe/go-sarus/pkg/sensors"
)

// SensorReader is the slice of the sensor aggregator the engine reads.
type SensorReader interface {
	ObstacleMap() map[sensors.Direction]float64
	IsPathClear(dir sensors.Direction, minDistance float64) bool
	NavigationData() sensors.NavigationData
}

// Safety is the interlock surface consulted before every actuation.
type Safety interface {
	IsActive() bool
	Activated() <-chan struct{}
	Trigger(kind safety.Kind, message string, severity safety.Severity, source string)
}

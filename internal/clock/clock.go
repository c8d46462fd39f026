package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time for services that stamp records or compare dates.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

var Module = fx.Module("clock",
	fx.Provide(
		fx.Annotate(NewSystemClock, fx.As(new(Clock))),
	),
)

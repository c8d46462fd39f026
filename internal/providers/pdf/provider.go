package pdf

import (
	"context"
	"io"

	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

// GatepassData is everything the rendered pass shows.
type GatepassData struct {
	PassCode       string
	VisitorName    string
	Company        string
	VisitorPhone   string
	VisitorEmail   string
	HostName       string
	DepartmentName string
	ValidDate      string
	TimeFrom       string
	TimeTo         string
	Purpose        string
	Belongings     []BelongingLine

	// PhotoRef is a URL or a filename under the uploads directory. The
	// pass renders without a photo when the reference cannot be loaded.
	PhotoRef string
}

type BelongingLine struct {
	ItemName string
	Quantity int
	SerialNo string
}

type Provider interface {
	GenerateGatepass(ctx context.Context, data GatepassData) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateGatepass(ctx context.Context, data GatepassData) (io.Reader, error) {
	return nil, nil
}

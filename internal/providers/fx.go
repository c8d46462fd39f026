package providers

import (
	"github.com/sentrilane/visitgate/internal/providers/email"
	"github.com/sentrilane/visitgate/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)

package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	appconfig "github.com/sentrilane/visitgate/internal/config"
	"go.uber.org/zap"
)

type PDFProvider struct {
	uploadsDir string
	httpClient *http.Client
	log        *zap.Logger
}

func New(cfg appconfig.Config, log *zap.Logger) Provider {
	return &PDFProvider{
		uploadsDir: cfg.UploadsDir,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.Named("providers.pdf"),
	}
}

func (p *PDFProvider) GenerateGatepass(ctx context.Context, data GatepassData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(8, "VISITOR GATE PASS", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.PassCode, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	photo, ext := p.loadPhoto(ctx, data.PhotoRef)
	if photo != nil {
		m.AddRow(40,
			image.NewFromBytesCol(3, photo, ext, props.Rect{Percent: 90}),
			col.New(9).Add(
				text.New(data.VisitorName, props.Text{Size: 13, Style: fontstyle.Bold}),
				text.New(data.Company, props.Text{Top: 7}),
				text.New(data.VisitorPhone, props.Text{Top: 12}),
				text.New(data.VisitorEmail, props.Text{Top: 17}),
			),
		)
	} else {
		m.AddRow(26,
			col.New(12).Add(
				text.New(data.VisitorName, props.Text{Size: 13, Style: fontstyle.Bold}),
				text.New(data.Company, props.Text{Top: 7}),
				text.New(data.VisitorPhone, props.Text{Top: 12}),
				text.New(data.VisitorEmail, props.Text{Top: 17}),
			),
		)
	}

	m.AddRow(24,
		col.New(6).Add(
			text.New("Host", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.New(data.HostName, props.Text{Top: 5}),
			text.New(data.DepartmentName, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Valid on", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.New(data.ValidDate, props.Text{Top: 5}),
			text.New(timeWindow(data.TimeFrom, data.TimeTo), props.Text{Top: 10}),
		),
	)

	if strings.TrimSpace(data.Purpose) != "" {
		m.AddRow(14,
			col.New(12).Add(
				text.New("Purpose", props.Text{Style: fontstyle.Bold, Size: 9}),
				text.New(data.Purpose, props.Text{Top: 5}),
			),
		)
	}

	if len(data.Belongings) > 0 {
		m.AddRow(10,
			text.NewCol(6, "Declared belongings", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(4, "Serial no", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		)
		for _, item := range data.Belongings {
			m.AddRow(8,
				text.NewCol(6, item.ItemName, props.Text{Size: 9}),
				text.NewCol(2, fmt.Sprintf("%d", item.Quantity), props.Text{Size: 9, Align: align.Right}),
				text.NewCol(4, item.SerialNo, props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	m.AddRow(16,
		text.NewCol(12, "Present this pass at the security desk on arrival and departure.", props.Text{
			Size: 8,
			Top:  8,
		}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

// loadPhoto fetches the visitor photo from a URL or the uploads directory.
// Any failure degrades to a pass without a photo.
func (p *PDFProvider) loadPhoto(ctx context.Context, ref string) ([]byte, extension.Type) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, extension.Jpg
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		data, err = p.fetchPhoto(ctx, ref)
	} else {
		data, err = os.ReadFile(filepath.Join(p.uploadsDir, filepath.Base(ref)))
	}
	if err != nil {
		p.log.Warn("gatepass photo unavailable, rendering without it",
			zap.String("ref", ref),
			zap.Error(err),
		)
		return nil, extension.Jpg
	}

	ext := extension.Jpg
	if strings.HasSuffix(strings.ToLower(ref), ".png") {
		ext = extension.Png
	}
	return data, ext
}

func (p *PDFProvider) fetchPhoto(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("photo fetch returned %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 5<<20))
}

func timeWindow(from, to string) string {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	switch {
	case from != "" && to != "":
		return from + " - " + to
	case from != "":
		return "from " + from
	case to != "":
		return "until " + to
	default:
		return ""
	}
}

package metadata

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

//go:embed schema/sidecar.json
var sidecarSchema []byte

var compiledSidecar = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("sidecar.json", bytes.NewReader(sidecarSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("sidecar.json")
})

// sidecar mirrors entity.TenderMetadata with dates kept as strings so that
// both ISO and day-first forms are accepted.
type sidecar struct {
	TenderNo          string   `json:"tender_no"`
	Title             string   `json:"title"`
	Organization      string   `json:"organization"`
	Department        string   `json:"department"`
	City              string   `json:"city"`
	Province          string   `json:"province"`
	Category          string   `json:"category"`
	ProcurementMethod string   `json:"procurement_method"`
	Status            string   `json:"status"`
	SourceSite        string   `json:"source_site"`
	TenderURL         string   `json:"tender_url"`
	PublishDate       *string  `json:"publish_date"`
	ClosingDate       *string  `json:"closing_date"`
	OpeningDate       *string  `json:"opening_date"`
	RoadLengthKm      *float64 `json:"road_length_km"`
	RoadWidthM        *float64 `json:"road_width_m"`
	CostPKR           *float64 `json:"cost_pkr"`
	Year              *int     `json:"year"`
}

// SidecarPath returns the metadata file expected next to a PDF:
// roads/tender-17.pdf -> roads/tender-17.json.
func SidecarPath(pdfPath string) string {
	return strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + "." + constants.SidecarExt
}

// LoadSidecar reads the sidecar of pdfPath. A missing sidecar is not an error;
// found reports whether one existed.
func LoadSidecar(pdfPath string) (meta entity.TenderMetadata, found bool, err error) {
	data, err := os.ReadFile(SidecarPath(pdfPath))
	if errors.Is(err, fs.ErrNotExist) {
		return entity.TenderMetadata{}, false, nil
	}
	if err != nil {
		return entity.TenderMetadata{}, false, fmt.Errorf("read sidecar: %w", err)
	}
	meta, err = ParseSidecar(data)
	return meta, true, err
}

// ParseSidecar validates data against the sidecar schema and decodes it.
func ParseSidecar(data []byte) (entity.TenderMetadata, error) {
	schema, err := compiledSidecar()
	if err != nil {
		return entity.TenderMetadata{}, fmt.Errorf("compile sidecar schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return entity.TenderMetadata{}, fmt.Errorf("%w: sidecar is not json: %v", common.ErrValidation, err)
	}
	if err := schema.Validate(v); err != nil {
		return entity.TenderMetadata{}, fmt.Errorf("%w: sidecar does not match schema: %v", common.ErrValidation, err)
	}

	var s sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return entity.TenderMetadata{}, fmt.Errorf("%w: decode sidecar: %v", common.ErrValidation, err)
	}
	meta := entity.TenderMetadata{
		TenderNo:          strings.TrimSpace(s.TenderNo),
		Title:             strings.Join(strings.Fields(s.Title), " "),
		Organization:      strings.TrimSpace(s.Organization),
		Department:        strings.TrimSpace(s.Department),
		City:              strings.TrimSpace(s.City),
		Province:          strings.TrimSpace(s.Province),
		Category:          strings.TrimSpace(s.Category),
		ProcurementMethod: strings.TrimSpace(s.ProcurementMethod),
		Status:            strings.TrimSpace(s.Status),
		SourceSite:        strings.TrimSpace(s.SourceSite),
		TenderURL:         strings.TrimSpace(s.TenderURL),
		RoadLengthKm:      s.RoadLengthKm,
		RoadWidthM:        s.RoadWidthM,
		CostPKR:           s.CostPKR,
	}
	if s.Year != nil {
		meta.Year = *s.Year
	}
	for _, d := range []struct {
		name string
		raw  *string
		dst  **time.Time
	}{
		{"publish_date", s.PublishDate, &meta.PublishDate},
		{"closing_date", s.ClosingDate, &meta.ClosingDate},
		{"opening_date", s.OpeningDate, &meta.OpeningDate},
	} {
		if d.raw == nil || strings.TrimSpace(*d.raw) == "" {
			continue
		}
		t, ok := ParseDate(*d.raw)
		if !ok {
			return entity.TenderMetadata{}, fmt.Errorf("%w: sidecar %s %q is not a date", common.ErrValidation, d.name, *d.raw)
		}
		*d.dst = &t
	}
	return meta, nil
}

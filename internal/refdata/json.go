package refdata

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"

	"github.com/shopspring/decimal"
)

// File names expected inside a reference data directory.
const (
	CommunesFile = "wilayas_communes.json"
	DeliveryFile = "wilayas_delivery.json"
)

//go:embed data/*.json
var embedded embed.FS

type communesEntry struct {
	Code     int      `json:"wilaya_code"`
	Name     string   `json:"wilaya_name"`
	Communes []string `json:"communes"`
}

type deliveryDocument struct {
	Wilayas []deliveryEntry `json:"wilayas"`
}

type deliveryEntry struct {
	Name     string          `json:"name"`
	Code     int             `json:"code"`
	Domicile decimal.Decimal `json:"domicile"`
	Bureau   decimal.Decimal `json:"bureau"`
	Delai    string          `json:"delai"`
}

// JSONSource reads the two reference documents from Dir, or from the copies
// compiled into the binary when Dir is empty.
type JSONSource struct {
	Dir string
}

func (j JSONSource) Name() string {
	if j.Dir == "" {
		return "embedded"
	}
	return "json:" + j.Dir
}

func (j JSONSource) Load(_ context.Context) (*Store, error) {
	fsys, err := j.fs()
	if err != nil {
		return nil, err
	}
	communes, err := fs.ReadFile(fsys, CommunesFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", CommunesFile, err)
	}
	delivery, err := fs.ReadFile(fsys, DeliveryFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", DeliveryFile, err)
	}
	return ParseJSON(communes, delivery)
}

func (j JSONSource) fs() (fs.FS, error) {
	if j.Dir == "" {
		return fs.Sub(embedded, "data")
	}
	if _, err := os.Stat(j.Dir); err != nil {
		return nil, fmt.Errorf("reference data dir: %w", err)
	}
	return os.DirFS(j.Dir), nil
}

// ParseJSON builds a Store from the raw communes and delivery documents.
func ParseJSON(communes, delivery []byte) (*Store, error) {
	var entries []communesEntry
	if err := json.Unmarshal(communes, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", CommunesFile, err)
	}
	var doc deliveryDocument
	if err := json.Unmarshal(delivery, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", DeliveryFile, err)
	}

	regions := make([]Region, 0, len(entries))
	for _, e := range entries {
		regions = append(regions, Region{Code: e.Code, Name: e.Name, Subdivisions: e.Communes})
	}
	records := make([]DeliveryRecord, 0, len(doc.Wilayas))
	for _, w := range doc.Wilayas {
		records = append(records, DeliveryRecord{
			Code:          w.Code,
			Name:          w.Name,
			HomePrice:     w.Domicile,
			DeskPrice:     w.Bureau,
			EstimatedDays: w.Delai,
		})
	}
	return NewStore(regions, records)
}

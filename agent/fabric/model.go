package fabric

import (
	"strings"

	"github.com/uptrace/bun"

	statex "github.com/laserhenk/henk-agent/agent/state"
)

const (
	TierMid    = "mid"
	TierLuxury = "luxury"
)

// Row is one fabrics table entry.
type Row struct {
	bun.BaseModel `bun:"table:fabrics,alias:f"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Code        string `bun:"code,notnull,unique"`
	Name        string `bun:"name,notnull"`
	Composition string `bun:"composition"`
	WeightGSM   int    `bun:"weight_gsm"`
	Color       string `bun:"color"`
	Pattern     string `bun:"pattern"`
	PriceTier   string `bun:"price_tier"`
	ImageURL    string `bun:"image_url"`
	InStock     bool   `bun:"in_stock"`
}

func (r Row) Fabric() statex.Fabric {
	return statex.Fabric{
		Code:        r.Code,
		Name:        r.Name,
		Composition: r.Composition,
		WeightGSM:   r.WeightGSM,
		Color:       r.Color,
		Pattern:     r.Pattern,
		PriceTier:   r.PriceTier,
		ImageURL:    r.ImageURL,
	}
}

// ImageURL returns the fabric's image location, deriving the conventional
// static path when the catalog row carries none.
func ImageURL(f statex.Fabric) string {
	if f.ImageURL != "" {
		return f.ImageURL
	}
	code := f.Code
	if code == "" {
		code = "fabric"
	}
	return "/fabrics/images/" + strings.ReplaceAll(code, "/", "_") + ".jpg"
}

package services

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"olx-price-index/models"
	"olx-price-index/storage"
	"olx-price-index/utils"
)

var readmeTemplate = template.Must(template.New("readme").Funcs(template.FuncMap{
	"thousands": utils.FormatThousands,
	"whole":     func(v float64) string { return utils.FormatThousands(int(v)) },
}).Parse(`# OLX Price Index

Daily price tracking for products on OLX.ro as a proxy for economic indicators.

![Overview]({{.ImageBase}}/overview.{{.ImageExt}}?v={{.CacheBust}})

---
{{range .Sections}}
## {{with .Product.Emoji}}{{.}} {{end}}{{.Product.Name}}

![{{.Product.Name}} Dashboard]({{$.ImageBase}}/{{.Product.Slug}}_dashboard.{{$.ImageExt}}?v={{$.CacheBust}})
{{with .Latest}}
| Metric | Value |
|--------|-------|
| Listings | {{.Count}} |
| Min | {{thousands .MinPrice}} RON |
| Max | {{thousands .MaxPrice}} RON |
| Median | {{whole .MedianPrice}} RON |
| Average | {{whole .MeanPrice}} RON |
| Last Update | {{.Day}} |
{{end}}
---
{{end}}
## About

This index tracks prices of various products on OLX.ro to provide insights into market trends.

**Metrics:**
- **Count**: Number of active listings
- **Min/Max**: Price range
- **Median**: Middle price (robust to outliers)
- **Average**: Mean price

Data is collected daily.

---

*Generated automatically by olx-price-index*
`))

// ReadmeGenerator renders README.md from the latest persisted row of each
// product.
type ReadmeGenerator struct {
	path      string
	imageBase string
	imageExt  string
	series    storage.SeriesReader
	logger    *utils.Logger
	now       func() time.Time
}

// NewReadmeGenerator writes to path. Image links are imageBase/<file>.imageExt;
// an empty imageBase means the "images" directory next to the README.
func NewReadmeGenerator(path, imageBase, imageExt string, series storage.SeriesReader, logger *utils.Logger) *ReadmeGenerator {
	if imageBase == "" {
		imageBase = "images"
	}
	if logger == nil {
		logger = utils.Nop()
	}
	return &ReadmeGenerator{
		path:      path,
		imageBase: strings.TrimRight(imageBase, "/"),
		imageExt:  imageExt,
		series:    series,
		logger:    logger,
		now:       time.Now,
	}
}

type readmeSection struct {
	Product models.Product
	Latest  *models.DailyStats
}

// Generate rewrites the README.
func (g *ReadmeGenerator) Generate(products []models.Product) error {
	data := struct {
		ImageBase string
		ImageExt  string
		CacheBust string
		Sections  []readmeSection
	}{
		ImageBase: g.imageBase,
		ImageExt:  g.imageExt,
		CacheBust: g.now().Format("20060102"),
	}

	for _, p := range products {
		latest, err := g.series.Latest(p.Slug)
		if err != nil {
			g.logger.Warn("[readme] Could not read latest stats for %s: %v", p.Slug, err)
			latest = nil
		}
		data.Sections = append(data.Sections, readmeSection{Product: p, Latest: latest})
	}

	var buf bytes.Buffer
	if err := readmeTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("readme: render: %w", err)
	}

	if dir := filepath.Dir(g.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("readme: create dir: %w", err)
		}
	}
	if err := os.WriteFile(g.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("readme: write %s: %w", g.path, err)
	}

	g.logger.Info("[readme] Generated %s", g.path)
	return nil
}

package source

import (
	"fmt"
	"net/http"

	"github.com/rushteam/ratingkit/core"
)

// New 按存储类型创建 DataSource
func New(variant core.Variant, cfg Config, httpClient *http.Client) (core.DataSource, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%s source: base url is required", variant)
	}
	switch variant {
	case core.VariantSQL:
		return NewSQLSource(cfg, httpClient), nil
	case core.VariantDocument:
		return NewDocumentSource(cfg, httpClient), nil
	default:
		return nil, fmt.Errorf("unsupported source variant: %q", variant)
	}
}

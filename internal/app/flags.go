package app

import (
	"flag"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/config"
)

// BindAOIFlags registers AOI flags whose defaults are the environment values.
func BindAOIFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.Float64Var(&cfg.AOI.MinLon, "minlon", cfg.AOI.MinLon, "AOI minimum longitude")
	fs.Float64Var(&cfg.AOI.MinLat, "minlat", cfg.AOI.MinLat, "AOI minimum latitude")
	fs.Float64Var(&cfg.AOI.MaxLon, "maxlon", cfg.AOI.MaxLon, "AOI maximum longitude")
	fs.Float64Var(&cfg.AOI.MaxLat, "maxlat", cfg.AOI.MaxLat, "AOI maximum latitude")
}

func BindCatalogFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.CatalogURL, "catalog", cfg.CatalogURL, "catalog API endpoint")
	fs.StringVar(&cfg.BulkBaseURL, "bulk", cfg.BulkBaseURL, "bulk download base URL")
	fs.StringVar(&cfg.CatalogCache.Driver, "cache", cfg.CatalogCache.Driver, "catalog cache: none|memory|redis")
}

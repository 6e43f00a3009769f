package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/model"
)

type CacheCfg struct {
	Driver    string
	TTL       time.Duration
	Size      int
	RedisAddr string
}

type EventsCfg struct {
	Enabled bool
	Brokers string
	Topic   string
}

type MetricsCfg struct {
	Enabled bool
	Addr    string
	Path    string
}

type OutlierCfg struct {
	MeanK      int
	Multiplier float64
}

type Config struct {
	LogLevel      string
	LogConsole    bool
	AOI           model.AOI
	CatalogURL    string
	BulkBaseURL   string
	Dataset       string
	VCRSProperty  string
	DownloadDir   string
	WorkDir       string
	AOIOutput     string
	COPCOutput    string
	DTMOutput     string
	DTMResolution float64
	Outlier       OutlierCfg
	PDALBin       string
	H3Res         int
	HTTPTimeout   time.Duration
	CatalogCache  CacheCfg
	Events        EventsCfg
	Metrics       MetricsCfg
}

const (
	DefaultCatalogURL   = "https://portal.opentopography.org/API/otCatalog"
	DefaultBulkBaseURL  = "https://opentopography.s3.sdsc.edu/pc-bulk/"
	DefaultVCRSProperty = "EPSG (Horizontal)"
)

// Default areas of interest per command.
var (
	// HuntlyAOI is the survey box used for the AOI outputs and the DTM.
	HuntlyAOI = model.AOI{
		MinLon: 175.48116715, MinLat: -37.34580303,
		MaxLon: 175.48772079, MaxLat: -37.33819874,
		SRID: model.SRIDGeographic,
	}
	// NationalAOI covers all of New Zealand.
	NationalAOI  = model.AOI{MinLon: 166, MinLat: -48, MaxLon: 179, MaxLat: -34, SRID: model.SRIDGeographic}
	SelectionAOI = model.AOI{MinLon: 175.15, MinLat: -37.31, MaxLon: 175.16, MaxLat: -37.30, SRID: model.SRIDGeographic}
)

func Defaults() Config {
	return Config{
		LogLevel:      "info",
		AOI:           HuntlyAOI,
		CatalogURL:    DefaultCatalogURL,
		BulkBaseURL:   DefaultBulkBaseURL,
		Dataset:       "NZ15_Huntly",
		VCRSProperty:  DefaultVCRSProperty,
		DownloadDir:   "downloads",
		WorkDir:       ".",
		AOIOutput:     "aoi_bounds.shp",
		COPCOutput:    "cropped_merged.copc.laz",
		DTMOutput:     "Merged_dtm.tif",
		DTMResolution: 1.0,
		Outlier:       OutlierCfg{MeanK: 8, Multiplier: 3},
		PDALBin:       "pdal",
		H3Res:         9,
		CatalogCache: CacheCfg{
			Driver:    "none",
			TTL:       time.Hour,
			Size:      128,
			RedisAddr: "localhost:6379",
		},
		Events: EventsCfg{
			Brokers: "localhost:9092",
			Topic:   "lidar-acquisition",
		},
		Metrics: MetricsCfg{
			Addr: ":9090",
			Path: "/metrics",
		},
	}
}

func FromEnv() Config { return FromEnvWith(Defaults()) }

// FromEnvWith reads the environment on top of d instead of Defaults.
func FromEnvWith(d Config) Config {

	res := getint("H3_RES", d.H3Res)
	if res < 0 || res > 15 {
		res = d.H3Res
	}

	return Config{
		LogLevel:   getenv("LOG_LEVEL", d.LogLevel),
		LogConsole: getbool("LOG_CONSOLE", false),
		AOI: model.AOI{
			MinLon: getfloat("AOI_MINLON", d.AOI.MinLon),
			MinLat: getfloat("AOI_MINLAT", d.AOI.MinLat),
			MaxLon: getfloat("AOI_MAXLON", d.AOI.MaxLon),
			MaxLat: getfloat("AOI_MAXLAT", d.AOI.MaxLat),
			SRID:   strings.ToUpper(getenv("AOI_SRID", d.AOI.SRID)),
		},
		CatalogURL:    getenv("CATALOG_URL", d.CatalogURL),
		BulkBaseURL:   getenv("BULK_BASE_URL", d.BulkBaseURL),
		Dataset:       getenv("DATASET", d.Dataset),
		VCRSProperty:  getenv("VCRS_PROPERTY", d.VCRSProperty),
		DownloadDir:   getenv("DOWNLOAD_DIR", d.DownloadDir),
		WorkDir:       getenv("WORK_DIR", d.WorkDir),
		AOIOutput:     getenv("AOI_OUTPUT", d.AOIOutput),
		COPCOutput:    getenv("COPC_OUTPUT", d.COPCOutput),
		DTMOutput:     getenv("DTM_OUTPUT", d.DTMOutput),
		DTMResolution: getfloat("DTM_RESOLUTION", d.DTMResolution),
		Outlier: OutlierCfg{
			MeanK:      getint("OUTLIER_MEAN_K", d.Outlier.MeanK),
			Multiplier: getfloat("OUTLIER_MULTIPLIER", d.Outlier.Multiplier),
		},
		PDALBin:     getenv("PDAL_BIN", d.PDALBin),
		H3Res:       res,
		HTTPTimeout: getduration("HTTP_TIMEOUT", 0),
		CatalogCache: CacheCfg{
			Driver:    strings.ToLower(getenv("CATALOG_CACHE", d.CatalogCache.Driver)),
			TTL:       getduration("CATALOG_CACHE_TTL", d.CatalogCache.TTL),
			Size:      getint("CATALOG_CACHE_SIZE", d.CatalogCache.Size),
			RedisAddr: getenv("REDIS_ADDR", d.CatalogCache.RedisAddr),
		},
		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", d.Events.Brokers),
			Topic:   getenv("EVENTS_TOPIC", d.Events.Topic),
		},
		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", false),
			Addr:    getenv("METRICS_ADDR", d.Metrics.Addr),
			Path:    getenv("METRICS_PATH", d.Metrics.Path),
		},
	}
}

// Brokers splits a comma separated broker list
func Brokers(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

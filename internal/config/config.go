package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/grid-point-interpolation/internal/grid"
	"github.com/i474232898/grid-point-interpolation/internal/interp"
	"github.com/i474232898/grid-point-interpolation/internal/weather"
)

const (
	RetrieverArchive = "archive"
	RetrieverHTTP    = "http"
)

type AppConfig struct {
	Port string `validate:"required,numeric"`

	// GridPath is the JSON grid geometry file.
	GridPath string `validate:"required"`

	// Retriever selects the sample source: "archive" or "http".
	Retriever        string        `validate:"oneof=archive http"`
	ArchivePath      string        `validate:"required_if=Retriever archive"`
	RetrievalBaseURL string        `validate:"required_if=Retriever http"`
	HTTPTimeout      time.Duration `validate:"gt=0"`

	// FetchInterval controls how often configured stations are interpolated.
	// Anything under a minute is rejected.
	FetchInterval time.Duration `validate:"gte=1m"`

	// Stations to interpolate on schedule.
	Stations []weather.Station

	DefaultMethod string `validate:"oneof=SGl PG onecell IDW EA"`

	// In-memory result store retention.
	StoreMaxHistory int           // max number of results per station (0 = unlimited)
	StoreMaxAge     time.Duration // max age of results (0 = unlimited)

	Interp interp.Config
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.GridPath = getenvDefault("GRID_PATH", "grid.json")
	cfg.Retriever = getenvDefault("RETRIEVER", RetrieverArchive)
	cfg.ArchivePath = getenvDefault("ARCHIVE_PATH", "samples.db")
	cfg.RetrievalBaseURL = os.Getenv("RETRIEVAL_BASE_URL")
	cfg.DefaultMethod = getenvDefault("DEFAULT_METHOD", string(interp.MethodRanked))

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "1h"); err != nil {
		return nil, err
	}

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 48)
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "72h"); err != nil {
		return nil, err
	}

	ic := interp.DefaultConfig()
	floatVars := []struct {
		key string
		dst *float64
	}{
		{"LAPSE_RATE", &ic.LapseRate},
		{"STATION_LAPSE_RATE", &ic.StationLapseRate},
		{"CELL_SIZE", &ic.CellSize},
		{"RANKED_RADIUS", &ic.RankedRadius},
		{"RANGE_RADIUS", &ic.RangeRadius},
		{"RANGE_ALPHA", &ic.RangeAlpha},
		{"RANGE_WINDOW", &ic.RangeWindow},
	}
	for _, v := range floatVars {
		if *v.dst, err = getenvFloat(v.key, *v.dst); err != nil {
			return nil, err
		}
	}
	ic.DefaultQuota = getenvInt("DEFAULT_QUOTA", ic.DefaultQuota)
	cfg.Interp = ic

	if cfg.Stations, err = ParseStations(os.Getenv("STATIONS")); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ParseStations parses a comma-separated list of
// name:easting:northing:zmax[:label] entries.
func ParseStations(s string) ([]weather.Station, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var out []weather.Station
	for _, entry := range strings.Split(s, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) < 4 || len(parts) > 5 {
			return nil, fmt.Errorf("invalid station %q: want name:easting:northing:zmax[:label]", entry)
		}
		nums := make([]float64, 3)
		for i, p := range parts[1:4] {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid station %q: %w", entry, err)
			}
			nums[i] = f
		}
		st := weather.Station{
			Name:  parts[0],
			Point: grid.Point{Easting: nums[0], Northing: nums[1]},
			ZMax:  nums[2],
		}
		if len(parts) == 5 {
			st.Label = parts[4]
		}
		if st.Name == "" {
			return nil, fmt.Errorf("invalid station %q: empty name", entry)
		}
		out = append(out, st)
	}
	return out, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	AppName    = "Strata"
	AppVersion = "1.0.0"
)

// StrataUserAgent identifies requests made to the metadata RPC proxy.
var StrataUserAgent = AppName + "/" + AppVersion

type Config struct {
	Addr           string
	DBPath         string
	DataDir        string
	StaticDir      string
	RPCBaseURL     string
	ProxyURL       string
	LogLevel       string
	HealthInterval time.Duration
}

func Load() Config {
	addr := os.Getenv("STRATA_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	dataDir := os.Getenv("STRATA_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}
	path := os.Getenv("STRATA_DB_PATH")
	if path == "" {
		path = filepath.Join(dataDir, "strata.db")
	}
	staticDir := os.Getenv("STRATA_STATIC_DIR")
	if staticDir == "" {
		staticDir = detectStaticDir()
	}
	rpcBaseURL := os.Getenv("STRATA_RPC_BASE_URL")
	if rpcBaseURL == "" {
		rpcBaseURL = "http://localhost:9090"
	}

	healthInterval := 5 * time.Minute
	if raw := os.Getenv("STRATA_HEALTH_INTERVAL"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			healthInterval = time.Duration(secs) * time.Second
		}
	}

	return Config{
		Addr:           addr,
		DBPath:         filepath.Clean(path),
		DataDir:        filepath.Clean(dataDir),
		StaticDir:      filepath.Clean(staticDir),
		RPCBaseURL:     rpcBaseURL,
		ProxyURL:       os.Getenv("STRATA_PROXY_URL"),
		LogLevel:       os.Getenv("STRATA_LOG_LEVEL"),
		HealthInterval: healthInterval,
	}
}

func detectStaticDir() string {
	candidates := []string{
		"./frontend/dist",
		"../frontend/dist",
	}
	for _, candidate := range candidates {
		indexPath := filepath.Join(candidate, "index.html")
		if info, err := os.Stat(indexPath); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return "./frontend/dist"
}

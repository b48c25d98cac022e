package config

import "os"

type Config struct {
	Addr   string
	DBPath string
}

func Load() Config {
	addr := envString("STORYBLOG_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":8080"
		}
	}
	return Config{
		Addr:   addr,
		DBPath: envString("STORYBLOG_DB", "storyblog.db"),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

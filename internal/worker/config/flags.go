package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/flagx"
)

// parseFlags populates Config from command-line flags.
//
//	-o string   origin URL
//	-a string   listen address
//	-v string   cache version
//	-d string   SQLite database path
//	-m string   comma-separated manifest URLs
//	-mf string  manifest file (watched)
//	-i int      online check interval, seconds
//	-l string   log level
//	-f string   log file
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-o", "-a", "-v", "-d", "-m", "-mf", "-i", "-l", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.OriginURL, "o", cfg.OriginURL, "origin URL")
	fs.StringVar(&cfg.ListenAddr, "a", cfg.ListenAddr, "address and port to listen on")
	fs.StringVar(&cfg.CacheVersion, "v", cfg.CacheVersion, "cache version")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "store database path")
	manifest := fs.String("m", strings.Join(cfg.Manifest, ","), "comma-separated manifest URLs")
	fs.StringVar(&cfg.ManifestFile, "mf", cfg.ManifestFile, "manifest file")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFile, "f", cfg.LogFile, "log file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.Manifest = SplitManifest(*manifest)
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}

// SplitManifest parses a comma- or newline-separated URL list, dropping
// blanks and "#" comments.
func SplitManifest(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' || r == '\r' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || strings.HasPrefix(f, "#") {
			continue
		}
		out = append(out, f)
	}
	return out
}

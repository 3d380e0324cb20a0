// Package config parses cmd/fillpdf's command-line flags, following
// a3tai-mcp-pdf-reader/internal/config's pflag+viper shape: flags define
// defaults, viper lets an environment variable override them, and the
// final value always comes from viper so both sources agree.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultCacheTTLSeconds is used when neither --cache-ttl nor
// FILLPDF_CACHE_TTL is set.
const DefaultCacheTTLSeconds = 3600

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".fillpdf", "cache")
}

// FillConfig holds the parsed flags for the "fill" subcommand.
type FillConfig struct {
	Template     string
	Data         string
	Output       string
	MetadataPath string
	KeepFields   bool
	Cache        bool
	CacheTTL     int
	CacheDir     string
	CacheRefresh bool
	LogFile      string
}

// LoadFillConfig parses the "fill" subcommand's flags out of args (which
// excludes the subcommand name itself). FILLPDF_CACHE_DIR/FILLPDF_CACHE_TTL
// replace the defaults of --cache-dir/--cache-ttl; a flag given explicitly
// on the command line wins over the env var.
func LoadFillConfig(args []string) (*FillConfig, error) {
	viper.SetEnvPrefix("FILLPDF")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("cache-dir", defaultCacheDir())
	viper.SetDefault("cache-ttl", DefaultCacheTTLSeconds)

	fs := pflag.NewFlagSet("fill", pflag.ContinueOnError)
	template := fs.String("template", "", `Template PDF: a local path, a URL, or inline JSON {"url": ...}`)
	data := fs.String("data", "", "Path to the field-descriptor JSON file")
	output := fs.String("output", "", "Path to write the filled PDF")
	metadataPath := fs.String("metadata", "", "Optional path to write processing metadata JSON")
	keepFields := fs.Bool("keep-fields", false, "Keep AcroForm fields/annotations instead of flattening the output")
	cache := fs.Bool("cache", false, "Cache a remotely-fetched template on disk")
	fs.Int("cache-ttl", DefaultCacheTTLSeconds, "Cache entry lifetime, in seconds")
	fs.String("cache-dir", defaultCacheDir(), "Directory for the on-disk template cache")
	cacheRefresh := fs.Bool("cache-refresh", false, "Bypass the cache and force a fresh fetch")
	logFile := fs.String("log-file", "", "Also write progress to this file, mirrored to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	_ = viper.BindPFlag("cache-ttl", fs.Lookup("cache-ttl"))
	_ = viper.BindPFlag("cache-dir", fs.Lookup("cache-dir"))

	if *template == "" {
		return nil, fmt.Errorf("--template is required")
	}
	if *data == "" {
		return nil, fmt.Errorf("--data is required")
	}
	if *output == "" {
		return nil, fmt.Errorf("--output is required")
	}

	return &FillConfig{
		Template:     *template,
		Data:         *data,
		Output:       *output,
		MetadataPath: *metadataPath,
		KeepFields:   *keepFields,
		Cache:        *cache,
		CacheTTL:     viper.GetInt("cache-ttl"),
		CacheDir:     viper.GetString("cache-dir"),
		CacheRefresh: *cacheRefresh,
		LogFile:      *logFile,
	}, nil
}

// CacheClearConfig holds the parsed flags for the "cache clear" subcommand.
type CacheClearConfig struct {
	CacheDir string
}

// LoadCacheClearConfig parses the "cache clear" subcommand's flags.
func LoadCacheClearConfig(args []string) (*CacheClearConfig, error) {
	viper.SetEnvPrefix("FILLPDF")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("cache-dir", defaultCacheDir())

	fs := pflag.NewFlagSet("cache-clear", pflag.ContinueOnError)
	fs.String("cache-dir", defaultCacheDir(), "Directory for the on-disk template cache")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	_ = viper.BindPFlag("cache-dir", fs.Lookup("cache-dir"))

	return &CacheClearConfig{CacheDir: viper.GetString("cache-dir")}, nil
}

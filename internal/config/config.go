package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sorasolar/site-api/internal/domain"
)

// Config holds all service settings, populated from environment variables and
// an optional YAML file.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	// Dataset sources. Empty means the embedded snapshot.
	RooftopsSource string
	PartnersSource string
	DatasetTimeout time.Duration

	// Geo-classification.
	MapStrategy       domain.Strategy
	MapCellSize       float64
	GridThresholds    domain.Thresholds
	ClusterThresholds domain.Thresholds
	Clusters          []domain.Cluster

	// Contact form rate limiting, per client IP.
	ContactRateLimit float64
	ContactRateBurst int

	// Reverse proxies whose X-Forwarded-For entries are believed. Empty
	// means the client IP is always the connection's remote address.
	TrustedProxies []netip.Prefix

	// Lead sink. When disabled, accepted leads are only logged.
	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaLeadsTopic string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration, applying defaults where unset. Environment
// variables override the YAML file. The file is read from SITE_CONFIG_FILE,
// or ./config.yaml when present.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	explicitFile := os.Getenv("SITE_CONFIG_FILE")
	if explicitFile != "" {
		v.SetConfigFile(explicitFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	strategy, err := domain.ParseStrategy(v.GetString("map.strategy"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAP_STRATEGY: %w", err)
	}

	clusters := domain.DefaultClusters()
	if v.IsSet("map.clusters") {
		clusters = nil
		if err := v.UnmarshalKey("map.clusters", &clusters); err != nil {
			return nil, fmt.Errorf("config: map.clusters: %w", err)
		}
	}

	brokers := stringList(v.Get("kafka.brokers"))
	kafkaEnabled := len(brokers) > 0
	if v.IsSet("kafka.enabled") {
		kafkaEnabled = v.GetBool("kafka.enabled")
	}

	trustedProxies, err := parsePrefixes(stringList(v.Get("trusted.proxies")))
	if err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	mapboxToken := v.GetString("mapbox.token")
	mapboxEnabled := mapboxToken != ""
	if v.IsSet("mapbox.enabled") {
		mapboxEnabled = v.GetBool("mapbox.enabled")
	}

	cfg := &Config{
		HTTPAddr:           v.GetString("http.addr"),
		LogLevel:           v.GetString("log.level"),
		LogFormat:          v.GetString("log.format"),
		ShutdownTimeout:    v.GetDuration("shutdown.timeout"),
		CORSAllowedOrigins: stringList(v.Get("cors.allowed_origins")),

		RooftopsSource: v.GetString("rooftops.source"),
		PartnersSource: v.GetString("partners.source"),
		DatasetTimeout: v.GetDuration("dataset.timeout"),

		MapStrategy:       strategy,
		MapCellSize:       v.GetFloat64("map.cell_size"),
		GridThresholds:    thresholds(v, "map.grid.thresholds"),
		ClusterThresholds: thresholds(v, "map.cluster.thresholds"),
		Clusters:          clusters,

		ContactRateLimit: v.GetFloat64("contact.rate_limit"),
		ContactRateBurst: v.GetInt("contact.rate_burst"),
		TrustedProxies:   trustedProxies,

		KafkaEnabled:    kafkaEnabled,
		KafkaBrokers:    brokers,
		KafkaLeadsTopic: v.GetString("kafka.leads_topic"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   v.GetDuration("mapbox.timeout"),
		MapboxCacheSize: v.GetInt("mapbox.cache_size"),
	}
	if cfg.MapboxCacheSize <= 0 {
		cfg.MapboxCacheSize = 1000
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("shutdown.timeout", "10s")
	v.SetDefault("cors.allowed_origins", "http://localhost:3000")
	v.SetDefault("rooftops.source", "")
	v.SetDefault("partners.source", "")
	v.SetDefault("dataset.timeout", "5s")
	v.SetDefault("map.strategy", string(domain.StrategyGrid))
	v.SetDefault("map.cell_size", domain.DefaultCellSize)
	setThresholdDefaults(v, "map.grid.thresholds", domain.DefaultGridThresholds())
	setThresholdDefaults(v, "map.cluster.thresholds", domain.DefaultClusterThresholds())
	v.SetDefault("contact.rate_limit", 0.2)
	v.SetDefault("contact.rate_burst", 3)
	v.SetDefault("trusted.proxies", "")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.leads_topic", "contact-leads")
	v.SetDefault("mapbox.token", "")
	v.SetDefault("mapbox.timeout", "5s")
	v.SetDefault("mapbox.cache_size", 1000)
}

// Threshold keys are set one by one so each is reachable from the
// environment, e.g. MAP_GRID_THRESHOLDS_HIGH_SUN_HOURS.
func setThresholdDefaults(v *viper.Viper, prefix string, t domain.Thresholds) {
	v.SetDefault(prefix+".high_sun_hours", t.HighSunHours)
	v.SetDefault(prefix+".high_ready_ratio", t.HighReadyRatio)
	v.SetDefault(prefix+".low_sun_hours", t.LowSunHours)
	v.SetDefault(prefix+".low_ready_ratio", t.LowReadyRatio)
}

func thresholds(v *viper.Viper, prefix string) domain.Thresholds {
	return domain.Thresholds{
		HighSunHours:   v.GetFloat64(prefix + ".high_sun_hours"),
		HighReadyRatio: v.GetFloat64(prefix + ".high_ready_ratio"),
		LowSunHours:    v.GetFloat64(prefix + ".low_sun_hours"),
		LowReadyRatio:  v.GetFloat64(prefix + ".low_ready_ratio"),
	}
}

func (c *Config) validate() error {
	if c.ShutdownTimeout <= 0 {
		return errors.New("invalid SHUTDOWN_TIMEOUT")
	}
	if c.DatasetTimeout <= 0 {
		return errors.New("invalid DATASET_TIMEOUT")
	}
	if c.MapboxTimeout <= 0 {
		return errors.New("invalid MAPBOX_TIMEOUT")
	}
	if c.MapCellSize <= 0 || c.MapCellSize > 90 {
		return errors.New("MAP_CELL_SIZE must be between 0 and 90 degrees")
	}
	if err := c.GridThresholds.Validate(); err != nil {
		return fmt.Errorf("invalid MAP_GRID_THRESHOLDS: %w", err)
	}
	if err := c.ClusterThresholds.Validate(); err != nil {
		return fmt.Errorf("invalid MAP_CLUSTER_THRESHOLDS: %w", err)
	}
	if err := validateClusters(c.Clusters); err != nil {
		return err
	}
	if c.ContactRateLimit <= 0 {
		return errors.New("CONTACT_RATE_LIMIT must be positive")
	}
	if c.ContactRateBurst <= 0 {
		return errors.New("CONTACT_RATE_BURST must be positive")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if c.KafkaEnabled && c.KafkaLeadsTopic == "" {
		return errors.New("KAFKA_LEADS_TOPIC is required")
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}

func validateClusters(clusters []domain.Cluster) error {
	if len(clusters) == 0 {
		return errors.New("map.clusters must list at least one cluster")
	}
	seen := make(map[string]bool, len(clusters))
	for i, c := range clusters {
		if c.ID == "" {
			return fmt.Errorf("map.clusters[%d]: id is required", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("map.clusters[%d]: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = true
		if c.RadiusKM <= 0 {
			return fmt.Errorf("map.clusters[%d]: radius_km must be positive", i)
		}
	}
	return nil
}

// parsePrefixes accepts CIDR blocks or bare addresses; a bare address
// becomes a single-host prefix.
func parsePrefixes(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// stringList accepts either a comma-separated string (environment) or a
// YAML list and returns the trimmed, non-empty entries.
func stringList(raw any) []string {
	var parts []string
	switch val := raw.(type) {
	case string:
		parts = strings.Split(val, ",")
	case []string:
		parts = val
	case []any:
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wagerlens/slipscan/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	HTTPAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	DBURL                   string
	DBDisablePreparedBinary bool

	CacheEnabled bool
	CacheTTL     time.Duration

	CORSAllowedOrigins []string

	PprofEnabled bool
	PprofAddr    string

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration

	OpenAIAPIKey  string
	OpenAIBaseURL string
	VisionModel   string
	VisionTimeout time.Duration

	FactCheckEnabled bool
	FactCheckModel   string
	FactCheckTimeout time.Duration

	SofascoreBaseURL             string
	SofascoreTimeout             time.Duration
	SofascoreMaxRetries          int
	SofascoreCircuitEnabled      bool
	SofascoreCircuitFailureCount int
	SofascoreCircuitOpenTimeout  time.Duration
	SofascoreCircuitHalfOpenReq  int

	ResolutionPastGrace      time.Duration
	ResolutionAheadHorizon   time.Duration
	ResolutionAttemptTimeout time.Duration

	SlipMaxWorkers     int
	SlipReresolveDelay time.Duration

	InternalJobToken    string
	QStashEnabled       bool
	QStashBaseURL       string
	QStashToken         string
	QStashTargetBaseURL string
	QStashRetries       int

	LogLevel logging.Level
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	visionTimeout, err := time.ParseDuration(getEnv("VISION_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse VISION_TIMEOUT: %w", err)
	}
	if visionTimeout <= 0 {
		return Config{}, fmt.Errorf("VISION_TIMEOUT must be > 0")
	}

	factCheckEnabled, err := strconv.ParseBool(getEnv("FACTCHECK_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FACTCHECK_ENABLED: %w", err)
	}
	factCheckTimeout, err := time.ParseDuration(getEnv("FACTCHECK_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FACTCHECK_TIMEOUT: %w", err)
	}
	if factCheckTimeout <= 0 {
		return Config{}, fmt.Errorf("FACTCHECK_TIMEOUT must be > 0")
	}

	sofascoreTimeout, err := time.ParseDuration(getEnv("SOFASCORE_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SOFASCORE_TIMEOUT: %w", err)
	}
	if sofascoreTimeout <= 0 {
		return Config{}, fmt.Errorf("SOFASCORE_TIMEOUT must be > 0")
	}
	sofascoreMaxRetries, err := getEnvAsInt("SOFASCORE_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse SOFASCORE_MAX_RETRIES: %w", err)
	}
	if sofascoreMaxRetries < 0 {
		return Config{}, fmt.Errorf("SOFASCORE_MAX_RETRIES must be >= 0")
	}
	sofascoreCircuitEnabled, err := strconv.ParseBool(getEnv("SOFASCORE_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SOFASCORE_CIRCUIT_ENABLED: %w", err)
	}
	sofascoreCircuitFailureCount, err := getEnvAsInt("SOFASCORE_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse SOFASCORE_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if sofascoreCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("SOFASCORE_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	sofascoreCircuitOpenTimeout, err := time.ParseDuration(getEnv("SOFASCORE_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SOFASCORE_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if sofascoreCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("SOFASCORE_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	sofascoreCircuitHalfOpenReq, err := getEnvAsInt("SOFASCORE_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse SOFASCORE_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if sofascoreCircuitHalfOpenReq < 1 {
		return Config{}, fmt.Errorf("SOFASCORE_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	resolutionPastGrace, err := time.ParseDuration(getEnv("RESOLUTION_PAST_GRACE", "10m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RESOLUTION_PAST_GRACE: %w", err)
	}
	if resolutionPastGrace <= 0 {
		return Config{}, fmt.Errorf("RESOLUTION_PAST_GRACE must be > 0")
	}
	resolutionAheadHorizon, err := time.ParseDuration(getEnv("RESOLUTION_AHEAD_HORIZON", "72h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RESOLUTION_AHEAD_HORIZON: %w", err)
	}
	if resolutionAheadHorizon <= 0 {
		return Config{}, fmt.Errorf("RESOLUTION_AHEAD_HORIZON must be > 0")
	}
	resolutionAttemptTimeout, err := time.ParseDuration(getEnv("RESOLUTION_ATTEMPT_TIMEOUT", "45s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RESOLUTION_ATTEMPT_TIMEOUT: %w", err)
	}
	if resolutionAttemptTimeout <= 0 {
		return Config{}, fmt.Errorf("RESOLUTION_ATTEMPT_TIMEOUT must be > 0")
	}

	slipMaxWorkers, err := getEnvAsInt("SLIP_MAX_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse SLIP_MAX_WORKERS: %w", err)
	}
	if slipMaxWorkers < 1 {
		return Config{}, fmt.Errorf("SLIP_MAX_WORKERS must be >= 1")
	}
	slipReresolveDelay, err := time.ParseDuration(getEnv("SLIP_RERESOLVE_DELAY", "30m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SLIP_RERESOLVE_DELAY: %w", err)
	}
	if slipReresolveDelay <= 0 {
		return Config{}, fmt.Errorf("SLIP_RERESOLVE_DELAY must be > 0")
	}

	qstashEnabled, err := strconv.ParseBool(getEnv("QSTASH_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse QSTASH_ENABLED: %w", err)
	}
	qstashRetries, err := getEnvAsInt("QSTASH_RETRIES", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse QSTASH_RETRIES: %w", err)
	}
	if qstashRetries < 0 {
		return Config{}, fmt.Errorf("QSTASH_RETRIES must be >= 0")
	}
	qstashBaseURL := strings.TrimSpace(getEnv("QSTASH_BASE_URL", "https://qstash.upstash.io"))
	qstashToken := strings.TrimSpace(getEnv("QSTASH_TOKEN", ""))
	qstashTargetBaseURL := strings.TrimSpace(getEnv("QSTASH_TARGET_BASE_URL", ""))
	internalJobToken := strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", ""))
	if qstashEnabled {
		if qstashToken == "" {
			return Config{}, fmt.Errorf("QSTASH_TOKEN is required when QSTASH_ENABLED=true")
		}
		if qstashTargetBaseURL == "" {
			return Config{}, fmt.Errorf("QSTASH_TARGET_BASE_URL is required when QSTASH_ENABLED=true")
		}
		if internalJobToken == "" {
			return Config{}, fmt.Errorf("INTERNAL_JOB_TOKEN is required when QSTASH_ENABLED=true")
		}
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}

	cfg := Config{
		AppEnv:                       appEnv,
		ServiceName:                  getEnv("APP_SERVICE_NAME", "slipscan-api"),
		ServiceVersion:               getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                     getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                  readTimeout,
		WriteTimeout:                 writeTimeout,
		DBURL:                        strings.TrimSpace(getEnv("DB_URL", "")),
		DBDisablePreparedBinary:      dbDisablePreparedBinary,
		CacheEnabled:                 cacheEnabled,
		CacheTTL:                     cacheTTL,
		CORSAllowedOrigins:           splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		PprofEnabled:                 pprofEnabled,
		PprofAddr:                    pprofAddr,
		UptraceEnabled:               uptraceEnabled,
		UptraceDSN:                   uptraceDSN,
		PyroscopeEnabled:             pyroscopeEnabled,
		PyroscopeServerAddress:       pyroscopeServerAddress,
		PyroscopeAuthToken:           strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:       strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:   strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:          pyroscopeUploadRate,
		OpenAIAPIKey:                 strings.TrimSpace(getEnv("OPENAI_API_KEY", "")),
		OpenAIBaseURL:                strings.TrimSpace(getEnv("OPENAI_BASE_URL", "")),
		VisionModel:                  strings.TrimSpace(getEnv("VISION_MODEL", "")),
		VisionTimeout:                visionTimeout,
		FactCheckEnabled:             factCheckEnabled,
		FactCheckModel:               strings.TrimSpace(getEnv("FACTCHECK_MODEL", "")),
		FactCheckTimeout:             factCheckTimeout,
		SofascoreBaseURL:             strings.TrimSpace(getEnv("SOFASCORE_BASE_URL", "https://api.sofascore.com/api/v1")),
		SofascoreTimeout:             sofascoreTimeout,
		SofascoreMaxRetries:          sofascoreMaxRetries,
		SofascoreCircuitEnabled:      sofascoreCircuitEnabled,
		SofascoreCircuitFailureCount: sofascoreCircuitFailureCount,
		SofascoreCircuitOpenTimeout:  sofascoreCircuitOpenTimeout,
		SofascoreCircuitHalfOpenReq:  sofascoreCircuitHalfOpenReq,
		ResolutionPastGrace:          resolutionPastGrace,
		ResolutionAheadHorizon:       resolutionAheadHorizon,
		ResolutionAttemptTimeout:     resolutionAttemptTimeout,
		SlipMaxWorkers:               slipMaxWorkers,
		SlipReresolveDelay:           slipReresolveDelay,
		InternalJobToken:             internalJobToken,
		QStashEnabled:                qstashEnabled,
		QStashBaseURL:                qstashBaseURL,
		QStashToken:                  qstashToken,
		QStashTargetBaseURL:          qstashTargetBaseURL,
		QStashRetries:                qstashRetries,
		LogLevel:                     parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
	}

	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

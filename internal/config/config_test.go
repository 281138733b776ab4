package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "slipscan-api" {
		t.Fatalf("unexpected service name %q", cfg.ServiceName)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected http addr %q", cfg.HTTPAddr)
	}
	if cfg.CacheTTL != 15*time.Minute {
		t.Fatalf("unexpected cache ttl %v", cfg.CacheTTL)
	}
	if cfg.ResolutionPastGrace != 10*time.Minute {
		t.Fatalf("unexpected past grace %v", cfg.ResolutionPastGrace)
	}
	if cfg.ResolutionAheadHorizon != 72*time.Hour {
		t.Fatalf("unexpected ahead horizon %v", cfg.ResolutionAheadHorizon)
	}
	if cfg.ResolutionAttemptTimeout != 45*time.Second {
		t.Fatalf("unexpected attempt timeout %v", cfg.ResolutionAttemptTimeout)
	}
	if cfg.SlipMaxWorkers != 4 {
		t.Fatalf("unexpected slip workers %d", cfg.SlipMaxWorkers)
	}
	if !cfg.FactCheckEnabled {
		t.Fatal("factcheck should default to enabled")
	}
	if cfg.SofascoreBaseURL != "https://api.sofascore.com/api/v1" {
		t.Fatalf("unexpected sofascore base url %q", cfg.SofascoreBaseURL)
	}
	if cfg.DBURL != "" {
		t.Fatalf("DB_URL should default to empty, got %q", cfg.DBURL)
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when UPTRACE_ENABLED without DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `uptrace-dsn="https://token@api.uptrace.dev?grpc=4317"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev?grpc=4317" {
		t.Fatalf("unexpected dsn %q", cfg.UptraceDSN)
	}
}

func TestLoad_QStashRequiresTokenWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("QSTASH_ENABLED", "true")
	t.Setenv("QSTASH_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when QSTASH_ENABLED without token")
	}

	t.Setenv("QSTASH_TOKEN", "qs-token")
	t.Setenv("QSTASH_TARGET_BASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when QSTASH_ENABLED without target base url")
	}

	t.Setenv("QSTASH_TARGET_BASE_URL", "https://api.slipscan.dev")
	t.Setenv("INTERNAL_JOB_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when QSTASH_ENABLED without internal job token")
	}

	t.Setenv("INTERNAL_JOB_TOKEN", "job-secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.QStashBaseURL != "https://qstash.upstash.io" || cfg.QStashRetries != 3 {
		t.Fatalf("unexpected qstash config %+v", cfg)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when PYROSCOPE_ENABLED without server address")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://pyroscope:4040")
	t.Setenv("APP_SERVICE_NAME", "slipscan-stage")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PyroscopeAppName != "slipscan-stage" {
		t.Fatalf("unexpected pyroscope app name %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_CORSOriginsParsing(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.slipscan.dev, https://admin.slipscan.dev")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != "https://app.slipscan.dev" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}

	t.Setenv("CORS_ALLOWED_ORIGINS", " , ")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for empty origins list")
	}
}

func TestLoad_ResolutionWindowOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("RESOLUTION_PAST_GRACE", "5m")
	t.Setenv("RESOLUTION_AHEAD_HORIZON", "48h")
	t.Setenv("RESOLUTION_ATTEMPT_TIMEOUT", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ResolutionPastGrace != 5*time.Minute ||
		cfg.ResolutionAheadHorizon != 48*time.Hour ||
		cfg.ResolutionAttemptTimeout != 30*time.Second {
		t.Fatalf("unexpected resolution windows %+v", cfg)
	}

	t.Setenv("RESOLUTION_PAST_GRACE", "-1m")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative past grace")
	}
}

func TestLoad_LogLevelParsing(t *testing.T) {
	t.Setenv("APP_ENV", "dev")

	cases := map[string]string{
		"debug":   "debug",
		"warning": "warn",
		"error":   "error",
		"bogus":   "info",
	}
	for input, want := range cases {
		t.Setenv("APP_LOG_LEVEL", input)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load with level %q: %v", input, err)
		}
		if got := cfg.LogLevel.String(); got != want {
			t.Errorf("level %q parsed to %q, want %q", input, got, want)
		}
	}
}

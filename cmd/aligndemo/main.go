// Package main wires the alignment core's collaborators together and
// runs a single batch of foods through it end to end. It exists to
// exercise the core, not as a deliverable batch runner: a real batch
// runner/service is out of scope (spec.md §1 Non-goals), so this is
// intentionally thin.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	alignapp "github.com/alignment-core/foodalign/internal/application/align"
	"github.com/alignment-core/foodalign/internal/infrastructure/config"
	"github.com/alignment-core/foodalign/internal/infrastructure/metrics"
	"github.com/alignment-core/foodalign/internal/infrastructure/persistence/ndb"
	"github.com/alignment-core/foodalign/internal/infrastructure/semantic"
	"github.com/alignment-core/foodalign/internal/infrastructure/telemetry"
	"github.com/alignment-core/foodalign/internal/ports/inbound"
	"github.com/alignment-core/foodalign/internal/ports/outbound"
	apperrors "github.com/alignment-core/foodalign/pkg/errors"
	"github.com/alignment-core/foodalign/pkg/healthcheck"
	applog "github.com/alignment-core/foodalign/pkg/logger"
)

// Exit codes per spec.md §6.5. The core itself never calls os.Exit; only
// this wrapper does.
const (
	exitSuccess            = 0
	exitOtherError         = 1
	exitConfigProblem      = 2
	exitDatabaseUnavailable = 3
	exitHardAssertion      = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	configDir := flag.String("config-dir", "configs/align", "directory holding config documents and recipes/")
	ndbPath := flag.String("ndb", "", "path to the SQLite NDB snapshot (empty = in-memory)")
	ndbDSN := flag.String("ndb-postgres-dsn", "", "Postgres DSN for the NDB snapshot (overrides -ndb/SQLite when set)")
	ndbReadReplicas := flag.String("ndb-read-replicas", "", "comma-separated Postgres DSNs for NDB read replicas (postgres mode only)")
	semanticDir := flag.String("semantic-dir", "", "directory holding a checksum-verified semantic index (optional)")
	telemetryPath := flag.String("telemetry", "telemetry.ndjson", "path to the NDJSON telemetry sink")
	imageID := flag.String("image-id", "demo-image", "image identifier recorded in telemetry")
	foodsFlag := flag.String("foods", "grape:raw", "comma-separated name:form pairs, e.g. grape:raw,potato:roasted")
	maxStageZRate := flag.Float64("max-stagez-rate", -1, "hard assertion: fail if Stage Z usage exceeds this fraction of aligned foods (disabled when negative)")
	telemetryRedisAddr := flag.String("telemetry-redis-addr", "", "redis address for live telemetry tailing (optional, in addition to the NDJSON file sink)")
	diskThreshold := flag.Float64("disk-usage-threshold", 90, "percent disk usage on the telemetry sink's filesystem at which startup reports degraded")
	flag.Parse()

	log, err := applog.New(applog.Config{Level: "info", Format: "console"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to construct logger:", err)
		return exitOtherError
	}
	defer log.Sync()

	cfgStore, err := config.LoadAlignConfig(*configDir)
	if err != nil {
		log.Error("config store load failed", zap.Error(err))
		if apperrors.Is(err, apperrors.CodeConfigMissing) || apperrors.Is(err, apperrors.CodeConfigInvalid) {
			return exitConfigProblem
		}
		return exitOtherError
	}

	var db *gorm.DB
	if *ndbDSN != "" {
		db, err = ndb.ConnectPostgres(*ndbDSN, logger.Silent, splitNonEmpty(*ndbReadReplicas, ',')...)
	} else {
		db, err = ndb.ConnectSQLite(*ndbPath, logger.Silent)
	}
	if err != nil {
		log.Error("ndb connection failed", zap.Error(err))
		return exitDatabaseUnavailable
	}
	repo, err := ndb.NewRepository(db, 0)
	if err != nil {
		log.Error("ndb repository construction failed", zap.Error(err))
		return exitDatabaseUnavailable
	}
	snapshot, err := repo.ContentFingerprint(context.Background())
	if err != nil {
		log.Error("ndb fingerprint failed", zap.Error(err))
		return exitDatabaseUnavailable
	}

	var semIndex *semantic.Index
	if *semanticDir != "" {
		semIndex, err = semantic.Load(*semanticDir)
		if err != nil {
			log.Warn("semantic index unavailable, continuing without Stage 1S", zap.Error(err))
		}
	}
	if semIndex == nil {
		semIndex, _ = semantic.Load("")
	}

	fileSink, err := telemetry.NewFileSink(*telemetryPath)
	if err != nil {
		log.Error("telemetry sink open failed", zap.Error(err))
		return exitOtherError
	}
	defer fileSink.Close()

	var sink outbound.TelemetrySink = fileSink
	var redisClient *redis.Client
	if *telemetryRedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: *telemetryRedisAddr})
		defer redisClient.Close()
		sink = telemetry.NewMultiSink(fileSink, telemetry.NewRedisSink(redisClient, ""))
	}

	ehc := healthcheck.NewEnterpriseHealthCheck("aligndemo@dev", log)
	ehc.RegisterWithCircuitBreaker("ndb", healthcheck.NewCustomChecker("ndb", func(ctx context.Context) (healthcheck.Status, string, interface{}) {
		sqlDB, err := db.DB()
		if err != nil {
			return healthcheck.StatusUnhealthy, err.Error(), nil
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return healthcheck.StatusUnhealthy, err.Error(), nil
		}
		return healthcheck.StatusHealthy, "", map[string]interface{}{"ndb_snapshot": snapshot}
	}), healthcheck.CircuitBreakerConfig{FailureThreshold: 3, Timeout: 30 * time.Second})
	ehc.Register("disk", healthcheck.NewDiskChecker(filepath.Dir(*telemetryPath), *diskThreshold))

	ehc.RegisterDependency(healthcheck.ServiceDependency("config", true, nil, healthcheck.NewCustomChecker("config", func(ctx context.Context) (healthcheck.Status, string, interface{}) {
		fp := cfgStore.Snapshot().Fingerprint
		if fp == "" {
			return healthcheck.StatusUnhealthy, "config fingerprint empty", nil
		}
		return healthcheck.StatusHealthy, "", map[string]interface{}{"fingerprint": fp}
	})))
	ehc.RegisterDependency(healthcheck.ServiceDependency("semantic_index", false, []string{"config"}, healthcheck.NewCustomChecker("semantic_index", func(ctx context.Context) (healthcheck.Status, string, interface{}) {
		if semIndex == nil || !semIndex.Ready() {
			return healthcheck.StatusDegraded, "semantic index not loaded, Stage 1S disabled", nil
		}
		return healthcheck.StatusHealthy, "", nil
	})))
	if redisClient != nil {
		ehc.RegisterDependency(healthcheck.CacheDependency("telemetry_redis", false, healthcheck.NewRedisChecker(redisClient)))
	}

	preflight := ehc.CheckWithMode(context.Background(), healthcheck.ModeDeep)
	log.Info("startup preflight",
		zap.String("status", string(preflight.Status)),
		zap.String("hostname", preflight.SystemInfo.Hostname),
		zap.Int("cpu_cores", preflight.SystemInfo.CPUCores),
	)
	for _, dep := range preflight.Dependencies {
		if dep.Critical && dep.Status == healthcheck.StatusUnhealthy {
			log.Error("critical dependency unhealthy", zap.String("dependency", dep.Name), zap.String("message", dep.Message))
			if dep.Name == "config" {
				return exitConfigProblem
			}
			return exitOtherError
		}
	}
	for _, check := range preflight.Checks {
		if check.Name == "ndb" && check.Status == healthcheck.StatusUnhealthy {
			log.Error("ndb preflight check unhealthy", zap.String("message", check.Message))
			return exitDatabaseUnavailable
		}
	}

	metricsRecorder := metrics.NewAlignmentMetrics()

	engine := alignapp.NewEngine(
		repo,
		semIndex,
		cfgStore,
		sink,
		log,
		"aligndemo@dev",
		snapshot,
		alignapp.WithMetrics(metricsRecorder),
		alignapp.WithNeverProxy(cfgStore.Snapshot().NegativeVocab.NeverProxy),
	)
	service := alignapp.NewAlignmentService(engine, cfgStore, log)

	foods, err := parseFoods(*foodsFlag)
	if err != nil {
		log.Error("invalid -foods value", zap.Error(err))
		return exitOtherError
	}

	req := inbound.AlignRequest{
		ImageID:           *imageID,
		Foods:             foods,
		ConfigFingerprint: cfgStore.Snapshot().Fingerprint,
	}

	resp, err := service.Align(context.Background(), req)
	if err != nil {
		log.Error("alignment failed", zap.Error(err))
		if appErr, ok := err.(*apperrors.AppError); ok {
			switch appErr.Code {
			case apperrors.CodeConfigFingerprintStale, apperrors.CodeConfigInvalid, apperrors.CodeConfigMissing:
				return exitConfigProblem
			case apperrors.CodeNDBUnavailable:
				return exitDatabaseUnavailable
			}
		}
		return exitOtherError
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		log.Error("response marshal failed", zap.Error(err))
		return exitOtherError
	}
	fmt.Println(string(out))

	summary := engine.GuardSummary()
	metricsRecorder.ObserveGuardSummary(summary)

	if *maxStageZRate >= 0 && len(foods) > 0 {
		rate := float64(summary.StageZUsageCount) / float64(len(foods))
		if rate > *maxStageZRate {
			log.Error("hard assertion failed: Stage Z usage rate exceeds threshold",
				zap.Float64("rate", rate), zap.Float64("threshold", *maxStageZRate))
			return exitHardAssertion
		}
	}

	return exitSuccess
}

func parseFoods(spec string) ([]inbound.FoodInput, error) {
	var foods []inbound.FoodInput
	for _, pair := range splitNonEmpty(spec, ',') {
		parts := splitNonEmpty(pair, ':')
		if len(parts) == 0 {
			continue
		}
		food := inbound.FoodInput{Name: parts[0]}
		if len(parts) > 1 {
			food.Form = parts[1]
		}
		foods = append(foods, food)
	}
	if len(foods) == 0 {
		return nil, fmt.Errorf("no foods parsed from %q", spec)
	}
	return foods, nil
}

func splitNonEmpty(s string, sep rune) []string {
	var out []string
	var cur []rune
	for _, r := range s {
		if r == sep {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

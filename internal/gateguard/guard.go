package gateguard

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sentrilane/visitgate/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyGatepassLock = "inout:gatepass:%d"
	keyGateScans    = "inout:gate:%s"
)

// Guard serializes the legality-check-then-write pair of a gate scan per
// gatepass and throttles scan bursts per physical gate. It is nil-safe:
// without a redis address every check passes through, and the in/out
// read-then-write race stands as documented.
type Guard struct {
	locker  *Locker
	bucket  *TokenBucket
	lockTTL time.Duration

	scanRate  float64
	scanBurst int
}

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
	LC  fx.Lifecycle
}

func New(p Params) *Guard {
	addr := strings.TrimSpace(p.Cfg.RedisAddr)
	if addr == "" {
		p.Log.Named("gateguard").Warn("redis not configured, gate scans run unserialized")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(p.Cfg.RedisPassword),
		DB:       p.Cfg.RedisDB,
	})

	p.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	lockTTL := time.Duration(p.Cfg.GateLockTTLSeconds) * time.Second
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}

	return &Guard{
		locker:    NewLocker(client),
		bucket:    NewTokenBucket(client),
		lockTTL:   lockTTL,
		scanRate:  p.Cfg.GateScanRate,
		scanBurst: p.Cfg.GateScanBurst,
	}
}

func (g *Guard) Enabled() bool {
	return g != nil && g.locker != nil
}

// TryLockPass takes the per-gatepass advisory lock. When the guard is
// disabled it reports success with an empty token.
func (g *Guard) TryLockPass(ctx context.Context, gatepassID int64) (string, bool, error) {
	if !g.Enabled() {
		return "", true, nil
	}
	return g.locker.TryLock(ctx, fmt.Sprintf(keyGatepassLock, gatepassID), g.lockTTL)
}

func (g *Guard) ReleasePass(ctx context.Context, gatepassID int64, token string) error {
	if !g.Enabled() {
		return nil
	}
	return g.locker.Release(ctx, fmt.Sprintf(keyGatepassLock, gatepassID), token)
}

// AllowScan rate limits scans per gate name. Disabled or unconfigured
// rates always allow.
func (g *Guard) AllowScan(ctx context.Context, gate string) (bool, error) {
	if !g.Enabled() || g.scanRate <= 0 || g.scanBurst <= 0 {
		return true, nil
	}
	gate = strings.TrimSpace(strings.ToLower(gate))
	if gate == "" {
		gate = "default"
	}
	return g.bucket.Allow(ctx, fmt.Sprintf(keyGateScans, gate), g.scanRate, g.scanBurst)
}

var Module = fx.Module("gate.guard",
	fx.Provide(New),
)

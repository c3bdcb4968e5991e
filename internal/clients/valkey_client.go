package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

const (
	VALKEY_LOCK_PREFIX    = "ytinsights:lock:"
	VALKEY_LOCK_TTL       = 30 * time.Second
	VALKEY_LOCK_WAIT_STEP = 100 * time.Millisecond
)

// releaseScript deletes the lock only while it is still owned by the caller.
var releaseScript = valkey.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type ValkeyClient struct {
	Client  valkey.Client
	LockTTL time.Duration
}

type ValkeyOptions struct {
	Address  string
	Password string
	UseTLS   bool
	// DisableCache turns off client side caching, needed for servers
	// without CLIENT TRACKING support.
	DisableCache bool
}

func NewValkeyClient(ctx context.Context, opts ValkeyOptions) (*ValkeyClient, error) {
	clientOpts := valkey.ClientOption{
		InitAddress:      []string{opts.Address},
		Password:         opts.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
		DisableCache:     opts.DisableCache,
	}

	if opts.UseTLS {
		clientOpts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey",
		slog.String("address", opts.Address))

	return &ValkeyClient{Client: client, LockTTL: VALKEY_LOCK_TTL}, nil
}

func (vc *ValkeyClient) Close() {
	if vc != nil && vc.Client != nil {
		vc.Client.Close()
	}
}

// Acquire blocks until the named lock is held or ctx is done. The lock
// expires after LockTTL if the holder never releases it.
func (vc *ValkeyClient) Acquire(ctx context.Context, name string) (func(), error) {
	key := VALKEY_LOCK_PREFIX + name
	token := uuid.NewString()

	for {
		cmd := vc.Client.B().Set().Key(key).Value(token).Nx().PxMilliseconds(vc.LockTTL.Milliseconds()).Build()
		err := vc.Client.Do(ctx, cmd).Error()
		if err == nil {
			slog.Debug("[ValkeyClient] Lock acquired", slog.String("key", key))
			return func() { vc.release(key, token) }, nil
		}
		if !valkey.IsValkeyNil(err) {
			return nil, fmt.Errorf("[ValkeyClient] failed to acquire lock %s: %w", key, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("[ValkeyClient] waiting for lock %s: %w", key, ctx.Err())
		case <-time.After(VALKEY_LOCK_WAIT_STEP):
		}
	}
}

func (vc *ValkeyClient) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := releaseScript.Exec(ctx, vc.Client, []string{key}, []string{token}).Error(); err != nil {
		slog.Warn("[ValkeyClient] Failed to release lock",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

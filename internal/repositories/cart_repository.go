package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcodena/storefront/internal/config"
	"github.com/marcodena/storefront/internal/models"
	"github.com/redis/go-redis/v9"
)

// CartRepository stores carts in Redis, one key per visitor session,
// outside the relational store's transaction boundaries. A missing key
// is not an error: Get returns an empty cart so carts come into
// existence lazily on first mutation.
type CartRepository interface {
	Get(ctx context.Context, sessionID string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

type cartRepository struct {
	client *redis.Client
	cfg    *config.CartConfig
}

func NewCartRepo(client *redis.Client, cfg *config.CartConfig) CartRepository {
	return &cartRepository{client: client, cfg: cfg}
}

func NewRedisClient(cfg *config.Config) (*redis.Client, error) {

	redisURL := cfg.RedisConnect.GetDSN()

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", slog.Any("error", err))
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.DB = cfg.RedisConnect.DB

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Test the connection
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("✅ Successfully connected to Redis")
	return client, nil
}

func (r *cartRepository) key(sessionID string) string {
	return r.cfg.KeyPrefix + ":" + sessionID
}

func (r *cartRepository) Get(ctx context.Context, sessionID string) (*models.Cart, error) {

	data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {

		if err == redis.Nil {
			return models.NewCart(sessionID), nil
		}

		return nil, fmt.Errorf("failed to get cart for session %s: %w", sessionID, err)
	}

	cart := &models.Cart{}
	if err := json.Unmarshal(data, cart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart for session %s: %w", sessionID, err)
	}

	if cart.Lines == nil {
		cart.Lines = make(map[string]models.CartLine)
	}

	return cart, nil
}

func (r *cartRepository) Save(ctx context.Context, cart *models.Cart) error {

	cart.UpdatedAt = time.Now()

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to marshal cart for session %s: %w", cart.SessionID, err)
	}

	// Every save refreshes the TTL, so active sessions keep their cart.
	if err := r.client.Set(ctx, r.key(cart.SessionID), string(data), r.cfg.SessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save cart for session %s: %w", cart.SessionID, err)
	}

	return nil
}

func (r *cartRepository) Delete(ctx context.Context, sessionID string) error {

	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart for session %s: %w", sessionID, err)
	}

	return nil
}

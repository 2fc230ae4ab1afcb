package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/models"
)

// ErrCacheMiss is returned when a key is not present in the cache
var ErrCacheMiss = errors.New("cache miss")

// Error is a structured cache error carrying the failed operation and key
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return "cache " + e.Op + " '" + e.Key + "': " + e.Err.Error()
	}
	return "cache " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Config holds redis connection settings
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL int // seconds
}

// Client caches URL records by short code in redis. Cache failures are
// surfaced as errors so callers can degrade to the database.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient connects to redis and verifies the connection
func NewClient(cfg Config) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, &Error{Op: "connect", Err: err}
	}

	ttl := time.Duration(cfg.CacheTTL) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Client{client: client, ttl: ttl}, nil
}

func urlKey(code string) string {
	return "url:" + code
}

// GetURL returns the cached record for a short code, or ErrCacheMiss
func (c *Client) GetURL(ctx context.Context, code string) (*models.URL, error) {
	key := urlKey(code)
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, &Error{Op: "get", Key: key, Err: err}
	}

	var url models.URL
	if err := json.Unmarshal([]byte(data), &url); err != nil {
		return nil, &Error{Op: "get", Key: key, Err: err}
	}
	return &url, nil
}

// SetURL caches a record under its short code
func (c *Client) SetURL(ctx context.Context, url *models.URL) error {
	key := urlKey(url.ShortCode)
	data, err := json.Marshal(url)
	if err != nil {
		return &Error{Op: "set", Key: key, Err: err}
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return &Error{Op: "set", Key: key, Err: err}
	}
	return nil
}

// DeleteURL drops cached records for the given short codes
func (c *Client) DeleteURL(ctx context.Context, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = urlKey(code)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return &Error{Op: "delete", Key: keys[0], Err: err}
	}
	return nil
}

// Close releases the underlying connection pool
func (c *Client) Close() error {
	return c.client.Close()
}

// Package tasks runs background jobs on a backlite queue stored in its own
// SQLite file next to the main database.
package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog"
)

// Client wraps backlite to provide task queue functionality.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config
	logger zerolog.Logger

	mu      sync.RWMutex
	started bool
}

// TasksDBPath returns the queue database path for a main database path:
// "data/books.db" becomes "data/books-tasks.db".
func TasksDBPath(mainDBPath string) string {
	dir := filepath.Dir(mainDBPath)
	base := filepath.Base(mainDBPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	return filepath.Join(dir, name+"-tasks"+ext)
}

// NewClient creates a new task queue client with a dedicated SQLite database.
func NewClient(mainDBPath string, cfg Config, logger zerolog.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	logger = logger.With().Str("component", "tasks").Logger()

	db, err := sql.Open("sqlite3", TasksDBPath(mainDBPath)+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          &zerologAdapter{logger: logger},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create backlite client: %w", err)
	}

	if err := client.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install backlite schema: %w", err)
	}

	return &Client{
		client: client,
		db:     db,
		config: cfg,
		logger: logger,
	}, nil
}

// Register registers task queues with the client.
// Must be called before Start().
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start runs the dispatcher in the background until Stop is called or ctx
// is done. The client counts as started as soon as Start returns.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.logger.Info().Int("workers", c.config.Workers).Msg("task queue started")
	go c.client.Start(ctx)
}

// Started reports whether Start has been called.
func (c *Client) Started() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// Stop gracefully shuts down the task queue, waiting for active tasks to complete.
// Returns true if all workers finished before the context deadline.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.RLock()
	started := c.started
	c.mu.RUnlock()
	if !started {
		return true
	}

	c.logger.Info().Msg("stopping task queue")
	success := c.client.Stop(ctx)
	if success {
		c.logger.Info().Msg("task queue stopped gracefully")
	} else {
		c.logger.Warn().Msg("task queue stopped with timeout, some tasks may not have completed")
	}
	return success
}

// Close releases all resources. Should be called after Stop().
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Add starts an operation to enqueue one or more tasks.
func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.client.Add(tasks...)
}

// Status returns the status of a task by ID.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

// zerologAdapter implements backlite.Logger. backlite passes params as
// alternating key/value pairs.
type zerologAdapter struct {
	logger zerolog.Logger
}

func (l *zerologAdapter) Info(message string, params ...any) {
	l.logger.Info().Fields(params).Msg(message)
}

func (l *zerologAdapter) Error(message string, params ...any) {
	l.logger.Error().Fields(params).Msg(message)
}

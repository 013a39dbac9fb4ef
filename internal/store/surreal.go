package store

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ashureev/chatrelay/internal/config"
	"github.com/ashureev/chatrelay/internal/domain"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

func init() {
	// WebSocket upgrade requires HTTP/1.1; keep ALPN from negotiating h2 on wss://.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

const surrealSchema = `
	DEFINE TABLE IF NOT EXISTS message SCHEMAFULL;
	DEFINE FIELD IF NOT EXISTS user ON message TYPE string;
	DEFINE FIELD IF NOT EXISTS content ON message TYPE string;
	DEFINE FIELD IF NOT EXISTS timestamp ON message TYPE datetime DEFAULT time::now();
	DEFINE FIELD IF NOT EXISTS seq ON message TYPE int DEFAULT 0;
	DEFINE INDEX IF NOT EXISTS message_order ON message FIELDS timestamp, seq;
`

// surrealMessage is the document shape of one entry in the message table.
type surrealMessage struct {
	User      string    `json:"user"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Seq       int64     `json:"seq"`
}

// SurrealStore implements Repository on a SurrealDB document table.
type SurrealStore struct {
	conn   *rews.Connection[*gorillaws.Connection]
	db     *surrealdb.DB
	logger logger.Logger

	// lastSeq orders entries that share a timestamp. Record ids are random.
	lastSeq atomic.Int64
}

// nextSeq returns a strictly increasing value seeded from the wall clock,
// so it also grows across restarts.
func (s *SurrealStore) nextSeq() int64 {
	for {
		last := s.lastSeq.Load()
		next := time.Now().UnixNano()
		if next <= last {
			next = last + 1
		}
		if s.lastSeq.CompareAndSwap(last, next) {
			return next
		}
	}
}

// NewSurreal connects with an auto-reconnecting WebSocket, signs in,
// selects the namespace/database and defines the message table.
func NewSurreal(ctx context.Context, cfg config.SurrealConfig, log *slog.Logger) (Repository, error) {
	if log == nil {
		log = slog.Default()
	}
	sdkLogger := logger.New(log.Handler())
	codec := surrealcbor.New()

	// gorillaws appends /rpc itself.
	baseURL := strings.TrimSuffix(cfg.URL, "/rpc")

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			return gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			}), nil
		},
		5*time.Second,
		codec,
		sdkLogger,
	)

	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = 1 * time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = 10
	conn.Retryer = retryer

	sdkLogger.Info("connecting to SurrealDB", "url", cfg.URL)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("from connection: %w", err)
	}

	if _, err := db.SignIn(ctx, surrealdb.Auth{
		Username: cfg.Username,
		Password: cfg.Password,
	}); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("signin: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("use: %w", err)
	}

	if _, err := surrealdb.Query[any](ctx, db, surrealSchema, nil); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("init schema: %w", err)
	}

	sdkLogger.Info("SurrealDB connection established", "namespace", cfg.Namespace, "database", cfg.Database)
	return &SurrealStore{conn: conn, db: db, logger: sdkLogger}, nil
}

// Ping runs a trivial query.
func (s *SurrealStore) Ping(ctx context.Context) error {
	if _, err := surrealdb.Query[bool](ctx, s.db, `RETURN true`, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Append creates one message document.
func (s *SurrealStore) Append(ctx context.Context, entry *domain.ChatEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}

	_, err := surrealdb.Query[any](ctx, s.db, `
		CREATE message SET
			user = $user,
			content = $content,
			timestamp = <datetime>$timestamp,
			seq = $seq
	`, map[string]any{
		"user":      string(entry.Author),
		"content":   entry.Text,
		"timestamp": entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		"seq":       s.nextSeq(),
	})
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListAll returns all messages oldest first.
func (s *SurrealStore) ListAll(ctx context.Context) ([]domain.ChatEntry, error) {
	results, err := surrealdb.Query[[]surrealMessage](ctx, s.db,
		`SELECT user, content, timestamp, seq FROM message ORDER BY timestamp ASC, seq ASC`, nil)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}

	entries := []domain.ChatEntry{}
	if results == nil || len(*results) == 0 {
		return entries, nil
	}
	for _, m := range (*results)[0].Result {
		entries = append(entries, domain.ChatEntry{
			Author:    domain.Author(m.User),
			Text:      m.Content,
			CreatedAt: m.Timestamp,
		})
	}
	return entries, nil
}

// ClearAll deletes the whole table contents and counts what was removed.
func (s *SurrealStore) ClearAll(ctx context.Context) (int64, error) {
	results, err := surrealdb.Query[[]surrealMessage](ctx, s.db, `DELETE message RETURN BEFORE`, nil)
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return int64(len((*results)[0].Result)), nil
}

// Close closes the SurrealDB connection.
func (s *SurrealStore) Close() error {
	s.logger.Info("closing SurrealDB connection")
	if err := s.conn.Close(context.Background()); err != nil {
		return fmt.Errorf("close surrealdb: %w", err)
	}
	return nil
}

// mongo — приёмник аудит-событий в коллекцию MongoDB (архив с TTL).
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

const (
	eventsCollection = "audit_events"
	defaultDBName    = "session_auth"
	// Срок хранения событий в архиве.
	retention = 90 * 24 * time.Hour
)

// document — представление события в коллекции.
type document struct {
	Type       string    `bson:"type"`
	Reason     string    `bson:"reason,omitempty"`
	Severity   string    `bson:"severity"`
	AccountID  string    `bson:"account_id,omitempty"`
	Email      string    `bson:"email,omitempty"`
	IP         string    `bson:"ip,omitempty"`
	UserAgent  string    `bson:"user_agent,omitempty"`
	RequestID  string    `bson:"request_id,omitempty"`
	OccurredAt time.Time `bson:"occurred_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

// Sink — тонкий адаптер над коллекцией аудит-событий.
type Sink struct {
	client *mongodriver.Client
	events *mongodriver.Collection
}

// New подключается к MongoDB, проверяет соединение и создаёт индексы.
func New(ctx context.Context, uri string) (*Sink, error) {
	if uri == "" {
		return nil, fmt.Errorf("audit mongo: empty uri")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("audit mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("audit mongo ping: %w", err)
	}

	s := &Sink{
		client: cli,
		events: cli.Database(databaseFromURI(uri)).Collection(eventsCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}

	return s, nil
}

func (s *Sink) Name() string { return "mongo" }

// Write сохраняет событие отдельным документом.
func (s *Sink) Write(ctx context.Context, e *models.AuditEvent) error {
	const op = "audit/mongo/Write"

	if _, err := s.events.InsertOne(ctx, toDocument(e)); err != nil {
		return fmt.Errorf("%s: insert: %w", op, err)
	}

	return nil
}

func (s *Sink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// ensureIndexes создает индексы коллекции событий.
// - TTL по expires_at (expireAfterSeconds=0 -> используется время из документа)
// - История аккаунта: account_id + occurred_at(desc)
func (s *Sink) ensureIndexes(ctx context.Context) error {
	models := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("ttl_expires_at").SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "occurred_at", Value: -1}},
			Options: options.Index().SetName("account_occurred_desc"),
		},
	}

	if _, err := s.events.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("audit mongo ensure indexes: %w", err)
	}

	return nil
}

func toDocument(e *models.AuditEvent) document {
	d := document{
		Type:       e.Type,
		Reason:     e.Reason,
		Severity:   string(e.Severity),
		Email:      e.Email,
		IP:         e.IP,
		UserAgent:  e.UserAgent,
		RequestID:  e.RequestID,
		OccurredAt: e.OccurredAt.UTC(),
		ExpiresAt:  e.OccurredAt.UTC().Add(retention),
	}
	if e.AccountID != uuid.Nil {
		d.AccountID = e.AccountID.String()
	}

	return d
}

// databaseFromURI извлекает имя базы данных из пути URI.
// Если его нет, возвращает значение по умолчанию.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}

	return defaultDBName
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tahomarobotics/koala/internal/tba"
	"github.com/tahomarobotics/koala/internal/wire"
)

const databasePrefix = "KoalaScouting_"

const (
	collectionMainScout  = "mainScout"
	collectionStrategy   = "strategyScout"
	collectionPits       = "pits"
	collectionTeams      = "teams"
	collectionTBAMatches = "tbaMatches"
)

var (
	ErrUnknownTag   = errors.New("store: no collection for tag")
	ErrWrongYear    = errors.New("store: event key is not for this season")
	ErrBadEventKey  = errors.New("store: malformed event key")
	ErrTeamNotFound = errors.New("store: team not found")
)

// Config defines the season database and its connection.
type Config struct {
	URI  string
	Year int
}

func DefaultConfig() Config {
	return Config{URI: "mongodb://localhost:27017", Year: 2025}
}

// Store owns one season's scouting database.
type Store struct {
	client *mongo.Client
	year   int
	tba    *tba.Client
}

// Open connects to MongoDB and verifies the deployment is reachable.
// The TBA client is optional; without it the Import operations fail.
func Open(ctx context.Context, cfg Config, tbaClient *tba.Client) (*Store, error) {
	if cfg.URI == "" {
		cfg.URI = DefaultConfig().URI
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("store: connect %s: %w", cfg.URI, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("store: ping %s: %w", cfg.URI, err)
	}
	s := &Store{client: client, year: cfg.Year, tba: tbaClient}
	log.Info().Str("database", s.DatabaseName()).Msg("store opened")
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// DatabaseName is the season database, e.g. KoalaScouting_2025.
func (s *Store) DatabaseName() string {
	return fmt.Sprintf("%s%d", databasePrefix, s.year)
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.client.Database(s.DatabaseName()).Collection(name)
}

// collectionForTag maps a routing tag to its season collection.
func collectionForTag(tag wire.Tag) (string, error) {
	switch tag {
	case wire.TagMatch:
		return collectionMainScout, nil
	case wire.TagStrategy:
		return collectionStrategy, nil
	case wire.TagPit:
		return collectionPits, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
}

// StoreRecord implements the collector's storage contract: the body is
// inserted as one document in the tag's collection.
func (s *Store) StoreRecord(ctx context.Context, tag wire.Tag, body json.RawMessage) error {
	name, err := collectionForTag(tag)
	if err != nil {
		return err
	}
	return s.insertJSON(ctx, name, body)
}

// InsertMainScout stores one match-scouting document.
func (s *Store) InsertMainScout(ctx context.Context, body json.RawMessage) error {
	return s.insertJSON(ctx, collectionMainScout, body)
}

// InsertStrategyScout stores one strategy-scouting document.
func (s *Store) InsertStrategyScout(ctx context.Context, body json.RawMessage) error {
	return s.insertJSON(ctx, collectionStrategy, body)
}

// InsertPits stores one pit-scouting document.
func (s *Store) InsertPits(ctx context.Context, body json.RawMessage) error {
	return s.insertJSON(ctx, collectionPits, body)
}

func (s *Store) insertJSON(ctx context.Context, collection string, body json.RawMessage) error {
	var doc bson.D
	if err := bson.UnmarshalExtJSON(body, false, &doc); err != nil {
		return fmt.Errorf("store: decode %s document: %w", collection, err)
	}
	if _, err := s.collection(collection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("store: insert into %s: %w", collection, err)
	}
	log.Info().Str("collection", collection).Msg("document inserted")
	return nil
}

package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MatchesFromTeam returns a team's main-scout documents for one event.
func (s *Store) MatchesFromTeam(ctx context.Context, teamKey, eventKey string) ([]map[string]any, error) {
	filter := bson.D{
		{Key: "team_key", Value: teamKey},
		{Key: "event_key", Value: eventKey},
	}
	return s.findAll(ctx, collectionMainScout, filter)
}

// TeamsFromMatch returns every main-scout document for one match of an
// event, one per scouted team.
func (s *Store) TeamsFromMatch(ctx context.Context, matchNumber int, eventKey string) ([]map[string]any, error) {
	filter := bson.D{
		{Key: "match_num", Value: matchNumber},
		{Key: "event_key", Value: eventKey},
	}
	return s.findAll(ctx, collectionMainScout, filter)
}

// MatchesFromEvent returns every main-scout document for an event.
func (s *Store) MatchesFromEvent(ctx context.Context, eventKey string) ([]map[string]any, error) {
	return s.findAll(ctx, collectionMainScout, bson.D{{Key: "event_key", Value: eventKey}})
}

// StratForEvent returns every strategy-scout document for an event.
func (s *Store) StratForEvent(ctx context.Context, eventKey string) ([]map[string]any, error) {
	return s.findAll(ctx, collectionStrategy, bson.D{{Key: "event_key", Value: eventKey}})
}

// PitsForEvent returns every pit-scout document for an event.
func (s *Store) PitsForEvent(ctx context.Context, eventKey string) ([]map[string]any, error) {
	return s.findAll(ctx, collectionPits, bson.D{{Key: "event_key", Value: eventKey}})
}

// TeamsFromEvent maps team numbers to nicknames for every team that has
// main-scout data at the event.
func (s *Store) TeamsFromEvent(ctx context.Context, eventKey string) (map[int]string, error) {
	docs, err := s.MatchesFromEvent(ctx, eventKey)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]struct{})
	for _, doc := range docs {
		if teamKey, ok := doc["team_key"].(string); ok && teamKey != "" {
			keys[teamKey] = struct{}{}
		}
	}

	teams := make(map[int]string, len(keys))
	for teamKey := range keys {
		var teamDoc bson.M
		err := s.collection(collectionTeams).FindOne(ctx, bson.D{{Key: "key", Value: teamKey}}).Decode(&teamDoc)
		if err == mongo.ErrNoDocuments {
			log.Warn().Str("team_key", teamKey).Msg("team document not found")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store: lookup team %s: %w", teamKey, err)
		}
		nickname, _ := teamDoc["nickname"].(string)
		if nickname == "" {
			continue
		}
		number, err := teamNumberFromKey(teamKey)
		if err != nil {
			log.Warn().Str("team_key", teamKey).Msg("unparseable team key")
			continue
		}
		teams[number] = nickname
	}
	return teams, nil
}

// MainScoutKeys samples one random main-scout document and returns its
// field names, flattening one level of subdocuments. Bookkeeping fields
// are excluded.
func (s *Store) MainScoutKeys(ctx context.Context) ([]string, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$sample", Value: bson.D{{Key: "size", Value: 1}}}},
	}
	cursor, err := s.collection(collectionMainScout).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("store: sample mainScout: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("store: decode sample: %w", err)
	}
	if len(docs) == 0 {
		log.Warn().Int("year", s.year).Msg("no mainScout documents to sample")
		return []string{}, nil
	}
	return flattenDocKeys(docs[0]), nil
}

func (s *Store) findAll(ctx context.Context, collection string, filter bson.D) ([]map[string]any, error) {
	cursor, err := s.collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("store: query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []map[string]any
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("store: decode %s documents: %w", collection, err)
	}
	if docs == nil {
		docs = []map[string]any{}
	}
	return docs, nil
}

// teamNumberFromKey converts "frc2046" to 2046.
func teamNumberFromKey(teamKey string) (int, error) {
	num, ok := strings.CutPrefix(teamKey, "frc")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrTeamNotFound, teamKey)
	}
	return strconv.Atoi(num)
}

// flattenDocKeys lists a document's keys, expanding subdocument keys as
// parent_child and skipping identity/bookkeeping fields.
func flattenDocKeys(doc map[string]any) []string {
	skip := map[string]struct{}{
		"_id":       {},
		"team_key":  {},
		"event_key": {},
		"match_num": {},
	}
	var keys []string
	for key, value := range doc {
		if _, ok := skip[key]; ok {
			continue
		}
		switch sub := value.(type) {
		case map[string]any:
			for subKey := range sub {
				keys = append(keys, key+"_"+subKey)
			}
		case bson.M:
			for subKey := range sub {
				keys = append(keys, key+"_"+subKey)
			}
		case bson.D:
			for _, elem := range sub {
				keys = append(keys, key+"_"+elem.Key)
			}
		default:
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

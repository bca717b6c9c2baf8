package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrNoTBAClient = errors.New("store: no TBA client configured")

// ImportEventMatches pulls an event's match list from TBA and adds the
// matches not already present. Returns the number added.
func (s *Store) ImportEventMatches(ctx context.Context, eventKey string) (int, error) {
	if s.tba == nil {
		return 0, ErrNoTBAClient
	}
	data, err := s.tba.Fetch(ctx, "/event/"+eventKey+"/matches")
	if err != nil {
		return 0, fmt.Errorf("store: import matches for %s: %w", eventKey, err)
	}

	var matches []json.RawMessage
	if err := json.Unmarshal(data, &matches); err != nil {
		return 0, fmt.Errorf("store: decode TBA matches: %w", err)
	}

	added := 0
	for _, raw := range matches {
		var match bson.M
		if err := bson.UnmarshalExtJSON(raw, false, &match); err != nil {
			log.Warn().Err(err).Msg("skipping undecodable TBA match")
			continue
		}
		matchKey, _ := match["key"].(string)
		if matchKey == "" {
			log.Warn().Msg("skipping TBA match without key")
			continue
		}
		inserted, err := s.insertIfAbsent(ctx, collectionTBAMatches, "key", matchKey, match)
		if err != nil {
			return added, err
		}
		if inserted {
			added++
		}
	}
	log.Info().Str("event", eventKey).Int("added", added).Msg("TBA matches imported")
	return added, nil
}

// ImportEventTeams pulls an event's team list from TBA and ensures each
// team exists in the season database. The event must belong to the
// store's season.
func (s *Store) ImportEventTeams(ctx context.Context, eventKey string) error {
	if s.tba == nil {
		return ErrNoTBAClient
	}
	year, err := eventKeyYear(eventKey)
	if err != nil {
		return err
	}
	if year != s.year {
		return fmt.Errorf("%w: %s (season %d)", ErrWrongYear, eventKey, s.year)
	}

	data, err := s.tba.Fetch(ctx, "/event/"+eventKey+"/teams")
	if err != nil {
		return fmt.Errorf("store: import teams for %s: %w", eventKey, err)
	}
	var teams []json.RawMessage
	if err := json.Unmarshal(data, &teams); err != nil {
		return fmt.Errorf("store: decode TBA teams: %w", err)
	}
	for _, raw := range teams {
		if err := s.upsertTeamJSON(ctx, raw, eventKey); err != nil {
			return err
		}
	}
	return nil
}

// ImportTeam pulls one team's details from TBA by key, e.g. "frc2046".
func (s *Store) ImportTeam(ctx context.Context, teamKey string, events ...string) error {
	if s.tba == nil {
		return ErrNoTBAClient
	}
	data, err := s.tba.Fetch(ctx, "/team/"+teamKey)
	if err != nil {
		return fmt.Errorf("store: import team %s: %w", teamKey, err)
	}
	return s.upsertTeamJSON(ctx, data, events...)
}

// AddEventsToTeam appends events to a team's event list, deduplicated.
func (s *Store) AddEventsToTeam(ctx context.Context, teamKey string, events ...string) error {
	coll := s.collection(collectionTeams)
	var existing bson.M
	err := coll.FindOne(ctx, bson.D{{Key: "key", Value: teamKey}}).Decode(&existing)
	if err == mongo.ErrNoDocuments {
		return fmt.Errorf("%w: %s", ErrTeamNotFound, teamKey)
	}
	if err != nil {
		return fmt.Errorf("store: lookup team %s: %w", teamKey, err)
	}

	merged := mergeEvents(stringSlice(existing["events"]), events)
	_, err = coll.UpdateOne(ctx,
		bson.D{{Key: "key", Value: teamKey}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "events", Value: merged}}}},
	)
	if err != nil {
		return fmt.Errorf("store: update team %s events: %w", teamKey, err)
	}
	log.Info().Str("team", teamKey).Strs("events", events).Msg("events added to team")
	return nil
}

// upsertTeamJSON shapes a TBA team payload into the teams document and
// inserts it when absent.
func (s *Store) upsertTeamJSON(ctx context.Context, teamJSON []byte, events ...string) error {
	var team bson.M
	if err := bson.UnmarshalExtJSON(teamJSON, false, &team); err != nil {
		return fmt.Errorf("store: decode TBA team: %w", err)
	}
	doc, err := teamDocument(team, events)
	if err != nil {
		return err
	}
	key := doc["key"].(string)
	inserted, err := s.insertIfAbsent(ctx, collectionTeams, "key", key, doc)
	if err != nil {
		return err
	}
	if !inserted {
		log.Debug().Str("team", key).Msg("team already present")
		if len(events) > 0 {
			return s.AddEventsToTeam(ctx, key, events...)
		}
	}
	return nil
}

// teamDocument extracts the fields the season database keeps for a team.
func teamDocument(team bson.M, events []string) (bson.M, error) {
	key, _ := team["key"].(string)
	if key == "" {
		return nil, fmt.Errorf("%w: missing key", ErrTeamNotFound)
	}
	number := intField(team, "team_number")
	if events == nil {
		events = []string{}
	}
	return bson.M{
		"key":         key,
		"team_number": number,
		"nickname":    stringField(team, "nickname"),
		"events":      events,
		"name":        stringField(team, "name"),
		"school_name": stringField(team, "school_name"),
		"city":        stringField(team, "city"),
		"state_prov":  stringField(team, "state_prov"),
		"country":     stringField(team, "country"),
		"website":     stringField(team, "website"),
		"tba_website": "https://www.thebluealliance.com/team/" + strconv.Itoa(number),
		"rookie_year": intField(team, "rookie_year"),
		"motto":       stringField(team, "motto"),
	}, nil
}

func (s *Store) insertIfAbsent(ctx context.Context, collection, field, value string, doc bson.M) (bool, error) {
	coll := s.collection(collection)
	err := coll.FindOne(ctx, bson.D{{Key: field, Value: value}}).Err()
	if err == nil {
		return false, nil
	}
	if err != mongo.ErrNoDocuments {
		return false, fmt.Errorf("store: check %s for %s=%s: %w", collection, field, value, err)
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return false, fmt.Errorf("store: insert into %s: %w", collection, err)
	}
	return true, nil
}

// eventKeyYear parses the season year prefix of an event key like
// "2025wasno".
func eventKeyYear(eventKey string) (int, error) {
	if len(eventKey) < 5 {
		return 0, fmt.Errorf("%w: %q", ErrBadEventKey, eventKey)
	}
	year, err := strconv.Atoi(eventKey[:4])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadEventKey, eventKey)
	}
	return year, nil
}

// mergeEvents unions two event lists, sorted and deduplicated.
func mergeEvents(existing, added []string) []string {
	set := make(map[string]struct{}, len(existing)+len(added))
	for _, e := range existing {
		set[e] = struct{}{}
	}
	for _, e := range added {
		set[e] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

func stringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case bson.A:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func stringField(doc bson.M, key string) string {
	s, _ := doc[key].(string)
	return s
}

func intField(doc bson.M, key string) int {
	switch v := doc[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

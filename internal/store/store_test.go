package store

import (
	"errors"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/tahomarobotics/koala/internal/testutil/testlog"
	"github.com/tahomarobotics/koala/internal/wire"
)

func TestCollectionForTag(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		tag  wire.Tag
		want string
	}{
		{wire.TagMatch, collectionMainScout},
		{wire.TagStrategy, collectionStrategy},
		{wire.TagPit, collectionPits},
	}
	for _, c := range cases {
		got, err := collectionForTag(c.tag)
		if err != nil {
			t.Fatalf("tag %q: %v", c.tag, err)
		}
		if got != c.want {
			t.Fatalf("tag %q: got %q want %q", c.tag, got, c.want)
		}
	}
	if _, err := collectionForTag(wire.TagUnknown); !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("unknown tag should not map to a collection")
	}
}

func TestDatabaseName(t *testing.T) {
	testlog.Start(t)
	s := &Store{year: 2025}
	if got := s.DatabaseName(); got != "KoalaScouting_2025" {
		t.Fatalf("database name: %q", got)
	}
}

func TestEventKeyYear(t *testing.T) {
	testlog.Start(t)
	year, err := eventKeyYear("2025wasno")
	if err != nil {
		t.Fatalf("valid key: %v", err)
	}
	if year != 2025 {
		t.Fatalf("year: %d", year)
	}
	for _, bad := range []string{"", "25wa", "year-wasno"} {
		if _, err := eventKeyYear(bad); !errors.Is(err, ErrBadEventKey) {
			t.Fatalf("key %q: expected ErrBadEventKey, got %v", bad, err)
		}
	}
}

func TestTeamNumberFromKey(t *testing.T) {
	testlog.Start(t)
	num, err := teamNumberFromKey("frc2046")
	if err != nil || num != 2046 {
		t.Fatalf("frc2046: got %d, %v", num, err)
	}
	if _, err := teamNumberFromKey("2046"); err == nil {
		t.Fatalf("missing frc prefix should fail")
	}
}

func TestMergeEvents(t *testing.T) {
	testlog.Start(t)
	got := mergeEvents([]string{"2025wasno", "2025oral"}, []string{"2025oral", "2025pncmp"})
	want := []string{"2025oral", "2025pncmp", "2025wasno"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("merge: got %v want %v", got, want)
	}
	if got := mergeEvents(nil, nil); len(got) != 0 {
		t.Fatalf("empty merge: %v", got)
	}
}

func TestFlattenDocKeys(t *testing.T) {
	testlog.Start(t)
	doc := map[string]any{
		"_id":       "ignored",
		"team_key":  "frc2046",
		"event_key": "2025wasno",
		"match_num": 12,
		"auto": map[string]any{
			"leave":  true,
			"pieces": 3,
		},
		"notes": "fast cycles",
	}
	got := flattenDocKeys(doc)
	want := []string{"auto_leave", "auto_pieces", "notes"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("keys: got %v want %v", got, want)
	}
}

func TestTeamDocumentShaping(t *testing.T) {
	testlog.Start(t)
	team := bson.M{
		"key":         "frc2046",
		"team_number": int32(2046),
		"nickname":    "Bear Metal",
		"rookie_year": float64(2007),
		"city":        "Maple Valley",
	}
	doc, err := teamDocument(team, []string{"2025wasno"})
	if err != nil {
		t.Fatalf("shape: %v", err)
	}
	if doc["key"] != "frc2046" || doc["team_number"] != 2046 {
		t.Fatalf("identity fields: %v", doc)
	}
	if doc["nickname"] != "Bear Metal" || doc["rookie_year"] != 2007 {
		t.Fatalf("detail fields: %v", doc)
	}
	if doc["tba_website"] != "https://www.thebluealliance.com/team/2046" {
		t.Fatalf("tba website: %v", doc["tba_website"])
	}
	if !reflect.DeepEqual(doc["events"], []string{"2025wasno"}) {
		t.Fatalf("events: %v", doc["events"])
	}

	if _, err := teamDocument(bson.M{"nickname": "No Key"}, nil); !errors.Is(err, ErrTeamNotFound) {
		t.Fatalf("missing key should fail, got %v", err)
	}
}

func TestStringSliceCoercion(t *testing.T) {
	testlog.Start(t)
	if got := stringSlice(bson.A{"a", 1, "b"}); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("bson.A: %v", got)
	}
	if got := stringSlice([]string{"x"}); !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("[]string: %v", got)
	}
	if got := stringSlice(42); got != nil {
		t.Fatalf("non-slice: %v", got)
	}
}

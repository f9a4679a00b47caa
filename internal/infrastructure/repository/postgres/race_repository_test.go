package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/turf-ingest/internal/domain/race"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

// Entry columns whose DO UPDATE must keep an earlier non-null value when the
// incoming payload omits the column.
var entryMergeColumns = []string{
	"trainer_id",
	"jockey_id",
	"barrier",
	"weight_kg",
	"finishing_pos",
	"margin_lengths",
	"starting_price",
	"exchange_sp",
}

func TestBuildUpsertEntryQuery_MergesPartialUpdates(t *testing.T) {
	t.Parallel()

	scheduleRow := race.Entry{RaceID: 7, HorseID: 11, Barrier: iptr(3), WeightKg: fptr(54.0)}
	resultRow := race.Entry{RaceID: 7, HorseID: 11, FinishingPos: iptr(1)}

	scheduleQuery, scheduleArgs, err := buildUpsertEntryQuery(scheduleRow)
	if err != nil {
		t.Fatalf("build schedule upsert: %v", err)
	}
	resultQuery, resultArgs, err := buildUpsertEntryQuery(resultRow)
	if err != nil {
		t.Fatalf("build result upsert: %v", err)
	}

	if scheduleQuery != resultQuery {
		t.Fatal("both payload shapes must produce the same statement")
	}
	if !strings.Contains(resultQuery, "ON CONFLICT (race_id, horse_id)") {
		t.Fatalf("wrong conflict target:\n%s", resultQuery)
	}
	for _, col := range entryMergeColumns {
		want := col + " = COALESCE(EXCLUDED." + col + ", entries." + col + ")"
		if !strings.Contains(resultQuery, want) {
			t.Fatalf("column %s must merge by coalesce:\n%s", col, resultQuery)
		}
	}

	// Args bind in model order: race_id, horse_id, trainer_id, jockey_id,
	// barrier, weight_kg, finishing_pos, margin_lengths, starting_price,
	// exchange_sp.
	if len(scheduleArgs) != 10 || len(resultArgs) != 10 {
		t.Fatalf("want 10 bound args, got %d and %d", len(scheduleArgs), len(resultArgs))
	}
	if w, ok := scheduleArgs[5].(*float64); !ok || w == nil || *w != 54.0 {
		t.Fatalf("schedule weight must bind 54.0, got %#v", scheduleArgs[5])
	}
	if p, ok := scheduleArgs[6].(*int); !ok || p != nil {
		t.Fatalf("schedule finishing_pos must bind NULL, got %#v", scheduleArgs[6])
	}
	if w, ok := resultArgs[5].(*float64); !ok || w != nil {
		t.Fatalf("result weight must bind NULL so the stored 54.0 survives, got %#v", resultArgs[5])
	}
	if p, ok := resultArgs[6].(*int); !ok || p == nil || *p != 1 {
		t.Fatalf("result finishing_pos must bind 1, got %#v", resultArgs[6])
	}
}

func TestBuildUpsertRaceQuery_ReplacesDescriptiveColumns(t *testing.T) {
	t.Parallel()

	item := race.Race{
		Date:           time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC),
		TrackName:      "Flemington",
		RaceNumber:     1,
		DistanceMeters: 1200,
		Going:          "Good",
	}

	query, args, err := buildUpsertRaceQuery(item)
	if err != nil {
		t.Fatalf("build race upsert: %v", err)
	}

	if !strings.Contains(query, "ON CONFLICT (race_date, track_name, race_number)") {
		t.Fatalf("wrong conflict target:\n%s", query)
	}
	for _, col := range []string{"country", "distance_meters", "going", "class"} {
		want := col + " = EXCLUDED." + col
		if !strings.Contains(query, want) {
			t.Fatalf("column %s must replace on conflict:\n%s", col, query)
		}
	}
	if !strings.Contains(query, "RETURNING id") {
		t.Fatalf("race upsert must return the row id:\n%s", query)
	}
	if len(args) != 7 {
		t.Fatalf("want 7 bound args, got %d", len(args))
	}
	if c, ok := args[6].(*string); !ok || c != nil {
		t.Fatalf("blank class must bind NULL, got %#v", args[6])
	}
}

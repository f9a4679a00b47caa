package racingfeed

import (
	"testing"

	"github.com/riskibarqy/turf-ingest/internal/domain/ingest"
)

func TestNormalizeMeeting_ExplicitRunnerList(t *testing.T) {
	t.Parallel()

	item := map[string]any{
		"venue":  "Flemington",
		"number": float64(3),
		"races": []any{
			map[string]any{
				"raceNumber": float64(1),
				"distance":   float64(1200),
				"going":      "Good",
				"runners": []any{
					map[string]any{
						"horse":   "Phar Lap",
						"jockey":  "J Pike",
						"trainer": "H Telford",
						"barrier": float64(4),
						"weight":  "54.5",
						"placing": float64(1),
					},
				},
			},
		},
	}

	meeting, failures := normalizeMeeting(item, "AUS")
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if meeting.Number != 3 || meeting.TrackName != "Flemington" || meeting.Country != "AUS" {
		t.Fatalf("unexpected meeting header: %+v", meeting)
	}
	if len(meeting.Races) != 1 || len(meeting.Races[0].Runners) != 1 {
		t.Fatalf("unexpected card shape: %+v", meeting.Races)
	}

	runner := meeting.Races[0].Runners[0]
	if runner.HorseName != "Phar Lap" || runner.JockeyName != "J Pike" || runner.TrainerName != "H Telford" {
		t.Fatalf("unexpected runner: %+v", runner)
	}
	if runner.Barrier == nil || *runner.Barrier != 4 {
		t.Fatalf("barrier not extracted: %v", runner.Barrier)
	}
	if runner.WeightKg == nil || *runner.WeightKg != 54.5 {
		t.Fatalf("string weight not coerced: %v", runner.WeightKg)
	}
}

func TestNormalizeRace_SynthesizesFromPlacedAndAlsoRan(t *testing.T) {
	t.Parallel()

	item := map[string]any{
		"number":   float64(5),
		"distance": float64(1600),
		"placed": []any{
			map[string]any{"horse": "First Home", "rank": float64(1), "barrier": float64(2), "weight": float64(56)},
			map[string]any{"horse": "Runner Up", "rank": float64(2)},
		},
		"alsoRan": []any{
			map[string]any{"horse": "Tailed Off", "placing": float64(0)},
			map[string]any{"horse": "Midfield", "placing": float64(6)},
		},
	}

	race, failure := normalizeRace(item)
	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	if len(race.Runners) != 4 {
		t.Fatalf("want 4 synthesized runners, got %d", len(race.Runners))
	}

	winner := race.Runners[0]
	if winner.FinishingPos == nil || *winner.FinishingPos != 1 {
		t.Fatalf("placed rank should become finishing position: %+v", winner)
	}
	if winner.Barrier != nil || winner.WeightKg != nil {
		t.Fatalf("placed shape must not carry barrier or weight: %+v", winner)
	}

	dnf := race.Runners[2]
	if dnf.HorseName != "Tailed Off" || dnf.FinishingPos != nil {
		t.Fatalf("also-ran position 0 should mean did-not-finish: %+v", dnf)
	}
	finished := race.Runners[3]
	if finished.FinishingPos == nil || *finished.FinishingPos != 6 {
		t.Fatalf("also-ran real position should survive: %+v", finished)
	}
}

func TestNormalizeRace_AttachesBreedingToWinner(t *testing.T) {
	t.Parallel()

	item := map[string]any{
		"number":   float64(2),
		"distance": float64(2000),
		"breeding": "4 g NIGHT RAID (GB)-ENTREATY (NZ)",
		"finalResults": []any{
			map[string]any{"horse": "Second Place", "placing": float64(2)},
			map[string]any{"horse": "The Winner", "placing": float64(1)},
		},
	}

	race, failure := normalizeRace(item)
	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	if got := race.Runners[1].BreedingText; got != "4 g NIGHT RAID (GB)-ENTREATY (NZ)" {
		t.Fatalf("breeding should attach to the winner, got %q", got)
	}
	if race.Runners[0].BreedingText != "" {
		t.Fatal("breeding must not attach to non-winners")
	}
}

func TestNormalizeMeeting_InvalidRaceIsSkippedNotFatal(t *testing.T) {
	t.Parallel()

	item := map[string]any{
		"venue":  "Randwick",
		"number": float64(1),
		"races": []any{
			map[string]any{"number": float64(1), "distance": float64(0)},
			map[string]any{"number": float64(2), "distance": float64(1400)},
			map[string]any{"distance": float64(1400)},
		},
	}

	meeting, failures := normalizeMeeting(item, "AUS")
	if len(meeting.Races) != 1 || meeting.Races[0].Number != 2 {
		t.Fatalf("only the valid race should survive: %+v", meeting.Races)
	}
	if len(failures) != 2 {
		t.Fatalf("want 2 validation failures, got %d", len(failures))
	}
	for _, failure := range failures {
		if failure.Kind != ingest.KindValidationError {
			t.Fatalf("unexpected kind %s", failure.Kind)
		}
	}
}

func TestNormalizeRunner_RejectsBlankName(t *testing.T) {
	t.Parallel()

	if _, ok := normalizeRunner(map[string]any{"horse": "   "}); ok {
		t.Fatal("blank horse name must reject the record")
	}
	if _, ok := normalizeRunner(map[string]any{"jockey": "J Pike"}); ok {
		t.Fatal("missing horse name must reject the record")
	}
}

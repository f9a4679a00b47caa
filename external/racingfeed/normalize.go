package racingfeed

import (
	"github.com/riskibarqy/turf-ingest/internal/domain/ingest"
	"github.com/riskibarqy/turf-ingest/internal/usecase"
)

// Priority lists for the feed's shape detection. Each entry is a candidate
// field name for the same logical record; first match wins.
var (
	runnerListKeys  = []string{"finalResults", "runners", "entries"}
	placedListKeys  = []string{"placed", "placegetters"}
	alsoRanListKeys = []string{"alsoRan", "also_ran", "alsoran"}
)

// normalizeMeeting reconciles one meeting payload into the canonical shape.
// A race failing validation is skipped and reported; its siblings still
// normalize.
func normalizeMeeting(item map[string]any, defaultCountry string) (usecase.ExternalMeeting, []*ingest.Failure) {
	out := usecase.ExternalMeeting{
		TrackName: firstString(item, "venue", "name", "track"),
		Country:   normalizeCountry(extractFirst(item, "country"), defaultCountry),
	}
	if number := firstInt(item, "number", "meetingNumber"); number != nil {
		out.Number = *number
	}

	var failures []*ingest.Failure
	for idx, raw := range arrayField(item, "races") {
		record, ok := raw.(map[string]any)
		if !ok {
			failures = append(failures, ingest.NewFailure(ingest.KindParseError, "race payload is not an object").
				WithContext("meeting", out.Number).
				WithContext("race_index", idx))
			continue
		}

		normalized, failure := normalizeRace(record)
		if failure != nil {
			failures = append(failures, failure.WithContext("meeting", out.Number).WithContext("track", out.TrackName))
			continue
		}
		out.Races = append(out.Races, normalized)
	}

	return out, failures
}

// normalizeRace validates the mandatory fields and delegates runner
// extraction. Distance and race number must both be positive; anything else
// is a validation failure for this race only.
func normalizeRace(item map[string]any) (usecase.ExternalRace, *ingest.Failure) {
	number := firstInt(item, "number", "raceNumber", "raceNo")
	if number == nil || *number <= 0 {
		return usecase.ExternalRace{}, ingest.NewFailure(ingest.KindValidationError, "race number missing or non-positive")
	}

	distance := firstInt(item, "distance", "distanceMeters", "length")
	if distance == nil || *distance <= 0 {
		return usecase.ExternalRace{}, ingest.NewFailure(ingest.KindValidationError, "race distance missing or non-positive").
			WithContext("race_number", *number)
	}

	out := usecase.ExternalRace{
		Number:         *number,
		DistanceMeters: *distance,
		Going:          firstString(item, "going", "trackCondition", "surface"),
		Class:          firstString(item, "class", "raceClass", "grade"),
		Runners:        normalizeRunnerList(item),
	}

	// The feed reports parentage only for the winning horse, as race-level
	// breeding text.
	if breeding := firstString(item, "breeding", "winnerBreeding", "breedingText"); breeding != "" {
		for i := range out.Runners {
			if pos := out.Runners[i].FinishingPos; pos != nil && *pos == 1 {
				out.Runners[i].BreedingText = breeding
				break
			}
		}
	}

	return out, nil
}

// normalizeRunnerList resolves which of the feed's runner representations
// this race uses. Explicit lists win; otherwise a unified list is
// synthesized from the separate placed and also-ran arrays.
func normalizeRunnerList(item map[string]any) []usecase.ExternalRunner {
	for _, key := range runnerListKeys {
		list := arrayField(item, key)
		if len(list) == 0 {
			continue
		}
		out := make([]usecase.ExternalRunner, 0, len(list))
		for _, raw := range list {
			record, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if runner, ok := normalizeRunner(record); ok {
				out = append(out, runner)
			}
		}
		return out
	}

	placed := arrayField(item, placedListKeys...)
	alsoRan := arrayField(item, alsoRanListKeys...)
	if len(placed) == 0 && len(alsoRan) == 0 {
		return nil
	}

	out := make([]usecase.ExternalRunner, 0, len(placed)+len(alsoRan))
	for _, raw := range placed {
		record, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		runner, ok := normalizeRunner(record)
		if !ok {
			continue
		}
		// The placed shape carries rank but no draw or carried weight.
		runner.FinishingPos = firstInt(record, "rank", "placing")
		runner.Barrier = nil
		runner.WeightKg = nil
		out = append(out, runner)
	}
	for _, raw := range alsoRan {
		record, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		runner, ok := normalizeRunner(record)
		if !ok {
			continue
		}
		// "0" in the also-ran shape means did-not-finish, not first place.
		if runner.FinishingPos != nil && *runner.FinishingPos == 0 {
			runner.FinishingPos = nil
		}
		out = append(out, runner)
	}
	return out
}

// normalizeRunner extracts one canonical runner. The horse name is the only
// mandatory field; a blank name rejects the record.
func normalizeRunner(record map[string]any) (usecase.ExternalRunner, bool) {
	name := firstString(record, "horse", "horseName", "name")
	if name == "" {
		return usecase.ExternalRunner{}, false
	}

	return usecase.ExternalRunner{
		HorseName:     name,
		Country:       firstString(record, "country", "horseCountry"),
		YearFoaled:    firstInt(record, "yearFoaled", "foaled", "yob"),
		Sex:           firstString(record, "sex"),
		Sire:          firstString(record, "sire", "sireName"),
		Dam:           firstString(record, "dam", "damName"),
		Damsire:       firstString(record, "damSire", "damsire", "broodmareSire"),
		TrainerName:   firstString(record, "trainer", "trainerName"),
		JockeyName:    firstString(record, "jockey", "jockeyName", "rider"),
		Barrier:       firstInt(record, "barrier", "draw", "gate"),
		WeightKg:      firstFloat(record, "weight", "weightKg", "handicap"),
		FinishingPos:  firstInt(record, "placing", "finishPosition", "rank"),
		MarginLengths: firstFloat(record, "margin", "marginLengths"),
		StartingPrice: firstFloat(record, "fixedOdds", "sp", "startingPrice"),
		ExchangeSP:    firstFloat(record, "exchangeSP", "bsp", "exchangeStartingPrice"),
	}, true
}

func arrayField(record map[string]any, keys ...string) []any {
	for _, key := range keys {
		if list, ok := record[key].([]any); ok && list != nil {
			return list
		}
	}
	return nil
}

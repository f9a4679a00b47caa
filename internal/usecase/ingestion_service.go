package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/turf-ingest/internal/domain/horse"
	"github.com/riskibarqy/turf-ingest/internal/domain/ingest"
	"github.com/riskibarqy/turf-ingest/internal/domain/jockey"
	"github.com/riskibarqy/turf-ingest/internal/domain/race"
	"github.com/riskibarqy/turf-ingest/internal/domain/rawdata"
	"github.com/riskibarqy/turf-ingest/internal/domain/trainer"
)

// IngestionService turns normalized meeting cards into database rows. It
// owns identity resolution: people and horses are upserted by name first so
// every entry row references stable IDs.
type IngestionService struct {
	horseRepo   horse.Repository
	trainerRepo trainer.Repository
	jockeyRepo  jockey.Repository
	raceRepo    race.Repository
	rawDataRepo rawdata.Repository
}

func NewIngestionService(
	horseRepo horse.Repository,
	trainerRepo trainer.Repository,
	jockeyRepo jockey.Repository,
	raceRepo race.Repository,
	rawDataRepo rawdata.Repository,
) *IngestionService {
	return &IngestionService{
		horseRepo:   horseRepo,
		trainerRepo: trainerRepo,
		jockeyRepo:  jockeyRepo,
		raceRepo:    raceRepo,
		rawDataRepo: rawDataRepo,
	}
}

// PersistMeeting writes one meeting's races and entries. All participant
// rows are resolved before the card transaction opens, so the card upsert
// only ever touches races and entries.
func (s *IngestionService) PersistMeeting(ctx context.Context, date time.Time, meeting ExternalMeeting) (racesUpserted, entriesUpserted int, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.PersistMeeting")
	defer span.End()

	if meeting.TrackName == "" {
		return 0, 0, fmt.Errorf("%w: meeting track name is required", ErrInvalidInput)
	}
	if len(meeting.Races) == 0 {
		return 0, 0, nil
	}

	trainerIDs, jockeyIDs, err := s.resolveParticipants(ctx, meeting)
	if err != nil {
		return 0, 0, err
	}

	card := make([]race.CardRace, 0, len(meeting.Races))
	for _, item := range meeting.Races {
		entries := make([]race.Entry, 0, len(item.Runners))
		seen := make(map[int64]bool, len(item.Runners))
		for _, runner := range item.Runners {
			horseID, resolveErr := s.resolveHorse(ctx, date, runner)
			if resolveErr != nil {
				return 0, 0, resolveErr
			}
			// The feed occasionally repeats a runner across shapes. The
			// first occurrence wins; the entry upsert merges the rest.
			if seen[horseID] {
				continue
			}
			seen[horseID] = true

			entry := race.Entry{
				HorseID:       horseID,
				Barrier:       runner.Barrier,
				WeightKg:      runner.WeightKg,
				FinishingPos:  runner.FinishingPos,
				MarginLengths: runner.MarginLengths,
				StartingPrice: runner.StartingPrice,
				ExchangeSP:    runner.ExchangeSP,
			}
			if id, ok := trainerIDs[strings.ToLower(runner.TrainerName)]; ok && runner.TrainerName != "" {
				entry.TrainerID = &id
			}
			if id, ok := jockeyIDs[strings.ToLower(runner.JockeyName)]; ok && runner.JockeyName != "" {
				entry.JockeyID = &id
			}
			entries = append(entries, entry)
		}

		card = append(card, race.CardRace{
			Race: race.Race{
				Date:           date,
				TrackName:      meeting.TrackName,
				RaceNumber:     item.Number,
				Country:        meeting.Country,
				DistanceMeters: item.DistanceMeters,
				Going:          item.Going,
				Class:          item.Class,
			},
			Entries: entries,
		})
	}

	racesUpserted, entriesUpserted, err = s.raceRepo.UpsertMeetingCard(ctx, card)
	if err != nil {
		return 0, 0, ingest.WrapFailure(ingest.KindDatabaseError, err, "persist meeting card").
			WithContext("track", meeting.TrackName).
			WithContext("meeting", meeting.Number)
	}
	return racesUpserted, entriesUpserted, nil
}

// resolveParticipants batch-upserts every distinct trainer and jockey name
// on the card and returns lowercase-name lookup maps.
func (s *IngestionService) resolveParticipants(ctx context.Context, meeting ExternalMeeting) (map[string]int64, map[string]int64, error) {
	trainerNames := make([]string, 0, 16)
	jockeyNames := make([]string, 0, 16)
	seenTrainer := make(map[string]bool)
	seenJockey := make(map[string]bool)

	for _, item := range meeting.Races {
		for _, runner := range item.Runners {
			if name := strings.TrimSpace(runner.TrainerName); name != "" && !seenTrainer[strings.ToLower(name)] {
				seenTrainer[strings.ToLower(name)] = true
				trainerNames = append(trainerNames, name)
			}
			if name := strings.TrimSpace(runner.JockeyName); name != "" && !seenJockey[strings.ToLower(name)] {
				seenJockey[strings.ToLower(name)] = true
				jockeyNames = append(jockeyNames, name)
			}
		}
	}

	trainerIDs, err := s.trainerRepo.UpsertNames(ctx, trainerNames)
	if err != nil {
		return nil, nil, ingest.WrapFailure(ingest.KindDatabaseError, err, "upsert trainers")
	}
	jockeyIDs, err := s.jockeyRepo.UpsertNames(ctx, jockeyNames)
	if err != nil {
		return nil, nil, ingest.WrapFailure(ingest.KindDatabaseError, err, "upsert jockeys")
	}
	return trainerIDs, jockeyIDs, nil
}

// resolveHorse upserts the runner's horse row. Runners carrying pedigree or
// profile detail take the replace path; bare names take the cheap
// insert-if-unseen path. Parent horses are upserted by name first so the
// profile row can reference their IDs.
func (s *IngestionService) resolveHorse(ctx context.Context, date time.Time, runner ExternalRunner) (int64, error) {
	name := strings.TrimSpace(runner.HorseName)
	if name == "" {
		return 0, fmt.Errorf("%w: runner horse name is required", ErrInvalidInput)
	}

	profile := horse.Horse{
		Name:       name,
		Country:    strings.TrimSpace(runner.Country),
		YearFoaled: runner.YearFoaled,
		Sex:        strings.ToLower(strings.TrimSpace(runner.Sex)),
	}

	sire := strings.TrimSpace(runner.Sire)
	dam := strings.TrimSpace(runner.Dam)
	damsire := strings.TrimSpace(runner.Damsire)

	if runner.BreedingText != "" {
		bloodline := horse.ParseBloodline(runner.BreedingText)
		if bloodline.Valid() {
			if sire == "" {
				sire = bloodline.Sire
			}
			if dam == "" {
				dam = bloodline.Dam
			}
			if profile.Sex == "" {
				profile.Sex = bloodline.Sex
			}
			if profile.YearFoaled == nil && bloodline.Age != nil {
				year := date.Year() - *bloodline.Age
				profile.YearFoaled = &year
			}
		}
	}

	hasProfile := profile.Country != "" || profile.YearFoaled != nil || profile.Sex != "" ||
		sire != "" || dam != "" || damsire != ""
	if !hasProfile {
		id, err := s.horseRepo.UpsertName(ctx, name)
		if err != nil {
			return 0, ingest.WrapFailure(ingest.KindDatabaseError, err, "upsert horse name").
				WithContext("horse", name)
		}
		return id, nil
	}

	for _, parent := range []struct {
		name   string
		target **int64
	}{
		{sire, &profile.SireID},
		{dam, &profile.DamID},
		{damsire, &profile.DamsireID},
	} {
		if parent.name == "" {
			continue
		}
		id, err := s.horseRepo.UpsertName(ctx, parent.name)
		if err != nil {
			return 0, ingest.WrapFailure(ingest.KindDatabaseError, err, "upsert parent horse").
				WithContext("horse", parent.name)
		}
		*parent.target = &id
	}

	id, err := s.horseRepo.UpsertProfile(ctx, profile)
	if err != nil {
		return 0, ingest.WrapFailure(ingest.KindDatabaseError, err, "upsert horse profile").
			WithContext("horse", name)
	}
	return id, nil
}

// ArchivePayloads stores the raw feed responses for later re-normalization.
// Archival is best effort and never fails the owning day.
func (s *IngestionService) ArchivePayloads(ctx context.Context, items []rawdata.Payload) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.ArchivePayloads")
	defer span.End()

	if s.rawDataRepo == nil || len(items) == 0 {
		return nil
	}

	cleaned := make([]rawdata.Payload, 0, len(items))
	for _, item := range items {
		item.Source = strings.ToLower(strings.TrimSpace(item.Source))
		item.EntityType = strings.ToLower(strings.TrimSpace(item.EntityType))
		item.EntityKey = strings.TrimSpace(item.EntityKey)
		item.PayloadJSON = strings.TrimSpace(item.PayloadJSON)
		if item.EntityType == "" || item.EntityKey == "" || item.PayloadJSON == "" {
			return fmt.Errorf("%w: entity_type, entity_key and payload are required", ErrInvalidInput)
		}
		if item.PayloadHash == "" {
			hash := sha256.Sum256([]byte(item.PayloadJSON))
			item.PayloadHash = hex.EncodeToString(hash[:])
		}
		cleaned = append(cleaned, item)
	}

	if err := s.rawDataRepo.UpsertMany(ctx, cleaned); err != nil {
		return fmt.Errorf("upsert raw payloads: %w", err)
	}
	return nil
}

package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angularhub/hub/internal/database"
	"github.com/angularhub/hub/internal/test_utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepositoryTest(t *testing.T) (*RepositoryImpl, context.Context) {
	db := test_utils.SetupTestDB(t)
	return NewRepository(db, database.SQLite, time.UTC), context.Background()
}

func testEvent(name string, date time.Time, language string) Event {
	return Event{
		Name:     name,
		Date:     date,
		Language: language,
		Type:     Meetup,
		Location: "Berlin",
		URL:      "https://example.org/" + name,
	}
}

func assertEventsEqual(t *testing.T, expected, actual []Event) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for i := range expected {
		assert.Equal(t, expected[i].Name, actual[i].Name)
		assert.True(t, expected[i].Date.Equal(actual[i].Date), "date of %s: want %v, got %v", expected[i].Name, expected[i].Date, actual[i].Date)
		assert.Equal(t, expected[i].Language, actual[i].Language)
		assert.Equal(t, expected[i].Type, actual[i].Type)
		assert.Equal(t, expected[i].Location, actual[i].Location)
		assert.Equal(t, expected[i].URL, actual[i].URL)
		assert.Equal(t, expected[i].Logo, actual[i].Logo)
		assert.Equal(t, expected[i].CallForPapersURL, actual[i].CallForPapersURL)
		assert.Equal(t, expected[i].IsFree, actual[i].IsFree)
		assert.Equal(t, expected[i].IsRemote, actual[i].IsRemote)
	}
}

func TestRepositoryImpl_StoreEvents(t *testing.T) {
	t.Run("keeps insertion order", func(t *testing.T) {
		// given
		repository, ctx := setupRepositoryTest(t)
		events := []Event{
			testEvent("late", time.Date(2024, time.June, 1, 18, 0, 0, 0, time.UTC), "German"),
			testEvent("early", time.Date(2024, time.May, 1, 18, 0, 0, 0, time.UTC), "English"),
		}
		events[0].IsFree = true
		events[1].IsRemote = true
		events[1].CallForPapersURL = "https://example.org/cfp"

		// when
		err := repository.StoreEvents(ctx, events)

		// then
		require.NoError(t, err)
		stored, err := repository.GetEvents(ctx)
		require.NoError(t, err)
		assertEventsEqual(t, events, stored)
	})

	t.Run("appends after existing events", func(t *testing.T) {
		// given
		repository, ctx := setupRepositoryTest(t)
		first := []Event{testEvent("A", time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), "English")}
		second := []Event{testEvent("B", time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), "French")}
		require.NoError(t, repository.StoreEvents(ctx, first))

		// when
		err := repository.StoreEvents(ctx, second)

		// then
		require.NoError(t, err)
		stored, err := repository.GetEvents(ctx)
		require.NoError(t, err)
		assertEventsEqual(t, append(first, second...), stored)
	})

	t.Run("rejects a duplicate name", func(t *testing.T) {
		repository, ctx := setupRepositoryTest(t)
		event := testEvent("A", time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), "English")
		require.NoError(t, repository.StoreEvents(ctx, []Event{event}))

		err := repository.StoreEvents(ctx, []Event{event})

		assert.Error(t, err)
	})
}

func TestRepositoryImpl_GetEventsEmptyResult(t *testing.T) {
	repository, ctx := setupRepositoryTest(t)

	events, err := repository.GetEvents(ctx)

	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestRepositoryImpl_GetEventsInLocation(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	db := test_utils.SetupTestDB(t)
	repository := NewRepository(db, database.SQLite, warsaw)
	ctx := context.Background()
	date := time.Date(2024, time.May, 1, 22, 30, 0, 0, time.UTC)
	require.NoError(t, repository.StoreEvents(ctx, []Event{testEvent("A", date, "Polish")}))

	events, err := repository.GetEvents(ctx)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, warsaw, events[0].Date.Location())
	assert.Equal(t, 2, events[0].Date.Day())
}

func TestReplaceAll(t *testing.T) {
	t.Run("replaces stored events", func(t *testing.T) {
		repository, ctx := setupRepositoryTest(t)
		require.NoError(t, repository.StoreEvents(ctx, []Event{
			testEvent("old", time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC), "English"),
		}))
		replacement := []Event{
			testEvent("B", time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), "French"),
			testEvent("A", time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), "English"),
		}

		err := ReplaceAll(ctx, repository, replacement)

		require.NoError(t, err)
		stored, err := repository.GetEvents(ctx)
		require.NoError(t, err)
		assertEventsEqual(t, replacement, stored)
	})

	t.Run("duplicate names leave the stored events untouched", func(t *testing.T) {
		repository, ctx := setupRepositoryTest(t)
		existing := []Event{testEvent("old", time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC), "English")}
		require.NoError(t, repository.StoreEvents(ctx, existing))

		err := ReplaceAll(ctx, repository, []Event{
			testEvent("A", time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), "English"),
			testEvent("A", time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC), "English"),
		})

		assert.ErrorIs(t, err, ErrDuplicateName)
		stored, err := repository.GetEvents(ctx)
		require.NoError(t, err)
		assertEventsEqual(t, existing, stored)
	})

	t.Run("stub rolls back a failed transaction", func(t *testing.T) {
		stub := NewRepositoryStub()
		ctx := context.Background()
		existing := []Event{testEvent("old", time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC), "English")}
		require.NoError(t, stub.StoreEvents(ctx, existing))
		failure := errors.New("disk full")

		err := stub.WithTransaction(ctx, func(tx Repository) error {
			if err := tx.DeleteAll(ctx); err != nil {
				return err
			}
			return failure
		})

		assert.ErrorIs(t, err, failure)
		stored, err := stub.GetEvents(ctx)
		require.NoError(t, err)
		assert.Equal(t, existing, stored)
	})
}

func TestRepositorySource(t *testing.T) {
	repository, ctx := setupRepositoryTest(t)
	events := []Event{testEvent("A", time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), "English")}
	require.NoError(t, ReplaceAll(ctx, repository, events))
	source := NewRepositorySource(repository)

	loaded, err := source.Load(ctx)

	require.NoError(t, err)
	assertEventsEqual(t, events, loaded)
	assert.Equal(t, "db", source.Name())
}

package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"ms-theatre/internal/catalog/db"
	"ms-theatre/internal/database/testdb"
	"ms-theatre/internal/models"
)

func seedPlays(t *testing.T, bunDB *bun.DB) (*db.DB, map[string]int64) {
	t.Helper()
	ctx := context.Background()
	catalogDB := &db.DB{Bun: bunDB}
	ids := map[string]int64{}

	for _, name := range []string{"Drama", "Comedy", "Tragedy"} {
		g := &models.Genre{Name: name}
		require.NoError(t, catalogDB.CreateGenre(ctx, g))
		ids[name] = g.ID
	}
	for _, a := range [][2]string{{"Judi", "Dench"}, {"Ian", "McKellen"}} {
		actor := &models.Actor{FirstName: a[0], LastName: a[1]}
		require.NoError(t, catalogDB.CreateActor(ctx, actor))
		ids[a[1]] = actor.ID
	}

	plays := []struct {
		title  string
		genres []int64
		actors []int64
	}{
		{"Hamlet", []int64{ids["Drama"], ids["Tragedy"]}, []int64{ids["McKellen"]}},
		{"Twelfth Night", []int64{ids["Comedy"]}, []int64{ids["Dench"], ids["McKellen"]}},
		{"100%_Proof", nil, nil},
	}
	for _, p := range plays {
		play := &models.Play{Title: p.title, Description: "d"}
		require.NoError(t, catalogDB.CreatePlay(ctx, nil, play))
		require.NoError(t, catalogDB.ReplacePlayLinks(ctx, nil, play.ID, p.genres, p.actors))
		ids[p.title] = play.ID
	}
	return catalogDB, ids
}

func titles(plays []models.Play) []string {
	out := make([]string, 0, len(plays))
	for _, p := range plays {
		out = append(out, p.Title)
	}
	return out
}

func TestListPlaysFilters(t *testing.T) {
	ctx := context.Background()
	catalogDB, ids := seedPlays(t, testdb.New(t))

	all, err := catalogDB.ListPlays(ctx, models.PlayFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"100%_Proof", "Hamlet", "Twelfth Night"}, titles(all))

	byTitle, err := catalogDB.ListPlays(ctx, models.PlayFilter{Title: "HAM"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hamlet"}, titles(byTitle))

	wildcard, err := catalogDB.ListPlays(ctx, models.PlayFilter{Title: "%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"100%_Proof"}, titles(wildcard))

	byGenres, err := catalogDB.ListPlays(ctx, models.PlayFilter{GenreIDs: []int64{ids["Drama"], ids["Tragedy"]}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hamlet"}, titles(byGenres), "a play matching several genres appears once")

	byActor, err := catalogDB.ListPlays(ctx, models.PlayFilter{ActorIDs: []int64{ids["McKellen"]}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hamlet", "Twelfth Night"}, titles(byActor))

	combined, err := catalogDB.ListPlays(ctx, models.PlayFilter{
		GenreIDs: []int64{ids["Comedy"]},
		ActorIDs: []int64{ids["McKellen"]},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Twelfth Night"}, titles(combined))

	none, err := catalogDB.ListPlays(ctx, models.PlayFilter{Title: "hamlet", GenreIDs: []int64{ids["Comedy"]}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetPlayLoadsOrderedRelations(t *testing.T) {
	ctx := context.Background()
	catalogDB, ids := seedPlays(t, testdb.New(t))

	play, err := catalogDB.GetPlay(ctx, nil, ids["Twelfth Night"])
	require.NoError(t, err)
	require.Len(t, play.Actors, 2)
	assert.Equal(t, "Dench", play.Actors[0].LastName)
	assert.Equal(t, "McKellen", play.Actors[1].LastName)
	require.Len(t, play.Genres, 1)
	assert.Equal(t, "Comedy", play.Genres[0].Name)

	_, err = catalogDB.GetPlay(ctx, nil, 9999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReplacePlayLinks(t *testing.T) {
	ctx := context.Background()
	catalogDB, ids := seedPlays(t, testdb.New(t))

	require.NoError(t, catalogDB.ReplacePlayLinks(ctx, nil, ids["Hamlet"], []int64{ids["Comedy"]}, nil))

	play, err := catalogDB.GetPlay(ctx, nil, ids["Hamlet"])
	require.NoError(t, err)
	require.Len(t, play.Genres, 1)
	assert.Equal(t, "Comedy", play.Genres[0].Name)
	assert.Empty(t, play.Actors)
}

func TestMissingIDs(t *testing.T) {
	ctx := context.Background()
	catalogDB, ids := seedPlays(t, testdb.New(t))

	missing, err := catalogDB.MissingIDs(ctx, nil, (*models.Genre)(nil), []int64{ids["Drama"], 500, 501})
	require.NoError(t, err)
	assert.Equal(t, []int64{500, 501}, missing)

	missing, err = catalogDB.MissingIDs(ctx, nil, (*models.Genre)(nil), nil)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestUpdateAndDeleteReportMissingRows(t *testing.T) {
	ctx := context.Background()
	catalogDB, ids := seedPlays(t, testdb.New(t))

	ok, err := catalogDB.UpdateGenre(ctx, &models.Genre{ID: ids["Drama"], Name: "Modern Drama"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = catalogDB.UpdateGenre(ctx, &models.Genre{ID: 9999, Name: "x"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = catalogDB.DeleteActor(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = catalogDB.SetPlayImage(ctx, ids["Hamlet"], "uploads/movies/hamlet.png")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeletePlayCascades(t *testing.T) {
	ctx := context.Background()
	bunDB := testdb.New(t)
	catalogDB := &db.DB{Bun: bunDB}
	perf := testdb.Performance(t, bunDB, 5, 5)
	res := testdb.CreateReservation(t, bunDB, "user-1")
	testdb.CreateTicket(t, bunDB, 1, 1, perf.ID, res.ID)

	ok, err := catalogDB.DeletePlay(ctx, perf.PlayID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = catalogDB.GetPerformance(ctx, perf.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, 0, testdb.CountTickets(t, bunDB))
	assert.Equal(t, 1, testdb.CountReservations(t, bunDB))
}

func TestDeleteHallCascades(t *testing.T) {
	ctx := context.Background()
	bunDB := testdb.New(t)
	catalogDB := &db.DB{Bun: bunDB}
	perf := testdb.Performance(t, bunDB, 5, 5)

	ok, err := catalogDB.DeleteHall(ctx, perf.TheatreHallID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = catalogDB.GetPerformance(ctx, perf.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPerformanceCRUD(t *testing.T) {
	ctx := context.Background()
	bunDB := testdb.New(t)
	catalogDB := &db.DB{Bun: bunDB}
	hall := testdb.CreateHall(t, bunDB, "Studio", 8, 12)
	play := testdb.CreatePlay(t, bunDB, "Macbeth")

	perf := &models.Performance{PlayID: play.ID, TheatreHallID: hall.ID, ShowTime: time.Date(2031, 3, 1, 20, 0, 0, 0, time.UTC)}
	require.NoError(t, catalogDB.CreatePerformance(ctx, perf))

	got, err := catalogDB.GetPerformance(ctx, perf.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Play)
	require.NotNil(t, got.TheatreHall)
	assert.Equal(t, "Macbeth", got.Play.Title)
	assert.Equal(t, 96, got.TheatreHall.Capacity())

	perf.ShowTime = perf.ShowTime.Add(time.Hour)
	ok, err := catalogDB.UpdatePerformance(ctx, perf)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = catalogDB.DeletePerformance(ctx, perf.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListOrderings(t *testing.T) {
	ctx := context.Background()
	bunDB := testdb.New(t)
	catalogDB := &db.DB{Bun: bunDB}
	testdb.CreateHall(t, bunDB, "Studio", 8, 12)
	testdb.CreateHall(t, bunDB, "Annex", 4, 4)

	halls, err := catalogDB.ListHalls(ctx)
	require.NoError(t, err)
	require.Len(t, halls, 2)
	assert.Equal(t, "Annex", halls[0].Name)

	for _, a := range [][2]string{{"Zoe", "Adams"}, {"Amy", "Brown"}, {"Ann", "Adams"}} {
		require.NoError(t, catalogDB.CreateActor(ctx, &models.Actor{FirstName: a[0], LastName: a[1]}))
	}
	actors, err := catalogDB.ListActors(ctx)
	require.NoError(t, err)
	require.Len(t, actors, 3)
	assert.Equal(t, "Ann Adams", actors[0].FullName())
	assert.Equal(t, "Zoe Adams", actors[1].FullName())
	assert.Equal(t, "Amy Brown", actors[2].FullName())
}

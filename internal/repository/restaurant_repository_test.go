package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/iliyamo/restaurant-dashboard/internal/model"
	"github.com/iliyamo/restaurant-dashboard/internal/repository"
	"github.com/iliyamo/restaurant-dashboard/internal/testdb"
)

const table = "restaurants"

func TestVoteRangeOnEmptyTable(t *testing.T) {
	is := is.New(t)
	repo := repository.NewRestaurantRepo(testdb.Open(t, table), table)

	_, ok, err := repo.VoteRange(context.Background())
	is.NoErr(err)
	is.True(!ok)
}

func TestVoteRange(t *testing.T) {
	is := is.New(t)
	db := testdb.Open(t, table)
	testdb.Seed(t, db, table, testdb.Named("A", 5), testdb.Named("B", 50), testdb.Named("C", 500))
	repo := repository.NewRestaurantRepo(db, table)

	vr, ok, err := repo.VoteRange(context.Background())
	is.NoErr(err)
	is.True(ok)
	is.Equal(vr, model.VoteRange{Min: 5, Max: 500})
}

func TestVoteRangeTreatsNullAsZero(t *testing.T) {
	is := is.New(t)
	db := testdb.Open(t, table)
	testdb.Seed(t, db, table, testdb.Named("A", 40), model.Restaurant{Name: "No votes"})
	repo := repository.NewRestaurantRepo(db, table)

	vr, ok, err := repo.VoteRange(context.Background())
	is.NoErr(err)
	is.True(ok)
	is.Equal(vr, model.VoteRange{Min: 0, Max: 40})
}

func TestSearchEmptyPatternReturnsAllByVotesDesc(t *testing.T) {
	is := is.New(t)
	db := testdb.Open(t, table)
	testdb.Seed(t, db, table,
		testdb.Row("Taco Stand", 50, "Dallas", 32.7, -96.8),
		testdb.Row("Pizza Hut", 500, "Plano", 33.0, -96.7),
		testdb.Named("Noodle Bar", 5),
	)
	repo := repository.NewRestaurantRepo(db, table)

	got, err := repo.Search(context.Background(), model.SearchQuery{MinVotes: 0, MaxVotes: 1000})
	is.NoErr(err)
	is.Equal(got, []model.SearchResult{
		{Name: "Pizza Hut", Votes: 500, City: "Plano"},
		{Name: "Taco Stand", Votes: 50, City: "Dallas"},
		{Name: "Noodle Bar", Votes: 5, City: ""},
	})
}

func TestSearchBySubstring(t *testing.T) {
	is := is.New(t)
	db := testdb.Open(t, table)
	testdb.Seed(t, db, table,
		testdb.Named("Pizza Hut", 500),
		testdb.Named("Joe's Pizza", 120),
		testdb.Named("Burger Barn", 300),
	)
	repo := repository.NewRestaurantRepo(db, table)

	got, err := repo.Search(context.Background(), model.SearchQuery{Name: "Pizza", MinVotes: 0, MaxVotes: 1000})
	is.NoErr(err)
	is.Equal(len(got), 2)
	is.Equal(got[0].Name, "Pizza Hut")
	is.Equal(got[1].Name, "Joe's Pizza")
}

func TestSearchBoundsAreInclusive(t *testing.T) {
	is := is.New(t)
	db := testdb.Open(t, table)
	testdb.Seed(t, db, table, testdb.Named("A", 5), testdb.Named("B", 50), testdb.Named("C", 500))
	repo := repository.NewRestaurantRepo(db, table)

	got, err := repo.Search(context.Background(), model.SearchQuery{MinVotes: 5, MaxVotes: 50})
	is.NoErr(err)
	is.Equal(len(got), 2)
	is.Equal(got[0].Name, "B")
	is.Equal(got[1].Name, "A")
}

func TestSearchInvertedBoundsIsEmpty(t *testing.T) {
	is := is.New(t)
	db := testdb.Open(t, table)
	testdb.Seed(t, db, table, testdb.Named("A", 5))
	repo := repository.NewRestaurantRepo(db, table)

	got, err := repo.Search(context.Background(), model.SearchQuery{MinVotes: 100, MaxVotes: 10})
	is.NoErr(err)
	is.Equal(len(got), 0)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	is := is.New(t)
	db := testdb.Open(t, table)
	testdb.Seed(t, db, table,
		testdb.Named("100% Burger", 10),
		testdb.Named("100 Burgers", 20),
		testdb.Named("Fish_and_Chips", 30),
		testdb.Named("Fish and Chips", 40),
	)
	repo := repository.NewRestaurantRepo(db, table)

	got, err := repo.Search(context.Background(), model.SearchQuery{Name: "100%", MaxVotes: 1000})
	is.NoErr(err)
	is.Equal(len(got), 1)
	is.Equal(got[0].Name, "100% Burger")

	got, err = repo.Search(context.Background(), model.SearchQuery{Name: "h_a", MaxVotes: 1000})
	is.NoErr(err)
	is.Equal(len(got), 1)
	is.Equal(got[0].Name, "Fish_and_Chips")
}

func TestSearchBindsInjectionAttemptAsData(t *testing.T) {
	is := is.New(t)
	db := testdb.Open(t, table)
	testdb.Seed(t, db, table, testdb.Named("Pizza Hut", 500))
	repo := repository.NewRestaurantRepo(db, table)

	for _, attack := range []string{
		"'; DROP TABLE restaurants; --",
		"' OR '1'='1",
		"%' OR 1=1 --",
	} {
		got, err := repo.Search(context.Background(), model.SearchQuery{Name: attack, MaxVotes: 1000})
		is.NoErr(err)
		is.Equal(len(got), 0)
	}

	// the table survived and still answers
	got, err := repo.Search(context.Background(), model.SearchQuery{MaxVotes: 1000})
	is.NoErr(err)
	is.Equal(len(got), 1)
}

func TestLocationsExcludeRowsWithoutCoordinates(t *testing.T) {
	is := is.New(t)
	db := testdb.Open(t, table)
	lat := 32.78
	lon := -96.80
	testdb.Seed(t, db, table,
		testdb.Row("Both", 1, "Dallas", 32.7767, -96.7970),
		model.Restaurant{Name: "LatOnly", Latitude: &lat},
		model.Restaurant{Name: "LonOnly", Longitude: &lon},
		model.Restaurant{Name: "Neither"},
		testdb.Row("Another", 2, "Austin", 30.2672, -97.7431),
	)
	repo := repository.NewRestaurantRepo(db, table)

	got, err := repo.Locations(context.Background())
	is.NoErr(err)
	is.Equal(got, []model.Location{
		{Name: "Another", Latitude: 30.2672, Longitude: -97.7431},
		{Name: "Both", Latitude: 32.7767, Longitude: -96.7970},
	})
}

func TestConfigurableTableName(t *testing.T) {
	is := is.New(t)
	db := testdb.Open(t, "business_location")
	testdb.Seed(t, db, "business_location", testdb.Named("Cafe", 7))
	repo := repository.NewRestaurantRepo(db, "business_location")

	vr, ok, err := repo.VoteRange(context.Background())
	is.NoErr(err)
	is.True(ok)
	is.Equal(vr, model.VoteRange{Min: 7, Max: 7})
}

func TestMissingTableIsQueryError(t *testing.T) {
	is := is.New(t)
	repo := repository.NewRestaurantRepo(testdb.Open(t, table), "no_such_table")

	_, err := repo.Locations(context.Background())
	var qe *repository.QueryError
	is.True(errors.As(err, &qe))
	is.Equal(qe.Op, "locations")
}

func TestNoConnection(t *testing.T) {
	is := is.New(t)
	repo := repository.NewRestaurantRepo(nil, table)
	ctx := context.Background()

	is.True(!repo.Connected())
	_, _, err := repo.VoteRange(ctx)
	is.True(errors.Is(err, repository.ErrNoConnection))
	_, err = repo.Search(ctx, model.SearchQuery{MaxVotes: 10})
	is.True(errors.Is(err, repository.ErrNoConnection))
	_, err = repo.Locations(ctx)
	is.True(errors.Is(err, repository.ErrNoConnection))
}

func TestInvalidTableNameIsRejected(t *testing.T) {
	is := is.New(t)
	db := testdb.Open(t, table)

	for _, name := range []string{"", "restaurants; DROP TABLE x", "db.restaurants", "`restaurants`", "1table"} {
		repo := repository.NewRestaurantRepo(db, name)
		is.True(errors.Is(repo.Err(), repository.ErrInvalidTable))
		_, err := repo.Search(context.Background(), model.SearchQuery{MaxVotes: 10})
		is.True(errors.Is(err, repository.ErrInvalidTable))
	}
}

func TestPingReportsInvalidTable(t *testing.T) {
	is := is.New(t)
	db := testdb.Open(t, table)
	ctx := context.Background()

	is.NoErr(repository.NewRestaurantRepo(db, table).Ping(ctx))
	is.True(errors.Is(repository.NewRestaurantRepo(db, "x; DROP TABLE y").Ping(ctx), repository.ErrInvalidTable))
	is.True(errors.Is(repository.NewRestaurantRepo(nil, table).Ping(ctx), repository.ErrNoConnection))
}

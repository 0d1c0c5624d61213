package listing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamtour/tourism/dbtest"
	"github.com/kamtour/tourism/models"
)

func titles(p Page[Item]) []string {
	out := make([]string, 0, len(p.Data))
	for _, it := range p.Data {
		out = append(out, it.Post.Title)
	}
	return out
}

func TestParseFiltersDefaults(t *testing.T) {
	f := ParseFilters(Params{})
	assert.Equal(t, "", f.Search)
	assert.Equal(t, "all", f.Category)
	assert.Equal(t, "", f.Province)
	assert.Equal(t, SortLatest, f.Sort)
	assert.Equal(t, 1, f.Page)
	_, ok := f.CategoryID()
	assert.False(t, ok)
}

func TestParseFiltersIgnoresUnusableValues(t *testing.T) {
	f := ParseFilters(Params{Search: "  wat ", Category: "abc", Province: "-3", Sort: "random", Page: "0"})
	assert.Equal(t, "wat", f.Search)
	assert.Equal(t, "all", f.Category)
	assert.Equal(t, "", f.Province)
	assert.Equal(t, SortLatest, f.Sort)
	assert.Equal(t, 1, f.Page)

	f = ParseFilters(Params{Category: "4", Province: "7", Sort: "most_commented", Page: "3"})
	cat, ok := f.CategoryID()
	require.True(t, ok)
	assert.Equal(t, uint(4), cat)
	prov, ok := f.ProvinceID()
	require.True(t, ok)
	assert.Equal(t, uint(7), prov)
	assert.Equal(t, "4", f.Category)
	assert.Equal(t, SortMostCommented, f.Sort)
	assert.Equal(t, 3, f.Page)
}

func TestPublicScopeHidesDraftsAndScheduled(t *testing.T) {
	db := dbtest.NewDB(t)
	cat := dbtest.Category(t, db, "Temple")
	future := time.Now().UTC().Add(48 * time.Hour)

	dbtest.Post(t, db, models.Post{Title: "Live", CategoryID: cat.ID, PublishedAt: dbtest.Ago(time.Hour)})
	dbtest.Post(t, db, models.Post{Title: "Draft", CategoryID: cat.ID})
	dbtest.Post(t, db, models.Post{Title: "Scheduled", CategoryID: cat.ID, PublishedAt: &future})

	page, err := Run(context.Background(), db, ParseFilters(Params{}), Options{Scope: ScopePublic, PerPage: PerPageGrid})
	require.NoError(t, err)
	assert.Equal(t, []string{"Live"}, titles(page))
	assert.EqualValues(t, 1, page.Total)

	admin, err := Run(context.Background(), db, ParseFilters(Params{}), Options{Scope: ScopeAdmin, PerPage: PerPageAdmin})
	require.NoError(t, err)
	assert.EqualValues(t, 3, admin.Total)
}

func TestMostCommentedIsNonIncreasing(t *testing.T) {
	db := dbtest.NewDB(t)
	cat := dbtest.Category(t, db, "Temple")
	user := dbtest.User(t, db, "reader", models.RoleUser)

	for i, n := range []int{2, 0, 5, 1, 3} {
		p := dbtest.Post(t, db, models.Post{
			Title:       fmt.Sprintf("post %d", i),
			CategoryID:  cat.ID,
			PublishedAt: dbtest.Ago(time.Duration(i+1) * time.Hour),
		})
		dbtest.Comments(t, db, p.ID, user.ID, n)
	}

	page, err := Run(context.Background(), db, ParseFilters(Params{Sort: "most_commented"}), Options{Scope: ScopePublic, PerPage: PerPageGrid})
	require.NoError(t, err)
	require.Len(t, page.Data, 5)
	for i := 1; i < len(page.Data); i++ {
		assert.GreaterOrEqual(t, page.Data[i-1].CommentsCount, page.Data[i].CommentsCount)
	}
	assert.EqualValues(t, 5, page.Data[0].CommentsCount)
}

func TestHotelsSecondPage(t *testing.T) {
	db := dbtest.NewDB(t)
	hotel := dbtest.Category(t, db, "Hotel")
	temple := dbtest.Category(t, db, "Temple")

	// hotel 1 is the newest.
	for i := 1; i <= 30; i++ {
		dbtest.Post(t, db, models.Post{
			Title:       fmt.Sprintf("hotel %d", i),
			CategoryID:  hotel.ID,
			PublishedAt: dbtest.Ago(time.Duration(i) * time.Minute),
		})
	}
	dbtest.Post(t, db, models.Post{Title: "temple", CategoryID: temple.ID, PublishedAt: dbtest.Ago(time.Second)})

	id, ok, err := CategoryIDByName(context.Background(), db, "Hotel")
	require.NoError(t, err)
	require.True(t, ok)

	f := ParseFilters(Params{Category: fmt.Sprint(temple.ID), Page: "2"}).WithCategory(id)
	page, err := Run(context.Background(), db, f, Options{Scope: ScopePublic, PerPage: PerPageHotels})
	require.NoError(t, err)

	want := make([]string, 0, 12)
	for i := 13; i <= 24; i++ {
		want = append(want, fmt.Sprintf("hotel %d", i))
	}
	assert.Equal(t, want, titles(page))
	assert.EqualValues(t, 30, page.Total)
	assert.Equal(t, 3, page.LastPage)
	require.NotNil(t, page.From)
	assert.Equal(t, 13, *page.From)
	assert.Equal(t, 24, *page.To)
	assert.Equal(t, fmt.Sprint(hotel.ID), f.Category)
}

func TestMissingCategoryName(t *testing.T) {
	db := dbtest.NewDB(t)
	_, ok, err := CategoryIDByName(context.Background(), db, "Hotel")
	require.NoError(t, err)
	assert.False(t, ok)

	empty := Empty[Item](PerPageHotels, 1)
	assert.NotNil(t, empty.Data)
	assert.Equal(t, 1, empty.LastPage)
	assert.Nil(t, empty.From)
}

func TestSearchIsCaseInsensitiveOverTitleAndContent(t *testing.T) {
	db := dbtest.NewDB(t)
	cat := dbtest.Category(t, db, "Temple")
	dbtest.Post(t, db, models.Post{Title: "Angkor Wat at dawn", CategoryID: cat.ID, PublishedAt: dbtest.Ago(3 * time.Hour)})
	dbtest.Post(t, db, models.Post{Title: "Siem Reap", Content: "Visit WAT Bo early.", CategoryID: cat.ID, PublishedAt: dbtest.Ago(2 * time.Hour)})
	dbtest.Post(t, db, models.Post{Title: "Kep beach", Content: "crab market", CategoryID: cat.ID, PublishedAt: dbtest.Ago(time.Hour)})

	page, err := Run(context.Background(), db, ParseFilters(Params{Search: "wat"}), Options{Scope: ScopePublic, PerPage: PerPageGrid})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Angkor Wat at dawn", "Siem Reap"}, titles(page))
}

func TestSearchFoldsNonASCIICase(t *testing.T) {
	db := dbtest.NewDB(t)
	cat := dbtest.Category(t, db, "Festival")
	dbtest.Post(t, db, models.Post{Title: "ÉTÉ Festival", CategoryID: cat.ID, PublishedAt: dbtest.Ago(time.Hour)})
	dbtest.Post(t, db, models.Post{Title: "Water festival", Content: "Boat races on the TONLÉ SAP", CategoryID: cat.ID, PublishedAt: dbtest.Ago(time.Hour)})

	page, err := Run(context.Background(), db, ParseFilters(Params{Search: "été"}), Options{Scope: ScopePublic})
	require.NoError(t, err)
	assert.Equal(t, []string{"ÉTÉ Festival"}, titles(page))

	page, err = Run(context.Background(), db, ParseFilters(Params{Search: "Tonlé"}), Options{Scope: ScopePublic})
	require.NoError(t, err)
	assert.Equal(t, []string{"Water festival"}, titles(page))
}

func TestSearchEscapesWildcards(t *testing.T) {
	db := dbtest.NewDB(t)
	cat := dbtest.Category(t, db, "Farm")
	dbtest.Post(t, db, models.Post{Title: "100% organic pepper", CategoryID: cat.ID, PublishedAt: dbtest.Ago(time.Hour)})
	dbtest.Post(t, db, models.Post{Title: "1000 organic pepper", CategoryID: cat.ID, PublishedAt: dbtest.Ago(time.Hour)})

	page, err := Run(context.Background(), db, ParseFilters(Params{Search: "0%"}), Options{Scope: ScopePublic})
	require.NoError(t, err)
	assert.Equal(t, []string{"100% organic pepper"}, titles(page))
}

func TestFiltersCombineWithAnd(t *testing.T) {
	db := dbtest.NewDB(t)
	temple := dbtest.Category(t, db, "Temple")
	lake := dbtest.Category(t, db, "Lake")
	siemReap := dbtest.Province(t, db, "Siem Reap", "សៀមរាប")
	kampot := dbtest.Province(t, db, "Kampot", "កំពត")

	dbtest.Post(t, db, models.Post{Title: "Wat in Siem Reap", CategoryID: temple.ID, ProvinceID: &siemReap.ID, PublishedAt: dbtest.Ago(time.Hour)})
	dbtest.Post(t, db, models.Post{Title: "Wat in Kampot", CategoryID: temple.ID, ProvinceID: &kampot.ID, PublishedAt: dbtest.Ago(time.Hour)})
	dbtest.Post(t, db, models.Post{Title: "Lake with a wat", CategoryID: lake.ID, ProvinceID: &siemReap.ID, PublishedAt: dbtest.Ago(time.Hour)})
	dbtest.Post(t, db, models.Post{Title: "Temple ruins", CategoryID: temple.ID, ProvinceID: &siemReap.ID, PublishedAt: dbtest.Ago(time.Hour)})

	f := ParseFilters(Params{Search: "wat", Category: fmt.Sprint(temple.ID), Province: fmt.Sprint(siemReap.ID)})
	page, err := Run(context.Background(), db, f, Options{Scope: ScopePublic, PerPage: PerPageGrid})
	require.NoError(t, err)
	require.Equal(t, []string{"Wat in Siem Reap"}, titles(page))

	item := page.Data[0]
	require.NotNil(t, item.Category)
	assert.Equal(t, "Temple", item.Category.Name)
	require.NotNil(t, item.Province)
	assert.Equal(t, "Siem Reap", item.Province.NameEN)
}

func TestUnknownSortFallsBackToLatest(t *testing.T) {
	db := dbtest.NewDB(t)
	cat := dbtest.Category(t, db, "River")
	dbtest.Post(t, db, models.Post{Title: "older", CategoryID: cat.ID, PublishedAt: dbtest.Ago(2 * time.Hour)})
	dbtest.Post(t, db, models.Post{Title: "newer", CategoryID: cat.ID, PublishedAt: dbtest.Ago(time.Hour)})

	f := ParseFilters(Params{Sort: "bogus"})
	assert.Equal(t, SortLatest, f.Sort)
	page, err := Run(context.Background(), db, f, Options{Scope: ScopePublic})
	require.NoError(t, err)
	assert.Equal(t, []string{"newer", "older"}, titles(page))

	page, err = Run(context.Background(), db, ParseFilters(Params{Sort: "oldest"}), Options{Scope: ScopePublic})
	require.NoError(t, err)
	assert.Equal(t, []string{"older", "newer"}, titles(page))
}

func TestOutOfRangePageIsEmpty(t *testing.T) {
	db := dbtest.NewDB(t)
	cat := dbtest.Category(t, db, "Lake")
	for i := 0; i < 3; i++ {
		dbtest.Post(t, db, models.Post{Title: fmt.Sprintf("lake %d", i), CategoryID: cat.ID, PublishedAt: dbtest.Ago(time.Hour)})
	}

	page, err := Run(context.Background(), db, ParseFilters(Params{Page: "99"}), Options{Scope: ScopePublic, PerPage: PerPageGrid})
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 99, page.CurrentPage)
	assert.Equal(t, 1, page.LastPage)
	assert.Nil(t, page.From)
	assert.Nil(t, page.To)
}

func TestHugePageNumberIsEmpty(t *testing.T) {
	db := dbtest.NewDB(t)
	cat := dbtest.Category(t, db, "Lake")
	for i := 0; i < 3; i++ {
		dbtest.Post(t, db, models.Post{Title: fmt.Sprintf("lake %d", i), CategoryID: cat.ID, PublishedAt: dbtest.Ago(time.Hour)})
	}

	f := ParseFilters(Params{Page: "1000000000000000000"})
	require.Equal(t, 1000000000000000000, f.Page)

	page, err := Run(context.Background(), db, f, Options{Scope: ScopePublic, PerPage: PerPagePublic})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 1, page.LastPage)
	assert.Nil(t, page.From)
	assert.Nil(t, page.To)
}

func TestOffset(t *testing.T) {
	offset, ok := Offset(25, 10, 3)
	assert.True(t, ok)
	assert.Equal(t, 20, offset)

	_, ok = Offset(25, 10, 4)
	assert.False(t, ok)
	_, ok = Offset(0, 10, 1)
	assert.False(t, ok)
	_, ok = Offset(25, 10, 0)
	assert.False(t, ok)
	_, ok = Offset(25, 10, 1<<62)
	assert.False(t, ok)
}

func TestProvinceSortPutsUnassignedFirst(t *testing.T) {
	db := dbtest.NewDB(t)
	cat := dbtest.Category(t, db, "Mountain")
	a := dbtest.Province(t, db, "Kampot", "កំពត")
	b := dbtest.Province(t, db, "Kep", "កែប")

	dbtest.Post(t, db, models.Post{Title: "in b", CategoryID: cat.ID, ProvinceID: &b.ID, PublishedAt: dbtest.Ago(time.Hour)})
	dbtest.Post(t, db, models.Post{Title: "in a", CategoryID: cat.ID, ProvinceID: &a.ID, PublishedAt: dbtest.Ago(time.Hour)})
	dbtest.Post(t, db, models.Post{Title: "nowhere", CategoryID: cat.ID, PublishedAt: dbtest.Ago(time.Hour)})

	page, err := Run(context.Background(), db, ParseFilters(Params{Sort: "province"}), Options{Scope: ScopePublic})
	require.NoError(t, err)
	assert.Equal(t, []string{"nowhere", "in a", "in b"}, titles(page))
	assert.Nil(t, page.Data[0].Province)
}

func TestMapKeepsMetadata(t *testing.T) {
	from, to := 11, 12
	p := Page[int]{Data: []int{1, 2}, Total: 12, PerPage: 10, CurrentPage: 2, LastPage: 2, From: &from, To: &to}
	out := Map(p, func(n int) string { return fmt.Sprint(n * 10) })
	assert.Equal(t, []string{"10", "20"}, out.Data)
	assert.Equal(t, 2, out.LastPage)
	assert.Equal(t, 11, *out.From)
}

package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kailas-cloud/nearby/internal/domain"
	"github.com/kailas-cloud/nearby/internal/domain/entity"
	"github.com/kailas-cloud/nearby/internal/domain/intent"
	"github.com/kailas-cloud/nearby/internal/domain/result"
)

// --- Mocks ---

type mockTransformer struct {
	response string
	err      error
	calls    int
	lastMsgs []domain.ChatMessage
}

func (m *mockTransformer) Complete(_ context.Context, msgs []domain.ChatMessage) (string, error) {
	m.calls++
	m.lastMsgs = msgs
	return m.response, m.err
}

func sampleRecords() []entity.Record {
	price := 120.0
	return []entity.Record{
		{Domain: entity.Providers, ID: "p1", Name: "Dr. Sara", Role: "Dentist", Recommended: true, AvgRating: 4.8, ReviewsCount: 12},
		{Domain: entity.Services, ID: "s1", Name: "Oil change", Price: &price, Shop: &entity.ShopRef{ID: "sh1", Name: "Fast Garage", Phone: "+966"}},
		{Domain: entity.Shops, ID: "sh1", Name: "Fast Garage", Verified: true},
	}
}

func checkInvariants(t *testing.T, s result.Set) {
	t.Helper()
	for _, r := range s.Results {
		if !slices.Contains(r.FilterTags, result.TagAll) {
			t.Errorf("result %s missing all tag: %v", r.ID, r.FilterTags)
		}
		n := 0
		for _, tag := range r.FilterTags {
			if result.IsDomainTag(tag) {
				n++
			}
		}
		if n != 1 {
			t.Errorf("result %s has %d domain tags", r.ID, n)
		}
		if r.Priority < 1 || r.Priority > 10 {
			t.Errorf("result %s priority %d out of range", r.ID, r.Priority)
		}
	}
	for _, f := range s.Facets {
		if f.ID == result.TagAll && f.Count != len(s.Results) {
			t.Errorf("all facet count %d, want %d", f.Count, len(s.Results))
		}
	}
}

// --- Primary path ---

func TestNormalize_PrimaryRepairsModelOutput(t *testing.T) {
	tr := &mockTransformer{response: "```json\n" + `{
		"results": [
			{"id": "s1", "domainType": "shops", "filterTags": ["shops", "Oil"], "priority": 14,
			 "category": {"en": "Car care", "ar": "العناية بالسيارات"}},
			{"id": "ghost", "domainType": "shops", "filterTags": ["all"], "priority": 9},
			{"id": "p1", "domainType": "providers", "filterTags": ["all", "providers", "verified",], "priority": 6},
			{"id": "s1", "priority": 1},
		],
		"facets": [{"id": "all", "count": 50, "order": 0}, {"id": "oil", "name": {"en": "Oil"}, "order": 8}]
	}` + "\n```"}
	s := New(tr, Config{})

	set := s.Normalize(context.Background(), sampleRecords(), "oil change", intent.SearchTypeMixed)
	checkInvariants(t, set)

	if tr.calls != 1 {
		t.Fatalf("expected 1 transformer call, got %d", tr.calls)
	}
	ids := make([]string, len(set.Results))
	for i, r := range set.Results {
		ids[i] = r.ID
	}
	// s1 clamped to 10, p1 at 6, sh1 appended by the fallback with priority 5.
	if want := []string{"s1", "p1", "sh1"}; !slices.Equal(ids, want) {
		t.Fatalf("expected order %v, got %v", want, ids)
	}

	s1 := set.Results[0]
	if s1.DomainType != entity.Services {
		t.Errorf("domain must come from the source record, got %q", s1.DomainType)
	}
	if want := []string{"all", "services", "oil"}; !slices.Equal(s1.FilterTags, want) {
		t.Errorf("expected tags %v, got %v", want, s1.FilterTags)
	}
	if s1.Priority != 10 {
		t.Errorf("expected clamped priority 10, got %d", s1.Priority)
	}
	if s1.Category.En != "Car care" {
		t.Errorf("expected model category, got %+v", s1.Category)
	}
	if s1.Contact.Phone != "+966" || s1.Metadata["price"] != "120" {
		t.Errorf("expected shop phone and price metadata, got %+v %v", s1.Contact, s1.Metadata)
	}

	var oil *result.Facet
	for i := range set.Facets {
		if set.Facets[i].ID == "oil" {
			oil = &set.Facets[i]
		}
	}
	if oil == nil || oil.Count != 1 {
		t.Errorf("expected oil facet with count 1, got %+v", oil)
	}
	if set.Summary.Total != 3 || set.Summary.Query != "oil change" || set.Summary.SearchType != "MIXED" {
		t.Errorf("unexpected summary: %+v", set.Summary)
	}
}

func TestNormalize_InvalidSchemaFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{"not json", "sorry, I cannot help", nil},
		{"empty object", "{}", nil},
		{"missing facets", `{"results": []}`, nil},
		{"results not array", `{"results": {}, "facets": []}`, nil},
		{"facets null", `{"results": [], "facets": null}`, nil},
		{"transport error", "", errors.New("503")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := sampleRecords()
			got := New(&mockTransformer{response: tt.response, err: tt.err}, Config{}).
				Normalize(context.Background(), recs, "q", intent.SearchTypeMixed)
			want := Fallback(recs, "q", intent.SearchTypeMixed)

			gb, _ := json.Marshal(got)
			wb, _ := json.Marshal(want)
			if !bytes.Equal(gb, wb) {
				t.Errorf("expected fallback output\nwant %s\ngot  %s", wb, gb)
			}
		})
	}
}

func TestParseOutput_Errors(t *testing.T) {
	_, err := parseOutput(`{"results": "x", "facets": []}`)
	if !errors.Is(err, ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
	out, err := parseOutput(`{"results": [{"id": "a", "priority": 3}], "facets": [],}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.results) != 1 || out.results[0].Priority != 3 {
		t.Errorf("unexpected results: %+v", out.results)
	}
}

func TestNormalize_EmptyInputSkipsModel(t *testing.T) {
	tr := &mockTransformer{}
	set := New(tr, Config{}).Normalize(context.Background(), nil, "q", intent.SearchTypeMixed)
	if tr.calls != 0 {
		t.Error("expected no transformer call for empty input")
	}
	if set.Summary.Total != 0 || len(set.Facets) != 1 {
		t.Errorf("expected empty set with all facet, got %+v", set)
	}
}

func TestNormalize_ProjectionSentToModel(t *testing.T) {
	tr := &mockTransformer{err: errors.New("down")}
	recs := []entity.Record{{
		Domain:      entity.Shops,
		ID:          "x",
		Name:        `Quote "shop" \ backslash`,
		Description: strings.Repeat("word\t\n ", 100),
	}}
	New(tr, Config{}).Normalize(context.Background(), recs, "q", intent.SearchTypeShop)

	user := tr.lastMsgs[1].Content
	_, body, ok := strings.Cut(user, "records: ")
	if !ok {
		t.Fatalf("expected records in user message, got %q", user)
	}
	var got []projected
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("projection must be valid JSON: %v", err)
	}
	if got[0].Name != `Quote "shop" \ backslash` {
		t.Errorf("expected name preserved, got %q", got[0].Name)
	}
	if n := utf8.RuneCountInString(got[0].Description); n > maxFieldRunes {
		t.Errorf("description has %d runes, want <= %d", n, maxFieldRunes)
	}
	if strings.ContainsAny(got[0].Description, "\t\n") || strings.Contains(got[0].Description, "  ") {
		t.Errorf("expected collapsed whitespace, got %q", got[0].Description)
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  a \t b\n", "a b"},
		{"ctl\x00\x07char", "ctlchar"},
		{"قهوة   عربية", "قهوة عربية"},
	}
	for _, tt := range tests {
		if got := clean(tt.in); got != tt.want {
			t.Errorf("clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	long := clean(strings.Repeat("ab ", 200))
	if n := utf8.RuneCountInString(long); n > maxFieldRunes {
		t.Errorf("expected at most %d runes, got %d", maxFieldRunes, n)
	}
	if strings.HasSuffix(long, " ") {
		t.Error("capped text must not end with a space")
	}
}

// --- Deterministic fallback ---

func TestFallback_Deterministic(t *testing.T) {
	recs := sampleRecords()
	a, _ := json.Marshal(Fallback(recs, "q", intent.SearchTypeMixed))
	b, _ := json.Marshal(Fallback(recs, "q", intent.SearchTypeMixed))
	if !bytes.Equal(a, b) {
		t.Errorf("expected byte-identical output\n%s\n%s", a, b)
	}
}

func TestFallback_PriorityAndTags(t *testing.T) {
	set := Fallback(sampleRecords(), "q", intent.SearchTypeMixed)
	checkInvariants(t, set)

	byID := map[string]result.Normalized{}
	for _, r := range set.Results {
		byID[r.ID] = r
	}
	p1 := byID["p1"]
	if p1.Priority != 8 || !slices.Contains(p1.FilterTags, result.TagRecommended) || !slices.Contains(p1.FilterTags, result.TagTopRated) {
		t.Errorf("unexpected recommended provider: %+v", p1)
	}
	if p1.Rating.Stars != 5 {
		t.Errorf("expected 5 stars, got %d", p1.Rating.Stars)
	}
	sh := byID["sh1"]
	if sh.Priority != 5 || !slices.Contains(sh.FilterTags, result.TagVerified) {
		t.Errorf("verified shop without rating should keep priority 5: %+v", sh)
	}
	if slices.Contains(sh.FilterTags, result.TagRecommended) {
		t.Errorf("verified alone must not add recommended: %v", sh.FilterTags)
	}
	if s1 := byID["s1"]; s1.Priority != 5 {
		t.Errorf("expected default priority 5, got %d", s1.Priority)
	}
	if set.Results[0].ID != "p1" {
		t.Errorf("expected highest priority first, got %s", set.Results[0].ID)
	}
}

func TestFallback_RatingRules(t *testing.T) {
	tests := []struct {
		name     string
		rec      entity.Record
		priority int
		tags     []string
	}{
		{
			"rated above 4",
			entity.Record{Domain: entity.Shops, ID: "a", AvgRating: 4.3, ReviewsCount: 3},
			7, []string{"all", "shops", "recommended", "top_rated"},
		},
		{
			"verified low rating",
			entity.Record{Domain: entity.Shops, ID: "b", Verified: true, AvgRating: 3.0, ReviewsCount: 2},
			5, []string{"all", "shops", "verified"},
		},
		{
			"exactly 4 is not top rated",
			entity.Record{Domain: entity.Shops, ID: "c", AvgRating: 4.0, ReviewsCount: 1},
			5, []string{"all", "shops"},
		},
		{
			"recommended and verified",
			entity.Record{Domain: entity.Providers, ID: "d", Recommended: true, Verified: true},
			8, []string{"all", "providers", "recommended", "verified"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := Fallback([]entity.Record{tt.rec}, "", intent.SearchTypeMixed)
			checkInvariants(t, set)
			got := set.Results[0]
			if got.Priority != tt.priority {
				t.Errorf("expected priority %d, got %d", tt.priority, got.Priority)
			}
			if !slices.Equal(got.FilterTags, tt.tags) {
				t.Errorf("expected tags %v, got %v", tt.tags, got.FilterTags)
			}
		})
	}
}

func TestFallback_RatedAboveVerified(t *testing.T) {
	recs := []entity.Record{
		{Domain: entity.Shops, ID: "verified", Verified: true, AvgRating: 3.0, ReviewsCount: 4},
		{Domain: entity.Shops, ID: "rated", AvgRating: 4.3, ReviewsCount: 9},
	}
	set := Fallback(recs, "", intent.SearchTypeMixed)
	if set.Results[0].ID != "rated" || set.Results[1].ID != "verified" {
		t.Errorf("expected rated shop first, got %s, %s", set.Results[0].ID, set.Results[1].ID)
	}
}

func TestFallback_InternalMedicineDoctor(t *testing.T) {
	recs := []entity.Record{
		{Domain: entity.Services, ID: "svc-im", Name: "Internal medicine doctor", Description: "General consultation",
			Shop: &entity.ShopRef{ID: "clinic-1", Name: "Riyadh Care"}},
	}
	set := Fallback(recs, "internal medicine doctor", intent.SearchTypeService)
	checkInvariants(t, set)

	got := set.Results[0]
	if got.DomainType != entity.Services {
		t.Errorf("expected services, got %q", got.DomainType)
	}
	if got.Category.En != "Doctor" || got.Category.Ar != "طبيب" {
		t.Errorf("expected Doctor/طبيب, got %+v", got.Category)
	}
	if set.Summary.SearchType != "SERVICE" {
		t.Errorf("expected SERVICE search type, got %q", set.Summary.SearchType)
	}
}

func TestFallback_DomainHeuristics(t *testing.T) {
	price := 5.0
	stock := 2
	recs := []entity.Record{
		{ID: "svc", Shop: &entity.ShopRef{ID: "s"}},
		{ID: "prd", Price: &price, Stock: &stock},
		{ID: "prv", Biography: "15 years of experience"},
		{ID: "shp", ShopName: "Corner"},
	}
	set := Fallback(recs, "", intent.SearchTypeMixed)
	want := map[string]entity.Domain{
		"svc": entity.Services, "prd": entity.Products, "prv": entity.Providers, "shp": entity.Shops,
	}
	for _, r := range set.Results {
		if r.DomainType != want[r.ID] {
			t.Errorf("%s: expected %q, got %q", r.ID, want[r.ID], r.DomainType)
		}
	}
	if set.Summary.Counts[entity.Products] != 1 {
		t.Errorf("unexpected counts: %v", set.Summary.Counts)
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		rec  entity.Record
		d    entity.Domain
		want string
	}{
		{"english keyword", entity.Record{Name: "City Pharmacy"}, entity.Shops, "Pharmacy"},
		{"arabic keyword", entity.Record{Name: "مطعم البيك"}, entity.Shops, "Restaurant"},
		{"role matched", entity.Record{Name: "Ahmed", Role: "Mechanic"}, entity.Providers, "Mechanic"},
		{"table order wins", entity.Record{Name: "Hospital clinic"}, entity.Shops, "Clinic"},
		{"shop name", entity.Record{Name: "Haircut", Shop: &entity.ShopRef{Name: "Royal Barber"}}, entity.Services, "Barber"},
		{"generic provider", entity.Record{Name: "Ahmed"}, entity.Providers, "Service provider"},
		{"generic product", entity.Record{Name: "Widget"}, entity.Products, "Product"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := categorize(&tt.rec, tt.d)
			if got.En != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got.En)
			}
			if got.Ar == "" {
				t.Error("expected arabic label")
			}
		})
	}
}

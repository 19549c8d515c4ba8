package adapters

import (
	"context"
	"errors"
	"testing"

	"archscout/app/database"
	"archscout/app/navigator"
	"archscout/app/sources"
)

type fakeSeenRepo struct {
	known      map[string]bool
	marked     []string
	markedKind database.IdentifierKind
	rebinds    map[string]string
}

func newFakeSeenRepo() *fakeSeenRepo {
	return &fakeSeenRepo{
		known:   make(map[string]bool),
		rebinds: make(map[string]string),
	}
}

func (r *fakeSeenRepo) IsNew(_, identifier string) (bool, error) {
	return !r.known[identifier], nil
}

func (r *fakeSeenRepo) FilterNew(_ string, identifiers []string) ([]string, error) {
	var fresh []string
	for _, id := range identifiers {
		if !r.known[id] {
			fresh = append(fresh, id)
		}
	}
	return fresh, nil
}

func (r *fakeSeenRepo) MarkSeen(_ string, identifiers []string, kind database.IdentifierKind) (int, error) {
	added := 0
	for _, id := range identifiers {
		if !r.known[id] {
			r.known[id] = true
			added++
		}
	}
	r.marked = append(r.marked, identifiers...)
	r.markedKind = kind
	return added, nil
}

func (r *fakeSeenRepo) FindNewFuzzy(_ string, candidateTexts []string) ([]string, error) {
	var fresh []string
	for _, text := range candidateTexts {
		if !r.known[text] {
			fresh = append(fresh, text)
		}
	}
	return fresh, nil
}

func (r *fakeSeenRepo) RebindIdentifier(_, oldHeadlineText, newURL string) error {
	r.rebinds[oldHeadlineText] = newURL
	delete(r.known, oldHeadlineText)
	r.known[newURL] = true
	return nil
}

func (r *fakeSeenRepo) GetStats(string) (*database.Stats, error) {
	return &database.Stats{TotalRecords: len(r.known)}, nil
}

func (r *fakeSeenRepo) PurgeOlderThan(string, int) (int, error) { return 0, nil }

func (r *fakeSeenRepo) RecentRecords(string, int) ([]database.SeenRecord, error) {
	return nil, nil
}

type fakeExtractor struct {
	headlines []string
	err       error
	gotImage  []byte
}

func (e *fakeExtractor) ExtractHeadlines(_ context.Context, image []byte, _ int) ([]string, error) {
	e.gotImage = image
	return e.headlines, e.err
}

func visionConfig() *sources.Config {
	config := &sources.Config{Name: "archdaily"}
	config.Source.Title = "ArchDaily"
	config.Source.BaseURL = "https://archdaily.com"
	config.Source.ListingURL = "https://archdaily.com/news"
	config.Source.Strategy = sources.StrategyVision
	config.Settings.MaxRetries = 3
	config.Vision.MaxHeadlines = 12
	config.Vision.MinMatchLength = 10
	return config
}

const visionListingHTML = `<html><body>
<a href="/projects/alpine-refuge-in-the-dolomites">Alpine refuge in the Dolomites</a>
<a href="/tiny">hi</a>
</body></html>`

func TestVisionAdapterResolvesHeadlinesToURLs(t *testing.T) {
	repo := newFakeSeenRepo()
	extractor := &fakeExtractor{headlines: []string{
		"Alpine Refuge in the Dolomites",
		"Phantom headline that never appears in the page",
	}}

	adapter, err := NewVisionAdapter(visionConfig(), Deps{Repo: repo, Extractor: extractor})
	if err != nil {
		t.Fatalf("NewVisionAdapter failed: %v", err)
	}

	fetcher := &fakeFetcher{result: &navigator.Result{
		HTML:       visionListingHTML,
		Screenshot: []byte{0x89, 0x50},
		StatusCode: 200,
	}}

	candidates, err := adapter.FetchCandidates(context.Background(), fetcher)
	if err != nil {
		t.Fatalf("FetchCandidates failed: %v", err)
	}

	if !fetcher.gotOpts.CaptureScreenshot {
		t.Error("vision strategy must request a screenshot")
	}
	if len(extractor.gotImage) == 0 {
		t.Error("extractor never received the screenshot")
	}

	// Both headlines are recorded, located or not.
	if len(repo.marked) != 2 {
		t.Fatalf("expected 2 headlines marked, got %v", repo.marked)
	}
	if repo.markedKind != database.KindHeadline {
		t.Errorf("marked kind = %q, expected headline", repo.markedKind)
	}

	// Only the locatable headline becomes a candidate.
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	want := "https://archdaily.com/projects/alpine-refuge-in-the-dolomites"
	if candidates[0].URL != want {
		t.Errorf("URL = %q, expected %q", candidates[0].URL, want)
	}

	if got := repo.rebinds["Alpine Refuge in the Dolomites"]; got != want {
		t.Errorf("rebind = %q, expected %q", got, want)
	}
	if _, ok := repo.rebinds["Phantom headline that never appears in the page"]; ok {
		t.Error("unlocated headline must not be rebound")
	}
}

func TestVisionAdapterSkipsKnownHeadlines(t *testing.T) {
	repo := newFakeSeenRepo()
	repo.known["Alpine Refuge in the Dolomites"] = true

	extractor := &fakeExtractor{headlines: []string{"Alpine Refuge in the Dolomites"}}
	adapter, err := NewVisionAdapter(visionConfig(), Deps{Repo: repo, Extractor: extractor})
	if err != nil {
		t.Fatalf("NewVisionAdapter failed: %v", err)
	}

	fetcher := &fakeFetcher{result: &navigator.Result{HTML: visionListingHTML, Screenshot: []byte{1}, StatusCode: 200}}
	candidates, err := adapter.FetchCandidates(context.Background(), fetcher)
	if err != nil {
		t.Fatalf("FetchCandidates failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates for known headline, got %d", len(candidates))
	}
}

func TestVisionAdapterExtractionFailureIsEmptyResult(t *testing.T) {
	repo := newFakeSeenRepo()
	extractor := &fakeExtractor{err: errors.New("service unavailable")}

	adapter, err := NewVisionAdapter(visionConfig(), Deps{Repo: repo, Extractor: extractor})
	if err != nil {
		t.Fatalf("NewVisionAdapter failed: %v", err)
	}

	fetcher := &fakeFetcher{result: &navigator.Result{HTML: visionListingHTML, Screenshot: []byte{1}, StatusCode: 200}}
	candidates, err := adapter.FetchCandidates(context.Background(), fetcher)
	if err != nil {
		t.Fatalf("extraction failure must not be a run error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(candidates))
	}
	if len(repo.marked) != 0 {
		t.Errorf("nothing should be marked on extraction failure, got %v", repo.marked)
	}
}

func TestVisionAdapterRejectsShortMatches(t *testing.T) {
	repo := newFakeSeenRepo()
	// "hi" is in the DOM but far below the minimum match length.
	extractor := &fakeExtractor{headlines: []string{"hi"}}

	adapter, err := NewVisionAdapter(visionConfig(), Deps{Repo: repo, Extractor: extractor})
	if err != nil {
		t.Fatalf("NewVisionAdapter failed: %v", err)
	}

	fetcher := &fakeFetcher{result: &navigator.Result{HTML: visionListingHTML, Screenshot: []byte{1}, StatusCode: 200}}
	candidates, err := adapter.FetchCandidates(context.Background(), fetcher)
	if err != nil {
		t.Fatalf("FetchCandidates failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("short fragment must not match an anchor, got %d candidates", len(candidates))
	}
}

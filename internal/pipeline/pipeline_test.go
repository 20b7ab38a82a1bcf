package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"imgferry/internal/assets"
	"imgferry/internal/logging"
	"imgferry/internal/normalize"
	"imgferry/internal/pipeline"
	"imgferry/internal/services"
	"imgferry/internal/source"
	"imgferry/internal/store"
	"imgferry/internal/testsupport"
)

type fixture struct {
	pipe   *pipeline.Pipeline
	store  *store.Store
	server *testsupport.ImageServer
	remote *source.RemoteFetcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	server := testsupport.NewImageServer(t)
	remote := source.NewRemoteFetcherFromConfig(cfg, source.WithHTTPClient(server.Client()))
	t.Cleanup(remote.Close)
	pipe := pipeline.New(
		normalize.NewFromConfig(cfg, logging.NewNop()),
		assets.NewPersister(st.Assets()),
		logging.NewNop(),
	).WithClock(func() time.Time { return time.UnixMilli(1700000000000) })
	return &fixture{pipe: pipe, store: st, server: server, remote: remote}
}

func (f *fixture) request(content string) pipeline.Request {
	return pipeline.Request{
		Content:    content,
		UploadedBy: "author-1",
		Origin:     assets.OriginRemoteImport,
		Resolver:   f.remote,
		Filter:     pipeline.RemoteOnly,
	}
}

func TestProcessWithoutReferencesLeavesContent(t *testing.T) {
	f := newFixture(t)
	content := "# Title\n\nJust words, [a link](https://example.com) and ![local](pic.png)."

	out := f.pipe.Process(context.Background(), f.request(content))

	if out.Content != content || out.Changed {
		t.Fatalf("expected unchanged content, got changed=%v %q", out.Changed, out.Content)
	}
	if len(out.Succeeded) != 0 || len(out.Failed) != 0 {
		t.Fatalf("expected empty outcome, got %+v", out)
	}
}

func TestProcessRewritesEveryRemoteReference(t *testing.T) {
	f := newFixture(t)
	first := f.server.Add("/a.png", testsupport.PNG(t, 40, 20), "image/png")
	second := f.server.Add("/b.jpg", testsupport.JPEG(t, 30, 30, 90), "image/jpeg")
	content := fmt.Sprintf("intro ![one](%s) middle ![](%s) again ![one](%s) end", first, second, first)

	out := f.pipe.Process(context.Background(), f.request(content))

	if len(out.Failed) != 0 {
		t.Fatalf("unexpected failures: %+v", out.Failed)
	}
	if len(out.Succeeded) != 2 {
		t.Fatalf("expected 2 successes, got %d", len(out.Succeeded))
	}
	if f.server.Requests("/a.png") != 1 {
		t.Fatalf("expected duplicate reference to be fetched once, got %d", f.server.Requests("/a.png"))
	}
	if !out.Changed {
		t.Fatal("expected Changed")
	}
	if strings.Contains(out.Content, f.server.URL) {
		t.Fatalf("remote URL left in content: %q", out.Content)
	}
	one := out.Succeeded[0]
	two := out.Succeeded[1]
	want := fmt.Sprintf("intro ![one](%s) middle ![Imported image](%s) again ![one](%s) end", one.NewURL, two.NewURL, one.NewURL)
	if out.Content != want {
		t.Fatalf("content mismatch\n got: %q\nwant: %q", out.Content, want)
	}

	stored, err := f.store.Assets().Get(context.Background(), one.AssetID)
	if err != nil || stored == nil {
		t.Fatalf("Get stored asset: %v %#v", err, stored)
	}
	if stored.CanonicalPath != assets.CanonicalPath(one.AssetID) || one.NewPath != stored.CanonicalPath {
		t.Fatalf("path mismatch: outcome=%q stored=%q", one.NewPath, stored.CanonicalPath)
	}
	if stored.Filename != "1700000000000-imported-a.png" {
		t.Fatalf("unexpected filename %q", stored.Filename)
	}
	if stored.OriginalLocator != first || stored.UploadedBy != "author-1" || stored.Origin != assets.OriginRemoteImport {
		t.Fatalf("unexpected provenance: %#v", stored)
	}
}

func TestProcessKeepsFailedReference(t *testing.T) {
	f := newFixture(t)
	good := f.server.Add("/ok.png", testsupport.PNG(t, 8, 8), "image/png")
	missing := f.server.URL + "/missing.png"
	content := fmt.Sprintf("![ok](%s)\n![gone](%s)", good, missing)

	out := f.pipe.Process(context.Background(), f.request(content))

	if len(out.Succeeded) != 1 || len(out.Failed) != 1 {
		t.Fatalf("expected one success and one failure, got %+v", out)
	}
	failure := out.Failed[0]
	if failure.Locator != missing || failure.Stage != pipeline.StageResolve {
		t.Fatalf("unexpected failure: %+v", failure)
	}
	if !strings.Contains(failure.Error, "404") {
		t.Fatalf("expected status in error, got %q", failure.Error)
	}
	if !strings.Contains(out.Content, fmt.Sprintf("![gone](%s)", missing)) {
		t.Fatalf("failed reference was altered: %q", out.Content)
	}
	if strings.Contains(out.Content, good) {
		t.Fatalf("successful reference not rewritten: %q", out.Content)
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.server.Add("/x.gif", testsupport.GIF(t, 4, 4), "image/gif")
	content := fmt.Sprintf("![x](%s/x.gif)", f.server.URL)
	req := f.request(content)
	req.URLBuilder = assets.BaseURLBuilder("https://blog.example.com")

	first := f.pipe.Process(context.Background(), req)
	if len(first.Succeeded) != 1 {
		t.Fatalf("expected first run to succeed, got %+v", first)
	}
	if !strings.HasPrefix(first.Succeeded[0].NewURL, "https://blog.example.com/api/images/") {
		t.Fatalf("unexpected url %q", first.Succeeded[0].NewURL)
	}

	req.Content = first.Content
	second := f.pipe.Process(context.Background(), req)
	if second.Changed || second.Content != first.Content {
		t.Fatalf("second run changed content: %q", second.Content)
	}
	if len(second.Succeeded) != 0 || len(second.Failed) != 0 {
		t.Fatalf("second run processed references: %+v", second)
	}
	if f.server.Requests("/x.gif") != 1 {
		t.Fatalf("expected one fetch, got %d", f.server.Requests("/x.gif"))
	}
}

func TestProcessRecordsPersistFailure(t *testing.T) {
	raw := testsupport.PNG(t, 4, 4)
	resolver := source.ResolverFunc(func(ctx context.Context, locator string) (source.RawAsset, error) {
		return source.RawAsset{Data: raw, Locator: locator, Filename: "p.png"}, nil
	})
	persister := failingPersister{err: services.Wrap(services.ErrPersistence, "persist", "set asset path", "asset 7", errors.New("disk full"))}
	pipe := pipeline.New(normalize.New(normalize.DefaultOptions(), nil), persister, nil)

	out := pipe.Process(context.Background(), pipeline.Request{
		Content:  "![p](https://example.com/p.png)",
		Resolver: resolver,
	})

	if len(out.Failed) != 1 || out.Failed[0].Stage != pipeline.StagePersist {
		t.Fatalf("expected persist failure, got %+v", out.Failed)
	}
	if out.Changed {
		t.Fatal("content must not change when persisting fails")
	}
}

func TestProcessStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	resolver := source.ResolverFunc(func(ctx context.Context, locator string) (source.RawAsset, error) {
		calls++
		cancel()
		return source.RawAsset{}, services.Wrap(services.ErrResolution, "resolve", "fetch", locator, ctx.Err())
	})
	pipe := pipeline.New(normalize.New(normalize.DefaultOptions(), nil), failingPersister{}, nil)

	out := pipe.Process(ctx, pipeline.Request{
		Content:  "![a](https://e.com/a.png) ![b](https://e.com/b.png) ![c](https://e.com/c.png)",
		Resolver: resolver,
	})

	if calls != 1 {
		t.Fatalf("expected resolver to run once, ran %d times", calls)
	}
	if len(out.Failed) != 3 {
		t.Fatalf("expected all references failed, got %+v", out.Failed)
	}
	for _, failure := range out.Failed[1:] {
		if failure.Error != context.Canceled.Error() {
			t.Fatalf("expected cancellation error, got %+v", failure)
		}
	}
}

func TestRunUsesArchiveDefaults(t *testing.T) {
	resolver := source.ResolverFunc(func(ctx context.Context, locator string) (source.RawAsset, error) {
		return source.RawAsset{Data: testsupport.SVG(), Locator: locator, Filename: "diagram one.svg"}, nil
	})
	rec := &recordingPersister{}
	pipe := pipeline.New(normalize.New(normalize.DefaultOptions(), nil), rec, nil).
		WithClock(func() time.Time { return time.UnixMilli(42) })

	success, failure := pipe.Run(context.Background(), resolver, pipeline.Item{
		Locator: "images/diagram one.svg",
		Origin:  assets.OriginArchiveImport,
	}, nil)
	if failure != nil {
		t.Fatalf("unexpected failure: %+v", failure)
	}
	if success.NewURL != "/api/images/asset-1" || success.AltText != "diagram one.svg" {
		t.Fatalf("unexpected success: %+v", success)
	}
	if rec.last.Filename != "42-diagram_one.svg" || rec.last.MIMEType != normalize.MIMESVG {
		t.Fatalf("unexpected asset: %+v", rec.last)
	}
}

type failingPersister struct {
	err error
}

func (p failingPersister) Persist(context.Context, assets.NewAsset) (assets.Saved, error) {
	if p.err == nil {
		return assets.Saved{}, errors.New("persist should not be called")
	}
	return assets.Saved{}, p.err
}

type recordingPersister struct {
	last assets.NewAsset
	n    int
}

func (p *recordingPersister) Persist(_ context.Context, a assets.NewAsset) (assets.Saved, error) {
	p.n++
	p.last = a
	id := fmt.Sprintf("asset-%d", p.n)
	return assets.Saved{ID: id, CanonicalPath: assets.CanonicalPath(id)}, nil
}

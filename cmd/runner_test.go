package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mbx/internal/cache"
	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/services"
	"github.com/desertthunder/mbx/internal/shared"
	tu "github.com/desertthunder/mbx/internal/testing"
	"github.com/stretchr/testify/mock"
)

type fixture struct {
	runner   *Runner
	output   *bytes.Buffer
	fake     *tu.FakeProvider
	registry *tu.MockRegistry
	store    *cache.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fake := tu.NewFakeProvider("fake")
	fake.Artists["1"] = models.Artist{ID: "1", Provider: "fake", Name: "Daft Punk", URL: fake.CreateURL(models.EntityArtist, "1")}
	discovery, homework := tu.FakeAlbum("a1", "Discovery"), tu.FakeAlbum("a2", "Homework")
	discovery.ReleaseDate, homework.ReleaseDate = "2001-03-12", "1997-01-20"
	fake.Catalogs["1"] = []models.Album{discovery, homework}

	providers := services.NewRegistry()
	if err := providers.Register(fake, services.AsDefault()); err != nil {
		t.Fatalf("failed to register fake provider: %v", err)
	}

	f := &fixture{
		output:   &bytes.Buffer{},
		fake:     fake,
		registry: &tu.MockRegistry{},
		store:    cache.NewMemoryStore(),
	}
	f.runner = NewRunner(RunnerOpts{
		Config:    shared.DefaultConfig(),
		Providers: providers,
		Registry:  f.registry,
		Store:     f.store,
		Logger:    log.New(io.Discard),
		Output:    f.output,
		Progress:  io.Discard,
	})
	return f
}

// expectLinked wires the registry so artist "1" resolves to mb-1 with one release linked to Discovery.
func (f *fixture) expectLinked() {
	linked := models.Album{
		ID: "mb-r1", Provider: "musicbrainz", Name: "Discovery", ReleaseDate: "2001-03-12",
		ImageURLs:    []string{"https://coverartarchive.org/release/mb-r1/front"},
		ExternalURLs: []string{tu.FakeAlbum("a1", "Discovery").URL},
	}
	f.registry.On("ArtistIDForURL", mock.Anything, "https://fake.test/artist/1").Return("mb-1", nil)
	f.registry.On("ArtistReleases", mock.Anything, "mb-1", services.ScopeOwn, 0, 100, false).
		Return(&models.AlbumPage{Albums: []models.Album{linked}, Total: 1}, nil)
	f.registry.On("ArtistReleases", mock.Anything, "mb-1", services.ScopeFeatured, 0, 100, false).
		Return(&models.AlbumPage{}, nil)
}

func (f *fixture) run(args ...string) error {
	return newApp(f.runner).Run(context.Background(), append([]string{"mbx"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			providers := services.NewRegistry()
			store := cache.NewMemoryStore()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Providers:  providers,
				Store:      store,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.providers != providers {
				t.Error("expected providers to be set")
			}
			if runner.store != store {
				t.Error("expected store to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.progress != os.Stderr {
				t.Error("expected progress to default to os.Stderr")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "{\"key\":\"value\"}\n" {
				t.Errorf("expected compact JSON, got %q", output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(map[string]any{"ch": make(chan int)}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("Hello %s\n", "World"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "Hello World\n" {
				t.Errorf("expected 'Hello World\\n', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlain("test"); err == nil {
				t.Error("expected error from failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		var names []string
		for _, c := range runner.register() {
			names = append(names, c.Name)
		}

		want := "reconcile,deep-search,providers,resolve,cache,setup"
		if strings.Join(names, ",") != want {
			t.Errorf("expected commands %s, got %v", want, names)
		}
	})

	t.Run("Before", func(t *testing.T) {
		t.Run("builds services from config", func(t *testing.T) {
			output := &bytes.Buffer{}
			offline := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("offline"))}
			runner := NewRunner(RunnerOpts{
				ConfigPath: filepath.Join(t.TempDir(), "missing.toml"),
				HTTPClient: offline,
				Logger:     log.New(io.Discard),
				Output:     output,
				Progress:   io.Discard,
			})

			err := newApp(runner).Run(context.Background(), []string{"mbx", "--config", runner.configPath, "providers", "--json"})
			if err != nil {
				t.Fatalf("providers failed: %v", err)
			}
			if runner.engine == nil || runner.registry == nil {
				t.Fatal("expected engine and registry to be built")
			}
			if got := strings.Join(runner.providers.Namespaces(), ","); got != "spotify,deezer,tidal" {
				t.Errorf("unexpected namespaces %s", got)
			}

			var infos []providerInfo
			if err := json.Unmarshal(output.Bytes(), &infos); err != nil {
				t.Fatalf("invalid JSON output: %v", err)
			}
			if len(infos) != 3 {
				t.Errorf("expected 3 providers, got %d", len(infos))
			}
		})

		t.Run("rejects invalid config", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Reconcile.TieBreak = "random"
			runner := NewRunner(RunnerOpts{Config: config, Logger: log.New(io.Discard), Output: &bytes.Buffer{}})

			err := newApp(runner).Run(context.Background(), []string{"mbx", "providers"})
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("log level flag overrides config", func(t *testing.T) {
			f := newFixture(t)
			if err := f.run("--log-level", "debug", "providers"); err != nil {
				t.Fatalf("providers failed: %v", err)
			}
			if f.runner.logger.GetLevel() != log.DebugLevel {
				t.Errorf("expected debug level, got %v", f.runner.logger.GetLevel())
			}
		})
	})
}

func TestReconcileCommand(t *testing.T) {
	t.Run("renders a text report", func(t *testing.T) {
		f := newFixture(t)
		f.expectLinked()

		if err := f.run("reconcile", "--id", "1", "--color=false"); err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}

		result := f.output.String()
		if !strings.Contains(result, "[green] Discovery -> mb-r1") {
			t.Errorf("expected linked album, got:\n%s", result)
		}
		if !strings.Contains(result, "[red] Homework") {
			t.Errorf("expected unmatched album, got:\n%s", result)
		}
		if !strings.Contains(result, "2 albums: 1 linked, 0 matched by name, 1 unmatched (0 with issues)") {
			t.Errorf("expected summary, got:\n%s", result)
		}
		f.registry.AssertExpectations(t)
	})

	t.Run("accepts an artist link", func(t *testing.T) {
		f := newFixture(t)
		f.expectLinked()

		if err := f.run("reconcile", "--id", "https://fake.test/artist/1", "--format", "json"); err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}

		var report struct {
			Provider string `json:"provider"`
			MBID     string `json:"mbid"`
			Result   struct {
				Counts struct {
					Total int `json:"total"`
					Green int `json:"green"`
				} `json:"counts"`
			} `json:"result"`
		}
		if err := json.Unmarshal(f.output.Bytes(), &report); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, f.output.String())
		}
		if report.Provider != "fake" || report.MBID != "mb-1" {
			t.Errorf("unexpected report header %+v", report)
		}
		if report.Result.Counts.Total != 2 || report.Result.Counts.Green != 1 {
			t.Errorf("unexpected counts %+v", report.Result.Counts)
		}
	})

	t.Run("writes the report to a file", func(t *testing.T) {
		f := newFixture(t)
		f.expectLinked()
		path := filepath.Join(t.TempDir(), "report.csv")

		if err := f.run("reconcile", "--id", "1", "--output", path); err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}

		tu.AssertFileExists(t, path)
		content := tu.MustReadFile(t, path)
		if !strings.HasPrefix(content, "ID,Name,URL") {
			t.Errorf("expected CSV inferred from extension, got:\n%s", content)
		}
		if !strings.Contains(f.output.String(), "2 albums") {
			t.Errorf("expected summary on stdout, got %q", f.output.String())
		}
	})

	t.Run("uses a given mbid", func(t *testing.T) {
		f := newFixture(t)
		f.registry.On("ArtistReleases", mock.Anything, "mb-9", mock.Anything, 0, 100, false).Return(&models.AlbumPage{}, nil)

		if err := f.run("reconcile", "--id", "1", "--mbid", "mb-9", "--format", "md"); err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}
		f.registry.AssertNotCalled(t, "ArtistIDForURL", mock.Anything, mock.Anything)
		if !strings.Contains(f.output.String(), "https://musicbrainz.org/artist/mb-9") {
			t.Errorf("expected registry link, got:\n%s", f.output.String())
		}
	})

	t.Run("input errors", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
			want error
		}{
			{"unknown format", []string{"reconcile", "--id", "1", "--format", "yaml"}, shared.ErrInvalidInput},
			{"unknown provider", []string{"reconcile", "--id", "1", "--provider", "napster"}, shared.ErrUnknownProvider},
			{"album link", []string{"reconcile", "--id", "https://fake.test/album/a1"}, shared.ErrInvalidInput},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)
				err := f.run(tt.args...)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
				if !isInputError(err) {
					t.Errorf("expected %v to be an input error", err)
				}
			})
		}
	})
}

func TestDeepSearchCommand(t *testing.T) {
	f := newFixture(t)
	f.fake.Catalogs["1"][0].Barcode = "724384960650"
	f.registry.On("ReleasesByBarcode", mock.Anything, "724384960650").Return([]models.Album{
		{ID: "r1", Artists: []models.ArtistCredit{{ID: "mb-dp", Name: "Daft Punk"}}},
	}, nil)

	t.Run("text", func(t *testing.T) {
		f.output.Reset()
		if err := f.run("deep-search", "--id", "1", "--count", "1"); err != nil {
			t.Fatalf("deep-search failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "Daft Punk (mb-dp)") {
			t.Errorf("expected winner, got:\n%s", f.output.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		f.output.Reset()
		if err := f.run("deep-search", "--id", "1", "--count", "1", "--json"); err != nil {
			t.Fatalf("deep-search failed: %v", err)
		}
		var result struct {
			MBID    string `json:"mbid"`
			Outcome string `json:"outcome"`
		}
		if err := json.Unmarshal(f.output.Bytes(), &result); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if result.MBID != "mb-dp" || result.Outcome != "matched" {
			t.Errorf("unexpected result %+v", result)
		}
	})
}

func TestProvidersCommand(t *testing.T) {
	t.Run("lists providers", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run("providers"); err != nil {
			t.Fatalf("providers failed: %v", err)
		}
		result := f.output.String()
		if !strings.HasPrefix(result, "* fake") {
			t.Errorf("expected default marker, got %q", result)
		}
		if !strings.Contains(result, "artist_albums") {
			t.Errorf("expected capabilities, got %q", result)
		}
	})

	t.Run("filters by capability", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run("providers", "--capability", "track_by_isrc", "--json"); err != nil {
			t.Fatalf("providers failed: %v", err)
		}
		if strings.TrimSpace(f.output.String()) != "[]" {
			t.Errorf("expected no providers, got %s", f.output.String())
		}
	})

	t.Run("unknown capability", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run("providers", "--capability", "teleport"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestResolveCommand(t *testing.T) {
	t.Run("resolves a link", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run("resolve", "https://fake.test/album/a1"); err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if f.output.String() != "fake album a1\n" {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("unknown link", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run("resolve", "https://example.com/x"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("missing argument", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run("resolve"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestCacheCommand(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		_ = f.store.Set(ctx, "fake:a", []byte("1"), time.Nanosecond)
		_ = f.store.Set(ctx, "fake:b", []byte("2"), 0)
		time.Sleep(time.Millisecond)

		if err := f.run("cache", "prune"); err != nil {
			t.Fatalf("prune failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "Removed 1 expired entries") {
			t.Errorf("unexpected prune output %q", f.output.String())
		}

		f.output.Reset()
		if err := f.run("cache", "clear"); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "Removed 1 entries") {
			t.Errorf("unexpected clear output %q", f.output.String())
		}
		if f.store.Len() != 0 {
			t.Errorf("expected empty store, got %d entries", f.store.Len())
		}
	})

	t.Run("sqlite backend", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Cache.Backend = "sqlite"
		config.Cache.Path = filepath.Join(t.TempDir(), "cache.db")

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:    config,
			Providers: services.NewRegistry(),
			Registry:  &tu.MockRegistry{},
			Logger:    log.New(io.Discard),
			Output:    output,
		})

		if err := newApp(runner).Run(context.Background(), []string{"mbx", "cache", "clear"}); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		tu.AssertFileExists(t, config.Cache.Path)
		if !strings.Contains(output.String(), "Removed 0 entries") {
			t.Errorf("unexpected output %q", output.String())
		}
		if runner.db != nil {
			t.Error("expected database to be closed after the command")
		}
	})
}

func TestSetupCommand(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		f := newFixture(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := f.run("setup", "config", "--path", path); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)
		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("written config does not load: %v", err)
		}

		if err := f.run("setup", "config", "--path", path); err == nil {
			t.Error("expected error when the config already exists")
		}
	})

	t.Run("database", func(t *testing.T) {
		f := newFixture(t)
		f.runner.config.Cache.Path = filepath.Join(t.TempDir(), "mbx.db")

		if err := f.run("setup", "database"); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		tu.AssertFileExists(t, f.runner.config.Cache.Path)
		if !strings.Contains(f.output.String(), "migrations applied") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})
}

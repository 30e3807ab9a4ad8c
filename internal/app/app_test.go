package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCrawler/internal/config"
	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/logging"
)

const cnnPage = `{"result":{"body":{"Content":{"List":[
	{"Title":"Vacinação avança","canonical":"https://www.cnnbrasil.com.br/saude/vacinacao","changedAt":1617460200},
	{"Title":"Casos caem","canonical":"https://www.cnnbrasil.com.br/saude/casos","changedAt":1617373800}
]}}}}`

func newTestApp(t *testing.T) *Application {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			_, _ = w.Write([]byte(cnnPage))
			return
		}
		_, _ = w.Write([]byte(`{"result":{"body":{"Content":{"List":[]}}}}`))
	}))
	t.Cleanup(srv.Close)

	cfg := config.Config{
		Storage: config.StorageConfig{Driver: config.DriverMongo},
		Crawl:   config.CrawlConfig{Concurrency: 2},
		Sources: []config.SourceConfig{
			{Name: "CNN", Adapter: config.AdapterCNN, Endpoint: srv.URL, Query: "coronavirus"},
		},
	}

	application, err := New(context.Background(), cfg, logging.Discard(), Options{DryRun: true, HTTPClient: srv.Client()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close(context.Background()) })
	return application
}

func TestApplicationRunOneIsIncremental(t *testing.T) {
	application := newTestApp(t)
	ctx := context.Background()

	assert.Equal(t, []string{"CNN"}, application.SourceIDs())

	first, err := application.RunOne(ctx, "CNN")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, domain.StopExhausted, first.StopReason)

	second, err := application.RunOne(ctx, "CNN")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, domain.StopWatermark, second.StopReason)
}

func TestApplicationRunAll(t *testing.T) {
	application := newTestApp(t)

	summaries := application.RunAll(context.Background())
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].OK())
	assert.Equal(t, 2, summaries[0].Inserted)
}

func TestApplicationUnknownSource(t *testing.T) {
	application := newTestApp(t)

	_, err := application.Run(context.Background(), []string{"BBC"})
	assert.True(t, errors.Is(err, domain.ErrUnknownSource))
}

func TestApplicationRejectsUnknownAdapter(t *testing.T) {
	cfg := config.Config{
		Sources: []config.SourceConfig{{Name: "BBC", Adapter: "bbc", Endpoint: "https://bbc.example"}},
	}
	_, err := New(context.Background(), cfg, logging.Discard(), Options{DryRun: true})
	assert.Error(t, err)
}

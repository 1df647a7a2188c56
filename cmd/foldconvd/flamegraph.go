package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/profilekit/foldconv/internal/grafana"
	"github.com/profilekit/foldconv/internal/httputil"
	"github.com/profilekit/foldconv/internal/linesource"
	"github.com/profilekit/foldconv/internal/nestedset"
	"github.com/profilekit/foldconv/internal/storageutil"
)

func requestHub(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// postConvert aggregates the folded text in the request body and
// responds with the rows in the requested format. Nothing is persisted.
func (e *environment) postConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := requestHub(ctx)

	format, ok := httputil.GetFormat(w, r)
	if !ok {
		return
	}
	separator, ok := httputil.GetSeparator(w, r)
	if !ok {
		return
	}

	lines, err := linesource.FromReader(r.Body)
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s := sentry.StartSpan(ctx, "aggregate")
	rows := nestedset.Aggregate(lines, separator)
	s.Finish()

	w.Header().Set("Content-Type", format.ContentType())
	if err := grafana.Write(w, format, rows); err != nil {
		hub.CaptureException(err)
	}
}

type postFlamegraphResponse struct {
	FlamegraphID string `json:"flamegraph_id"`
}

// postFlamegraph aggregates the folded text in the request body and
// persists the rows to the results store under a fresh ID.
func (e *environment) postFlamegraph(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := requestHub(ctx)

	separator, ok := httputil.GetSeparator(w, r)
	if !ok {
		return
	}

	lines, err := linesource.FromReader(r.Body)
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s := sentry.StartSpan(ctx, "aggregate")
	rows := nestedset.Aggregate(lines, separator)
	s.Finish()

	flamegraphID := uuid.New().String()
	s = sentry.StartSpan(ctx, "storage.write")
	err = storageutil.CompressedWrite(ctx, e.resultsStore, flamegraphID, rows)
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	b, err := gojson.Marshal(postFlamegraphResponse{FlamegraphID: flamegraphID})
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(b)
}

// getFlamegraph serves a persisted flamegraph as data frame JSON.
func (e *environment) getFlamegraph(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := requestHub(ctx)
	ps := httprouter.ParamsFromContext(ctx)
	flamegraphID := ps.ByName("flamegraph_id")
	if _, err := uuid.Parse(flamegraphID); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	hub.Scope().SetTag("flamegraph_id", flamegraphID)

	var rows []nestedset.Row
	s := sentry.StartSpan(ctx, "storage.read")
	err := storageutil.UnmarshalCompressed(ctx, e.resultsStore, flamegraphID, &rows)
	s.Finish()
	if err != nil {
		if errors.Is(err, storageutil.ErrObjectNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := grafana.WriteDataFrame(w, rows); err != nil {
		hub.CaptureException(err)
	}
}

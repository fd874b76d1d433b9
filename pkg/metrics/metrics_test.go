package metrics

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLog(t *testing.T) {
	CacheHits.Add(3)
	Queries.WithLabelValues("ok").Inc()
	QueryDuration.Observe(0.02)

	core, logs := observer.New(zap.InfoLevel)
	if err := Log(zap.New(core)); err != nil {
		t.Fatalf("Log: %v", err)
	}

	byName := map[string]map[string]any{}
	for _, e := range logs.All() {
		fields := e.ContextMap()
		name, _ := fields["metric"].(string)
		if name == "" {
			t.Errorf("entry without metric name: %v", fields)
			continue
		}
		if _, dup := byName[name]; !dup || fields["outcome"] == "ok" {
			byName[name] = fields
		}
	}

	if f := byName["offline_router_pagecache_hits_total"]; f == nil || f["value"].(float64) < 3 {
		t.Errorf("cache hits: got %v", f)
	}
	if f := byName["offline_router_queries_total"]; f == nil || f["outcome"] != "ok" {
		t.Errorf("queries: got %v", f)
	}
	if f := byName["offline_router_query_duration_seconds"]; f == nil || f["count"].(uint64) < 1 {
		t.Errorf("duration: got %v", f)
	}
	for name := range byName {
		if len(name) < len(namespace) || name[:len(namespace)] != namespace {
			t.Errorf("foreign metric logged: %s", name)
		}
	}
}

package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrymomot/atomicsession/pkg/cookie"
	"github.com/dmitrymomot/atomicsession/pkg/session"
)

func BenchmarkApplyMutation(b *testing.B) {
	doc := session.Document{"views": int64(10), "cart": []any{"a", "b", "c"}}
	m := session.Mutation{Ops: []session.Operation{
		{Op: session.OpInc, Key: "views", Value: 1},
		{Op: session.OpAddToSet, Key: "cart", Value: "d"},
		{Op: session.OpSet, Key: "path", Value: "/"},
	}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = session.ApplyMutation(doc, m)
	}
}

func BenchmarkManager_LoadAndSet(b *testing.B) {
	store := session.NewMemoryStore(0)
	defer store.Close()
	m := session.New(session.WithStore(store))

	seed := newJar(nil)
	sess, err := m.Load(m.Attach(context.Background(), seed))
	if err != nil {
		b.Fatal(err)
	}
	incoming := map[string]string{cookieName: sess.ID().Hex()}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx := m.Attach(context.Background(), newJar(incoming))
		s, err := m.Load(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if err := s.Inc(ctx, "n", 1); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMiddleware(b *testing.B) {
	cookies, err := cookie.New([]string{testSecret})
	if err != nil {
		b.Fatal(err)
	}
	store := session.NewMemoryStore(0)
	defer store.Close()
	m := session.New(session.WithStore(store), session.WithCookieManager(cookies))
	h := m.Middleware(counterHandler(m))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	sid := rec.Result().Cookies()[0]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(sid)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
